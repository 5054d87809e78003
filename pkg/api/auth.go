package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
)

// AuthServiceName is the fully-qualified name of the AuthService service.
const AuthServiceName = "settleup.v1.AuthService"

const (
	AuthServiceRegisterProcedure       = "/settleup.v1.AuthService/Register"
	AuthServiceLoginProcedure          = "/settleup.v1.AuthService/Login"
	AuthServiceGetCurrentUserProcedure = "/settleup.v1.AuthService/GetCurrentUser"
)

// User is the public view of an account.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	CreatedAt   int64  `json:"createdAt"`
}

type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
}

type RegisterResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type GetCurrentUserResponse struct {
	User *User `json:"user"`
}

// AuthServiceHandler is implemented by the server side of AuthService.
// Register and Login are public; GetCurrentUser requires a bearer token.
type AuthServiceHandler interface {
	Register(context.Context, *connect.Request[RegisterRequest]) (*connect.Response[RegisterResponse], error)
	Login(context.Context, *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error)
	GetCurrentUser(context.Context, *connect.Request[emptypb.Empty]) (*connect.Response[GetCurrentUserResponse], error)
}

// NewAuthServiceHandler builds an HTTP handler for AuthService. The public
// procedures get publicOpts, the rest get opts. Returns the path to mount on.
func NewAuthServiceHandler(svc AuthServiceHandler, publicOpts []connect.HandlerOption, opts ...connect.HandlerOption) (string, http.Handler) {
	public := handlerOptions(publicOpts)
	private := handlerOptions(opts)

	mux := http.NewServeMux()
	mux.Handle(AuthServiceRegisterProcedure, connect.NewUnaryHandler(AuthServiceRegisterProcedure, svc.Register, public...))
	mux.Handle(AuthServiceLoginProcedure, connect.NewUnaryHandler(AuthServiceLoginProcedure, svc.Login, public...))
	mux.Handle(AuthServiceGetCurrentUserProcedure, connect.NewUnaryHandler(AuthServiceGetCurrentUserProcedure, svc.GetCurrentUser, private...))
	return "/" + AuthServiceName + "/", mux
}

// AuthServiceClient is a client for AuthService.
type AuthServiceClient struct {
	register       *connect.Client[RegisterRequest, RegisterResponse]
	login          *connect.Client[LoginRequest, LoginResponse]
	getCurrentUser *connect.Client[emptypb.Empty, GetCurrentUserResponse]
}

// NewAuthServiceClient constructs a client for AuthService.
func NewAuthServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *AuthServiceClient {
	baseURL = trimBase(baseURL)
	opts = clientOptions(opts)
	return &AuthServiceClient{
		register:       connect.NewClient[RegisterRequest, RegisterResponse](httpClient, baseURL+AuthServiceRegisterProcedure, opts...),
		login:          connect.NewClient[LoginRequest, LoginResponse](httpClient, baseURL+AuthServiceLoginProcedure, opts...),
		getCurrentUser: connect.NewClient[emptypb.Empty, GetCurrentUserResponse](httpClient, baseURL+AuthServiceGetCurrentUserProcedure, opts...),
	}
}

func (c *AuthServiceClient) Register(ctx context.Context, req *connect.Request[RegisterRequest]) (*connect.Response[RegisterResponse], error) {
	return c.register.CallUnary(ctx, req)
}

func (c *AuthServiceClient) Login(ctx context.Context, req *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error) {
	return c.login.CallUnary(ctx, req)
}

func (c *AuthServiceClient) GetCurrentUser(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[GetCurrentUserResponse], error) {
	return c.getCurrentUser.CallUnary(ctx, req)
}
