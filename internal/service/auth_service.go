package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/mmynk/settleup/internal/auth"
	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/storage"
	"github.com/mmynk/settleup/pkg/api"
)

// AuthService implements the AuthService RPC interface.
type AuthService struct {
	authenticator auth.Authenticator
	tokens        auth.TokenIssuer
	users         storage.UserStore
	logger        *slog.Logger
}

var _ api.AuthServiceHandler = (*AuthService)(nil)

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, tokens auth.TokenIssuer, users storage.UserStore, logger *slog.Logger) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		tokens:        tokens,
		users:         users,
		logger:        logger,
	}
}

// Register creates a new user account.
func (s *AuthService) Register(ctx context.Context, req *connect.Request[api.RegisterRequest]) (*connect.Response[api.RegisterResponse], error) {
	s.logger.Info("Register request", "email", req.Msg.Email)

	if req.Msg.Email == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, auth.ErrInvalidEmail)
	}
	if req.Msg.DisplayName == "" {
		return nil, invalidArgument("display_name required")
	}

	user, err := s.authenticator.Register(ctx, req.Msg.Email, req.Msg.DisplayName, req.Msg.Password)
	if err != nil {
		s.logger.Error("Registration failed", "email", req.Msg.Email, "error", err)
		switch {
		case errors.Is(err, auth.ErrEmailExists):
			return nil, connect.NewError(connect.CodeAlreadyExists, err)
		case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrInvalidEmail):
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	token, err := s.session(user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("User registered", "user_id", user.ID)
	return connect.NewResponse(&api.RegisterResponse{User: toAPIUser(user), Token: token}), nil
}

// Login authenticates a user and returns a JWT token.
func (s *AuthService) Login(ctx context.Context, req *connect.Request[api.LoginRequest]) (*connect.Response[api.LoginResponse], error) {
	s.logger.Info("Login request", "email", req.Msg.Email)

	if req.Msg.Email == "" || req.Msg.Password == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, auth.ErrInvalidCredentials)
	}

	user, err := s.authenticator.Authenticate(ctx, req.Msg.Email, req.Msg.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.logger.Warn("Login failed", "email", req.Msg.Email)
			return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidCredentials)
		}
		s.logger.Error("Login failed", "email", req.Msg.Email, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	token, err := s.session(user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("User logged in", "user_id", user.ID)
	return connect.NewResponse(&api.LoginResponse{User: toAPIUser(user), Token: token}), nil
}

// GetCurrentUser returns the currently authenticated user's information.
func (s *AuthService) GetCurrentUser(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[api.GetCurrentUserResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("GetCurrentUser request", "user_id", userID)

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		s.logger.Error("GetCurrentUser failed", "user_id", userID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if user == nil {
		// The token outlived the account.
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidToken)
	}

	return connect.NewResponse(&api.GetCurrentUserResponse{User: toAPIUser(user)}), nil
}

func (s *AuthService) session(user *models.User) (string, error) {
	token, err := s.tokens.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return "", connect.NewError(connect.CodeInternal, err)
	}
	return token, nil
}
