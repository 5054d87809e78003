package middleware

import (
	"context"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// LoggingInterceptor returns a Connect interceptor that logs every RPC call
// with its procedure, caller, duration and result code. Server-side failures
// log at error level; rejected requests log as warnings.
func LoggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			attrs := []any{
				"procedure", req.Spec().Procedure,
				"user_id", GetUserID(ctx), // empty on public procedures
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if err == nil {
				slog.Info("RPC ok", attrs...)
				return resp, nil
			}

			code := connect.CodeOf(err)
			attrs = append(attrs, "code", code.String(), "error", err)
			if serverFault(code) {
				slog.Error("RPC error", attrs...)
			} else {
				slog.Warn("RPC error", attrs...)
			}
			return resp, err
		}
	}
}

func serverFault(code connect.Code) bool {
	switch code {
	case connect.CodeInternal, connect.CodeUnknown, connect.CodeDataLoss, connect.CodeUnavailable:
		return true
	}
	return false
}
