package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/coffeeshop/coffeeshop/internal/auth"
	"github.com/coffeeshop/coffeeshop/internal/handler/dto"
	"github.com/coffeeshop/coffeeshop/internal/metrics"
)

// Authorizer verifies an Authorization header value and checks a permission.
// *auth.Gate implements it.
type Authorizer interface {
	Authorize(ctx context.Context, header, permission string) (*auth.Claims, error)
}

// PermissionConfig configures RequirePermission.
type PermissionConfig struct {
	Authorizer Authorizer
	Logger     *slog.Logger
	Metrics    metrics.Recorder
}

// RequirePermission returns middleware that admits only requests whose bearer
// token grants permission. Verified claims are stored in the request context
// (see auth.ClaimsFromContext). Rejections are written as the auth envelope
// and the wrapped handler never runs.
func RequirePermission(cfg PermissionConfig, permission string) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := cfg.Authorizer.Authorize(r.Context(), r.Header.Get("Authorization"), permission)
			if err != nil {
				authErr, ok := auth.AsError(err)
				if !ok {
					authErr = auth.ErrInvalidHeader("Unable to parse authentication token.", err)
				}

				attrs := []slog.Attr{
					slog.String("request_id", GetRequestID(r.Context())),
					slog.String("reason", authErr.Code),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("permission", permission),
				}
				if authErr.Err != nil {
					attrs = append(attrs, slog.String("error", authErr.Err.Error()))
				}

				level := slog.LevelWarn
				if authErr.Status >= http.StatusInternalServerError {
					level = slog.LevelError
				}
				logger.LogAttrs(r.Context(), level, "authorization rejected", attrs...)

				recorder.IncAuthRejected(authErr.Code)
				writeError(w, dto.ErrorResponse{
					Success: false,
					Error:   authErr.Status,
					Code:    authErr.Code,
					Message: authErr.Description,
				})
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.ContextWithClaims(r.Context(), claims)))
		})
	}
}
