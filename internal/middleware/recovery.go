package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/coffeeshop/coffeeshop/internal/handler/dto"
)

// Recoverer is a middleware that recovers from panics.
// It logs the panic with its stack and returns the 500 envelope.
// http.ErrAbortHandler is re-panicked so net/http can abort the response.
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}

				logger.Error("panic recovered",
					slog.String("request_id", GetRequestID(r.Context())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Any("panic", rvr),
					slog.String("stack", string(debug.Stack())),
				)

				writeError(w, dto.NewErrorResponse(http.StatusInternalServerError, "internal server error"))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
