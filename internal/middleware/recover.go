package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/harrylevesque/primetrade/internal/utils"
)

// Recover turns a handler panic into a JSON 500.
func Recover(logger utils.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rv := recover(); rv != nil {
					if rv == http.ErrAbortHandler {
						panic(rv)
					}
					logger.Error("panic serving request", map[string]interface{}{
						"path":       r.URL.Path,
						"panic":      fmt.Sprint(rv),
						"stack":      string(debug.Stack()),
						"request_id": RequestIDFromContext(r.Context()),
					})
					utils.ErrorResponse(w, http.StatusInternalServerError, "Internal Server Error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
