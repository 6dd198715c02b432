package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"testcase-assistant/pkg/log"
)

// Recoverer turns a panic into a 500 with the same {error} body handlers use.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			log.Errorf("panic serving %s %s: %v\n%s", r.Method, r.URL.Path, rec, debug.Stack())
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error: %v", rec))
		}()
		next.ServeHTTP(w, r)
	})
}
