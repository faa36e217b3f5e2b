package httpmw

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"runtime/debug"
	"strings"
	"time"
)

type panicEntry struct {
	TS        string `json:"ts"`
	Level     string `json:"level"`
	Msg       string `json:"msg"`
	RequestID string `json:"request_id"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	Panic     string `json:"panic"`
	Stack     string `json:"stack"`
}

// WithRecover turns a handler panic into a 500: JSON under /api/, plain
// text elsewhere.
func WithRecover(logger *log.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = log.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}
				writeLine(logger, panicEntry{
					TS:        time.Now().UTC().Format(time.RFC3339Nano),
					Level:     "error",
					Msg:       "panic_recovered",
					RequestID: RequestIDFromContext(r.Context()),
					Method:    r.Method,
					Path:      r.URL.Path,
					Panic:     fmt.Sprint(v),
					Stack:     string(debug.Stack()),
				})
				internalError(w, r)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func internalError(w http.ResponseWriter, r *http.Request) {
	const msg = "internal server error"
	if !strings.HasPrefix(r.URL.Path, "/api/") {
		http.Error(w, msg, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
