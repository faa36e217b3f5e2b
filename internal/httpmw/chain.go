// Package httpmw holds the middleware every taskapp response passes
// through: request ids, access logging, panic recovery and security
// headers.
package httpmw

import "net/http"

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// Chain wraps h so the first middleware sees the request first.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	if h == nil {
		h = http.NotFoundHandler()
	}
	for i := range mws {
		h = mws[len(mws)-1-i](h)
	}
	return h
}
