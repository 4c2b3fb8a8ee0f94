package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
)

// ContextKey is a type for context keys
type ContextKey string

// ContextKeyClientID holds the anonymous client identity
const ContextKeyClientID ContextKey = "client_id"

// HeaderClientID lets browser clients keep a stable anonymous identity
const HeaderClientID = "X-Client-ID"

const maxClientIDLen = 128

// ClientIdentity derives the anonymous identity used for quotas and rate
// limits: the X-Client-ID header when present, else the remote IP. Run it
// after chi's RealIP.
func ClientIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := clientIDFromRequest(r)
		ctx := context.WithValue(r.Context(), ContextKeyClientID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIDFromRequest(r *http.Request) string {
	if h := strings.TrimSpace(r.Header.Get(HeaderClientID)); h != "" {
		if len(h) > maxClientIDLen {
			h = h[:maxClientIDLen]
		}
		return "cid:" + h
	}
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		host = h
	}
	return "ip:" + host
}

// ClientID returns the client identity from context
func ClientID(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyClientID).(string); ok {
		return id
	}
	return ""
}
