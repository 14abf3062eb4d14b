package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/Saymandev/advanced-poss-gateway/pkg/scope"
)

type contextKey string

const reqMetaKey = contextKey("r-metadata")

// RequestMetadata accumulates what the chain learns about a handshake:
// client IP, then identity claims from query parameters, then (if a
// token is presented) the authoritative claims from the JWT.
type RequestMetadata struct {
	IP     string
	Claims scope.Claims
}

func ReqMetadataFrom(ctx context.Context) (*RequestMetadata, bool) {
	reqMeta, ok := ctx.Value(reqMetaKey).(*RequestMetadata)
	return reqMeta, ok
}

// RequestMetadataMiddleware seeds the metadata from the transport-level
// request: remote IP and query-parameter claims. Must run first.
func RequestMetadataMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			reqMeta := &RequestMetadata{
				IP:     ip,
				Claims: claimsFromQuery(r),
			}
			ctx := context.WithValue(r.Context(), reqMetaKey, reqMeta)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// claimsFromQuery reads the handshake claims a client may pass as query
// parameters. features accepts a comma-separated list.
func claimsFromQuery(r *http.Request) scope.Claims {
	q := r.URL.Query()
	claims := scope.Claims{
		UserID:    q.Get("userId"),
		BranchID:  q.Get("branchId"),
		CompanyID: q.Get("companyId"),
		Role:      q.Get("role"),
	}
	if raw := q.Get("features"); raw != "" {
		claims.Features = strings.Split(raw, ",")
	}
	return claims
}
