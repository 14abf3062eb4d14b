package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AppClaims is the custom JWT claims structure for handshake tokens.
// The subject is the user id; the rest mirrors the identity attributes
// a connection may declare.
type AppClaims struct {
	BranchID  string      `json:"branchId,omitempty"`
	CompanyID string      `json:"companyId,omitempty"`
	Role      string      `json:"role,omitempty"`
	Features  FeatureList `json:"features,omitempty"`
	jwt.RegisteredClaims
}

// FeatureList accepts both wire forms of the features claim: a JSON
// array of strings or a single comma-separated string.
type FeatureList []string

func (f *FeatureList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*f = list
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*f = nil
		return nil
	}
	*f = strings.Split(raw, ",")
	return nil
}

// NewAuthMiddleware verifies the handshake token and makes its claims
// the authoritative identity, overriding anything from query
// parameters. An empty secret disables verification entirely; the
// gateway then trusts the query-parameter claims as-is.
func NewAuthMiddleware(logger *slog.Logger, jwtSecret string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if jwtSecret == "" {
				next.ServeHTTP(w, r)
				return
			}

			reqMeta, ok := ReqMetadataFrom(r.Context())
			if !ok {
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			tokenString := extractToken(r)
			if tokenString == "" {
				logger.Warn("handshake missing token", slog.String("ip", reqMeta.IP))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			token, err := jwt.ParseWithClaims(tokenString, &AppClaims{}, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				logger.Warn("invalid handshake token",
					slog.String("ip", reqMeta.IP),
					slog.Any("error", err),
				)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(*AppClaims)
			if !ok || claims.Subject == "" {
				logger.Warn("valid token missing 'sub' claim", slog.String("ip", reqMeta.IP))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			reqMeta.Claims.UserID = claims.Subject
			if claims.BranchID != "" {
				reqMeta.Claims.BranchID = claims.BranchID
			}
			if claims.CompanyID != "" {
				reqMeta.Claims.CompanyID = claims.CompanyID
			}
			if claims.Role != "" {
				reqMeta.Claims.Role = claims.Role
			}
			if len(claims.Features) > 0 {
				reqMeta.Claims.Features = claims.Features
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractToken looks for the handshake token in, by precedence, the
// "token" query parameter, the Authorization header, and the
// session-token cookie.
func extractToken(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if cookie, err := r.Cookie("session-token"); err == nil {
		return cookie.Value
	}
	return ""
}
