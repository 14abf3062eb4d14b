package middleware

import (
	"log/slog"
	"net/http"

	"github.com/Saymandev/advanced-poss-gateway/pkg/config"
)

type UserConnectionCounter func(userID string) int
type UserConnectionCycler func(userID string)

// NewConnectionLimiter bounds the number of live connections a single
// user may hold. Mode "reject" turns new handshakes away; mode "cycle"
// closes the user's oldest connection to make room. Runs after auth so
// the user id is known; anonymous handshakes are not limited.
func NewConnectionLimiter(
	logger *slog.Logger,
	counter UserConnectionCounter,
	cycler UserConnectionCycler,
	cfg config.ConnectionLimitConfig,
) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.MaxPerUser <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			reqMeta, ok := ReqMetadataFrom(r.Context())
			if !ok {
				logger.Error("connection limiter found no request metadata, check middleware order")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			userID := reqMeta.Claims.UserID
			if userID == "" {
				next.ServeHTTP(w, r)
				return
			}

			count := counter(userID)
			if count < cfg.MaxPerUser {
				next.ServeHTTP(w, r)
				return
			}

			logger.Warn("user connection limit reached",
				slog.String("userID", userID),
				slog.Int("count", count),
			)
			switch cfg.Mode {
			case "cycle":
				cycler(userID)
				next.ServeHTTP(w, r)
			default:
				http.Error(w, "Too Many Active Connections", http.StatusTooManyRequests)
			}
		})
	}
}
