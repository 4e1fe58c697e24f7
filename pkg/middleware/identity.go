package middleware

import (
	"context"
	"net/http"
	"strings"

	"homestay/pkg/logger"
)

const ActorIDKey contextKey = "actor_id"

// ActorHeader carries the caller identity verified by the upstream gateway.
// This service trusts it as input; token verification is not its concern.
const ActorHeader = "X-User-ID"

func Identity(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actorID := strings.TrimSpace(r.Header.Get(ActorHeader))
			if actorID == "" {
				log.Warn("Missing actor identity header",
					"request_id", requestIDFrom(r.Context()),
					"path", r.URL.Path,
					"method", r.Method,
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"Missing caller identity"}`))
				return
			}

			ctx := context.WithValue(r.Context(), ActorIDKey, actorID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorID returns the authenticated caller id stored by the Identity
// middleware, or an empty string when absent.
func ActorID(ctx context.Context) string {
	if v := ctx.Value(ActorIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
