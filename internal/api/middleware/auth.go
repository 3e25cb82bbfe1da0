package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mcoot/wordbattles/internal/api/apierr"
	"github.com/mcoot/wordbattles/internal/model"
	"github.com/mcoot/wordbattles/internal/services/auth"
)

type sessionKey struct{}

// SessionValidator resolves bearer tokens
type SessionValidator interface {
	ValidateSession(token string) (*auth.Session, error)
}

// Auth rejects requests without a valid bearer token and stores the
// resolved session in the request context
func Auth(sessions SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			session, err := sessions.ValidateSession(token)
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, session)))
		})
	}
}

// extractToken reads an Authorization bearer token (scheme is
// case-insensitive), falling back to the token query parameter for
// EventSource clients
func extractToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return r.URL.Query().Get("token")
}

// GetSession returns the session from the request context, or nil
func GetSession(ctx context.Context) *auth.Session {
	session, _ := ctx.Value(sessionKey{}).(*auth.Session)
	return session
}

// GetPlayer returns the authenticated player from the request context, or nil
func GetPlayer(ctx context.Context) *model.Player {
	if session := GetSession(ctx); session != nil {
		return &session.Player
	}
	return nil
}

// MustGetPlayer returns the authenticated player. Only valid behind Auth.
func MustGetPlayer(ctx context.Context) *model.Player {
	player := GetPlayer(ctx)
	if player == nil {
		panic("no player in context: route is missing the auth middleware")
	}
	return player
}
