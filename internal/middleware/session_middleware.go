package middleware

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/BasmalaAyman4/storefront-gateway/internal/models"
	"github.com/BasmalaAyman4/storefront-gateway/internal/service"
)

type sessionKey struct{}

type SessionMiddleware struct {
	sessions   *service.SessionService
	cookieName string
	logger     *logrus.Logger
}

func NewSessionMiddleware(sessions *service.SessionService, cookieName string, logger *logrus.Logger) *SessionMiddleware {
	return &SessionMiddleware{
		sessions:   sessions,
		cookieName: cookieName,
		logger:     logger,
	}
}

// RequireSession resolves the session cookie and attaches the session to
// the request context. Resolution touches the idle timer and refreshes
// the upstream token when it has expired.
func (m *SessionMiddleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(m.cookieName)
		if err != nil {
			m.respondUnauthorized(w, "Missing session cookie")
			return
		}

		session, err := m.sessions.Resolve(r.Context(), cookie.Value)
		if err != nil {
			m.logger.WithError(err).Debug("Session resolution failed")
			m.respondUnauthorized(w, "No active session")
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey{}, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionFrom returns the session attached by RequireSession.
func SessionFrom(ctx context.Context) (*models.Session, bool) {
	session, ok := ctx.Value(sessionKey{}).(*models.Session)
	return session, ok
}

func (m *SessionMiddleware) respondUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":{"code":"NO_SESSION","message":"` + message + `"}}`))
}
