package repository

import (
	"context"
	"errors"
	"time"

	"github.com/BasmalaAyman4/storefront-gateway/internal/models"
)

var ErrSessionNotFound = errors.New("repository: session not found")

// SessionRepository persists server-held sessions.
type SessionRepository interface {
	Put(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
	// ListIdleSince returns sessions whose last activity predates the
	// cutoff, with access tokens intact so callers can revoke them.
	ListIdleSince(ctx context.Context, cutoff time.Time) ([]models.Session, error)
}
