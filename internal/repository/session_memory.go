package repository

import (
	"context"
	"sync"
	"time"

	"github.com/BasmalaAyman4/storefront-gateway/internal/models"
)

// MemorySessionRepository keeps sessions in process memory. Suitable for
// single-instance deployments and tests; the DynamoDB repository covers
// multi-instance setups.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
}

var _ SessionRepository = (*MemorySessionRepository)(nil)

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[string]models.Session),
	}
}

func (r *MemorySessionRepository) Put(ctx context.Context, session *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = *session
	return nil
}

func (r *MemorySessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	out := session
	return &out, nil
}

func (r *MemorySessionRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *MemorySessionRepository) ListIdleSince(ctx context.Context, cutoff time.Time) ([]models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var idle []models.Session
	for _, session := range r.sessions {
		if session.LastSeenAt.Before(cutoff) {
			idle = append(idle, session)
		}
	}
	return idle, nil
}

// Size reports how many sessions are held.
func (r *MemorySessionRepository) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
