package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/BasmalaAyman4/storefront-gateway/internal/config"
	"github.com/BasmalaAyman4/storefront-gateway/internal/locale"
	"github.com/BasmalaAyman4/storefront-gateway/internal/models"
	"github.com/BasmalaAyman4/storefront-gateway/internal/repository"
)

// sessionUpstream is the slice of the upstream client the session
// lifecycle calls.
type sessionUpstream interface {
	RefreshToken(ctx context.Context, token string, loc locale.Locale) (*models.AuthGrant, error)
	InvalidateToken(ctx context.Context, token string, loc locale.Locale) error
}

// SessionService owns the server-side session lifecycle: establishing a
// session from a fresh grant, resolving cookies on every request,
// refreshing aged tokens, and tearing sessions down on logout or idle
// timeout. Reads and writes for one session serialize on a per-session
// lock so a token refresh happens at most once per expiry.
type SessionService struct {
	repo          repository.SessionRepository
	upstream      sessionUpstream
	cookies       *CookieService
	cfg           config.SessionConfig
	defaultLocale locale.Locale
	logger        *logrus.Logger
	now           func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewSessionService(repo repository.SessionRepository, client sessionUpstream, cookies *CookieService, cfg *config.SessionConfig, defaultLocale locale.Locale, logger *logrus.Logger) *SessionService {
	s := &SessionService{
		repo:          repo,
		upstream:      client,
		cookies:       cookies,
		cfg:           *cfg,
		defaultLocale: defaultLocale,
		logger:        logger,
		now:           time.Now,
		locks:         make(map[string]*sync.Mutex),
		stopChan:      make(chan struct{}),
	}

	s.wg.Add(1)
	go s.sweepLoop()

	return s
}

// Establish creates a session for a fresh grant and returns the client
// projection together with the signed cookie value.
func (s *SessionService) Establish(ctx context.Context, grant *models.AuthGrant) (*models.ClientSession, string, error) {
	now := s.now()
	session := &models.Session{
		ID:               uuid.New().String(),
		UserID:           grant.UserID,
		MobileLastDigits: lastDigits(grant.Mobile, 4),
		FirstName:        grant.FirstName,
		LastName:         grant.LastName,
		Address:          grant.Address,
		AccessToken:      grant.AccessToken,
		State:            models.SessionStateAuthenticated,
		TokenIssuedAt:    now,
		TokenExpiresAt:   now.Add(s.cfg.TokenLifetime),
		LastSeenAt:       now,
		CreatedAt:        now,
	}

	if err := s.repo.Put(ctx, session); err != nil {
		s.logger.WithError(err).Error("Failed to persist session")
		return nil, "", fmt.Errorf("failed to persist session: %w", err)
	}

	cookie, err := s.cookies.MintSessionToken(session.ID)
	if err != nil {
		return nil, "", err
	}

	view := session.ClientView()
	return &view, cookie, nil
}

// Resolve maps a session cookie to the live session. An idle session is
// torn down on sight; a token older than its lifetime is refreshed before
// the session is returned, and a failed refresh ends the session.
func (s *SessionService) Resolve(ctx context.Context, cookieValue string) (*models.Session, error) {
	sessionID, err := s.cookies.VerifySessionToken(cookieValue)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}

	lock := s.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}

	now := s.now()
	if now.Sub(session.LastSeenAt) > s.cfg.IdleTimeout {
		s.teardown(ctx, session, models.SessionStateInvalidated)
		return nil, fmt.Errorf("%w: idle for more than %s", ErrNoSession, s.cfg.IdleTimeout)
	}

	if now.After(session.TokenExpiresAt) {
		if err := s.refresh(ctx, session); err != nil {
			s.teardown(ctx, session, models.SessionStateExpired)
			return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
		}
	}

	session.LastSeenAt = now
	if err := s.repo.Put(ctx, session); err != nil {
		s.logger.WithError(err).Error("Failed to update session activity")
		return nil, fmt.Errorf("failed to update session activity: %w", err)
	}

	return session, nil
}

// UpdateProfile overwrites the identity fields held on the session and
// returns the refreshed client projection.
func (s *SessionService) UpdateProfile(ctx context.Context, sessionID, firstName, lastName, address string) (*models.ClientSession, error) {
	lock := s.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}

	session.FirstName = firstName
	session.LastName = lastName
	session.Address = address
	session.LastSeenAt = s.now()

	if err := s.repo.Put(ctx, session); err != nil {
		s.logger.WithError(err).Error("Failed to update session profile")
		return nil, fmt.Errorf("failed to update session profile: %w", err)
	}

	view := session.ClientView()
	return &view, nil
}

// Invalidate ends the session behind the cookie. Upstream revocation is
// best-effort; the enumerated client-side keys to clear are returned even
// when no session could be resolved, so logout always wipes local state.
func (s *SessionService) Invalidate(ctx context.Context, cookieValue string) []string {
	sessionID, err := s.cookies.VerifySessionToken(cookieValue)
	if err != nil {
		return models.ClientStateKeys
	}

	lock := s.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return models.ClientStateKeys
	}

	s.teardown(ctx, session, models.SessionStateInvalidated)
	return models.ClientStateKeys
}

// Close stops the idle sweep. Safe to call multiple times.
func (s *SessionService) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// refresh exchanges the stored token for a new grant. The caller holds
// the session lock, so no other reader sees the RefreshPending state as
// anything but transient.
func (s *SessionService) refresh(ctx context.Context, session *models.Session) error {
	session.State = models.SessionStateRefreshPending
	if err := s.repo.Put(ctx, session); err != nil {
		s.logger.WithError(err).Warn("Failed to persist refresh transition")
	}

	grant, err := s.upstream.RefreshToken(ctx, session.AccessToken, s.defaultLocale)
	if err != nil {
		s.logger.WithError(err).WithField("session_id", session.ID).Warn("Token refresh failed")
		return fmt.Errorf("token refresh failed: %w", err)
	}

	now := s.now()
	session.AccessToken = grant.AccessToken
	session.State = models.SessionStateAuthenticated
	session.TokenIssuedAt = now
	session.TokenExpiresAt = now.Add(s.cfg.TokenLifetime)
	if grant.UserID != "" {
		session.UserID = grant.UserID
	}

	s.logger.WithField("session_id", session.ID).Info("Session token refreshed")
	return nil
}

// teardown revokes the upstream token best-effort and always removes the
// server-side session.
func (s *SessionService) teardown(ctx context.Context, session *models.Session, terminal models.SessionState) {
	if session.AccessToken != "" {
		if err := s.upstream.InvalidateToken(ctx, session.AccessToken, s.defaultLocale); err != nil {
			s.logger.WithError(err).WithField("session_id", session.ID).Warn("Upstream token revocation failed")
		}
	}

	if err := s.repo.Delete(ctx, session.ID); err != nil {
		s.logger.WithError(err).WithField("session_id", session.ID).Error("Failed to delete session")
	}

	session.State = terminal
	session.AccessToken = ""
	s.dropLock(session.ID)

	s.logger.WithFields(logrus.Fields{
		"session_id": session.ID,
		"state":      terminal,
	}).Info("Session ended")
}

func (s *SessionService) sweepLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sweepIdle(context.Background())
		}
	}
}

// sweepIdle tears down sessions whose idle timeout elapsed without a
// request arriving to notice. Each candidate is re-read under its lock so
// a session that just became active again is left alone.
func (s *SessionService) sweepIdle(ctx context.Context) int {
	cutoff := s.now().Add(-s.cfg.IdleTimeout)

	idle, err := s.repo.ListIdleSince(ctx, cutoff)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list idle sessions")
		return 0
	}

	removed := 0
	for _, candidate := range idle {
		lock := s.lockFor(candidate.ID)
		lock.Lock()
		session, err := s.repo.Get(ctx, candidate.ID)
		if err == nil && session.LastSeenAt.Before(cutoff) {
			s.teardown(ctx, session, models.SessionStateInvalidated)
			removed++
		}
		lock.Unlock()
	}

	return removed
}

func (s *SessionService) lockFor(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

func (s *SessionService) dropLock(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, id)
}

func lastDigits(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
