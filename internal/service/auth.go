package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/BasmalaAyman4/storefront-gateway/internal/config"
	"github.com/BasmalaAyman4/storefront-gateway/internal/locale"
	"github.com/BasmalaAyman4/storefront-gateway/internal/models"
	"github.com/BasmalaAyman4/storefront-gateway/internal/ratelimit"
	"github.com/BasmalaAyman4/storefront-gateway/internal/upstream"
)

// authUpstream is the slice of the upstream client the auth flows call.
type authUpstream interface {
	Login(ctx context.Context, req models.LoginRequest, loc locale.Locale) (*models.AuthGrant, error)
	SignupStart(ctx context.Context, req models.SignupStartRequest, loc locale.Locale) (*models.SignupStartResponse, error)
	VerifyCode(ctx context.Context, req models.VerifyCodeRequest, loc locale.Locale) error
	SetPassword(ctx context.Context, req models.SetPasswordRequest, loc locale.Locale) (*models.AuthGrant, error)
	SetPersonalInfo(ctx context.Context, token string, req models.PersonalInfoRequest, loc locale.Locale) (*models.AuthGrant, error)
}

// AuthService orchestrates the login and signup flows. Every action is
// guarded twice before the network: a duplicate of an in-flight action is
// rejected outright, and the rate limiter counts the attempt against its
// identifier.
type AuthService struct {
	upstream authUpstream
	sessions *SessionService
	limiter  *ratelimit.Limiter
	limits   config.RateLimitConfig
	validate *validator.Validate
	logger   *logrus.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewAuthService(client authUpstream, sessions *SessionService, limiter *ratelimit.Limiter, cfg *config.RateLimitConfig, logger *logrus.Logger) *AuthService {
	return &AuthService{
		upstream: client,
		sessions: sessions,
		limiter:  limiter,
		limits:   *cfg,
		validate: validator.New(),
		logger:   logger,
		inFlight: make(map[string]struct{}),
	}
}

// LoginResult carries the client projection and the cookie value minted
// for the new session.
type LoginResult struct {
	Session *models.ClientSession
	Cookie  string
}

// SignupStepResult reports where the signup flow stands after a step and,
// once the credential step establishes a session, its client projection.
type SignupStepResult struct {
	Flow    models.AuthFlowState
	Session *models.ClientSession
	Cookie  string
}

func (s *AuthService) Login(ctx context.Context, req models.LoginRequest, loc locale.Locale) (*LoginResult, error) {
	if err := s.validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	key := "login:" + req.Mobile
	if err := s.begin(key); err != nil {
		return nil, err
	}
	defer s.end(key)

	if _, err := s.limiter.Check(s.limits.LoginLimit, key); err != nil {
		return nil, err
	}

	grant, err := s.upstream.Login(ctx, req, loc)
	if err != nil {
		return nil, classifyAuthErr(err)
	}

	session, cookie, err := s.sessions.Establish(ctx, grant)
	if err != nil {
		return nil, err
	}

	s.logger.WithField("user_id", grant.UserID).Info("User logged in")
	return &LoginResult{Session: session, Cookie: cookie}, nil
}

func (s *AuthService) SignupStart(ctx context.Context, req models.SignupStartRequest, loc locale.Locale) (*SignupStepResult, error) {
	if err := s.validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	key := "signup:" + req.Mobile
	if err := s.begin(key); err != nil {
		return nil, err
	}
	defer s.end(key)

	if _, err := s.limiter.Check(s.limits.SignupLimit, key); err != nil {
		return nil, err
	}

	resp, err := s.upstream.SignupStart(ctx, req, loc)
	if err != nil {
		return nil, classifyAuthErr(err)
	}

	return &SignupStepResult{
		Flow: models.AuthFlowState{Step: models.StepOtpPending, FlowID: resp.FlowID},
	}, nil
}

func (s *AuthService) VerifyCode(ctx context.Context, req models.VerifyCodeRequest, loc locale.Locale) (*SignupStepResult, error) {
	if err := s.validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	key := "verify:" + req.FlowID
	if err := s.begin(key); err != nil {
		return nil, err
	}
	defer s.end(key)

	if _, err := s.limiter.Check(s.limits.VerifyLimit, key); err != nil {
		return nil, err
	}

	if err := s.upstream.VerifyCode(ctx, req, loc); err != nil {
		return nil, classifyAuthErr(err)
	}

	return &SignupStepResult{
		Flow: models.AuthFlowState{Step: models.StepPasswordPending, FlowID: req.FlowID},
	}, nil
}

// SetCredential finishes the credential step of signup. The grant it
// yields is the first point a bearer token exists, so this is where the
// session is established.
func (s *AuthService) SetCredential(ctx context.Context, req models.SetPasswordRequest, loc locale.Locale) (*SignupStepResult, error) {
	if err := s.validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	key := "password:" + req.FlowID
	if err := s.begin(key); err != nil {
		return nil, err
	}
	defer s.end(key)

	if _, err := s.limiter.Check(s.limits.VerifyLimit, key); err != nil {
		return nil, err
	}

	grant, err := s.upstream.SetPassword(ctx, req, loc)
	if err != nil {
		return nil, classifyAuthErr(err)
	}

	session, cookie, err := s.sessions.Establish(ctx, grant)
	if err != nil {
		return nil, err
	}

	s.logger.WithField("user_id", grant.UserID).Info("Signup credential accepted")
	return &SignupStepResult{
		Flow:    models.AuthFlowState{Step: models.StepPersonalInfoPending, FlowID: req.FlowID},
		Session: session,
		Cookie:  cookie,
	}, nil
}

// SetProfile completes signup for the session behind the cookie. The
// stored bearer token authenticates the upstream call; it never transits
// the client.
func (s *AuthService) SetProfile(ctx context.Context, cookieValue string, req models.PersonalInfoRequest, loc locale.Locale) (*SignupStepResult, error) {
	if err := s.validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	session, err := s.sessions.Resolve(ctx, cookieValue)
	if err != nil {
		return nil, err
	}

	key := "profile:" + session.UserID
	if err := s.begin(key); err != nil {
		return nil, err
	}
	defer s.end(key)

	if _, err := s.limiter.Check(s.limits.VerifyLimit, key); err != nil {
		return nil, err
	}

	if _, err := s.upstream.SetPersonalInfo(ctx, session.AccessToken, req, loc); err != nil {
		return nil, classifyAuthErr(err)
	}

	view, err := s.sessions.UpdateProfile(ctx, session.ID, req.FirstName, req.LastName, req.Address)
	if err != nil {
		return nil, err
	}

	return &SignupStepResult{
		Flow:    models.AuthFlowState{Step: models.StepCompleted},
		Session: view,
	}, nil
}

// begin registers an in-flight action; the duplicate of a running action
// is rejected until the first completes.
func (s *AuthService) begin(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inFlight[key]; busy {
		return ErrAlreadyInProgress
	}
	s.inFlight[key] = struct{}{}
	return nil
}

func (s *AuthService) end(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, key)
}

// classifyAuthErr translates transport failures into auth outcomes.
// Credential and code rejections surface as ErrAuthFailed carrying the
// upstream message; a caller abort surfaces as ErrCancelled. Everything
// else passes through with its transport classification intact.
func classifyAuthErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}

	var statusErr *upstream.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.Status {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusUnprocessableEntity:
			return NewAuthError(statusErr.Message, err)
		}
	}
	return err
}
