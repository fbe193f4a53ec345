package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BasmalaAyman4/storefront-gateway/internal/config"
	"github.com/BasmalaAyman4/storefront-gateway/internal/locale"
	"github.com/BasmalaAyman4/storefront-gateway/internal/models"
	"github.com/BasmalaAyman4/storefront-gateway/internal/ratelimit"
	"github.com/BasmalaAyman4/storefront-gateway/internal/repository"
	"github.com/BasmalaAyman4/storefront-gateway/internal/upstream"
)

type fakeAuthUpstream struct {
	loginGrant *models.AuthGrant
	loginErr   error
	loginCalls int32
	loginHook  func()

	signupResp  *models.SignupStartResponse
	signupErr   error
	signupCalls int32

	verifyErr   error
	verifyCalls int32

	passwordGrant *models.AuthGrant
	passwordErr   error
	passwordCalls int32

	profileErr       error
	profileCalls     int32
	lastProfileToken string
}

func (f *fakeAuthUpstream) Login(ctx context.Context, req models.LoginRequest, loc locale.Locale) (*models.AuthGrant, error) {
	atomic.AddInt32(&f.loginCalls, 1)
	if f.loginHook != nil {
		f.loginHook()
	}
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.loginGrant, nil
}

func (f *fakeAuthUpstream) SignupStart(ctx context.Context, req models.SignupStartRequest, loc locale.Locale) (*models.SignupStartResponse, error) {
	atomic.AddInt32(&f.signupCalls, 1)
	if f.signupErr != nil {
		return nil, f.signupErr
	}
	return f.signupResp, nil
}

func (f *fakeAuthUpstream) VerifyCode(ctx context.Context, req models.VerifyCodeRequest, loc locale.Locale) error {
	atomic.AddInt32(&f.verifyCalls, 1)
	return f.verifyErr
}

func (f *fakeAuthUpstream) SetPassword(ctx context.Context, req models.SetPasswordRequest, loc locale.Locale) (*models.AuthGrant, error) {
	atomic.AddInt32(&f.passwordCalls, 1)
	if f.passwordErr != nil {
		return nil, f.passwordErr
	}
	return f.passwordGrant, nil
}

func (f *fakeAuthUpstream) SetPersonalInfo(ctx context.Context, token string, req models.PersonalInfoRequest, loc locale.Locale) (*models.AuthGrant, error) {
	atomic.AddInt32(&f.profileCalls, 1)
	f.lastProfileToken = token
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	return &models.AuthGrant{FirstName: req.FirstName, LastName: req.LastName, Address: req.Address}, nil
}

type authTestEnv struct {
	svc      *AuthService
	up       *fakeAuthUpstream
	sessions *SessionService
	repo     *repository.MemorySessionRepository
	limiter  *ratelimit.Limiter
}

func newAuthTestEnv(t *testing.T) *authTestEnv {
	t.Helper()

	sessions, repo, _ := newTestSessionService(t, &fakeSessionUpstream{})

	limiter := ratelimit.New(ratelimit.Config{
		Interval:               15 * time.Minute,
		UniqueTokenPerInterval: 500,
		Retention:              time.Hour,
		SweepInterval:          time.Hour,
	})
	t.Cleanup(func() { _ = limiter.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	up := &fakeAuthUpstream{}
	cfg := &config.RateLimitConfig{
		Interval:    15 * time.Minute,
		LoginLimit:  5,
		SignupLimit: 3,
		VerifyLimit: 5,
	}

	return &authTestEnv{
		svc:      NewAuthService(up, sessions, limiter, cfg, logger),
		up:       up,
		sessions: sessions,
		repo:     repo,
		limiter:  limiter,
	}
}

func TestLoginEstablishesSessionWithoutExposingToken(t *testing.T) {
	env := newAuthTestEnv(t)
	ctx := context.Background()

	env.up.loginGrant = &models.AuthGrant{
		UserID:      "u1",
		AccessToken: "T1",
		Mobile:      "0100000000",
		FirstName:   "Nour",
	}

	res, err := env.svc.Login(ctx, models.LoginRequest{Mobile: "0100000000", Password: "Passw0rd!"}, locale.English)
	require.NoError(t, err)
	require.NotNil(t, res.Session)
	assert.True(t, res.Session.Authenticated)
	assert.Equal(t, "0000", res.Session.MobileLastDigits)

	raw, err := json.Marshal(res.Session)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "T1")

	parts := strings.Split(res.Cookie, ".")
	require.Len(t, parts, 3)
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	assert.NotContains(t, string(payload), "T1")

	// The server still holds the bearer token for upstream calls.
	sid, err := env.sessions.cookies.VerifySessionToken(res.Cookie)
	require.NoError(t, err)
	stored, err := env.repo.Get(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, "T1", stored.AccessToken)
}

func TestSixthLoginAttemptRateLimitedBeforeNetwork(t *testing.T) {
	env := newAuthTestEnv(t)
	ctx := context.Background()

	env.up.loginErr = &upstream.StatusError{Status: 401, Message: "invalid credentials"}
	req := models.LoginRequest{Mobile: "0100000000", Password: "Passw0rd!"}

	for i := 0; i < 5; i++ {
		_, err := env.svc.Login(ctx, req, locale.English)
		assert.ErrorIs(t, err, ErrAuthFailed)
	}

	_, err := env.svc.Login(ctx, req, locale.English)
	require.Error(t, err)
	assert.ErrorIs(t, err, ratelimit.ErrLimitExceeded)
	assert.Contains(t, err.Error(), "retry after 15 minutes")
	assert.EqualValues(t, 5, atomic.LoadInt32(&env.up.loginCalls), "the limited attempt must not reach the network")
}

func TestLoginRejectsDuplicateInFlight(t *testing.T) {
	env := newAuthTestEnv(t)
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	env.up.loginHook = func() {
		close(entered)
		<-release
	}
	env.up.loginGrant = &models.AuthGrant{UserID: "u1", AccessToken: "T1", Mobile: "0100000000"}

	req := models.LoginRequest{Mobile: "0100000000", Password: "Passw0rd!"}

	var firstErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, firstErr = env.svc.Login(ctx, req, locale.English)
	}()

	<-entered
	_, err := env.svc.Login(ctx, req, locale.English)
	assert.ErrorIs(t, err, ErrAlreadyInProgress)

	close(release)
	<-done
	require.NoError(t, firstErr)
	assert.EqualValues(t, 1, atomic.LoadInt32(&env.up.loginCalls))
}

func TestLoginCancellationIsDistinctOutcome(t *testing.T) {
	env := newAuthTestEnv(t)

	env.up.loginErr = fmt.Errorf("request aborted: %w", context.Canceled)

	_, err := env.svc.Login(context.Background(), models.LoginRequest{Mobile: "0100000000", Password: "Passw0rd!"}, locale.English)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.NotErrorIs(t, err, ErrAuthFailed)
	assert.Equal(t, 0, env.repo.Size(), "an aborted login must not leave a session behind")
}

func TestLoginUpstreamRejectionMapsToAuthFailed(t *testing.T) {
	env := newAuthTestEnv(t)

	env.up.loginErr = &upstream.StatusError{Status: 401, Message: "invalid credentials"}

	_, err := env.svc.Login(context.Background(), models.LoginRequest{Mobile: "0100000000", Password: "Passw0rd!"}, locale.English)
	assert.ErrorIs(t, err, ErrAuthFailed)
	assert.Contains(t, err.Error(), "invalid credentials")
}

func TestLoginValidationShortCircuits(t *testing.T) {
	env := newAuthTestEnv(t)

	_, err := env.svc.Login(context.Background(), models.LoginRequest{Mobile: "0100000000", Password: "short"}, locale.English)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.EqualValues(t, 0, atomic.LoadInt32(&env.up.loginCalls))

	st := env.limiter.GetStatus(5, "login:0100000000")
	assert.Equal(t, 0, st.Count, "a rejected request must not consume an attempt")
}

func TestSignupFlowEstablishesSessionAtCredentialStep(t *testing.T) {
	env := newAuthTestEnv(t)
	ctx := context.Background()

	env.up.signupResp = &models.SignupStartResponse{FlowID: "f1"}
	start, err := env.svc.SignupStart(ctx, models.SignupStartRequest{Mobile: "0100000000"}, locale.English)
	require.NoError(t, err)
	assert.Equal(t, models.StepOtpPending, start.Flow.Step)
	assert.Equal(t, "f1", start.Flow.FlowID)
	assert.Nil(t, start.Session)

	verified, err := env.svc.VerifyCode(ctx, models.VerifyCodeRequest{FlowID: "f1", Code: "1234"}, locale.English)
	require.NoError(t, err)
	assert.Equal(t, models.StepPasswordPending, verified.Flow.Step)
	assert.Nil(t, verified.Session)

	env.up.passwordGrant = &models.AuthGrant{UserID: "u9", AccessToken: "T9", Mobile: "0100000000"}
	cred, err := env.svc.SetCredential(ctx, models.SetPasswordRequest{FlowID: "f1", Password: "Passw0rd!"}, locale.English)
	require.NoError(t, err)
	assert.Equal(t, models.StepPersonalInfoPending, cred.Flow.Step)
	require.NotNil(t, cred.Session)
	assert.True(t, cred.Session.Authenticated)
	require.NotEmpty(t, cred.Cookie)

	raw, err := json.Marshal(cred.Session)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "T9")

	completed, err := env.svc.SetProfile(ctx, cred.Cookie, models.PersonalInfoRequest{FirstName: "Nour", LastName: "Hassan"}, locale.English)
	require.NoError(t, err)
	assert.Equal(t, models.StepCompleted, completed.Flow.Step)
	require.NotNil(t, completed.Session)
	assert.Equal(t, "Nour", completed.Session.FirstName)
	assert.Equal(t, "Hassan", completed.Session.LastName)

	// The profile call was authenticated with the stored token, never one
	// provided by the client.
	assert.Equal(t, "T9", env.up.lastProfileToken)
}

func TestVerifyCodeRateLimitedPerFlow(t *testing.T) {
	env := newAuthTestEnv(t)
	ctx := context.Background()

	env.up.verifyErr = &upstream.StatusError{Status: 400, Message: "wrong code"}
	req := models.VerifyCodeRequest{FlowID: "f1", Code: "0000"}

	for i := 0; i < 5; i++ {
		_, err := env.svc.VerifyCode(ctx, req, locale.English)
		assert.ErrorIs(t, err, ErrAuthFailed)
		assert.Contains(t, err.Error(), "wrong code")
	}

	_, err := env.svc.VerifyCode(ctx, req, locale.English)
	assert.ErrorIs(t, err, ratelimit.ErrLimitExceeded)
	assert.EqualValues(t, 5, atomic.LoadInt32(&env.up.verifyCalls))

	// A different flow is counted separately.
	env.up.verifyErr = nil
	_, err = env.svc.VerifyCode(ctx, models.VerifyCodeRequest{FlowID: "f2", Code: "1234"}, locale.English)
	assert.NoError(t, err)
}

func TestSetProfileWithoutSessionFails(t *testing.T) {
	env := newAuthTestEnv(t)

	_, err := env.svc.SetProfile(context.Background(), "garbage", models.PersonalInfoRequest{FirstName: "A", LastName: "B"}, locale.English)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.EqualValues(t, 0, atomic.LoadInt32(&env.up.profileCalls))
}
