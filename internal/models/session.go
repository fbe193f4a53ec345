package models

import "time"

type SessionState string

const (
	SessionStateAuthenticated  SessionState = "authenticated"
	SessionStateRefreshPending SessionState = "refresh_pending"
	SessionStateExpired        SessionState = "expired"
	SessionStateInvalidated    SessionState = "invalidated"
)

// ClientStateKeys are the client-side storage keys the frontend must wipe
// whenever a session is torn down. Logout responses enumerate them so the
// client clears local state even when upstream revocation fails.
var ClientStateKeys = []string{
	"session_meta",
	"user_prefs",
	"cart_snapshot",
	"recent_searches",
}

// Session is the server-held representation of an authenticated user.
// AccessToken is secret material: it is excluded from every serialized
// form and only the repository layer persists it, sealed.
type Session struct {
	ID               string       `json:"id" dynamodbav:"id"`
	UserID           string       `json:"user_id" dynamodbav:"user_id"`
	MobileLastDigits string       `json:"mobile_last_digits" dynamodbav:"mobile_last_digits"`
	FirstName        string       `json:"first_name,omitempty" dynamodbav:"first_name,omitempty"`
	LastName         string       `json:"last_name,omitempty" dynamodbav:"last_name,omitempty"`
	Address          string       `json:"address,omitempty" dynamodbav:"address,omitempty"`
	AccessToken      string       `json:"-" dynamodbav:"-"`
	State            SessionState `json:"state" dynamodbav:"state"`
	TokenIssuedAt    time.Time    `json:"token_issued_at" dynamodbav:"token_issued_at"`
	TokenExpiresAt   time.Time    `json:"token_expires_at" dynamodbav:"token_expires_at"`
	LastSeenAt       time.Time    `json:"last_seen_at" dynamodbav:"last_seen_at"`
	CreatedAt        time.Time    `json:"created_at" dynamodbav:"created_at"`
}

func (s *Session) GetPK() string {
	return "SESSION!" + s.ID
}

func (s *Session) GetSK() string {
	return "METADATA"
}

// ClientSession is the projection handed to the UI. It never carries the
// bearer token.
type ClientSession struct {
	Authenticated    bool   `json:"authenticated"`
	UserID           string `json:"user_id,omitempty"`
	MobileLastDigits string `json:"mobile_last_digits,omitempty"`
	FirstName        string `json:"first_name,omitempty"`
	LastName         string `json:"last_name,omitempty"`
	Address          string `json:"address,omitempty"`
}

func (s *Session) ClientView() ClientSession {
	return ClientSession{
		Authenticated:    true,
		UserID:           s.UserID,
		MobileLastDigits: s.MobileLastDigits,
		FirstName:        s.FirstName,
		LastName:         s.LastName,
		Address:          s.Address,
	}
}
