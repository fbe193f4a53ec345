package models

type FlowStep string

const (
	StepMobileEntry         FlowStep = "mobile_entry"
	StepOtpPending          FlowStep = "otp_pending"
	StepPasswordPending     FlowStep = "password_pending"
	StepPersonalInfoPending FlowStep = "personal_info_pending"
	StepCompleted           FlowStep = "completed"
)

// AuthFlowState tracks where a signup flow stands. It is returned to the
// caller after each step and never persisted server-side.
type AuthFlowState struct {
	Step   FlowStep `json:"step"`
	FlowID string   `json:"flow_id,omitempty"`
}

type LoginRequest struct {
	Mobile   string `json:"mobile" validate:"required,numeric,min=10,max=15"`
	Password string `json:"password" validate:"required,min=8"`
}

type SignupStartRequest struct {
	Mobile string `json:"mobile" validate:"required,numeric,min=10,max=15"`
}

type SignupStartResponse struct {
	FlowID string `json:"flow_id"`
}

type VerifyCodeRequest struct {
	FlowID string `json:"flow_id" validate:"required"`
	Code   string `json:"code" validate:"required,numeric,min=4,max=8"`
}

type SetPasswordRequest struct {
	FlowID   string `json:"flow_id" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

type PersonalInfoRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Address   string `json:"address,omitempty"`
}

// AuthGrant is the upstream's response to any call that authenticates the
// user: login, the credential step of signup, profile completion, and token
// refresh. AccessToken is the bearer credential and must never reach a
// client-visible payload.
type AuthGrant struct {
	UserID      string `json:"user_id"`
	AccessToken string `json:"access_token"`
	Mobile      string `json:"mobile"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Address     string `json:"address,omitempty"`
}
