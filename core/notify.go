package core

import "time"

// Intent types emitted by the core. Delivery, retries and formatting are
// entirely up to the sink implementation.
const (
	IntentRoleAssigned         = "role_assigned"
	IntentRoleRevoked          = "role_revoked"
	IntentStudentEnrolled      = "student_enrolled"
	IntentGuardianLinkAccepted = "guardian_link_accepted"
	IntentOrganizationCreated  = "organization_created"
	IntentQuizPublished        = "quiz_published"
	IntentAttemptCompleted     = "attempt_completed"
)

type Intent struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data,omitempty"`
	At   time.Time              `json:"at"`
}

func NewIntent(typ string, data map[string]interface{}) Intent {
	return Intent{Type: typ, Data: data, At: time.Now().UTC()}
}

// IntentSink receives fire-and-forget notification intents.
type IntentSink interface {
	Emit(intents ...Intent)
}
