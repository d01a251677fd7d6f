package guardian

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

// Relationship kinds form a closed set.
type Kind string

const (
	KindParent   Kind = "parent"
	KindGuardian Kind = "guardian"
	KindOther    Kind = "other"
)

func (k Kind) Valid() bool {
	switch k {
	case KindParent, KindGuardian, KindOther:
		return true
	}
	return false
}

// Link statuses: pending -> accepted | rejected (terminal).
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool { return s == StatusAccepted || s == StatusRejected }

// Link relates a guardian to a student, independent of tenancy.
// Only accepted links authorize data access.
type Link struct {
	ID          string    `json:"id"`
	GuardianID  string    `json:"guardian_id"`
	StudentID   string    `json:"student_id"`
	Kind        Kind      `json:"relationship_kind"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	RespondedAt null.Time `json:"responded_at,omitempty"`
}

// NewLink contains information needed to request a guardian-child link.
type NewLink struct {
	GuardianID string `json:"guardian_id" validate:"required"`
	StudentID  string `json:"student_id" validate:"required"`
	Kind       Kind   `json:"relationship_kind" validate:"required"`
}

func (nl *NewLink) Validate() error {
	if err := core.Validate.Struct(nl); err != nil {
		return err
	}
	if !nl.Kind.Valid() {
		return core.NewValidationError(errUnknownKind, core.FieldError{Field: "relationship_kind", Error: errUnknownKind.Error()})
	}
	if nl.GuardianID == nl.StudentID {
		return core.NewValidationError(errSelfLink, core.FieldError{Field: "student_id", Error: errSelfLink.Error()})
	}
	return nil
}
