package role

import (
	"time"

	"github.com/trezcool/shule/core"
)

// Role names form a closed set.
type Role string

const (
	OrgOwner    Role = "org_owner"
	OrgAdmin    Role = "org_admin"
	OrgTeacher  Role = "org_teacher"
	SoloTeacher Role = "solo_teacher"
	Student     Role = "student"
	Guardian    Role = "guardian"
)

var AllRoles = []Role{OrgOwner, OrgAdmin, OrgTeacher, SoloTeacher, Student, Guardian}

func (r Role) Valid() bool {
	switch r {
	case OrgOwner, OrgAdmin, OrgTeacher, SoloTeacher, Student, Guardian:
		return true
	}
	return false
}

// IsOrgRole reports whether the role must be granted within an Organization scope.
func (r Role) IsOrgRole() bool {
	switch r {
	case OrgOwner, OrgAdmin, OrgTeacher:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// Assignment is a grant of a named role to a user within a specific scope.
// The (user, role, scope) triple is unique.
type Assignment struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Role      Role       `json:"role"`
	Scope     core.Scope `json:"scope"`
	CreatedAt time.Time  `json:"created_at"` // UTC
}

// validateScope checks the role/scope shape:
// org roles take exactly an Organization scope, solo_teacher exactly a
// solo-teacher scope; student/guardian may be tenant-independent.
func validateScope(r Role, scope core.Scope) error {
	if !r.Valid() {
		return core.NewValidationError(errUnknownRole, core.FieldError{Field: "role", Error: errUnknownRole.Error()})
	}
	if !scope.Valid() {
		return core.NewValidationError(errAmbiguousScope, core.FieldError{Field: "scope", Error: errAmbiguousScope.Error()})
	}
	if r.IsOrgRole() && !scope.IsOrg() {
		return core.NewValidationError(errOrgScopeRequired, core.FieldError{Field: "scope", Error: errOrgScopeRequired.Error()})
	}
	if r == SoloTeacher && !scope.IsSolo() {
		return core.NewValidationError(errSoloScopeRequired, core.FieldError{Field: "scope", Error: errSoloScopeRequired.Error()})
	}
	return nil
}
