package role

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core"
)

var (
	// errors
	ErrAssignmentExists = core.NewConflictError("role already assigned in this scope")

	errUnknownRole       = errors.New("unknown role")
	errAmbiguousScope    = errors.New("scope cannot be both organization and solo teacher")
	errOrgScopeRequired  = errors.New("this role requires an organization scope")
	errSoloScopeRequired = errors.New("this role requires a solo teacher scope")
)

type (
	Repository interface {
		// CreateAssignment persists a new assignment; the (user, role, scope)
		// uniqueness check and the insert happen atomically.
		// Returns ErrAssignmentExists when the triple already exists.
		CreateAssignment(ctx context.Context, ass Assignment) (Assignment, error)
		// DeleteAssignment reports whether a matching assignment existed.
		DeleteAssignment(ctx context.Context, userID string, r Role, scope core.Scope) (bool, error)
		ListAssignments(ctx context.Context, userID string) ([]Assignment, error)
		HasAssignment(ctx context.Context, userID string, r Role, scope core.Scope) (bool, error)
	}

	Service struct {
		repo Repository
		sink core.IntentSink
	}
)

func NewService(repo Repository, sink core.IntentSink) *Service {
	return &Service{repo: repo, sink: sink}
}

// Grant assigns a role to a user within a scope.
// Granting an existing (user, role, scope) triple fails with a conflict.
func (svc *Service) Grant(ctx context.Context, userID string, r Role, scope core.Scope) (Assignment, error) {
	if err := validateScope(r, scope); err != nil {
		return Assignment{}, err
	}
	ass := Assignment{
		ID:        uuid.New().String(),
		UserID:    userID,
		Role:      r,
		Scope:     scope,
		CreatedAt: time.Now().UTC(),
	}
	ass, err := svc.repo.CreateAssignment(ctx, ass)
	if err != nil {
		return Assignment{}, err
	}
	svc.sink.Emit(core.NewIntent(core.IntentRoleAssigned, map[string]interface{}{
		"user_id": userID,
		"role":    r.String(),
		"scope":   scope.String(),
	}))
	return ass, nil
}

// Revoke removes an assignment; it reports false when none matched (idempotent).
func (svc *Service) Revoke(ctx context.Context, userID string, r Role, scope core.Scope) (bool, error) {
	ok, err := svc.repo.DeleteAssignment(ctx, userID, r, scope)
	if err != nil {
		return false, err
	}
	if ok {
		svc.sink.Emit(core.NewIntent(core.IntentRoleRevoked, map[string]interface{}{
			"user_id": userID,
			"role":    r.String(),
			"scope":   scope.String(),
		}))
	}
	return ok, nil
}

func (svc *Service) ListRoles(ctx context.Context, userID string) ([]Assignment, error) {
	return svc.repo.ListAssignments(ctx, userID)
}

// HasRole does an exact-match scope comparison: a role granted for one scope
// never satisfies a check for another, and a tenant-independent grant never
// satisfies a scoped check.
func (svc *Service) HasRole(ctx context.Context, userID string, r Role, scope core.Scope) (bool, error) {
	return svc.repo.HasAssignment(ctx, userID, r, scope)
}

// HasAnyRole reports whether the user holds at least one of the roles in the scope.
func (svc *Service) HasAnyRole(ctx context.Context, userID string, roles []Role, scope core.Scope) (bool, error) {
	for _, r := range roles {
		ok, err := svc.repo.HasAssignment(ctx, userID, r, scope)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
