package dummydb

import (
	"context"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/role"
)

type roleRepository struct {
	db *roleTable
}

var _ role.Repository = (*roleRepository)(nil) // interface compliance check

func NewRoleRepository(db *DB) role.Repository {
	return &roleRepository{db: db.role}
}

func (repo *roleRepository) CreateAssignment(ctx context.Context, ass role.Assignment) (role.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// (user, role, scope) uniqueness under the write lock
	for _, a := range repo.db.table {
		if a.UserID == ass.UserID && a.Role == ass.Role && a.Scope.Equal(ass.Scope) {
			return role.Assignment{}, role.ErrAssignmentExists
		}
	}
	repo.db.table[ass.ID] = &ass
	return ass, nil
}

func (repo *roleRepository) DeleteAssignment(ctx context.Context, userID string, r role.Role, scope core.Scope) (bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for id, a := range repo.db.table {
		if a.UserID == userID && a.Role == r && a.Scope.Equal(scope) {
			delete(repo.db.table, id)
			return true, nil
		}
	}
	return false, nil
}

func (repo *roleRepository) ListAssignments(ctx context.Context, userID string) ([]role.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	asses := make([]role.Assignment, 0)
	for _, a := range repo.db.table {
		if a.UserID == userID {
			asses = append(asses, *a)
		}
	}
	return asses, nil
}

func (repo *roleRepository) HasAssignment(ctx context.Context, userID string, r role.Role, scope core.Scope) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, a := range repo.db.table {
		if a.UserID == userID && a.Role == r && a.Scope.Equal(scope) {
			return true, nil
		}
	}
	return false, nil
}
