package sqlxrepos

import (
	"context"
	"time"

	"github.com/friendsofgo/errors"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/role"
)

type assignmentRow struct {
	ID            string    `db:"id"`
	UserID        string    `db:"user_id"`
	Role          string    `db:"role"`
	OrgID         string    `db:"org_id"`
	SoloTeacherID string    `db:"solo_teacher_id"`
	CreatedAt     time.Time `db:"created_at"`
}

func (r assignmentRow) toAssignment() role.Assignment {
	return role.Assignment{
		ID:        r.ID,
		UserID:    r.UserID,
		Role:      role.Role(r.Role),
		Scope:     core.Scope{Org: r.OrgID, SoloTeacher: r.SoloTeacherID},
		CreatedAt: r.CreatedAt,
	}
}

type roleRepository struct {
	db *sqlx.DB
}

var _ role.Repository = (*roleRepository)(nil) // interface compliance check

func NewRoleRepository(db *sqlx.DB) role.Repository {
	return &roleRepository{db: db}
}

func (repo *roleRepository) CreateAssignment(ctx context.Context, ass role.Assignment) (role.Assignment, error) {
	q := `
INSERT INTO role_assignment (id, user_id, role, org_id, solo_teacher_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := repo.db.ExecContext(ctx, q,
		ass.ID, ass.UserID, ass.Role.String(), ass.Scope.Org, ass.Scope.SoloTeacher, ass.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "role_assignment_user_id_role_org_id_solo_teacher_id_key") {
			return role.Assignment{}, role.ErrAssignmentExists
		}
		return role.Assignment{}, errors.Wrap(err, "creating role assignment")
	}
	return ass, nil
}

func (repo *roleRepository) DeleteAssignment(ctx context.Context, userID string, r role.Role, scope core.Scope) (bool, error) {
	q := `DELETE FROM role_assignment WHERE user_id = $1 AND role = $2 AND org_id = $3 AND solo_teacher_id = $4`
	res, err := repo.db.ExecContext(ctx, q, userID, r.String(), scope.Org, scope.SoloTeacher)
	if err != nil {
		return false, errors.Wrap(err, "deleting role assignment")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "deleting role assignment")
	}
	return n > 0, nil
}

func (repo *roleRepository) ListAssignments(ctx context.Context, userID string) ([]role.Assignment, error) {
	var rows []assignmentRow
	q := `SELECT * FROM role_assignment WHERE user_id = $1 ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "listing role assignments")
	}
	asses := make([]role.Assignment, 0, len(rows))
	for _, row := range rows {
		asses = append(asses, row.toAssignment())
	}
	return asses, nil
}

func (repo *roleRepository) HasAssignment(ctx context.Context, userID string, r role.Role, scope core.Scope) (bool, error) {
	var count int
	q := `SELECT count(*) FROM role_assignment WHERE user_id = $1 AND role = $2 AND org_id = $3 AND solo_teacher_id = $4`
	if err := repo.db.GetContext(ctx, &count, q, userID, r.String(), scope.Org, scope.SoloTeacher); err != nil {
		return false, errors.Wrap(err, "checking role assignment")
	}
	return count > 0, nil
}
