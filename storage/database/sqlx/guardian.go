package sqlxrepos

import (
	"context"
	"time"

	"github.com/friendsofgo/errors"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core/guardian"
)

type linkRow struct {
	ID          string    `db:"id"`
	GuardianID  string    `db:"guardian_id"`
	StudentID   string    `db:"student_id"`
	Kind        string    `db:"kind"`
	Status      string    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
	RespondedAt null.Time `db:"responded_at"`
}

func (r linkRow) toLink() guardian.Link {
	return guardian.Link{
		ID:          r.ID,
		GuardianID:  r.GuardianID,
		StudentID:   r.StudentID,
		Kind:        guardian.Kind(r.Kind),
		Status:      guardian.Status(r.Status),
		CreatedAt:   r.CreatedAt,
		RespondedAt: r.RespondedAt,
	}
}

type guardianRepository struct {
	db *sqlx.DB
}

var _ guardian.Repository = (*guardianRepository)(nil) // interface compliance check

func NewGuardianRepository(db *sqlx.DB) guardian.Repository {
	return &guardianRepository{db: db}
}

func (repo *guardianRepository) CreateLink(ctx context.Context, l guardian.Link) (guardian.Link, error) {
	q := `
INSERT INTO guardian_link (id, guardian_id, student_id, kind, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := repo.db.ExecContext(ctx, q, l.ID, l.GuardianID, l.StudentID, string(l.Kind), string(l.Status), l.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "guardian_link_open_key") {
			return guardian.Link{}, guardian.ErrLinkExists
		}
		return guardian.Link{}, errors.Wrap(err, "creating guardian link")
	}
	return l, nil
}

func (repo *guardianRepository) GetLinkByID(ctx context.Context, id string) (guardian.Link, error) {
	var row linkRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM guardian_link WHERE id = $1`, id); err != nil {
		if isNoRows(err) {
			return guardian.Link{}, guardian.ErrNotFound
		}
		return guardian.Link{}, errors.Wrap(err, "getting guardian link")
	}
	return row.toLink(), nil
}

func (repo *guardianRepository) UpdateLinkStatus(ctx context.Context, l guardian.Link) (guardian.Link, error) {
	// the status guard in the WHERE clause makes the transition out of
	// pending a compare-and-swap
	q := `
UPDATE guardian_link SET status = $2, responded_at = $3
WHERE id = $1 AND status = 'pending'
RETURNING *`
	var row linkRow
	if err := repo.db.GetContext(ctx, &row, q, l.ID, string(l.Status), l.RespondedAt); err != nil {
		if isNoRows(err) {
			if _, getErr := repo.GetLinkByID(ctx, l.ID); getErr != nil {
				return guardian.Link{}, getErr
			}
			return guardian.Link{}, guardian.ErrLinkResponded
		}
		return guardian.Link{}, errors.Wrap(err, "updating guardian link")
	}
	return row.toLink(), nil
}

func (repo *guardianRepository) GetAcceptedLink(ctx context.Context, guardianID, studentID string) (guardian.Link, error) {
	q := `SELECT * FROM guardian_link WHERE guardian_id = $1 AND student_id = $2 AND status = 'accepted'`
	var row linkRow
	if err := repo.db.GetContext(ctx, &row, q, guardianID, studentID); err != nil {
		if isNoRows(err) {
			return guardian.Link{}, guardian.ErrNotFound
		}
		return guardian.Link{}, errors.Wrap(err, "getting accepted link")
	}
	return row.toLink(), nil
}

func (repo *guardianRepository) ListLinksByGuardian(ctx context.Context, guardianID string) ([]guardian.Link, error) {
	var rows []linkRow
	q := `SELECT * FROM guardian_link WHERE guardian_id = $1 ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &rows, q, guardianID); err != nil {
		return nil, errors.Wrap(err, "listing guardian links")
	}
	links := make([]guardian.Link, 0, len(rows))
	for _, row := range rows {
		links = append(links, row.toLink())
	}
	return links, nil
}

func (repo *guardianRepository) ListLinksByStudent(ctx context.Context, studentID string) ([]guardian.Link, error) {
	var rows []linkRow
	q := `SELECT * FROM guardian_link WHERE student_id = $1 ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &rows, q, studentID); err != nil {
		return nil, errors.Wrap(err, "listing guardian links")
	}
	links := make([]guardian.Link, 0, len(rows))
	for _, row := range rows {
		links = append(links, row.toLink())
	}
	return links, nil
}
