package sqlxrepos

import (
	"context"
	"time"

	"github.com/friendsofgo/errors"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/shule/core/org"
)

type orgRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	OwnerUserID string    `db:"owner_user_id"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r orgRow) toOrg() org.Organization {
	return org.Organization{
		ID:          r.ID,
		Name:        r.Name,
		OwnerUserID: r.OwnerUserID,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type orgRepository struct {
	db *sqlx.DB
}

var _ org.Repository = (*orgRepository)(nil) // interface compliance check

func NewOrgRepository(db *sqlx.DB) org.Repository {
	return &orgRepository{db: db}
}

func (repo *orgRepository) CreateOrganization(ctx context.Context, o org.Organization) (org.Organization, error) {
	q := `
INSERT INTO organization (id, name, owner_user_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)`
	_, err := repo.db.ExecContext(ctx, q, o.ID, o.Name, o.OwnerUserID, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "organization_name_key") {
			return org.Organization{}, org.ErrNameExists
		}
		return org.Organization{}, errors.Wrap(err, "creating organization")
	}
	return o, nil
}

func (repo *orgRepository) GetOrganizationByID(ctx context.Context, id string) (org.Organization, error) {
	var row orgRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM organization WHERE id = $1`, id); err != nil {
		if isNoRows(err) {
			return org.Organization{}, org.ErrNotFound
		}
		return org.Organization{}, errors.Wrap(err, "getting organization")
	}
	return row.toOrg(), nil
}

func (repo *orgRepository) UpdateOrganization(ctx context.Context, o org.Organization) (org.Organization, error) {
	q := `UPDATE organization SET name = $2, updated_at = $3 WHERE id = $1 RETURNING *`
	var row orgRow
	if err := repo.db.GetContext(ctx, &row, q, o.ID, o.Name, o.UpdatedAt); err != nil {
		if isNoRows(err) {
			return org.Organization{}, org.ErrNotFound
		}
		if isUniqueViolation(err, "organization_name_key") {
			return org.Organization{}, org.ErrNameExists
		}
		return org.Organization{}, errors.Wrap(err, "updating organization")
	}
	return row.toOrg(), nil
}
