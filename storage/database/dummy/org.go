package dummydb

import (
	"context"
	"strings"

	"github.com/trezcool/shule/core/org"
)

type orgRepository struct {
	db *orgTable
}

var _ org.Repository = (*orgRepository)(nil) // interface compliance check

func NewOrgRepository(db *DB) org.Repository {
	return &orgRepository{db: db.org}
}

func (repo *orgRepository) CreateOrganization(ctx context.Context, o org.Organization) (org.Organization, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, other := range repo.db.table {
		if strings.EqualFold(other.Name, o.Name) {
			return org.Organization{}, org.ErrNameExists
		}
	}
	repo.db.table[o.ID] = &o
	return o, nil
}

func (repo *orgRepository) GetOrganizationByID(ctx context.Context, id string) (org.Organization, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if o, ok := repo.db.table[id]; ok {
		return *o, nil
	}
	return org.Organization{}, org.ErrNotFound
}

func (repo *orgRepository) UpdateOrganization(ctx context.Context, o org.Organization) (org.Organization, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[o.ID]
	if !ok {
		return org.Organization{}, org.ErrNotFound
	}
	for id, other := range repo.db.table {
		if id != o.ID && strings.EqualFold(other.Name, o.Name) {
			return org.Organization{}, org.ErrNameExists
		}
	}
	orig.Name = o.Name
	orig.UpdatedAt = o.UpdatedAt
	repo.db.table[o.ID] = orig
	return *orig, nil
}
