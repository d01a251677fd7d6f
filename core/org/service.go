package org

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core"
)

var (
	// errors
	ErrNotFound   = core.NewNotFoundError("organization not found")
	ErrNameExists = core.NewConflictError("an organization with this name already exists")
)

type (
	Repository interface {
		CreateOrganization(ctx context.Context, o Organization) (Organization, error)
		GetOrganizationByID(ctx context.Context, id string) (Organization, error)
		UpdateOrganization(ctx context.Context, o Organization) (Organization, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, no NewOrganization) (Organization, error) {
	if err := no.Validate(); err != nil {
		return Organization{}, err
	}
	now := time.Now().UTC()
	o := Organization{
		ID:          uuid.New().String(),
		Name:        no.Name,
		OwnerUserID: no.OwnerUserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateOrganization(ctx, o)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Organization, error) {
	return svc.repo.GetOrganizationByID(ctx, id)
}

func (svc *Service) Rename(ctx context.Context, id, name string) (Organization, error) {
	o, err := svc.repo.GetOrganizationByID(ctx, id)
	if err != nil {
		return Organization{}, err
	}
	o.Name = core.CleanString(name)
	o.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateOrganization(ctx, o)
}
