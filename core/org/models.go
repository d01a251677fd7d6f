package org

import (
	"time"

	"github.com/trezcool/shule/core"
)

// Organization is a tenant root owning courses and staff role assignments.
// Every organization has exactly one current owner after creation.
type Organization struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	OwnerUserID string    `json:"owner_user_id"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

func (o Organization) Scope() core.Scope { return core.OrgScope(o.ID) }

// NewOrganization contains information needed to create a new Organization.
type NewOrganization struct {
	Name        string `json:"name" validate:"required"`
	OwnerUserID string `json:"owner_user_id" validate:"required"`
}

func (no *NewOrganization) Validate() error {
	no.Name = core.CleanString(no.Name)
	return core.Validate.Struct(no)
}
