package main

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/role"
	"github.com/trezcool/shule/core/user"
)

// addUser updates or creates a user.User, optionally with a
// tenant-independent role grant.
func (cli *commandLine) addUser(email, first, last, roleName, pwd string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)
	now := time.Now().UTC()

	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if !core.IsNotFound(err) {
			return err
		}
		usr = user.User{
			ID:        uuid.New().String(),
			FirstName: core.CleanString(first),
			LastName:  core.CleanString(last),
			Email:     email,
			IsActive:  true,
			CreatedAt: now,
		}
		if err = usr.SetPassword(pwd); err != nil {
			return err
		}
		usr.UpdatedAt = now
		if usr, err = cli.usrRepo.CreateUser(ctx, usr); err != nil {
			return err
		}
	} else {
		if err = usr.SetPassword(pwd); err != nil {
			return err
		}
		usr.UpdatedAt = now
		isActive := true
		if usr, err = cli.usrRepo.UpdateUser(ctx, usr, &isActive); err != nil {
			return err
		}
	}

	if roleName != "" {
		r := role.Role(roleName)
		if !r.Valid() || r.IsOrgRole() {
			return errHelp
		}
		scope := core.Scope{}
		if r == role.SoloTeacher {
			scope = core.SoloScope(usr.ID)
		}
		_, err = cli.roleRepo.CreateAssignment(ctx, role.Assignment{
			ID:        uuid.New().String(),
			UserID:    usr.ID,
			Role:      r,
			Scope:     scope,
			CreatedAt: now,
		})
		if err != nil && !core.IsConflict(err) {
			return err
		}
	}
	return nil
}
