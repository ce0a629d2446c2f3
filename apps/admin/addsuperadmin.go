package main

import (
	"context"
	"time"

	"github.com/wepgcomp/wepgcomp/core"
	"github.com/wepgcomp/wepgcomp/core/user"
)

// addSuperadmin creates a verified, active superadmin account, or promotes
// the existing account registered under email.
func (cli *commandLine) addSuperadmin(name, email, pwd string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)
	now := time.Now().UTC()

	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		usr = user.User{
			Name:      name,
			Email:     email,
			Profile:   user.ProfileProfessor,
			CreatedAt: now,
		}
	}
	usr.Level = user.LevelSuperadmin
	user.ComputeFlags(usr.Profile, usr.Level, nil).Apply(&usr)
	usr.IsActive = true
	usr.IsEmailVerified = true
	usr.UpdatedAt = now
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	if usr.ID == "" {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	} else {
		isActive := true
		_, err = cli.usrRepo.UpdateUser(ctx, usr, &isActive)
	}
	return err
}
