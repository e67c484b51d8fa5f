package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/innocell/innocell/core"
	"github.com/innocell/innocell/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(name, uname, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	name = core.CleanString(name)
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{uname, email}})
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		now := core.Now()
		usr = user.User{
			Username:  uname,
			Email:     email,
			Roles:     []string{user.RoleStudent},
			CreatedAt: now,
		}
	}
	if name != "" {
		usr.Name = name
	} else if usr.Name == "" {
		usr.Name = usr.Username
	}
	if isAdmin {
		usr.Roles = user.AllRoles
	}
	usr.SetActive(true)
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.UpdatedAt = core.Now()
	_, err = cli.usrRepo.UpdateOrCreateUser(ctx, usr)
	return err
}
