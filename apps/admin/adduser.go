package main

import (
	"context"
	"fmt"

	"github.com/FARHATREKAYA/quran-app/core"
	"github.com/FARHATREKAYA/quran-app/core/user"
)

// addUser creates a user, or updates the password of an existing one. Users are always (re)activated.
func (cli *commandLine) addUser(uname, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	nu := user.NewUser{Username: uname, Email: email, Password: pwd}
	if err := nu.Validate(cli.validate); err != nil {
		return err
	}

	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, nu.Username)
	switch {
	case err == nil:
		if err = usr.SetPassword(pwd); err != nil {
			return err
		}
	case core.IsNotFound(err):
		if usr, err = cli.usrSvc.Register(ctx, nu); err != nil {
			return err
		}
	default:
		return err
	}

	usr.IsActive = true
	usr.IsAdmin = usr.IsAdmin || isAdmin
	if _, err = cli.usrRepo.UpdateUser(ctx, usr); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "user %q saved (admin: %t)\n", usr.Username, usr.IsAdmin)
	return nil
}
