package main

import (
	"context"
	"fmt"

	"github.com/trezcool/academia/core/user"
)

func (cli *commandLine) createSuperuser(ctx context.Context, uname, email, pwd string) error {
	usr, err := cli.c.Users.CreateSuperuser(ctx, uname, email, pwd)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Superuser %s created.\n", usr.Username)
	return nil
}

func (cli *commandLine) changePassword(ctx context.Context, uname, pwd string) error {
	usr, err := cli.c.Users.Get(ctx, user.GetFilter{UsernameOrEmail: uname})
	if err != nil {
		return err
	}
	if _, err := cli.c.Users.SetPassword(ctx, usr, pwd); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Password changed successfully for user '%s'\n", usr.Username)
	return nil
}
