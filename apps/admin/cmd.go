package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/trezcool/academia/apps/di"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	c   *di.Container
	out io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  backup [-startdate YYYY-MM-DD] [-enddate YYYY-MM-DD] - export each model's daily rows to CSV")
	fmt.Fprintln(cli.out, "  clearssolinks - delete expired SSO links")
	fmt.Fprintln(cli.out, "  clearsessions - delete expired sessions")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  synccontenttypes - persist the content type of every model")
	fmt.Fprintln(cli.out, "  createsuperuser -username USERNAME -email EMAIL - create a superuser")
	fmt.Fprintln(cli.out, "  changepassword -username USERNAME|EMAIL - change a user's password")
	fmt.Fprintln(cli.out, "  scheduler - run the periodic jobs until interrupted")
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

// parse returns errHelp when -h is passed.
func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return errHelp
		}
		return err
	}
	return nil
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "backup":
		backupCmd := cli.newFlagSet("backup")
		startDate := backupCmd.String("startdate", "", "First day to back up (YYYY-MM-DD). Defaults to yesterday.")
		endDate := backupCmd.String("enddate", "", "Day to stop at, excluded (YYYY-MM-DD). Defaults to today.")
		if err := parse(backupCmd, args[2:]); err != nil {
			return err
		}
		return cli.backup(ctx, *startDate, *endDate)

	case "clearssolinks":
		return cli.clearSSOLinks(ctx)

	case "clearsessions":
		return cli.clearSessions(ctx)

	case "migrate":
		if len(args) < 3 {
			fmt.Fprintln(cli.out, "Usage: migrate COMMAND [ARGS]")
			return errHelp
		}
		return cli.migrate(args[2:])

	case "synccontenttypes":
		return cli.syncContentTypes(ctx)

	case "createsuperuser":
		createCmd := cli.newFlagSet("createsuperuser")
		uname := createCmd.String("username", "", "The superuser's username. The password will be prompted next.")
		email := createCmd.String("email", "", "The superuser's email.")
		if err := parse(createCmd, args[2:]); err != nil {
			return err
		}
		if *uname == "" {
			createCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(true)
		if err != nil {
			return err
		}
		if pwd == "" {
			createCmd.Usage()
			return errHelp
		}
		return cli.createSuperuser(ctx, *uname, *email, pwd)

	case "changepassword":
		changeCmd := cli.newFlagSet("changepassword")
		uname := changeCmd.String("username", "", "The user's username or email. The password will be prompted next.")
		if err := parse(changeCmd, args[2:]); err != nil {
			return err
		}
		if *uname == "" {
			changeCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(false)
		if err != nil {
			return err
		}
		if pwd == "" {
			changeCmd.Usage()
			return errHelp
		}
		return cli.changePassword(ctx, *uname, pwd)

	case "scheduler":
		return cli.scheduler(ctx)

	default:
		cli.printUsage()
		return errHelp
	}
}

var errPasswordMismatch = errors.New("passwords do not match")

func (cli *commandLine) promptPassword(confirm bool) (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if !confirm || len(pwd) == 0 {
		return string(pwd), nil
	}

	fmt.Fprint(cli.out, "Enter password (again):")
	again, err := readPasswordFunc(int(os.Stdin.Fd()))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if string(again) != string(pwd) {
		return "", errPasswordMismatch
	}
	return string(pwd), nil
}
