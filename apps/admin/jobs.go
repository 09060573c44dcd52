package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/backup"
)

func (cli *commandLine) backup(ctx context.Context, startDate, endDate string) error {
	opts := backup.Options{Out: cli.out}
	if startDate != "" {
		d, err := backup.ParseDate(startDate)
		if err != nil {
			return err
		}
		opts.Start = &d
	}
	if endDate != "" {
		d, err := backup.ParseDate(endDate)
		if err != nil {
			return err
		}
		opts.End = &d
	}
	report, err := cli.c.Backups.Run(ctx, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Created %d backups.\n", len(report.Files))
	return nil
}

func (cli *commandLine) clearSSOLinks(ctx context.Context) error {
	fmt.Fprintln(cli.out, "Getting all SSO links")
	links, err := cli.c.Users.ExpiredSSOLinks(ctx, core.NowFunc())
	if err != nil {
		return errors.Wrap(err, "querying SSO links")
	}
	fmt.Fprintf(cli.out, "Found %d links. Deleting...\n", len(links))
	_, err = cli.c.Users.DeleteSSOLinks(ctx, links...)
	return err
}

func (cli *commandLine) clearSessions(ctx context.Context) error {
	n, err := cli.c.Sessions.ClearExpired(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Deleted %d expired sessions.\n", n)
	return nil
}

func (cli *commandLine) syncContentTypes(ctx context.Context) error {
	cts, err := cli.c.ContentTypes.Sync(ctx)
	if err != nil {
		return err
	}
	for _, ct := range cts {
		fmt.Fprintf(cli.out, "  - %s\n", ct)
	}
	fmt.Fprintf(cli.out, "%d content types.\n", len(cts))
	return nil
}
