package main

import (
	"github.com/pkg/errors"

	"github.com/trezcool/academia/storage/database"
)

var migrateFunc = database.Migrate // mockable

var errNoDatabase = errors.New("migrations need a PostgreSQL database")

func (cli *commandLine) migrate(args []string) error {
	if cli.c.DB == nil {
		return errNoDatabase
	}
	return migrateFunc(cli.c.DB, args[0], args[1:]...)
}
