package main

import (
	"github.com/wepgcomp/wepgcomp/storage/database"
)

var runMigrationFunc = database.RunMigrationCommand // mockable

func (cli *commandLine) migrate(args []string) error {
	command := "up"
	var arguments []string
	if len(args) > 0 {
		command = args[0]
		arguments = args[1:]
	}
	return runMigrationFunc(cli.db.DB, command, arguments...)
}
