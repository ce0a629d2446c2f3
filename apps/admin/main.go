package main

import (
	"log"
	"os"

	"github.com/wepgcomp/wepgcomp/core"
	"github.com/wepgcomp/wepgcomp/storage/database"
	sqlxrepos "github.com/wepgcomp/wepgcomp/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	// set up DB
	if err := database.CreateIfNotExist(core.Conf); err != nil {
		logger.Fatal(err)
	}
	db, err := database.Open(core.Conf)
	if err != nil {
		logger.Fatal(err)
	}
	defer db.Close()

	// start CLI
	cli := commandLine{
		db:      db,
		usrRepo: sqlxrepos.NewUserRepository(db),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
