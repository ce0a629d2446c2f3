package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/wepgcomp/wepgcomp/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db      *sqlx.DB
	usrRepo user.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate [COMMAND] - run database migrations (default: up)")
	fmt.Println("  addsuperadmin -name NAME -email EMAIL - create or promote a superadmin; the password is prompted next")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addSuperadminCmd := flag.NewFlagSet("addsuperadmin", flag.ExitOnError)
	addSuperadminName := addSuperadminCmd.String("name", "", "The superadmin's full name.")
	addSuperadminEmail := addSuperadminCmd.String("email", "", "The superadmin's email. The password will be prompted next.")

	switch args[1] {
	case "migrate":
		return cli.migrate(args[2:])
	case "addsuperadmin":
		if err := addSuperadminCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addSuperadminName == "" || *addSuperadminEmail == "" {
			addSuperadminCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addSuperadminCmd.Usage()
			return errHelp
		}
		return cli.addSuperadmin(*addSuperadminName, *addSuperadminEmail, string(pwd))
	default:
		cli.printUsage()
		return errHelp
	}
}
