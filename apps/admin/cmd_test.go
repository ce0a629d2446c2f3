package main

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/wepgcomp/wepgcomp/core/user"
	dummydb "github.com/wepgcomp/wepgcomp/storage/database/dummy"
	testutil "github.com/wepgcomp/wepgcomp/tests"
)

var usrRepo user.Repository

func setup(t *testing.T) *commandLine {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	usrRepo = dummydb.NewUserRepository(db)

	// the migrate subcommand is stubbed in tests so the handle is never used
	return &commandLine{
		db:      new(sqlx.DB),
		usrRepo: usrRepo,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	runMigrationFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "redo", "reset", "status", "version", "fix": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s requires a VERSION argument", command)
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand defaults to up", args: []string{"migrate"}},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to requires a VERSION argument"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to requires a VERSION argument"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_addSuperadmin(t *testing.T) {
	cli := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Regular Professor", "prof@test.br", "s3cr3t",
		user.ProfileProfessor, user.LevelDefault, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no flags", args: []string{"addsuperadmin"}, wantErr: errHelp},
		{name: "name but no email", args: []string{"addsuperadmin", "-name", "Root"}, wantErr: errHelp},
		{name: "empty password", args: []string{"addsuperadmin", "-name", "Root", "-email", "root@test.br"}, wantErr: errHelp},
		{
			name: "new account created", args: []string{"addsuperadmin", "-name", "Root", "-email", "root@test.br"},
			extra: extra{pwd: "sup3rs3cr3t"},
		},
		{
			name: "existing account promoted", args: []string{"addsuperadmin", "-name", "Whatever", "-email", usr.Email},
			extra: extra{pwd: "n3ws3cr3t"},
		},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err != nil {
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}

			email := args[len(args)-1]
			admin, err := usrRepo.GetUserByEmail(context.Background(), email)
			if err != nil {
				t.Fatalf("GetUserByEmail() failed: %v", err)
			}
			if admin.Level != user.LevelSuperadmin {
				t.Errorf("Level = %v, want %v", admin.Level, user.LevelSuperadmin)
			}
			if !admin.IsSuperadmin || !admin.IsAdmin {
				t.Error("superadmin flags not applied")
			}
			if !admin.IsActive || !admin.IsEmailVerified {
				t.Error("superadmin must be active and verified")
			}
			if checkErr := admin.CheckPassword(tt.extra.(extra).pwd); checkErr != nil {
				t.Errorf("CheckPassword() failed: %v", checkErr)
			}
		})
	}
}
