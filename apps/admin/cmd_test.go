package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/iamthanushgowdap/apsconnect/core"
	"github.com/iamthanushgowdap/apsconnect/core/account"
	inmemdb "github.com/iamthanushgowdap/apsconnect/storage/database/inmem"
)

var acctRepo account.Repository

func setup(t *testing.T) *commandLine {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("opening inmem DB: %v", err)
	}
	acctRepo = inmemdb.NewAccountRepository(db)

	return &commandLine{
		db:       &sqlx.DB{},
		conf:     &core.Config{WorkDir: t.TempDir()},
		acctRepo: acctRepo,
	}
}

func createAccount(t *testing.T, name, email, pwd, role, status string) account.Account {
	t.Helper()
	acct := account.Account{Name: name, Email: email, Role: role, Status: status}
	if err := acct.SetPassword(pwd); err != nil {
		t.Fatalf("SetPassword() failed, %v", err)
	}
	acct, err := acctRepo.CreateAccount(context.Background(), acct)
	if err != nil {
		t.Fatalf("CreateAccount() failed, %v", err)
	}
	return acct
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

	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s requires a VERSION argument", command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create requires a NAME argument")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to requires a VERSION argument"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to requires a VERSION argument"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "course", "sql"}},
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

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	acct := createAccount(t, "Awe Some", "awe@test.cd", "or1ginal", account.RoleStudent, account.StatusApproved)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@test.cd"}, wantErr: errHelp},
		{name: "account not found", args: []string{"resetpassword", "-email", "lol@test.cd"}, extra: extra{pwd: "lol"}, wantErr: account.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", acct.Email}, extra: extra{pwd: "n3wpass"}},
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
			if err == nil {
				refreshed, err := acctRepo.GetAccountByID(context.Background(), acct.ID)
				if err != nil {
					t.Fatalf("GetAccountByID() failed, %v", err)
				}
				if bytes.Equal(refreshed.PasswordHash, acct.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_addAdmin(t *testing.T) {
	cli := setup(t)

	createAccount(t, "Stu Dent", "stu@test.cd", "p4ssword", account.RoleStudent, account.StatusApproved)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"addadmin"}, wantErr: errHelp},
		{name: "name but no email", args: []string{"addadmin", "-name", "Root"}, wantErr: errHelp},
		{name: "no password", args: []string{"addadmin", "-name", "Root", "-email", "root@test.cd"}, wantErr: errHelp},
		{name: "create", args: []string{"addadmin", "-name", "Root", "-email", "root@test.cd"}, extra: extra{pwd: "s3cret"}},
		{name: "update existing admin", args: []string{"addadmin", "-name", "Root II", "-email", "root@test.cd"}, extra: extra{pwd: "n3wsecret"}},
		{
			name:       "existing non-admin rejected",
			args:       []string{"addadmin", "-name", "Stu", "-email", "stu@test.cd"},
			extra:      extra{pwd: "s3cret"},
			wantErrStr: `account stu@test.cd exists with role "student"; only fresh admin accounts can be created here`,
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
			switch {
			case err == nil:
				acct, err := acctRepo.GetAccountByEmail(context.Background(), "root@test.cd")
				if err != nil {
					t.Fatalf("GetAccountByEmail() failed, %v", err)
				}
				if !acct.IsAdmin() || !acct.IsApproved() {
					t.Errorf("want an approved admin; got role=%s status=%s", acct.Role, acct.Status)
				}
			case tt.wantErr != nil:
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
			case tt.wantErrStr != "":
				if err.Error() != tt.wantErrStr {
					t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
				}
			default:
				t.Errorf("cli.run() unexpected error = %v", err)
			}
		})
	}
}

func Test_commandLine_approve(t *testing.T) {
	cli := setup(t)

	pending := createAccount(t, "Pen Ding", "pending@test.cd", "p4ssword", account.RoleStudent, account.StatusPending)
	approved := createAccount(t, "App Roved", "approved@test.cd", "p4ssword", account.RoleStudent, account.StatusApproved)

	tests := []cliTest{
		{name: "no args", args: []string{"approve"}, wantErr: errHelp},
		{name: "account not found", args: []string{"approve", "-email", "lol@test.cd"}, wantErr: account.ErrNotFound},
		{name: "approve pending", args: []string{"approve", "-email", pending.Email}},
		{name: "already approved is a no-op", args: []string{"approve", "-email", approved.Email}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				acct, err := acctRepo.GetAccountByID(context.Background(), pending.ID)
				if err != nil {
					t.Fatalf("GetAccountByID() failed, %v", err)
				}
				if !acct.IsApproved() {
					t.Errorf("want approved; got status=%s", acct.Status)
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
