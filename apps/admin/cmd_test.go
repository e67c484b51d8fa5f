package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innocell/innocell/core"
	"github.com/innocell/innocell/core/setting"
	"github.com/innocell/innocell/core/user"
	logsvc "github.com/innocell/innocell/services/logger"
	inmemdb "github.com/innocell/innocell/storage/database/inmem"
)

func setup(t *testing.T) (*commandLine, user.Repository) {
	t.Helper()
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)

	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	logger.Enable(false)

	return &commandLine{
		usrRepo:    usrRepo,
		settingSvc: setting.NewService(inmemdb.NewSettingRepository(db), nil, validator.New(), logger),
	}, usrRepo
}

func withPassword(t *testing.T, pwd string) {
	t.Helper()
	orig := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

func createUser(t *testing.T, repo user.Repository, uname, email, pwd string) user.User {
	t.Helper()
	usr := user.User{Name: uname, Username: uname, Email: email, Roles: []string{user.RoleStudent}, CreatedAt: core.Now()}
	usr.SetActive(true)
	require.NoError(t, usr.SetPassword(pwd))
	usr, err := repo.CreateUser(context.Background(), usr)
	require.NoError(t, err)
	return usr
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func runCLI(t *testing.T, cli *commandLine, tt cliTest) {
	t.Helper()
	err := cli.run(append([]string{"admin"}, tt.args...))
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Equal(t, tt.wantErrStr, err.Error())
		}
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_usage(t *testing.T) {
	cli, _ := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "adduser: no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "resetpassword: no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "maintenance: no state", args: []string{"maintenance"}, wantErr: errHelp},
		{name: "maintenance: bad state", args: []string{"maintenance", "maybe"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runCLI(t, cli, tt)
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	orig := gooseRunFunc
	defer func() { gooseRunFunc = orig }()
	gooseRunFunc = func(_ *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "events", "sql"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runCLI(t, cli, tt)
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, usrRepo := setup(t)
	ctx := context.Background()
	existing := createUser(t, usrRepo, "kela", "kela@test.in", "old-pwd")

	t.Run("username but no password", func(t *testing.T) {
		withPassword(t, "")
		runCLI(t, cli, cliTest{args: []string{"adduser", "-username", "asha"}, wantErr: errHelp})
	})

	t.Run("create admin", func(t *testing.T) {
		withPassword(t, "s3cret-pwd")
		runCLI(t, cli, cliTest{args: []string{"adduser", "-username", " Asha ", "-email", "asha@test.in", "-admin"}})

		usr, err := usrRepo.GetUser(ctx, user.GetFilter{Username: "asha"})
		require.NoError(t, err)
		assert.Equal(t, "asha@test.in", usr.Email)
		assert.Equal(t, "asha", usr.Name)
		assert.True(t, usr.IsAdmin())
		assert.NoError(t, usr.CheckPassword("s3cret-pwd"))
	})

	t.Run("update existing by email", func(t *testing.T) {
		withPassword(t, "new-pwd")
		runCLI(t, cli, cliTest{args: []string{"adduser", "-email", existing.Email, "-name", "Kela Rao"}})

		usr, err := usrRepo.GetUser(ctx, user.GetFilter{ID: existing.ID})
		require.NoError(t, err)
		assert.Equal(t, "Kela Rao", usr.Name)
		assert.Equal(t, "kela", usr.Username)
		assert.False(t, usr.IsAdmin())
		assert.NoError(t, usr.CheckPassword("new-pwd"))
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, usrRepo := setup(t)
	usr := createUser(t, usrRepo, "awe", "awe@test.in", "mdr")

	tests := []struct {
		cliTest
		pwd string
	}{
		{cliTest: cliTest{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp}},
		{cliTest: cliTest{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, wantErr: user.ErrNotFound}, pwd: "lol"},
		{cliTest: cliTest{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}}, pwd: "lol"},
		{cliTest: cliTest{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}}, pwd: "lmao"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withPassword(t, tt.pwd)
			runCLI(t, cli, tt.cliTest)
			if tt.wantErr == nil {
				refreshed, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
				require.NoError(t, err)
				assert.NoError(t, refreshed.CheckPassword(tt.pwd))
			}
		})
	}
}

func Test_commandLine_maintenance(t *testing.T) {
	cli, _ := setup(t)
	ctx := context.Background()

	runCLI(t, cli, cliTest{args: []string{"maintenance", "on", "-message", "Back at noon"}})
	on, msg := cli.settingSvc.IsMaintenance(ctx)
	assert.True(t, on)
	assert.Equal(t, "Back at noon", msg)

	runCLI(t, cli, cliTest{args: []string{"maintenance", "off"}})
	on, msg = cli.settingSvc.IsMaintenance(ctx)
	assert.False(t, on)
	assert.Equal(t, "Back at noon", msg)
}
