package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mpiangona/apps/api/di"
	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/core/contribution"
	"github.com/trezcool/mpiangona/core/member"
	"github.com/trezcool/mpiangona/core/role"
	"github.com/trezcool/mpiangona/core/user"
	inmemdb "github.com/trezcool/mpiangona/storage/database/inmem"
	"github.com/trezcool/mpiangona/testutil"
)

const testPassword = "Pa$$w0rd!"

type testEnv struct {
	cli    *commandLine
	out    *bytes.Buffer
	repos  di.Repositories
	mailer *testutil.Mailer
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	env := &testEnv{
		out:    new(bytes.Buffer),
		repos:  di.InMemory(inmemdb.Open()),
		mailer: testutil.NewMailer(),
	}
	c := di.New(core.NewTestConfig(), &testutil.Logger{}, env.repos, env.mailer)
	c.Start()
	t.Cleanup(c.Stop)

	env.cli = &commandLine{db: sqlx.NewDb(sqlDB, "sqlmock"), c: c, out: env.out}
	return env
}

// withPassword makes the terminal prompt answer `pwd`.
func withPassword(t *testing.T, pwd string) {
	t.Helper()
	orig := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string
	wantErr    error
	wantErrStr string
}

func (env *testEnv) run(t *testing.T, tests []cliTest) {
	t.Helper()
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			withPassword(t, tt.pwd)
			err := env.cli.run(append([]string{"admin"}, tt.args...))
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrStr)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_root(t *testing.T) {
	env := setup(t)

	env.run(t, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErrStr: `unknown command "lol"`},
	})

	root := env.cli.rootCommand()
	for _, name := range []string{"migrate", "adduser", "resetpassword", "setrole", "cards", "report"} {
		sub, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
}

func Test_commandLine_migrate(t *testing.T) {
	env := setup(t)

	orig := migrateFunc
	t.Cleanup(func() { migrateFunc = orig })
	migrateFunc = func(db *sqlx.DB, command string, args ...string) error {
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

	env.run(t, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "sampana", "sql"}},
	})

	t.Run("in-memory engine", func(t *testing.T) {
		env.cli.db = nil
		err := env.cli.run([]string{"admin", "migrate", "up"})
		assert.EqualError(t, err, "migrations need a SQL database")
	})
}

func Test_commandLine_addUser(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	env.run(t, []cliTest{
		{name: "no username", args: []string{"adduser"}, pwd: "secret", wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-u", "rakoto"}, wantErr: errHelp},
		{name: "unknown role", args: []string{"adduser", "-u", "rakoto", "-r", "CHEF"}, pwd: "secret", wantErr: role.ErrUnknownRole},
		{name: "deprecated role", args: []string{"adduser", "-u", "rakoto", "-r", "UTILISATEUR"}, pwd: "secret", wantErr: role.ErrNotIssuable},
		{name: "weak password", args: []string{"adduser", "-u", "rakoto"}, pwd: "secret", wantErrStr: "password"},
		{name: "create", args: []string{"adduser", "-u", "Rakoto", "-e", "rakoto@fjkm.mg", "-r", "TRESORIER"}, pwd: testPassword},
	})

	usr, err := env.repos.Users.GetUserByUsernameOrEmail(ctx, "rakoto")
	require.NoError(t, err)
	assert.Equal(t, "rakoto@fjkm.mg", usr.Email.String)
	assert.True(t, usr.IsActive)
	assert.NoError(t, usr.CheckPassword(testPassword))
	assert.Contains(t, env.out.String(), "user rakoto saved with role TRESORIER")

	r, err := env.cli.c.Deps.RoleSvc.RoleOf(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, role.Tresorier, r)

	t.Run("existing user", func(t *testing.T) {
		withPassword(t, "other")
		require.NoError(t, env.cli.run([]string{"admin", "adduser", "-u", "rakoto@fjkm.mg", "-r", "ADMIN"}))

		updated, err := env.repos.Users.GetUserByID(ctx, usr.ID)
		require.NoError(t, err)
		assert.NoError(t, updated.CheckPassword("other"))

		r, err := env.cli.c.Deps.RoleSvc.RoleOf(ctx, usr.ID)
		require.NoError(t, err)
		assert.Equal(t, role.Admin, r)

		users, err := env.repos.Users.QueryAllUsers(ctx)
		require.NoError(t, err)
		assert.Len(t, users, 1)
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, env.repos.Users, "awe", "awe@test.mg", "mdr", true)

	env.run(t, []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-u", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-u", "lol"}, pwd: "lol", wantErr: user.ErrNotFound},
	})

	for _, login := range []string{usr.Username, usr.Email.String} {
		t.Run("reset with "+login, func(t *testing.T) {
			withPassword(t, "new-"+login)
			require.NoError(t, env.cli.run([]string{"admin", "resetpassword", "--username", login}))

			refreshed, err := env.repos.Users.GetUserByID(ctx, usr.ID)
			require.NoError(t, err)
			assert.NoError(t, refreshed.CheckPassword("new-"+login))
		})
	}
}

func Test_commandLine_setRole(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, env.repos.Users, "rasoa", "", "mdr", true)

	env.run(t, []cliTest{
		{name: "no username", args: []string{"setrole", "-r", "ADMIN"}, wantErr: errHelp},
		{name: "no role", args: []string{"setrole", "-u", "rasoa"}, wantErr: errHelp},
		{name: "unknown role", args: []string{"setrole", "-u", "rasoa", "-r", "CHEF"}, wantErr: role.ErrUnknownRole},
		{name: "deprecated role", args: []string{"setrole", "-u", "rasoa", "-r", "UTILISATEUR"}, wantErr: role.ErrNotIssuable},
		{name: "unknown user", args: []string{"setrole", "-u", "lol", "-r", "ADMIN"}, wantErr: user.ErrNotFound},
		{name: "assign", args: []string{"setrole", "-u", "rasoa", "-r", " SECRETAIRE "}},
	})

	r, err := env.cli.c.Deps.RoleSvc.RoleOf(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, role.Secretaire, r)
	assert.Contains(t, env.out.String(), "rasoa is now SECRETAIRE")
}

func Test_commandLine_cards(t *testing.T) {
	env := setup(t)
	out := filepath.Join(t.TempDir(), "cartes.pdf")

	env.run(t, []cliTest{
		{name: "no output", args: []string{"cards"}, wantErr: errHelp},
		{name: "no member", args: []string{"cards", "-o", out}, wantErrStr: "no member to print"},
	})

	m1 := testutil.CreateMember(t, env.repos.Members, "Rakoto", "Jean", member.Male)
	testutil.CreateMember(t, env.repos.Members, "Rasoa", "Marie", member.Female)

	env.run(t, []cliTest{
		{name: "unknown id", args: []string{"cards", "-o", out, "--id", "unknown"}, wantErr: member.ErrNotFound},
		{name: "all members", args: []string{"cards", "-o", out}},
	})
	assert.Contains(t, env.out.String(), "2 card(s) on 1 page(s)")

	content, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(content, []byte("%PDF")))

	t.Run("selected members", func(t *testing.T) {
		env.out.Reset()
		require.NoError(t, env.cli.run([]string{"admin", "cards", "-o", out, "--id", m1.ID}))
		assert.Contains(t, env.out.String(), "1 card(s) on 1 page(s)")
	})
}

func Test_commandLine_report(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	deps := env.cli.c.Deps
	dir := t.TempDir()

	m, err := deps.MemberSvc.Create(ctx, member.NewMember{Nom: "Rakoto", Prenom: "Jean", Sexe: member.Male}, "admin")
	require.NoError(t, err)
	for _, nc := range []contribution.NewContribution{
		{MemberID: m.ID, Type: contribution.Dime, Montant: 5000},
		{MemberID: m.ID, Type: contribution.Don, Montant: 1500},
	} {
		_, err := deps.ContributionSvc.Create(ctx, nc, "admin")
		require.NoError(t, err)
	}

	csvOut := filepath.Join(dir, "rapport.csv")
	pdfOut := filepath.Join(dir, "rapport.pdf")

	env.run(t, []cliTest{
		{name: "unknown period", args: []string{"report", "-p", "week", "-o", csvOut}, wantErrStr: `unknown period "week"`},
		{name: "unknown format", args: []string{"report", "-f", "xls", "-o", csvOut}, wantErrStr: `unknown format "xls"`},
		{name: "no output", args: []string{"report"}, wantErr: errHelp},
		{name: "bad recipients", args: []string{"report", "--to", "not an address"}, wantErrStr: "parsing recipients"},
		{name: "csv", args: []string{"report", "-o", csvOut}},
		{name: "pdf", args: []string{"report", "-p", "year", "-f", "pdf", "-o", pdfOut}},
	})

	content, err := os.ReadFile(csvOut)
	require.NoError(t, err)
	lines := strings.Split(string(content), "\n")
	assert.Equal(t, "Date,Nom,Prénom,Type,Montant", lines[0])
	assert.Contains(t, string(content), "Rakoto,Jean,dime,5000")
	assert.Contains(t, string(content), "Total Général,6500")

	content, err = os.ReadFile(pdfOut)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(content, []byte("%PDF")))
	assert.Contains(t, env.out.String(), "Année report written to "+pdfOut)

	t.Run("send", func(t *testing.T) {
		require.NoError(t, env.cli.run([]string{"admin", "report", "-p", "trimester", "--to", "tresorier@fjkm.mg, Pasteur <pasteur@fjkm.mg>"}))
		sent := env.mailer.Sent()
		require.Len(t, sent, 1)
		require.Len(t, sent[0].To, 2)
		assert.Equal(t, "pasteur@fjkm.mg", sent[0].To[1].Address)
		assert.Contains(t, env.out.String(), "Trimestre report sent to 2 recipient(s)")
	})
}
