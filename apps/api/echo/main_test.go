package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mpiangona/apps/api/di"
	echoapi "github.com/trezcool/mpiangona/apps/api/echo"
	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/core/member"
	"github.com/trezcool/mpiangona/core/role"
	"github.com/trezcool/mpiangona/core/user"
	inmemdb "github.com/trezcool/mpiangona/storage/database/inmem"
	"github.com/trezcool/mpiangona/testutil"
)

const testPassword = "Pa$$w0rd!"

var (
	errMissingToken  = httpErr{Error: "missing or malformed jwt"}
	errAccessRefused = httpErr{Error: "access refused"}
)

type testEnv struct {
	repos  di.Repositories
	c      *di.Container
	app    *echoapi.Server
	mailer *testutil.Mailer
	logger *testutil.Logger
}

// setup runs a server on a fresh in-memory database. `tweak` may swap dependencies before the server is built.
func setup(t *testing.T, tweak ...func(*echoapi.ServerDeps)) *testEnv {
	t.Helper()
	conf := core.NewTestConfig()
	env := &testEnv{
		repos:  di.InMemory(inmemdb.Open()),
		mailer: testutil.NewMailer(),
		logger: new(testutil.Logger),
	}
	env.c = di.New(conf, env.logger, env.repos, env.mailer)
	env.c.Deps.DisableReqLogs = true
	for _, fn := range tweak {
		fn(&env.c.Deps)
	}
	env.c.Start()
	t.Cleanup(env.c.Stop)
	env.app = echoapi.NewServer(env.c.Deps)
	return env
}

// createUser stores an active user holding `r` and returns it.
func (env *testEnv) createUser(t *testing.T, uname string, r role.Role) user.User {
	t.Helper()
	usr := testutil.CreateUser(t, env.repos.Users, uname, uname+"@test.mg", testPassword, true)
	_, err := env.c.Deps.RoleSvc.Upsert(context.Background(), usr.ID, r)
	require.NoError(t, err)
	return usr
}

// login signs `uname` in through the API and returns the bearer token.
func (env *testEnv) login(t *testing.T, uname string) string {
	t.Helper()
	body := marshalObj(t, echoapi.LoginRequest{Username: uname, Password: testPassword})
	req, rec := newRequest(http.MethodPost, "/v1/auth/login", body)
	env.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res echoapi.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.NotEmpty(t, res.Token)
	return res.Token
}

// tokenFor creates a user with role `r` and logs it in.
func (env *testEnv) tokenFor(t *testing.T, uname string, r role.Role) string {
	t.Helper()
	env.createUser(t, uname, r)
	return env.login(t, uname)
}

func (env *testEnv) createMember(t *testing.T, nom, prenom, sexe string, opts ...func(*member.Member)) member.Member {
	t.Helper()
	return testutil.CreateMember(t, env.repos.Members, nom, prenom, sexe, opts...)
}

func (env *testEnv) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	env.app.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) run(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	if method == "" {
		method = http.MethodGet
	}
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

// checkCodeAndData compares the body only when wantData is set.
func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	wantCode := tt.wantCode
	if wantCode == 0 {
		wantCode = http.StatusOK
	}
	assert.Equal(t, wantCode, rec.Code, rec.Body.String())
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
