package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/labstock/pkg/auth"
	"github.com/platinummonkey/labstock/pkg/config"
	"github.com/platinummonkey/labstock/pkg/middleware"
	"github.com/platinummonkey/labstock/pkg/query"
	"github.com/platinummonkey/labstock/pkg/storage"
)

var (
	adminCredential = strings.Repeat("A", auth.CredentialLength)
	userCredential  = strings.Repeat("B", auth.CredentialLength)
	otherCredential = strings.Repeat("C", auth.CredentialLength)
)

type testEnv struct {
	t      *testing.T
	server *Server
	db     *sql.DB
	store  *storage.Store
	hasher *auth.Hasher
	admin  string
}

type envelope struct {
	Code    int             `json:"code"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e envelope) decode(t *testing.T, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(e.Data, dest), "data: %s", e.Data)
}

func newTestServer(t *testing.T) *testEnv {
	return newTestServerWithLimiter(t, nil)
}

func newTestServerWithLimiter(t *testing.T, limiter middleware.Limiter) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, dialect, err := storage.Open(ctx, storage.ConnectionConfig{Driver: "sqlite3", URL: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return newTestEnv(t, db, dialect, limiter)
}

// newTestEnv migrates db, bootstraps the admin principal and signs it in
func newTestEnv(t *testing.T, db *sql.DB, dialect query.Dialect, limiter middleware.Limiter) *testEnv {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, storage.RunMigrations(ctx, db, dialect, nil))

	cfg := config.Default()
	cfg.Auth.BcryptCost = 4
	cfg.Auth.SignInLimit.Enabled = false

	store := storage.NewStore(dialect)
	env := &testEnv{
		t:      t,
		db:     db,
		store:  store,
		hasher: auth.NewHasher(cfg.Auth.BcryptCost),
		server: NewServer(Options{DB: db, Store: store, Config: cfg, Limiter: limiter}),
	}

	hash, err := env.hasher.Hash(adminCredential)
	require.NoError(t, err)
	created, err := store.BootstrapAdmin(ctx, db, "admin", "*", "admin", hash)
	require.NoError(t, err)
	require.True(t, created)

	env.admin = env.signIn("admin", adminCredential)
	return env
}

// do sends a JSON request. body may be nil, a string or a value to encode.
func (e *testEnv) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	e.t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)

	var env envelope
	require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	require.Equal(e.t, rec.Code, env.Code)
	return rec, env
}

func (e *testEnv) signIn(name, credential string) string {
	e.t.Helper()
	_, env := e.do(http.MethodPut, "/users/"+name+"/token", "", map[string]string{"password": credential})
	require.Equal(e.t, http.StatusOK, env.Code, "sign in %s: %s", name, env.Error)

	var out SignInResponse
	env.decode(e.t, &out)
	require.NotEmpty(e.t, out.Token)
	return out.Token
}

// mustGroup creates a group directly in the store
func (e *testEnv) mustGroup(name, permission string) *storage.Group {
	e.t.Helper()
	g := &storage.Group{Name: name, Permission: permission}
	require.NoError(e.t, e.store.CreateGroup(context.Background(), e.db, g))
	return g
}

// mustUser creates a principal directly in the store
func (e *testEnv) mustUser(name, credential string, g *storage.Group) *storage.User {
	e.t.Helper()
	hash, err := e.hasher.Hash(credential)
	require.NoError(e.t, err)
	u := &storage.User{Name: name, PasswordHash: hash, GroupID: groupID(g)}
	require.NoError(e.t, e.store.CreateUser(context.Background(), e.db, u))
	return u
}

func (e *testEnv) user(name string) *storage.User {
	e.t.Helper()
	u, err := e.store.GetUserByName(context.Background(), e.db, name)
	require.NoError(e.t, err)
	return u
}
