package cli

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/labstock/pkg/auth"
	"github.com/platinummonkey/labstock/pkg/config"
	"github.com/platinummonkey/labstock/pkg/storage"
)

// writeConfig creates a YAML file pointing at a fresh SQLite database file.
func writeConfig(t *testing.T, extra ...string) string {
	t.Helper()
	dir := t.TempDir()
	lines := append([]string{
		"database:",
		"  driver: sqlite3",
		"  url: \"" + filepath.Join(dir, "labstock.db") + "\"",
		"auth:",
		"  bcrypt_cost: 4",
		"  session_idle_timeout: 1h",
	}, extra...)
	path := filepath.Join(dir, "labstock.yaml")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o600))
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func openTestStore(t *testing.T, configPath string) (*config.Config, *sql.DB, *storage.Store) {
	t.Helper()
	cfg, err := config.Load(configPath)
	require.NoError(t, err)
	db, store, err := openStore(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return cfg, db, store
}

func TestNewRootCmd(t *testing.T) {
	root := newRootCmd()
	assert.Equal(t, "labstock-admin", root.Name())
	assert.True(t, root.SilenceUsage)

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"digest", "migrate", "bootstrap", "sweep-tokens", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestInvalidOutputFormat(t *testing.T) {
	_, err := execute(t, "", "version", "-o", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output format")
}

func TestDigest(t *testing.T) {
	const want = "9F86D081884C7D659A2FEAA0C55AD015A3BF4F1B2B0B822CD15D6C15B0F00A08"

	out, err := execute(t, "", "digest", "test")
	require.NoError(t, err)
	assert.Equal(t, want+"\n", out)

	out, err = execute(t, "test\r\nignored\n", "digest")
	require.NoError(t, err)
	assert.Equal(t, want+"\n", out, "reads the first stdin line")

	out, err = execute(t, "", "digest", "test", "--output", "json")
	require.NoError(t, err)
	var body map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, want, body["credential"])
}

func TestDigest_Empty(t *testing.T) {
	_, err := execute(t, "", "digest")
	assert.Error(t, err)

	_, err = execute(t, "", "digest", "")
	assert.Error(t, err)
}

func TestMigrateAndBootstrap(t *testing.T) {
	path := writeConfig(t)

	out, err := execute(t, "", "migrate", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "migrations applied")

	out, err = execute(t, "", "bootstrap", "--config", path, "--user", "root", "--passphrase", "s3cret", "-o", "json")
	require.NoError(t, err)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, true, body["created"])
	assert.Equal(t, "admin", body["group"], "group falls back to configuration")
	assert.Equal(t, "root", body["user"])

	out, err = execute(t, "", "bootstrap", "--config", path, "--user", "other", "--passphrase", "s3cret")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing created")

	cfg, db, store := openTestStore(t, path)
	ctx := context.Background()
	u, err := store.GetUserByName(ctx, db, "root")
	require.NoError(t, err)
	assert.NoError(t, auth.NewHasher(cfg.Auth.BcryptCost).Compare(u.PasswordHash, auth.DigestPassphrase("s3cret")))

	g, err := store.GetGroupByName(ctx, db, "admin")
	require.NoError(t, err)
	assert.Equal(t, string(auth.Wildcard), g.Permission)

	_, err = store.GetUserByName(ctx, db, "other")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBootstrap_MigrateFlag(t *testing.T) {
	path := writeConfig(t)
	out, err := execute(t, "", "bootstrap", "--config", path, "--migrate", "--credential", auth.DigestPassphrase("x"))
	require.NoError(t, err)
	assert.Contains(t, out, `created group "admin" with user "admin"`)
}

func TestBootstrap_Validation(t *testing.T) {
	path := writeConfig(t)

	tests := []struct {
		name string
		args []string
	}{
		{"no credential", []string{}},
		{"bad credential", []string{"--credential", "abc"}},
		{"lowercase credential", []string{"--credential", strings.ToLower(auth.DigestPassphrase("x"))}},
		{"both credential and passphrase", []string{"--credential", auth.DigestPassphrase("x"), "--passphrase", "x"}},
		{"bad user", []string{"--passphrase", "x", "--user", ".hidden"}},
		{"bad group", []string{"--passphrase", "x", "--group", "a/b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"bootstrap", "--config", path}, tt.args...)
			_, err := execute(t, "", args...)
			assert.Error(t, err)
		})
	}
}

func TestSweepTokens(t *testing.T) {
	path := writeConfig(t)
	_, err := execute(t, "", "bootstrap", "--config", path, "--migrate", "--passphrase", "x")
	require.NoError(t, err)

	_, db, store := openTestStore(t, path)
	ctx := context.Background()
	u, err := store.GetUserByName(ctx, db, "admin")
	require.NoError(t, err)
	now := time.Now().UTC()
	require.NoError(t, store.CreateToken(ctx, db, &storage.Token{UserID: u.ID, Hash: "stale", Prefix: "p", LastUsedAt: now.Add(-3 * time.Hour)}))
	require.NoError(t, store.CreateToken(ctx, db, &storage.Token{UserID: u.ID, Hash: "live", Prefix: "p", LastUsedAt: now}))

	out, err := execute(t, "", "sweep-tokens", "--config", path, "-o", "json")
	require.NoError(t, err)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, float64(1), body["removed"], "configured idle timeout is one hour")

	out, err = execute(t, "", "sweep-tokens", "--config", path, "--idle", "1ns")
	require.NoError(t, err)
	assert.Equal(t, "removed 1 idle tokens\n", out)
}

func TestSweepTokens_RequiresIdle(t *testing.T) {
	path := writeConfig(t)
	_, err := execute(t, "", "sweep-tokens", "--config", path, "--idle", "0s")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "idle duration must be positive")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "labstock-admin dev"))

	out, err = execute(t, "", "version", "-o", "json")
	require.NoError(t, err)
	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "dev", info["version"])
	assert.NotEmpty(t, info["go"])
}
