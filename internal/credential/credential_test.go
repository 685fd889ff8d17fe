package credential_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omochice/chatlink/internal/credential"
)

func TestStatic(t *testing.T) {
	tok, ok := credential.Static("tok-1").Token()
	assert.True(t, ok)
	assert.Equal(t, "tok-1", tok)

	tok, ok = credential.Static("").Token()
	assert.False(t, ok)
	assert.Empty(t, tok)
}

func TestEnv(t *testing.T) {
	const name = "CHATLINK_TEST_TOKEN"

	t.Setenv(name, "")
	_, ok := credential.Env(name).Token()
	assert.False(t, ok, "empty variable counts as absent")

	t.Setenv(name, "from-env")
	tok, ok := credential.Env(name).Token()
	assert.True(t, ok)
	assert.Equal(t, "from-env", tok)
}

func TestChain(t *testing.T) {
	chain := credential.Chain{
		nil,
		credential.Static(""),
		credential.SourceFunc(func() (string, bool) { return "second", true }),
		credential.Static("third"),
	}

	tok, ok := chain.Token()
	assert.True(t, ok)
	assert.Equal(t, "second", tok)

	_, ok = credential.Chain{}.Token()
	assert.False(t, ok)
}

func TestFileStore_Missing(t *testing.T) {
	store := credential.NewFileStore(filepath.Join(t.TempDir(), "missing.toml"))

	tok, ok := store.Token()
	assert.False(t, ok)
	assert.Empty(t, tok)
}

func TestFileStore_SetAndToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.toml")
	store := credential.NewFileStore(path)

	require.NoError(t, store.Set("tok-1"))

	tok, ok := store.Token()
	require.True(t, ok)
	assert.Equal(t, "tok-1", tok)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStore_RefreshIsVisible(t *testing.T) {
	store := credential.NewFileStore(filepath.Join(t.TempDir(), "session.toml"))

	require.NoError(t, store.Set("tok-1"))
	tok, _ := store.Token()
	assert.Equal(t, "tok-1", tok)

	require.NoError(t, store.Set("tok-2"))
	tok, _ = store.Token()
	assert.Equal(t, "tok-2", tok)
}

func TestFileStore_KeepsRefreshToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.toml")
	require.NoError(t, os.WriteFile(path, []byte("access_token = \"old\"\nrefresh_token = \"r-1\"\n"), 0o600))

	store := credential.NewFileStore(path)
	require.NoError(t, store.Set("new"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `refresh_token = "r-1"`)
	assert.Contains(t, string(data), `access_token = "new"`)
}

func TestFileStore_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.toml")
	require.NoError(t, os.WriteFile(path, []byte("access_token = "), 0o600))

	_, ok := credential.NewFileStore(path).Token()
	assert.False(t, ok)
}

func TestFileStore_Clear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.toml")
	store := credential.NewFileStore(path)

	require.NoError(t, store.Set("tok"))
	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear(), "clearing twice is fine")

	_, ok := store.Token()
	assert.False(t, ok)
}
