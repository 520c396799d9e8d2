package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "key")
	require.NoError(t, os.WriteFile(file, []byte("  from-file\n"), 0o600))
	t.Setenv("JOBREC_TEST_KEY", " from-env ")

	got, err := Load(Source{Name: "api key", File: file, Env: "JOBREC_TEST_KEY", Value: "inline"})
	require.NoError(t, err)
	assert.Equal(t, "from-file", got)

	got, err = Load(Source{Name: "api key", Env: "JOBREC_TEST_KEY", Value: "inline"})
	require.NoError(t, err)
	assert.Equal(t, "from-env", got)

	got, err = Load(Source{Name: "api key", Env: "JOBREC_TEST_UNSET", Value: " inline "})
	require.NoError(t, err)
	assert.Equal(t, "inline", got)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, []byte("\n\t"), 0o600))

	_, err := Load(Source{Name: "api key", File: empty, Value: "inline"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is empty")

	_, err = Load(Source{Name: "api key", File: filepath.Join(dir, "missing")})
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(Source{Env: "JOBREC_TEST_UNSET"})
	require.Error(t, err)
	assert.Equal(t, "secret is not configured (JOBREC_TEST_UNSET is empty)", err.Error())

	_, err = Load(Source{Name: "api key"})
	assert.EqualError(t, err, "api key is not configured")
}
