package dotenv

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvDefaultsToDev(t *testing.T) {
	t.Setenv(EnvKey, "")
	assert.Equal(t, DevEnv, Env())

	t.Setenv(EnvKey, ProdEnv)
	assert.Equal(t, ProdEnv, Env())
}

func TestLoadFromHonorsPriority(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, ioutil.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	write(".env", "HONEYBEE_TEST_SHARED=shared\nHONEYBEE_TEST_OVERRIDE=from-env\n")
	write(".env.test.local", "HONEYBEE_TEST_OVERRIDE=from-local\n")

	t.Setenv("HONEYBEE_TEST_SHARED", "")
	t.Setenv("HONEYBEE_TEST_OVERRIDE", "")
	os.Unsetenv("HONEYBEE_TEST_SHARED")
	os.Unsetenv("HONEYBEE_TEST_OVERRIDE")

	require.NoError(t, loadFrom(dir, TestEnv))
	assert.Equal(t, "shared", os.Getenv("HONEYBEE_TEST_SHARED"))
	assert.Equal(t, "from-local", os.Getenv("HONEYBEE_TEST_OVERRIDE"))
}

func TestLoadFromRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, ".env"), []byte("NOT A VALID LINE'\n"), 0644))
	assert.Error(t, loadFrom(dir, TestEnv))
}

func TestLoadDotEnvsInTestsFindsModuleRoot(t *testing.T) {
	assert.NoError(t, LoadDotEnvsInTests())
}
