package dotenv

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const (
	// EnvKey selects which group of .env files is loaded.
	EnvKey  = "HONEYBEE_ENV"
	DevEnv  = "dev"
	ProdEnv = "prod"
	TestEnv = "test"
)

// Env returns the runtime environment, "dev" when unset.
func Env() string {
	env := os.Getenv(EnvKey)
	if env == "" {
		return DevEnv
	}
	return env
}

// Files lists the .env files of env, highest priority first. Follows
// https://github.com/bkeepers/dotenv#what-other-env-files-can-i-use
func Files(env string) []string {
	return []string{
		// credentials, never committed
		".env." + env + ".local",
		".env.local",
		// endpoints of the environment
		".env." + env,
		// shared defaults
		".env",
	}
}

// LoadDotEnvs loads the .env files of the current environment from the working
// directory. Variables already set are never overwritten, missing files are
// skipped and malformed ones are errors. Call it once at the top of main.
func LoadDotEnvs() error {
	return loadFrom("", Env())
}

func loadFrom(dir string, env string) error {
	for _, name := range Files(env) {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return errors.Wrapf(err, "fail to load %s", path)
		}
	}
	return nil
}

// LoadDotEnvsInTests loads the test environment from the module root. Tests
// run in their package directory, so the root is found by walking up to
// go.mod.
func LoadDotEnvsInTests() error {
	dir, err := os.Getwd()
	if err != nil {
		return err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return loadFrom(dir, TestEnv)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return errors.New("go.mod not found above the working directory")
		}
		dir = parent
	}
}
