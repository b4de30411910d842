package app

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"photocat/internal/catalog"
)

// LibraryEnv names the data folder when -l/--library is not given.
const LibraryEnv = "PHOTOCAT_LIBRARY"

// EnvFileName is the optional dotenv file read from the working directory
// and from the data folder. Variables already set in the environment win.
const EnvFileName = ".env"

// ResolveLibrary returns the absolute data folder. flag takes precedence
// over PHOTOCAT_LIBRARY. The folder must exist.
func ResolveLibrary(flag string) (string, error) {
	if err := loadEnvFile(EnvFileName); err != nil {
		return "", err
	}

	dir := flag
	if dir == "" {
		dir = os.Getenv(LibraryEnv)
	}
	if dir == "" {
		return "", catalog.Configf("no library given: use -l or set %s", LibraryEnv)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", catalog.Configf("resolving library %s: %v", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", catalog.Configf("library %s: %v", abs, err)
	}
	if !info.IsDir() {
		return "", catalog.Configf("library %s is not a directory", abs)
	}

	if err := loadEnvFile(filepath.Join(abs, EnvFileName)); err != nil {
		return "", err
	}
	return abs, nil
}

// loadEnvFile loads path into the environment if it exists.
func loadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return catalog.Configf("reading %s: %v", path, err)
}
