package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const maxEnvSearchDepth = 6

// FindEnvFile looks for a .env file in dir and its parents. It returns "" when there is none.
func FindEnvFile(dir string) (string, error) {
	for range maxEnvSearchDepth {
		path := filepath.Join(dir, ".env")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", nil
}

// LoadEnvFile loads the nearest .env into the process environment without overriding
// variables that are already set. It returns the path it loaded, or "".
func LoadEnvFile() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("locate .env: %w", err)
	}
	path, err := FindEnvFile(wd)
	if err != nil || path == "" {
		return "", err
	}
	if err := godotenv.Load(path); err != nil {
		return "", fmt.Errorf("load %s: %w", path, err)
	}
	return path, nil
}
