package params

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
)

// DefaultEnvFile is loaded from the working directory when present.
const DefaultEnvFile = ".env"

// ParseEnvFile parses dotenv content without touching the process
// environment.
func ParseEnvFile(content []byte) (map[string]string, error) {
	values, err := godotenv.UnmarshalBytes(content)
	if err != nil {
		return nil, fmt.Errorf("parse env file: %w", err)
	}
	return values, nil
}

// LoadEnvFiles exports the variables of each file into the process
// environment without overriding variables that are already set. A missing
// default .env is ignored; any other missing file is an error.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		if err := godotenv.Load(DefaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", DefaultEnvFile, err)
		}
		return nil
	}

	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
	}
	return nil
}
