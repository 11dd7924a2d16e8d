// Package config resolves scanfill settings from viper and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands a leading ~ and $VARS in path. When the home directory
// cannot be determined the tilde is left alone.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = home + path[1:]
		}
	}

	return filepath.Clean(os.ExpandEnv(path))
}

// AbsPath expands path and makes it absolute, so stored project roots and
// workbook paths do not depend on the working directory.
func AbsPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", nil
	}
	abs, err := filepath.Abs(ExpandPath(path))
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	return abs, nil
}
