package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandHomePath rewrites a leading "~/" to the current user's home directory.
// Paths that don't start with "~" pass through unchanged.
func ExpandHomePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return path
	}
	if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
