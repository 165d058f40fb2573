package cli

import (
	"os"
	"path/filepath"
	"strings"
)

// EnsureHome creates the local state directory (history database, sync queue).
func EnsureHome(dir string) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".gymsim")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

func HistoryPath(home string) string {
	return filepath.Join(home, "history.db")
}
