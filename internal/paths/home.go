// Package paths locates the tsnap home directory. It holds:
//
//	config.yaml   run configuration
//	archives/     file store, one directory per archive
//	archives.db   SQLite store
package paths

import (
	"os"
	"path/filepath"
)

const (
	envHome     = "TSNAP_HOME_DIR"
	defaultHome = ".tracker-snapshot"
)

// Home returns ~/.tracker-snapshot, or TSNAP_HOME_DIR when set. A missing
// user home falls back to a directory relative to the working directory.
func Home() string {
	if v := os.Getenv(envHome); v != "" {
		return v
	}
	hd, err := os.UserHomeDir()
	if err != nil || hd == "" {
		return defaultHome
	}
	return filepath.Join(hd, defaultHome)
}

// ConfigFile is the default configuration file.
func ConfigFile() string { return filepath.Join(Home(), "config.yaml") }

// ArchiveDir is the default root of the file store.
func ArchiveDir() string { return filepath.Join(Home(), "archives") }

// SQLiteFile is the default SQLite store.
func SQLiteFile() string { return filepath.Join(Home(), "archives.db") }

// EnsureHome creates the home directory, readable by the user only.
func EnsureHome() (string, error) {
	h := Home()
	if err := os.MkdirAll(h, 0o700); err != nil {
		return "", err
	}
	return h, nil
}
