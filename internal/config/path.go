package config

import (
	"net/url"
	"os"
	"path/filepath"
)

const appDir = "inferq"

// DefaultDataDir returns the directory used by the embedded stream store
// when no pebble:// path is given. XDG_DATA_HOME wins, then the usual
// per-OS locations, then ~/.inferq.
func DefaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		return "./data"
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appDir)
	}
	switch {
	case isDir("/var/lib"):
		return filepath.Join("/var/lib", appDir)
	case isDir(filepath.Join(homeDir, "Library")):
		return filepath.Join(homeDir, "Library", "Application Support", "Inferq")
	case isDir(filepath.Join(homeDir, "AppData")):
		return filepath.Join(homeDir, "AppData", "Local", "Inferq")
	}
	return filepath.Join(homeDir, "."+appDir)
}

// LocalEndpoint builds a pebble:// stream endpoint for dir, or for
// DefaultDataDir when dir is empty.
func LocalEndpoint(dir string) string {
	if dir == "" {
		dir = DefaultDataDir()
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return (&url.URL{Scheme: "pebble", Path: filepath.ToSlash(dir)}).String()
}

// RedactEndpoint hides any password in endpoint for logs and errors.
func RedactEndpoint(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	return u.Redacted()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
