package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultAPIURL = "http://localhost:8080/api"
	tokenFileName = ".itam_token"
)

// APIURL returns the gateway API base, including the /api prefix. Override
// with ITAM_API_URL.
func APIURL() string {
	if v := os.Getenv("ITAM_API_URL"); v != "" {
		return strings.TrimRight(v, "/")
	}
	return defaultAPIURL
}

// TokenPath is where login stores the bearer token. Override with ITAM_TOKEN_FILE.
func TokenPath() (string, error) {
	if v := os.Getenv("ITAM_TOKEN_FILE"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, tokenFileName), nil
}

// SaveToken writes the token readable by the current user only.
func SaveToken(token string) error {
	path, err := TokenPath()
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(token), 0o600)
}

// ReadToken returns the stored token, or an error asking the user to log in.
func ReadToken() (string, error) {
	path, err := TokenPath()
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil || strings.TrimSpace(string(data)) == "" {
		return "", errors.New("not logged in: run `itam login` first")
	}
	return strings.TrimSpace(string(data)), nil
}

// ClearToken removes the stored token. A missing file is not an error.
func ClearToken() error {
	path, err := TokenPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
