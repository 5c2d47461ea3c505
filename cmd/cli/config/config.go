package config

import (
	"os"
	"path/filepath"
)

const defaultAPIURL = "http://localhost:8080"

const tokenFileName = ".sumchat_token"

// APIURL returns the base URL for the Summary Chat API.
// It can be overridden with the SUMCHAT_API_URL environment variable.
func APIURL() string {
	if v := os.Getenv("SUMCHAT_API_URL"); v != "" {
		return v
	}
	return defaultAPIURL
}

// ==========================
// Token Storage Helpers
// ==========================
// SaveToken stores the session token in the user's home directory, readable
// only by the owner.
func SaveToken(token string) error {
	return os.WriteFile(tokenPath(), []byte(token), 0600)
}

func LoadToken() (string, error) {
	data, err := os.ReadFile(tokenPath())
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ClearToken removes the stored token. Missing file is not an error: the
// user is simply already logged out.
func ClearToken() error {
	err := os.Remove(tokenPath())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func tokenPath() string {
	dir, _ := os.UserHomeDir()
	return filepath.Join(dir, tokenFileName)
}
