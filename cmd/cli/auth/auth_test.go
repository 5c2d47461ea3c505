package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/aydinberk/sumchat/cmd/cli/config"
)

// captureOutput helps capture stdout during command execution.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	return buf.String()
}

func TestLogin_StoresToken(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/login" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"token":   "test-token-value",
		})
	}))
	defer srv.Close()
	t.Setenv("SUMCHAT_API_URL", srv.URL)

	cmd := loginCmd()
	_ = cmd.Flags().Set("username", "alice")
	_ = cmd.Flags().Set("password", "password123")

	if err := cmd.RunE(cmd, nil); err != nil {
		t.Fatalf("login: %v", err)
	}

	token, err := config.LoadToken()
	if err != nil {
		t.Fatalf("LoadToken: %v", err)
	}
	if token != "test-token-value" {
		t.Errorf("stored token: got %q", token)
	}
}

func TestLogin_Register_SingleRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"token":   "fresh-token",
		})
	}))
	defer srv.Close()
	t.Setenv("SUMCHAT_API_URL", srv.URL)

	cmd := loginCmd()
	_ = cmd.Flags().Set("username", "bob")
	_ = cmd.Flags().Set("password", "password123")
	_ = cmd.Flags().Set("email", "bob@example.com")
	_ = cmd.Flags().Set("register", "true")

	if err := cmd.RunE(cmd, nil); err != nil {
		t.Fatalf("register: %v", err)
	}

	// Registration returns a token, so no second /login call happens.
	if len(paths) != 1 || paths[0] != "/register" {
		t.Errorf("calls: got %v, want just /register", paths)
	}
	if token, _ := config.LoadToken(); token != "fresh-token" {
		t.Errorf("stored token: got %q", token)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"message": "invalid credentials",
		})
	}))
	defer srv.Close()
	t.Setenv("SUMCHAT_API_URL", srv.URL)

	cmd := loginCmd()
	_ = cmd.Flags().Set("username", "alice")
	_ = cmd.Flags().Set("password", "wrong")

	err := cmd.RunE(cmd, nil)
	if err == nil {
		t.Fatal("expected an error for 401")
	}
	if _, loadErr := config.LoadToken(); loadErr == nil {
		t.Error("no token must be stored after a failed login")
	}
}

func TestLogout_ClearsToken(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]bool{"success": true})
	}))
	defer srv.Close()
	t.Setenv("SUMCHAT_API_URL", srv.URL)

	if err := config.SaveToken("stale-token"); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}

	cmd := logoutCmd()
	if err := cmd.RunE(cmd, nil); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if _, err := config.LoadToken(); err == nil {
		t.Error("token must be removed after logout")
	}
}

func TestWhoami_TableOutput(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/userinfo" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			t.Fatal("missing bearer token")
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"user": map[string]interface{}{
				"id":       1,
				"username": "alice",
				"email":    "alice@example.com",
			},
		})
	}))
	defer srv.Close()
	t.Setenv("SUMCHAT_API_URL", srv.URL)

	if err := config.SaveToken("some-token"); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}

	cmd := whoamiCmd()
	out := captureOutput(t, func() {
		if err := cmd.RunE(cmd, nil); err != nil {
			t.Errorf("whoami: %v", err)
		}
	})

	if !strings.Contains(out, "alice") || !strings.Contains(out, "alice@example.com") {
		t.Fatalf("expected user fields in output, got: %s", out)
	}
}

func TestWhoami_StaleTokenCleared(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	t.Setenv("SUMCHAT_API_URL", srv.URL)

	if err := config.SaveToken("expired-token"); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}

	cmd := whoamiCmd()
	if err := cmd.RunE(cmd, nil); err == nil {
		t.Fatal("expected an error for an expired session")
	}

	if _, err := config.LoadToken(); err == nil {
		t.Error("stale token must be cleared after a 401")
	}
}
