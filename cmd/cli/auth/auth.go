package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/aydinberk/sumchat/cmd/cli/config"
	"github.com/aydinberk/sumchat/cmd/cli/output"
)

// InitAuth registers auth-related CLI commands on the root command.
func InitAuth(rootCmd *cobra.Command) {
	rootCmd.AddCommand(loginCmd(), logoutCmd(), whoamiCmd())
}

// ==========================
// Login
// ==========================
// loginCmd authenticates against the API and stores the JWT token locally.
// With --register it creates the account first; registration logs the user
// straight in, so no separate login round trip is needed.
func loginCmd() *cobra.Command {
	var username, password, email string
	var register bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the Summary Chat API",
		Long:  "Authenticate with the Summary Chat API and store a JWT token for subsequent CLI commands.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				return fmt.Errorf("username is required")
			}
			if password == "" {
				fmt.Print("Password: ")
				fmt.Scanln(&password)
			}

			client := http.DefaultClient

			var session struct {
				Token string `json:"token"`
			}

			if register {
				if email == "" {
					return fmt.Errorf("--email is required with --register")
				}
				payload := map[string]string{"username": username, "email": email, "password": password}
				if err := callJSONEndpoint(client, "/register", payload, &session); err != nil {
					return fmt.Errorf("failed to register user: %w", err)
				}
			} else {
				payload := map[string]string{"username": username, "password": password}
				if err := callJSONEndpoint(client, "/login", payload, &session); err != nil {
					return fmt.Errorf("failed to login: %w", err)
				}
			}

			if session.Token == "" {
				return fmt.Errorf("login succeeded but no token returned")
			}
			if err := config.SaveToken(session.Token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			fmt.Println("Login successful. Token stored locally.")
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username to authenticate as")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted if omitted)")
	cmd.Flags().StringVar(&email, "email", "", "Email address (registration only)")
	cmd.Flags().BoolVar(&register, "register", false, "Register the user before logging in")

	return cmd
}

// ==========================
// Logout
// ==========================
// logoutCmd tells the API goodbye and removes the local token. The local
// removal is what actually ends the session; the API call is best-effort.
func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and discard the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if token, err := config.LoadToken(); err == nil {
				req, _ := http.NewRequest("POST", config.APIURL()+"/logout", nil)
				req.Header.Set("Authorization", "Bearer "+token)
				if resp, err := http.DefaultClient.Do(req); err == nil {
					resp.Body.Close()
				}
			}

			if err := config.ClearToken(); err != nil {
				return fmt.Errorf("failed to remove token: %w", err)
			}
			fmt.Println("Logged out successfully.")
			return nil
		},
	}
}

// ==========================
// Whoami
// ==========================
func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the currently authenticated user",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := config.LoadToken()
			if err != nil {
				return fmt.Errorf("not logged in, run: sumchat login")
			}

			req, _ := http.NewRequest("GET", config.APIURL()+"/userinfo", nil)
			req.Header.Set("Authorization", "Bearer "+token)

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusUnauthorized {
				// Stored token is stale; drop it so the next login starts clean.
				_ = config.ClearToken()
				return fmt.Errorf("session expired, run: sumchat login")
			}
			if resp.StatusCode != http.StatusOK {
				b, _ := io.ReadAll(resp.Body)
				return fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
			}

			var out struct {
				User struct {
					ID       int    `json:"id"`
					Username string `json:"username"`
					Email    string `json:"email"`
				} `json:"user"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return err
			}

			output.RenderTable(
				[]string{"ID", "Username", "Email"},
				[][]interface{}{{out.User.ID, out.User.Username, out.User.Email}},
			)
			return nil
		},
	}
}

func callJSONEndpoint(client *http.Client, path string, payload interface{}, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest("POST", config.APIURL()+path, bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return err
		}
	}

	return nil
}
