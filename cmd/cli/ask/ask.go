package ask

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aydinberk/sumchat/cmd/cli/config"
)

// InitAsk registers the summary commands on the root command.
func InitAsk(rootCmd *cobra.Command) {
	askCmd := &cobra.Command{
		Use:   "ask",
		Short: "Send prompts to the summary backend",
	}

	askCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(askCmd)
}

// ==========================
// Summary
// ==========================
func summaryCmd() *cobra.Command {
	var style string
	var stream bool

	cmd := &cobra.Command{
		Use:   "summary [prompt...]",
		Short: "Summarize a prompt",
		Long: `Send a prompt to the summary backend. The prompt is read from the
arguments, or from stdin when no arguments are given (handy for piping files).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := config.LoadToken()
			if err != nil {
				return fmt.Errorf("not logged in, run: sumchat login")
			}

			prompt := strings.Join(args, " ")
			if strings.TrimSpace(prompt) == "" {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return err
				}
				prompt = string(data)
			}
			if strings.TrimSpace(prompt) == "" {
				return fmt.Errorf("prompt is required")
			}

			payload, _ := json.Marshal(map[string]string{"prompt": prompt, "style": style})

			path := "/ask/summary"
			if stream {
				path += "/stream"
			}

			req, err := http.NewRequest("POST", config.APIURL()+path, bytes.NewReader(payload))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+token)

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusUnauthorized {
				_ = config.ClearToken()
				return fmt.Errorf("session expired, run: sumchat login")
			}
			if resp.StatusCode != http.StatusOK {
				b, _ := io.ReadAll(resp.Body)
				return fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
			}

			if stream {
				// Chunks are printed as they arrive; a mid-stream upstream
				// failure shows up as a truncated reply.
				if _, err := io.Copy(os.Stdout, resp.Body); err != nil {
					return fmt.Errorf("stream interrupted: %w", err)
				}
				fmt.Println()
				return nil
			}

			var out struct {
				Response string `json:"response"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return err
			}
			fmt.Println(out.Response)
			return nil
		},
	}

	cmd.Flags().StringVar(&style, "style", "", "Summary style: brief, detailed or bullets")
	cmd.Flags().BoolVar(&stream, "stream", false, "Stream the reply as it is generated")

	return cmd
}
