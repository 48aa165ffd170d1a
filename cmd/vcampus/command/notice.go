package command

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vcampus/internal/server"
)

func newNoticeCmd(a *app) *cobra.Command {
	noticeCmd := &cobra.Command{
		Use:   "notice",
		Short: "Broadcast notices through the admin API",
	}

	var adminURL, secret string
	var ttl time.Duration
	sendCmd := &cobra.Command{
		Use:   "send [text]",
		Short: "Send a notice to every connected client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = a.v.GetString("jwt-secret")
			}
			body, err := json.Marshal(map[string]string{"text": args[0]})
			if err != nil {
				return err
			}
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost,
				strings.TrimSuffix(adminURL, "/")+"/notice", bytes.NewReader(body))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			if secret != "" {
				host, _ := os.Hostname()
				token, err := server.IssueAdminToken(secret, "vcampus-cli@"+host, ttl)
				if err != nil {
					return err
				}
				req.Header.Set("Authorization", "Bearer "+token)
			}

			resp, err := (&http.Client{Timeout: 10 * time.Second}).Do(req)
			if err != nil {
				return fmt.Errorf("admin API request failed: %w", err)
			}
			defer resp.Body.Close()

			var result struct {
				Delivered int    `json:"delivered"`
				Error     string `json:"error"`
			}
			_ = json.NewDecoder(resp.Body).Decode(&result)
			if resp.StatusCode != http.StatusAccepted {
				return fmt.Errorf("admin API returned %s: %s", resp.Status, result.Error)
			}
			success.Fprintf(cmd.OutOrStdout(), "✓ Notice delivered to %d client(s)\n", result.Delivered)
			return nil
		},
	}
	sendCmd.Flags().StringVar(&adminURL, "admin", "http://localhost:8080", "admin API base URL")
	sendCmd.Flags().StringVar(&secret, "secret", "", "JWT secret shared with the server (or VCAMPUS_JWT_SECRET)")
	sendCmd.Flags().DurationVar(&ttl, "token-ttl", time.Minute, "lifetime of the signed token")

	noticeCmd.AddCommand(sendCmd)
	return noticeCmd
}
