package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/attendee-labs/managed-zoom-oauth-example/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show relay status",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			printError("config error: %v", err)
			return nil
		}

		client := &http.Client{Timeout: 2 * time.Second}
		healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
		resp, err := client.Get(healthURL)
		if err != nil {
			printStatus("Server", "stopped")
		} else {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				printStatus("Server", "running on port %d", cfg.Server.Port)
			} else {
				printStatus("Server", "error (HTTP %d)", resp.StatusCode)
			}
		}

		printStatus("Redirect URI", "%s", cfg.Zoom.RedirectURI)
		printStatus("Attendee API", "%s", cfg.Attendee.BaseURL)
		printStatus("Data dir", "%s", cfg.Storage.DataDir)
		return nil
	},
}
