package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"camdash/internal/config"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session and forget the saved cookie",
	Run: func(cmd *cobra.Command, args []string) {
		s := loadSettings()
		if s.SessionToken != "" {
			ctx, cancel := context.WithTimeout(context.Background(), s.RequestTimeout)
			defer cancel()
			// The local session is dropped even if the server is unreachable.
			if err := newClient(s).Logout(ctx); err != nil {
				slog.Warn("logout request failed", "error", err)
			}
		}
		if err := config.ClearSession(); err != nil {
			fail("Failed to update configuration file: %v", err)
		}
		fmt.Println("Logged out.")
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
