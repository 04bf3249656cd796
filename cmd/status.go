package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"camdash/internal/session"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether setup is required and who is signed in",
	Run: func(cmd *cobra.Command, args []string) {
		s := loadSettings()
		m := session.New(newClient(s), nil)

		ctx, cancel := context.WithTimeout(context.Background(), s.RequestTimeout)
		defer cancel()
		sess := m.Init(ctx)

		printResult(sess, func(w *tabwriter.Writer) {
			fmt.Fprintf(w, "SERVER\t%s\n", s.BaseURL)
			fmt.Fprintf(w, "STATE\t%s\n", m.State())
			if sess.User != nil {
				fmt.Fprintf(w, "USER\t%s (%s)\n", sess.User.Username, sess.User.Role)
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
