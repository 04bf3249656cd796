package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"camdash/internal/config"
	"camdash/internal/session"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a user account",
	Long: `Creates a user on the dashboard server. On a fresh server this creates the
administrator and signs in straight away.`,
	Run: func(cmd *cobra.Command, args []string) {
		s := credentialsSettings()

		api := newClient(s)
		m := session.New(api, nil)
		ctx, cancel := context.WithTimeout(context.Background(), s.RequestTimeout)
		defer cancel()

		res := m.Register(ctx, user, pass)
		if !res.OK() {
			fail("Registration failed: %s", res.Message)
		}
		fmt.Printf("Created user %s (%s).\n", res.User.Username, res.User.Role)

		if !res.AutoLogin {
			fmt.Println("Run 'camdash login' to sign in.")
			return
		}
		if err := config.SaveSession(s.BaseURL, api.SessionToken()); err != nil {
			fail("Failed to save configuration file: %v", err)
		}
		fmt.Println("Signed in. Session saved.")
	},
}

func init() {
	rootCmd.AddCommand(registerCmd)
	addCredentialFlags(registerCmd)
}
