package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"camdash/internal/config"
	"camdash/internal/session"
)

// Variables to hold flag values
var (
	host string
	user string
	pass string
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the dashboard server",
	Long: `Authenticates with a username and password and saves the session cookie
locally for future commands.

Example:
  camdash login --host "http://10.0.0.5:8080" --username alice --password secret`,
	Run: func(cmd *cobra.Command, args []string) {
		s := credentialsSettings()

		fmt.Printf("Authenticating against %s as user '%s'...\n", s.BaseURL, user)

		api := newClient(s)
		m := session.New(api, nil)
		ctx, cancel := context.WithTimeout(context.Background(), s.RequestTimeout)
		defer cancel()

		res := m.Login(ctx, user, pass)
		if !res.OK() {
			fail("Login failed: %s", res.Message)
		}

		if err := config.SaveSession(s.BaseURL, api.SessionToken()); err != nil {
			fail("Failed to save configuration file: %v", err)
		}
		fmt.Printf("Logged in as %s (%s). Session saved.\n", res.User.Username, res.User.Role)
	},
}

// credentialsSettings merges --host/--username/--password with the config.
func credentialsSettings() config.Settings {
	if host != "" {
		viper.Set("base_url", strings.TrimRight(host, "/"))
	}
	if user == "" {
		user = viper.GetString("username")
	}
	if pass == "" {
		pass = viper.GetString("password")
	}
	if user == "" || pass == "" {
		fail("Error: --username and --password are required")
	}
	s := loadSettings()
	s.SessionToken = ""
	return s
}

func addCredentialFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&host, "host", "", "Dashboard base URL (e.g. http://192.168.1.50:8080)")
	cmd.Flags().StringVarP(&user, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&pass, "password", "p", "", "Password")
}

func init() {
	rootCmd.AddCommand(loginCmd)
	addCredentialFlags(loginCmd)
}
