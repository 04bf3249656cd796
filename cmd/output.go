package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"camdash/internal/client"
	"camdash/internal/config"
)

// printResult writes v as JSON or YAML when asked to, otherwise renders the
// table.
func printResult(v any, table func(w *tabwriter.Writer)) {
	switch {
	case jsonOutput:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			fail("Error encoding JSON: %v", err)
		}
	case yamlOutput:
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			fail("Error encoding YAML: %v", err)
		}
		_ = enc.Close()
	default:
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		table(w)
		w.Flush()
	}
}

func fail(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
	os.Exit(1)
}

// loadSettings resolves the config or exits.
func loadSettings() config.Settings {
	s, err := config.Load()
	if err != nil {
		fail("Error: %v", err)
	}
	return s
}

// newClient builds a REST client for the configured server.
func newClient(s config.Settings) *client.Client {
	api, err := client.New(client.ClientConfig{
		BaseURL:            s.BaseURL,
		Timeout:            s.RequestTimeout,
		InsecureSkipVerify: s.InsecureSkipVerify,
	})
	if err != nil {
		fail("Error: %v", err)
	}
	api.UseSession(s.SessionToken)
	return api
}

// setupClient returns a client carrying the saved session.
func setupClient() *client.Client {
	s := loadSettings()
	if s.SessionToken == "" {
		fail("Error: Not logged in. Please run 'camdash login' first.")
	}
	return newClient(s)
}

// exitOnError prints err with a hint for expired sessions.
func exitOnError(what string, err error) {
	if err == nil {
		return
	}
	if client.IsAuthError(err) {
		fail("Error %s: session expired. Please run 'camdash login' again.", what)
	}
	fail("Error %s: %v", what, err)
}
