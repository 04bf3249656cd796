package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var eventLimit int

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect recent camera events",
}

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recent events, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		api := setupClient()
		ctx, cancel := context.WithTimeout(context.Background(), api.Config.Timeout)
		defer cancel()

		limit := eventLimit
		if limit <= 0 {
			limit = viper.GetInt("event_limit")
		}
		events, err := api.GetEvents(ctx, limit)
		exitOnError("fetching events", err)

		printResult(events, func(w *tabwriter.Writer) {
			fmt.Fprintln(w, "TIME\tCAMERA\tTYPE\tSEVERITY\tMESSAGE")
			fmt.Fprintln(w, "----\t------\t----\t--------\t-------")
			for _, e := range events {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					e.Timestamp.Local().Format(time.DateTime),
					e.CameraID,
					e.Type,
					e.Severity,
					e.Message,
				)
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsListCmd)

	eventsListCmd.Flags().IntVar(&eventLimit, "limit", 0, "Number of events to fetch (default from event_limit)")
}
