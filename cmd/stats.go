package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the system summary",
	Run: func(cmd *cobra.Command, args []string) {
		api := setupClient()
		ctx, cancel := context.WithTimeout(context.Background(), api.Config.Timeout)
		defer cancel()

		st, err := api.GetStats(ctx)
		exitOnError("fetching stats", err)

		printResult(st, func(w *tabwriter.Writer) {
			fmt.Fprintf(w, "CAMERAS\t%d\n", st.TotalCameras)
			fmt.Fprintf(w, "  ONLINE\t%d\n", st.OnlineCameras)
			fmt.Fprintf(w, "  OFFLINE\t%d\n", st.OfflineCameras)
			fmt.Fprintf(w, "  ERROR\t%d\n", st.ErrorCameras)
			fmt.Fprintf(w, "EVENTS TODAY\t%d\n", st.EventsToday)
			fmt.Fprintf(w, "ACTIVE ALERTS\t%d\n", st.ActiveAlerts)
			fmt.Fprintf(w, "UPTIME\t%s\n", (time.Duration(st.UptimeSeconds) * time.Second).String())
		})
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
