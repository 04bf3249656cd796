package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// Parent Command
var camerasCmd = &cobra.Command{
	Use:   "cameras",
	Short: "Inspect cameras",
}

// List Command
var camerasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all cameras",
	Run: func(cmd *cobra.Command, args []string) {
		api := setupClient()
		ctx, cancel := context.WithTimeout(context.Background(), api.Config.Timeout)
		defer cancel()

		cameras, err := api.GetCameras(ctx)
		exitOnError("fetching cameras", err)

		printResult(cameras, func(w *tabwriter.Writer) {
			fmt.Fprintln(w, "ID\tNAME\tSTATUS\tLOCATION\tFPS\tLAST SEEN")
			fmt.Fprintln(w, "--\t----\t------\t--------\t---\t---------")

			for _, cam := range cameras {
				lastSeen := "-"
				if cam.LastSeen != nil {
					lastSeen = cam.LastSeen.Local().Format(time.DateTime)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
					cam.ID,
					cam.Name,
					cam.Status,
					cam.Location,
					cam.FPS,
					lastSeen,
				)
			}
		})
	},
}

func init() {
	// Register Parent
	rootCmd.AddCommand(camerasCmd)

	// Register Subcommands
	camerasCmd.AddCommand(camerasListCmd)
}
