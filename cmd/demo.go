package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"camdash/internal/demo"
)

var (
	demoAddr     string
	demoInterval time.Duration
	demoAdmin    string
	demoPassword string
	demoSecret   string
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Serve an in-process demo dashboard server",
	Long: `Runs a dashboard server with seeded cameras and events and a simulator that
changes camera status, records events and raises alerts.

Example:
  camdash demo --addr :8080 --admin admin --admin-password admin
  camdash login --host http://localhost:8080 -u admin -p admin`,
	Run: func(cmd *cobra.Command, args []string) {
		secret := demoSecret
		if secret == "" {
			secret = uuid.NewString()
		}
		stack := demo.NewStack([]byte(secret), 0)

		if demoAdmin != "" {
			if _, _, err := stack.Backend.Register(demoAdmin, demoPassword); err != nil {
				fail("Error creating admin: %v", err)
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		demo.NewSimulator(stack.Backend, demoInterval, time.Now().UnixNano()).Start(ctx)

		srv := &http.Server{Addr: demoAddr, Handler: stack.Server, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			<-ctx.Done()
			stack.Hub.Close()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		fmt.Printf("Demo dashboard listening on %s\n", demoAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fail("Server error: %v", err)
		}
		slog.Info("demo: stopped")
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)
	demoCmd.Flags().StringVar(&demoAddr, "addr", ":8080", "Listen address")
	demoCmd.Flags().DurationVar(&demoInterval, "interval", 3*time.Second, "Simulator step interval")
	demoCmd.Flags().StringVar(&demoAdmin, "admin", "", "Create this administrator at startup")
	demoCmd.Flags().StringVar(&demoPassword, "admin-password", "admin", "Password for --admin")
	demoCmd.Flags().StringVar(&demoSecret, "secret", "", "Session signing secret (random by default)")
}
