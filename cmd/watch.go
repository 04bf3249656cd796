package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"camdash/internal/app"
	"camdash/internal/config"
	"camdash/internal/metrics"
	"camdash/internal/push"
	"camdash/pkg/models"
)

// Variables to hold flag values
var (
	watchPort     string
	watchQuiet    bool
	serviceAction string // "install", "uninstall", "start", "stop"
)

// --- SERVICE WRAPPER ---

// program implements the kardianos/service interface
type program struct {
	settings config.Settings
	quiet    bool

	// Set in Start before run begins, so Stop always sees them.
	ctx    *app.Context
	server *http.Server
	unsubs []func()
	done   chan struct{}
}

func (p *program) Start(s service.Service) error {
	// Start should not block. Do the actual work async.
	ac, err := app.New(p.settings)
	if err != nil {
		return err
	}
	p.ctx = ac
	p.server = &http.Server{
		Addr:              fmt.Sprintf(":%s", p.settings.MetricsPort),
		Handler:           metrics.Handler(ac.Registry),
		ReadHeaderTimeout: 5 * time.Second,
	}
	if !p.quiet {
		p.follow()
	}
	p.done = make(chan struct{})
	go p.run()
	return nil
}

func (p *program) run() {
	defer close(p.done)

	// 1. Resolve the saved session, signing in with configured credentials
	// when it is no longer valid.
	sess := p.ctx.Start(context.Background())
	if !sess.IsAuthenticated && p.settings.Username != "" {
		slog.Info("watch: signing in", "user", p.settings.Username)
		res := p.ctx.Session.Login(context.Background(), p.settings.Username, p.settings.Password)
		if !res.OK() {
			slog.Error("watch: login failed", "outcome", res.Outcome, "message", res.Message)
		} else if err := config.SaveSession(p.settings.BaseURL, p.ctx.API.SessionToken()); err != nil {
			slog.Warn("watch: could not save session", "error", err)
		}
	}
	if !p.ctx.Session.Read().IsAuthenticated {
		slog.Warn("watch: not signed in; run 'camdash login' or set username/password")
	}

	// 2. Serve metrics
	slog.Info("watch: metrics listening", "addr", p.server.Addr)

	// Blocking call to listen. Returns ErrServerClosed at once if Stop ran first.
	if err := p.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("watch: metrics server error", "error", err)
	}
}

// follow prints store changes as they happen.
func (p *program) follow() {
	ac := p.ctx
	p.unsubs = append(p.unsubs,
		ac.Session.Subscribe(func(s models.Session) {
			if s.IsAuthenticated {
				fmt.Printf("session: signed in as %s\n", s.User.Username)
				return
			}
			fmt.Println("session: signed out")
		}),
		ac.Push.Subscribe(func(s push.State) {
			fmt.Printf("live: %s\n", s)
		}),
		ac.Cameras.Subscribe(func(cams []models.Camera) {
			online := 0
			for _, c := range cams {
				if c.Status == models.CameraOnline {
					online++
				}
			}
			fmt.Printf("cameras: %d total, %d online\n", len(cams), online)
		}),
		ac.Events.Subscribe(func(events []models.Event) {
			if len(events) > 0 {
				e := events[0]
				fmt.Printf("event: [%s] %s %s\n", e.CameraID, e.Type, e.Message)
			}
		}),
		ac.Alerts.Subscribe(func(alerts []models.Alert) {
			fmt.Printf("alerts: %d active\n", len(alerts))
		}),
		ac.Notifications.Subscribe(func(list []models.Notification) {
			if n := len(list); n > 0 {
				fmt.Printf("notice: %s: %s\n", list[n-1].Severity, list[n-1].Message)
			}
		}),
	)
}

func (p *program) Stop(s service.Service) error {
	// Stop should not block. Signal the app to stop.
	slog.Info("watch: stopping")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if p.server != nil {
		if err := p.server.Shutdown(ctx); err != nil {
			slog.Warn("watch: server forced to shutdown", "error", err)
		}
	}
	for _, unsub := range p.unsubs {
		unsub()
	}
	if p.ctx != nil {
		p.ctx.Close()
	}
	return nil
}

// --- COMMAND ---

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the dashboard live and expose Prometheus metrics",
	Long: `Signs in, loads cameras, events and stats, then keeps them current over the
live push channel. Store state is exported on /metrics.
Can be installed as a system service.`,
	Run: func(cmd *cobra.Command, args []string) {
		if watchPort != "" {
			viper.Set("metrics.port", watchPort)
		}
		settings := loadSettings()

		// 1. Define Service Configuration
		svcConfig := &service.Config{
			Name:        "camdash-watch",
			DisplayName: "Camera Dashboard Watcher",
			Description: "Keeps a live copy of the camera dashboard and exports it to Prometheus",
			// Arguments passed to the binary when run as a service
			Arguments: []string{"watch", "--quiet", "--port", settings.MetricsPort},
		}
		if cfgFile != "" {
			svcConfig.Arguments = append(svcConfig.Arguments, "--config", cfgFile)
		}

		prg := &program{settings: settings, quiet: watchQuiet}

		s, err := service.New(prg, svcConfig)
		if err != nil {
			log.Fatal(err)
		}

		// 2. Handle Service Control Actions (Install, Start, Stop, Uninstall)
		if serviceAction != "" {
			if serviceAction == "install" && settings.SessionToken == "" && settings.Username == "" {
				fail("Error: sign in with 'camdash login' or configure username/password before installing the service.")
			}

			if err := service.Control(s, serviceAction); err != nil {
				fail("Failed to %s service: %v", serviceAction, err)
			}
			fmt.Printf("Service action '%s' completed successfully.\n", serviceAction)
			return
		}

		// 3. Run the Service (Blocking)
		// This happens when the Service Manager starts the binary, OR when run interactively without flags
		logger, err := s.Logger(nil)
		if err != nil {
			log.Fatal(err)
		}
		if err = s.Run(); err != nil {
			_ = logger.Error(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchPort, "port", "", "Metrics port (default from metrics.port)")
	watchCmd.Flags().BoolVar(&watchQuiet, "quiet", false, "Do not print store changes")
	watchCmd.Flags().StringVar(&serviceAction, "service", "", "Service action: install, uninstall, start, stop")
}
