package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/airwave/internal/clock"
	"github.com/jmylchreest/airwave/internal/config"
	"github.com/jmylchreest/airwave/internal/database"
	"github.com/jmylchreest/airwave/internal/director"
	"github.com/jmylchreest/airwave/internal/httpd"
	"github.com/jmylchreest/airwave/internal/httpd/handlers"
	"github.com/jmylchreest/airwave/internal/observability"
	"github.com/jmylchreest/airwave/internal/producer"
	"github.com/jmylchreest/airwave/internal/repository"
	"github.com/jmylchreest/airwave/internal/schedule"
	"github.com/jmylchreest/airwave/internal/scheduler"
	"github.com/jmylchreest/airwave/internal/session"
	"github.com/jmylchreest/airwave/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the airwave server",
	Long: `Start the airwave playout server.

The server provides:
- M3U channel list at /channellist.m3u
- Per-channel transport streams at /channel/{id}.ts
- Operator API under /api/v1 with OpenAPI documentation at /docs
- Prometheus metrics at /metrics`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "", "host to bind to (overrides config)")
	serveCmd.Flags().Int("port", 0, "port to listen on (overrides config)")
	serveCmd.Flags().String("database-dsn", "", "database DSN (overrides config)")
	serveCmd.Flags().Bool("demo", false, "serve synthetic demo channels without a database")
}

// applyServeFlags folds explicitly set CLI flags into the loaded config.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("host") {
		cfg.Server.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("database-dsn") {
		cfg.Database.DSN, _ = cmd.Flags().GetString("database-dsn")
	}
	if cmd.Flags().Changed("demo") {
		cfg.Playout.Demo, _ = cmd.Flags().GetBool("demo")
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyServeFlags(cmd, cfg)

	logger := observability.NewLoggerWithWriter(cfg.Logging, os.Stderr)
	observability.SetDefault(logger)
	for _, warning := range cfg.Warnings() {
		logger.Warn(warning)
	}

	clk := clock.NewSystem()

	var (
		provider schedule.Provider
		dir      director.Director
		factory  session.ProducerFactory
		planSync *scheduler.PlanSync
	)

	if cfg.Playout.Demo {
		provider, dir, factory = demoPlayout(clk, logger)
		logger.Info("demo mode: serving synthetic channels, database disabled")
	} else {
		db, err := database.New(cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("initializing database: %w", err)
		}
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}

		channelRepo := repository.NewChannelRepository(db)
		planRepo := repository.NewPlanRepository(db)

		provider = schedule.NewStoreProvider(channelRepo, planRepo, time.Time{})
		dir = director.NewStore(channelRepo, director.ModeNormal)
		factory = func(channelID string, _ director.Mode) (producer.Producer, error) {
			// The signal producer stands in until an air engine adapter is
			// configured; it emits a valid TS carrying asset and PTS markers.
			return producer.NewSignal(logger, clk), nil
		}
		planSync = scheduler.NewPlanSync(channelRepo, planRepo, clk, cfg.Plans.SyncInterval, logger)
	}

	registry := session.NewRegistry(clk, provider, dir, cfg.Playout, cfg.Router, factory, logger)
	tickDriver := scheduler.NewTickDriver(registry, cfg.Playout.TickInterval(), logger)

	server := httpd.NewServer(cfg.Server, logger, version.Version)
	handlers.NewPlaylistHandler(dir, logger).RegisterChiRoutes(server.Router())
	handlers.NewStreamHandler(registry, logger).RegisterChiRoutes(server.Router())
	handlers.NewStatusHandler(dir, registry).Register(server.API())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	if err := tickDriver.Start(ctx); err != nil {
		return fmt.Errorf("starting tick driver: %w", err)
	}
	defer tickDriver.Stop()

	if planSync != nil {
		if err := planSync.Start(ctx); err != nil {
			return fmt.Errorf("starting plan sync: %w", err)
		}
		defer planSync.Stop()
	}
	defer registry.Shutdown(context.Background())

	logger.Info("starting airwave server",
		slog.String("host", cfg.Server.Host),
		slog.Int("port", cfg.Server.Port),
		slog.String("version", version.Version),
	)

	return server.ListenAndServe(ctx)
}

// demoPlayout wires two synthetic channels on a 30 minute grid so the
// service can be exercised end to end without a database or media assets.
func demoPlayout(clk clock.Clock, logger *slog.Logger) (schedule.Provider, director.Director, session.ProducerFactory) {
	provider := schedule.NewStaticProvider()
	dir := director.NewStatic(director.ModeNormal)

	epoch := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	demo := []struct {
		id      string
		name    string
		program int
	}{
		{"demo-1", "Demo One", 22},
		{"demo-2", "Demo Two", 25},
	}
	for _, ch := range demo {
		grid := schedule.Grid{
			BlockMinutes:   30,
			ProgramMinutes: ch.program,
			ProgramAsset:   "demo://" + ch.id + "/program",
			FillerAsset:    "demo://" + ch.id + "/filler",
			FillerEpoch:    epoch,
			FPSNum:         30000,
			FPSDen:         1001,
		}
		if err := provider.SetGrid(ch.id, grid); err != nil {
			logger.Error("demo grid rejected", slog.String("channel_id", ch.id), slog.Any("error", err))
			continue
		}
		dir.AddChannel(director.Channel{ID: ch.id, Name: ch.name, DisplayName: ch.name})
	}

	factory := func(string, director.Mode) (producer.Producer, error) {
		return producer.NewSignal(logger, clk), nil
	}
	return provider, dir, factory
}
