package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/giygas/druginteractions-api/config"
	"github.com/giygas/druginteractions-api/data"
	"github.com/giygas/druginteractions-api/health"
	"github.com/giygas/druginteractions-api/logging"
	"github.com/giygas/druginteractions-api/scheduler"
	"github.com/giygas/druginteractions-api/seed"
	"github.com/giygas/druginteractions-api/server"
	"github.com/giygas/druginteractions-api/store"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	gormLogger "gorm.io/gorm/logger"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "druginteractions-api",
		Short: "Drug interaction lookup service",
		// Running the binary without a subcommand serves the API
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			defer logging.Close()

			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Schema is up to date.")
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load drugs and interactions from a YAML fixture",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			fixtureURL, _ := cmd.Flags().GetString("url")
			if file != "" && fixtureURL != "" {
				return fmt.Errorf("--file and --url are mutually exclusive")
			}

			cfg, err := setup()
			if err != nil {
				return err
			}
			defer logging.Close()

			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			if err := s.Migrate(ctx); err != nil {
				return err
			}

			report, err := loadFixture(ctx, s, file, fixtureURL)
			if err != nil {
				return err
			}

			fmt.Printf("Drugs: %d created, %d already present\n", report.DrugsCreated, report.DrugsSkipped)
			fmt.Printf("Interactions: %d created, %d already present\n", report.InteractionsCreated, report.InteractionsSkipped)
			for _, w := range report.Warnings {
				fmt.Println("warning:", w)
			}
			return nil
		},
	}
	cmd.Flags().String("file", "", "Path to a YAML fixture (defaults to the bundled sample)")
	cmd.Flags().String("url", "", "Download the YAML fixture from this http(s) URL")
	return cmd
}

// setup loads the .env file, the configuration and the logger
func setup() (*config.Config, error) {
	if err := godotenv.Load(); err != nil {
		// If failed, try loading from executable directory
		ex, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to get executable path: %w", err)
		}
		if err := os.Chdir(filepath.Dir(ex)); err != nil {
			return nil, fmt.Errorf("failed to change directory: %w", err)
		}
		_ = godotenv.Load()
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logging.InitLogger(logging.Options{
		LogDir:         "logs",
		Env:            cfg.Env,
		Level:          cfg.LogLevel,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
	})
	return cfg, nil
}

func openStore(cfg *config.Config) (*store.Store, error) {
	level := gormLogger.Warn
	if cfg.LogLevel == "debug" {
		level = gormLogger.Info
	}
	return store.Open(store.Options{Driver: cfg.DBDriver, DSN: cfg.DBDSN, LogLevel: level})
}

func loadFixture(ctx context.Context, s *store.Store, file, fixtureURL string) (*seed.Report, error) {
	var (
		fixture *seed.Fixture
		err     error
	)
	switch {
	case fixtureURL != "":
		fixture, err = seed.Fetch(ctx, fixtureURL)
	case file != "":
		fixture, err = seed.LoadFile(file)
	default:
		fixture, err = seed.Default()
	}
	if err != nil {
		return nil, err
	}
	return seed.Load(ctx, s, fixture)
}

func runServer() error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	defer logging.Close()

	s, err := openStore(cfg)
	if err != nil {
		logging.Error("Failed to open database", "error", err)
		return err
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.Migrate(ctx); err != nil {
		logging.Error("Failed to migrate database", "error", err)
		return err
	}

	if cfg.SeedOnStart {
		report, err := loadFixture(ctx, s, "", "")
		if err != nil {
			logging.Error("Failed to seed database", "error", err)
			return err
		}
		logging.Info("Database seeded",
			"drugs_created", report.DrugsCreated,
			"interactions_created", report.InteractionsCreated,
		)
	}

	interval := time.Duration(cfg.StatsRefreshMinutes) * time.Minute
	stats := data.NewStatsContainer(s, interval)
	stats.SetServerStartTime(time.Now())

	sched := scheduler.NewScheduler(stats, interval)
	if err := sched.Start(); err != nil {
		logging.Error("Failed to start scheduler", "error", err)
		return err
	}
	defer sched.Stop()

	srv, err := server.NewServer(cfg, s, stats, health.NewHealthChecker(s, stats, 3*interval))
	if err != nil {
		logging.Error("Failed to create server", "error", err)
		return err
	}

	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start()
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logging.Error("Server failed to start", "error", err)
			return err
		}
		return nil
	case sig := <-quit:
		logging.Info("Received shutdown signal", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
