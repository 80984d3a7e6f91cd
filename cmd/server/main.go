package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yangxb919/prspares-website/internal/app"
	"github.com/yangxb919/prspares-website/internal/config"
	"github.com/yangxb919/prspares-website/internal/seed"
	"github.com/yangxb919/prspares-website/pkg/database"
	"github.com/yangxb919/prspares-website/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "prspares-catalog",
	Short: "PRS Spares pricing catalog",
	Long: `Serves the gated /pricing page and the public /api/products endpoint.

Configuration is read from the environment; see internal/config.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

// serveCmd is the default command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE:  runMigrate,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert a deterministic demo catalog of spare parts",
	RunE:  runSeed,
}

var seedCount int

func init() {
	seedCmd.Flags().IntVarP(&seedCount, "count", "n", 1000, "number of products to generate")
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("command failed", slog.String("error", err.Error()))
		cancel()
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.New(app.ServiceName, cfg.LogLevel), nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	log.Info("starting catalog service",
		slog.String("environment", cfg.Environment),
		slog.Int("http_port", cfg.HTTPPort),
		slog.Bool("kafka_enabled", cfg.KafkaEnabled),
	)

	application, err := app.NewApp(cfg, log)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}

	if err := application.Run(cmd.Context()); err != nil {
		return err
	}
	log.Info("catalog service stopped")
	return nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if err := app.Migrate(cmd.Context(), cfg, log); err != nil {
		return err
	}
	log.Info("migrations applied")
	return nil
}

func runSeed(cmd *cobra.Command, _ []string) error {
	if seedCount < 1 {
		return fmt.Errorf("--count must be positive, got %d", seedCount)
	}
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(cmd.Context(), &pgCfg, log)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	products := seed.Generate(seedCount, rand.New(rand.NewPCG(0x5eed, 0x5eed)))
	n, err := seed.Insert(cmd.Context(), pool, products, seed.DefaultBatchSize, log)
	if err != nil {
		return err
	}
	log.Info("seed complete", slog.Int("generated", len(products)), slog.Int("inserted", n))
	return nil
}
