// Command stackpark runs the StackPark control core: the fixed-period
// control loop driving the safety supervisor, lift controllers, transfer
// sequencer, and session orchestrator of one automated vehicle storage
// facility.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/stackpark/stackpark-core/internal/core"
	"github.com/stackpark/stackpark-core/internal/facility"
	"github.com/stackpark/stackpark-core/internal/infrastructure/config"
	"github.com/stackpark/stackpark-core/internal/infrastructure/database"
	"github.com/stackpark/stackpark-core/internal/infrastructure/influxdb"
	"github.com/stackpark/stackpark-core/internal/infrastructure/logging"
	"github.com/stackpark/stackpark-core/internal/infrastructure/mqtt"
	"github.com/stackpark/stackpark-core/internal/signals"
	_ "github.com/stackpark/stackpark-core/migrations"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "stackpark: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return nil
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logging.New(cfg.Logging, version)
	log.Info("starting stackpark core",
		"version", version,
		"facility", cfg.Facility.ID,
		"levels", cfg.Facility.Levels,
		"positions", cfg.Facility.Positions)

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close() //nolint:errcheck // best effort on shutdown

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	repo := facility.NewSQLiteRepository(db.DB)

	grid, err := facility.LoadGrid(ctx, repo, cfg.Facility.Levels, cfg.Facility.Positions)
	if err != nil {
		return fmt.Errorf("loading slot grid: %w", err)
	}
	log.Info("slot grid loaded",
		"capacity", cfg.Facility.Levels*cfg.Facility.Positions,
		"occupied", grid.OccupiedCount())

	stats, err := repo.LoadStats(ctx)
	if err != nil {
		return fmt.Errorf("loading stats: %w", err)
	}

	store := signals.NewStore()
	c := core.New(cfg, log, store, grid, repo, stats)

	counters, err := repo.LoadLiftCounters(ctx)
	if err != nil {
		return fmt.Errorf("loading lift counters: %w", err)
	}
	c.RestoreLiftCounters(counters)

	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to mqtt broker: %w", err)
	}
	defer mqttClient.Close() //nolint:errcheck // best effort on shutdown
	mqttClient.SetLogger(log.With("component", "mqtt"))
	if err := c.AttachMQTT(mqttClient); err != nil {
		return fmt.Errorf("attaching mqtt: %w", err)
	}
	log.Info("mqtt connected",
		"broker", cfg.MQTT.Broker.Host, "port", cfg.MQTT.Broker.Port)

	influxClient, err := influxdb.Connect(cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("influxdb telemetry disabled")
	case err != nil:
		// Telemetry is optional; the core runs without it.
		log.Warn("influxdb unavailable, continuing without telemetry", "error", err)
	default:
		defer influxClient.Close() //nolint:errcheck // best effort on shutdown
		c.AttachInflux(influxClient)
		log.Info("influxdb telemetry enabled", "url", cfg.InfluxDB.URL)
	}

	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database health check: %w", err)
	}

	err = c.Run(ctx)
	log.Info("stackpark core stopped")
	return err
}
