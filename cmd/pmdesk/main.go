// pmdesk is a project management back office: projects, tasks, sprints,
// risks, change requests, assets, budgets and timesheets behind a JSON API
// with role and department scoped access.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mohamed54683/pm-sub003/internal/api"
	"github.com/mohamed54683/pm-sub003/internal/asset"
	"github.com/mohamed54683/pm-sub003/internal/audit"
	"github.com/mohamed54683/pm-sub003/internal/auth"
	"github.com/mohamed54683/pm-sub003/internal/budget"
	"github.com/mohamed54683/pm-sub003/internal/change"
	"github.com/mohamed54683/pm-sub003/internal/infrastructure/config"
	"github.com/mohamed54683/pm-sub003/internal/infrastructure/database"
	"github.com/mohamed54683/pm-sub003/internal/infrastructure/influxdb"
	"github.com/mohamed54683/pm-sub003/internal/infrastructure/logging"
	"github.com/mohamed54683/pm-sub003/internal/infrastructure/mqtt"
	"github.com/mohamed54683/pm-sub003/internal/org"
	"github.com/mohamed54683/pm-sub003/internal/project"
	"github.com/mohamed54683/pm-sub003/internal/risk"
	"github.com/mohamed54683/pm-sub003/internal/task"
	"github.com/mohamed54683/pm-sub003/internal/timesheet"
	"github.com/mohamed54683/pm-sub003/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// shutdownTimeout bounds the audit queue flush on exit.
const shutdownTimeout = 10 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application body, separated from main for testability.
// It returns nil on a clean shutdown.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting pmdesk",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Auth
	users := auth.NewUserRepository(db.DB)
	hasher := auth.Hasher{
		Algorithm:  strings.ToLower(cfg.Security.Password.Algorithm),
		BcryptCost: cfg.Security.Password.BcryptCost,
	}
	authService := auth.NewService(users,
		auth.NewTokenRepository(db.DB),
		auth.NewAPITokenRepository(db.DB),
		hasher,
		auth.SessionConfig{
			Secret:            cfg.Security.JWT.Secret,
			AccessTTL:         cfg.Security.AccessTokenTTL(),
			RefreshTTL:        cfg.Security.RefreshTokenTTL(),
			MaxAttempts:       cfg.Security.Lockout.MaxAttempts,
			LockoutDuration:   cfg.Security.LockoutDuration(),
			PasswordMinLength: cfg.Security.Password.MinLength,
		},
		log.Logger,
	)
	if _, seedErr := auth.SeedAdmin(ctx, users, hasher, log.Logger); seedErr != nil {
		return fmt.Errorf("seeding admin account: %w", seedErr)
	}

	// Audit trail
	auditRepo := audit.NewSQLiteRepository(db.DB)
	recorder := audit.NewRecorder(auditRepo, log, 0)
	recorder.Start()
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stopCancel()
		recorder.Stop(stopCtx)
	}()

	mqttClient := connectMQTT(cfg.MQTT, log)
	if mqttClient != nil {
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
	}

	influxClient := connectInflux(cfg.InfluxDB, log)
	if influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
	}

	tasks := task.NewSQLiteRepository(db.DB)
	server, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Security:    cfg.Security,
		Exports:     cfg.Exports,
		Org:         cfg.Organisation,
		Logger:      log,
		DB:          db,
		Auth:        authService,
		Users:       users,
		Scopes:      auth.NewScopeResolver(db.DB),
		Departments: org.NewSQLiteRepository(db.DB),
		Projects:    project.NewSQLiteRepository(db.DB),
		Tasks:       tasks,
		Sprints:     tasks,
		Risks:       risk.NewSQLiteRepository(db.DB),
		Changes:     change.NewSQLiteRepository(db.DB),
		Assets:      asset.NewSQLiteRepository(db.DB),
		Budget:      budget.NewSQLiteRepository(db.DB),
		Timesheets:  timesheet.NewSQLiteRepository(db.DB),
		AuditRepo:   auditRepo,
		Audit:       recorder,
		MQTT:        mqttClient,
		Influx:      influxClient,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal",
		"address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
	)

	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse: API server, InfluxDB, MQTT, audit
	// flush, database.
	return nil
}

// getConfigPath returns PMDESK_CONFIG when set, otherwise the default path.
func getConfigPath() string {
	if path := os.Getenv("PMDESK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// connectMQTT returns nil when MQTT is disabled or unreachable. Events are
// then only delivered over WebSocket.
func connectMQTT(cfg config.MQTTConfig, log *logging.Logger) *mqtt.Client {
	if !cfg.Enabled {
		log.Info("MQTT disabled")
		return nil
	}
	client, err := mqtt.Connect(cfg)
	if err != nil {
		log.Warn("MQTT unavailable, continuing without event publishing", "error", err)
		return nil
	}
	client.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.Broker.Host, cfg.Broker.Port),
		"client_id", cfg.Broker.ClientID,
	)
	return client
}

// connectInflux returns nil when InfluxDB is disabled or unreachable.
func connectInflux(cfg config.InfluxDBConfig, log *logging.Logger) *influxdb.Client {
	if !cfg.Enabled {
		log.Info("InfluxDB disabled")
		return nil
	}
	client, err := influxdb.Connect(cfg)
	if err != nil {
		log.Warn("InfluxDB unavailable, continuing without metrics", "error", err)
		return nil
	}
	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected",
		"url", cfg.URL,
		"org", cfg.Org,
		"bucket", cfg.Bucket,
	)
	return client
}

// healthCheck verifies the database and any optional connections.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
