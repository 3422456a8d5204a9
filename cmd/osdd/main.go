// Gray Logic OSD - Camera Overlay Service
//
// This is the main entry point for the overlay reconciliation daemon. It
// connects camera text overlays to live sensor state: device events arrive
// over MQTT, per-camera reconciliation loops resolve overlay configuration
// into listeners, and rendered text is pushed back to the cameras.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/gray-logic-osd/migrations"

	"github.com/nerrad567/gray-logic-osd/internal/api"
	"github.com/nerrad567/gray-logic-osd/internal/device"
	"github.com/nerrad567/gray-logic-osd/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-osd/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-osd/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-osd/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-osd/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-osd/internal/overlay"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// cameraSyncInterval is how often the overlay manager realigns its loops
// with the device registry, picking up newly paired or removed cameras.
const cameraSyncInterval = 30 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Gray Logic OSD",
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

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Initialise device registry
	deviceRepo := device.NewSQLiteRepository(db.DB)
	registry := device.NewRegistry(deviceRepo)
	registry.SetLogger(log)

	if refreshErr := registry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device registry: %w", refreshErr)
	}
	log.Info("device registry initialised", "devices", registry.GetDeviceCount())

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Start the device state stream: MQTT state events flow into the
	// registry and fan out to overlay listeners.
	stream := device.NewStream(mqttClient, registry)
	stream.SetLogger(log)
	if streamErr := stream.Start(ctx); streamErr != nil {
		return fmt.Errorf("starting device stream: %w", streamErr)
	}
	defer func() {
		log.Info("stopping device stream")
		if stopErr := stream.Stop(); stopErr != nil {
			log.Error("error stopping device stream", "error", stopErr)
		}
	}()
	log.Info("device state stream started")

	// Connect to InfluxDB (optional, render metrics)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// WebSocket hub is shared between the API server and the render hook,
	// so it is created (and run) here.
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	// Overlay write side: commands to cameras, render echo for observers.
	sink := overlay.NewMQTTSink(mqttClient)
	sink.SetLogger(log)
	topics := mqtt.Topics{}
	onRender := func(cameraID, overlayID, text string) {
		hub.BroadcastRender(cameraID, overlayID, text)

		payload, marshalErr := json.Marshal(map[string]string{
			"overlay_id": overlayID,
			"text":       text,
		})
		if marshalErr != nil {
			return
		}
		if pubErr := mqttClient.Publish(topics.RenderEvent(cameraID), payload, 0, false); pubErr != nil {
			log.Debug("render echo publish failed", "camera_id", cameraID, "error", pubErr)
		}
	}

	// Overlay manager: one reconciliation loop per camera.
	manager := overlay.NewManager(overlay.ManagerConfig{
		Devices: registry,
		Events:  stream,
		Sink:    sink,
		Store:   overlay.NewSQLiteSettingsStore(db.DB),
		Phrases: overlay.StateTexts{
			Lock:   cfg.Overlay.LockText,
			Unlock: cfg.Overlay.UnlockText,
			Jammed: cfg.Overlay.JammedText,
			Open:   cfg.Overlay.OpenText,
			Closed: cfg.Overlay.ClosedText,
		},
		TemperatureUnit: cfg.Overlay.TemperatureUnit,
		DefaultRefresh:  cfg.TemplateRefreshDefault(),
		Recorder:        influxdb.NewRenderRecorder(influxClient),
		OnRender:        onRender,
		Logger:          log,
	})
	if managerErr := manager.Start(ctx); managerErr != nil {
		return fmt.Errorf("starting overlay manager: %w", managerErr)
	}
	defer func() {
		log.Info("closing overlay manager")
		manager.Close()
	}()
	log.Info("overlay manager started", "loops", manager.LoopCount())

	// Realign loops with the registry as cameras come and go.
	go func() {
		ticker := time.NewTicker(cameraSyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if syncErr := manager.Sync(ctx); syncErr != nil {
					log.Warn("camera sync failed", "error", syncErr)
				}
			}
		}
	}()

	// Start the HTTP API and WebSocket server
	apiServer, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Logger:      log,
		Registry:    registry,
		Overlays:    manager,
		MQTT:        mqttClient,
		Version:     version,
		ExternalHub: hub,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("closing API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. Overlay manager (loops, listeners, timers)
	// 3. InfluxDB (if enabled)
	// 4. Device stream
	// 5. MQTT
	// 6. Database

	log.Info("Gray Logic OSD stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses OSD_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("OSD_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
