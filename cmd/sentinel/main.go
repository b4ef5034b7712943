// Sentinel - security event worker
//
// Sentinel bridges an MQTT field bus to a relational event store. It reacts
// to motion reports by switching on zone lighting and requesting camera
// captures, stores camera frames as evidence, tracks device status and
// records telemetry. Devices and zones themselves are owned by the CRUD
// backend; this worker only consumes them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	_ "github.com/oakwatch/sentinel-core/migrations"

	"github.com/oakwatch/sentinel-core/internal/capture"
	"github.com/oakwatch/sentinel-core/internal/command"
	"github.com/oakwatch/sentinel-core/internal/detection"
	"github.com/oakwatch/sentinel-core/internal/device"
	"github.com/oakwatch/sentinel-core/internal/event"
	"github.com/oakwatch/sentinel-core/internal/evidence"
	"github.com/oakwatch/sentinel-core/internal/infrastructure/config"
	"github.com/oakwatch/sentinel-core/internal/infrastructure/database"
	"github.com/oakwatch/sentinel-core/internal/infrastructure/influxdb"
	"github.com/oakwatch/sentinel-core/internal/infrastructure/logging"
	"github.com/oakwatch/sentinel-core/internal/infrastructure/mqtt"
	"github.com/oakwatch/sentinel-core/internal/ingest"
	"github.com/oakwatch/sentinel-core/internal/measurement"
	"github.com/oakwatch/sentinel-core/internal/router"
	"github.com/oakwatch/sentinel-core/internal/rules"
)

// Version information - set at build time via ldflags
var (
	version = "dev"
	commit  = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main so errors map to
// exit codes in one place. Any store failure here is fatal; once the
// subscriptions are live the worker only stops on signal.
func run(ctx context.Context) error {
	// A .env file is optional; absence is not an error.
	_ = godotenv.Load()

	log := logging.Default()
	log.Info("starting sentinel worker", "version", version, "commit", commit)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", configPath)

	// Store first: a worker that cannot persist must not consume messages.
	db, err := database.Open(ctx, database.Config{
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

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	deviceRepo := device.NewSQLiteRepository(db.DB)
	eventRepo := event.NewSQLiteRepository(db.DB)
	evidenceRepo := evidence.NewSQLiteRepository(db.DB)
	measurementRepo := measurement.NewSQLiteRepository(db.DB)

	// Optional telemetry time-series mirror.
	var telemetryMirror ingest.TelemetryMirror
	if cfg.InfluxDB.Enabled {
		influxClient, err := influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			influxClient.Close()
		}()
		influxClient.SetOnError(func(err error) {
			log.Warn("InfluxDB write error", "error", err)
		})
		telemetryMirror = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

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
	mqttClient.SetLogger(log.With("component", "mqtt"))
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT connected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT session established",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
	)

	// Wire the message path: router -> rules/ingest/capture -> stores/commands.
	commander := command.NewPublisher(mqttClient, log.With("component", "command"))

	engine := rules.NewEngine(deviceRepo, eventRepo, commander, rules.Config{
		Cooldown:           cfg.Rules.CooldownDuration(),
		AutoLightsDuration: cfg.Rules.AutoLightsDuration,
		CaptureFrames:      cfg.Rules.CaptureFrames,
	}, log.With("component", "rules"))

	var detector detection.Submitter
	if cfg.Detection.BaseURL != "" {
		detector = detection.New(cfg.Detection)
	} else {
		log.Info("detection service disabled")
	}

	frameStore := evidence.NewFrameStore(cfg.Evidence.Path)
	pipeline := capture.NewPipeline(deviceRepo, eventRepo, evidenceRepo, frameStore,
		detector, log.With("component", "capture"))

	statusIngestor := ingest.NewStatusIngestor(deviceRepo, eventRepo, log.With("component", "status"))
	telemetryIngestor := ingest.NewTelemetryIngestor(measurementRepo, telemetryMirror,
		log.With("component", "telemetry"))

	messageRouter := router.New(ctx, engine, statusIngestor, telemetryIngestor, pipeline,
		log.With("component", "router"))

	topics := mqtt.Topics{}
	qos := byte(cfg.MQTT.QoS)
	for _, topic := range []string{
		topics.Motion(),
		topics.DeviceStatusPattern(),
		topics.DeviceTelemetryPattern(),
		topics.CameraFramePattern(),
	} {
		if err := mqttClient.Subscribe(topic, qos, messageRouter.Route); err != nil {
			return fmt.Errorf("subscribing to %s: %w", topic, err)
		}
		log.Info("subscribed", "topic", topic, "qos", qos)
	}

	log.Info("sentinel worker running", "evidence_path", cfg.Evidence.Path)

	<-ctx.Done()
	log.Info("shutdown signal received")
	return nil
}

// getConfigPath returns the config file path from args or the default.
func getConfigPath() string {
	if len(os.Args) > 1 {
		return os.Args[1]
	}
	if path := os.Getenv("SENTINEL_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
