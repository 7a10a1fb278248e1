// Gray Logic Viewer - 3D Device Inventory
//
// This is the main entry point for the Gray Logic device viewer. It serves
// the device inventory over HTTP, keeps a 3D scene of one model per device,
// and streams rendered frames to browsers over WebSocket. Selecting a device
// flies the camera to it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/gray-logic-viewer/internal/api"
	"github.com/nerrad567/gray-logic-viewer/internal/asset"
	"github.com/nerrad567/gray-logic-viewer/internal/auth"
	"github.com/nerrad567/gray-logic-viewer/internal/device"
	"github.com/nerrad567/gray-logic-viewer/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-viewer/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-viewer/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-viewer/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-viewer/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-viewer/internal/observability"
	"github.com/nerrad567/gray-logic-viewer/internal/render"
	"github.com/nerrad567/gray-logic-viewer/internal/viewer"
	"github.com/nerrad567/gray-logic-viewer/migrations"
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

func main() {
	configPath := flag.String("config", getConfigPath(), "path to the YAML configuration file")
	issueToken := flag.String("issue-token", "", "print an access token for `subject` and exit")
	role := flag.String("role", string(auth.RoleEditor), "role carried by -issue-token (viewer, editor, admin)")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("graylogic-viewer %s (commit %s, built %s)\n", version, commit, date)
		return
	}

	if *issueToken != "" {
		if err := printToken(os.Stdout, *configPath, *issueToken, auth.Role(*role)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - configPath: Path to the YAML configuration file
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, configPath string) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Gray Logic Viewer",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

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

	// Open database
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
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Load the device collection
	store := device.NewStore(device.NewSQLiteRepository(db.DB))
	store.SetLogger(log)
	if loadErr := store.Load(ctx); loadErr != nil {
		return fmt.Errorf("loading devices: %w", loadErr)
	}
	log.Info("device store initialised", "devices", store.GetStats().Total)

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		mqttClient.SetLogger(log)
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

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		feed := device.NewMQTTFeed(mqttClient, store, byte(cfg.MQTT.QoS))
		feed.SetLogger(log)
		if startErr := feed.Start(ctx); startErr != nil {
			return fmt.Errorf("starting device feed: %w", startErr)
		}
		store.SetPublisher(feed)
		defer func() {
			log.Info("stopping device feed")
			if stopErr := feed.Stop(); stopErr != nil {
				log.Error("error stopping device feed", "error", stopErr)
			}
		}()
		log.Info("device feed started", "origin", feed.Origin())
	} else {
		log.Info("MQTT disabled")
	}

	// Prometheus metrics, plus InfluxDB telemetry when enabled
	collector, err := observability.NewCollector(nil)
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}
	recorders := observability.Fanout{collector}

	influxClient, err := influxdb.Connect(ctx, cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
		influxClient = nil
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		telemetry := observability.NewTelemetry(influxClient)
		recorders = append(recorders, telemetry)
		telemetryDone := make(chan struct{})
		telemetryCtx, stopTelemetry := context.WithCancel(ctx)
		go func() {
			defer close(telemetryDone)
			telemetry.Run(telemetryCtx, observability.DefaultFlushInterval)
		}()
		defer func() {
			stopTelemetry()
			<-telemetryDone
		}()
	}

	// Start the frame loop
	loop := render.NewLoop(cfg.Viewer.FrameInterval())
	loop.SetLogger(log)
	loop.Start(ctx)
	defer func() {
		log.Info("stopping render loop")
		loop.Stop()
	}()
	log.Info("render loop started", "interval", loop.Interval().String())

	// Model resolution
	source, err := newAssetSource(cfg.Viewer)
	if err != nil {
		return fmt.Errorf("configuring assets: %w", err)
	}
	loader, err := asset.NewCachingLoader(asset.NewGLTFLoader(source), cfg.Viewer.Assets.CacheSize)
	if err != nil {
		return fmt.Errorf("configuring assets: %w", err)
	}
	resolver := asset.NewResolver(loader, cfg.Viewer.AssetTimeout())
	resolver.SetLogger(log)
	resolver.SetObserver(recorders)

	// The hub is shared by the API server and the frame surface.
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(hubCtx)
	surface := api.NewHubSurface(hub)

	controller := viewer.New(loop, store, resolver, surface, viewerConfig(cfg.Viewer))
	controller.SetLogger(log)
	controller.SetObserver(recorders)
	controller.SetFrameObserver(recorders)

	// Start HTTP API server
	apiServer, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log,
		Store:    store,
		Viewer:   controller,
		Hub:      hub,
		MQTT:     mqttClient,
		DB:       db,
		Metrics:  collector,
		PanelDir: os.Getenv("GRAYLOGIC_PANEL_DIR"),
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error stopping API server", "error", closeErr)
		}
	}()

	if err := controller.Mount(ctx); err != nil {
		return fmt.Errorf("mounting viewer: %w", err)
	}
	defer func() {
		log.Info("unmounting viewer")
		controller.Unmount()
	}()
	log.Info("viewer mounted",
		"width", cfg.Viewer.Surface.Width,
		"height", cfg.Viewer.Surface.Height,
	)

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// viewer, API server, hub, render loop, telemetry, InfluxDB, device feed,
	// MQTT, database.

	log.Info("Gray Logic Viewer stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// viewerConfig converts the file settings into controller settings.
func viewerConfig(v config.ViewerConfig) viewer.Config {
	return viewer.Config{
		Width:   v.Surface.Width,
		Height:  v.Surface.Height,
		Spacing: v.Layout.Spacing,
		Camera: render.CameraConfig{
			FOV:  v.Camera.FOV,
			Near: v.Camera.Near,
			Far:  v.Camera.Far,
		},
		AnimationDuration: v.AnimationDuration(),
	}
}

// newAssetSource builds the model source. Absolute URLs always go over
// HTTP. Relative paths go to base_url when set, otherwise to the local
// assets root.
func newAssetSource(v config.ViewerConfig) (asset.Source, error) {
	remote, err := asset.NewHTTPSource(v.Assets.BaseURL, v.AssetTimeout())
	if err != nil {
		return nil, err
	}

	var local asset.Source
	if v.Assets.BaseURL == "" {
		local = asset.NewFileSource(v.Assets.Root)
	}
	return asset.NewRoutingSource(local, remote), nil
}

// printToken writes a signed access token for subject to w.
func printToken(w io.Writer, configPath, subject string, role auth.Role) error {
	if !auth.IsValidRole(role) {
		return fmt.Errorf("%w: %q", auth.ErrInvalidRole, role)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	token, err := auth.GenerateAccessToken(subject, role, cfg.Security.JWT.Secret, cfg.Security.JWT.AccessTokenTTL)
	if err != nil {
		return fmt.Errorf("issuing token: %w", err)
	}

	_, err = fmt.Fprintln(w, token)
	return err
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
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
