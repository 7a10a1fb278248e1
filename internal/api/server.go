package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-viewer/internal/device"
	"github.com/nerrad567/gray-logic-viewer/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-viewer/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-viewer/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-viewer/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-viewer/internal/observability"
	"github.com/nerrad567/gray-logic-viewer/internal/panel"
	"github.com/nerrad567/gray-logic-viewer/internal/viewer"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// DeviceStore is the device collection the API reads and mutates.
// *device.Store satisfies it.
type DeviceStore interface {
	List() []device.Device
	Get(id string) (device.Device, error)
	Create(ctx context.Context, f device.Fields) (device.Device, error)
	Update(ctx context.Context, id string, p device.Patch) (device.Device, error)
	Delete(ctx context.Context, id string) error
	Subscribe(fn device.Listener) (unsubscribe func())
	GetStats() device.Stats
}

// Viewer is the viewport the API drives. *viewer.Controller satisfies it.
type Viewer interface {
	Select(ctx context.Context, deviceID string) error
	DeleteDevice(ctx context.Context, deviceID string, confirmed bool) error
	Resize(ctx context.Context, width, height int) error
	State(ctx context.Context) (viewer.State, error)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger
	Store    DeviceStore
	Viewer   Viewer                   // optional: viewport endpoints answer 503 without it
	Hub      *Hub                     // optional: shared with HubSurface; created on Start when nil
	MQTT     *mqtt.Client             // optional: reported in system metrics
	DB       *database.DB             // optional: reported in system metrics
	Metrics  *observability.Collector // optional: enables /metrics and request metrics
	PanelDir string                   // optional: serve the viewer page from disk
	Version  string
}

// Server is the HTTP API server for the device viewer.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	secCfg    config.SecurityConfig
	logger    *logging.Logger
	store     DeviceStore
	viewer    Viewer
	mqtt      *mqtt.Client
	db        *database.DB
	metrics   *observability.Collector
	panel     http.Handler
	version   string
	startTime time.Time

	server      *http.Server
	hub         *Hub
	externalHub bool               // true if hub was injected externally
	cancel      context.CancelFunc // cancels background goroutines on Close()

	unsubMu     sync.Mutex
	unsubscribe func()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, store)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("device store is required")
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		secCfg:    deps.Security,
		logger:    deps.Logger,
		store:     deps.Store,
		viewer:    deps.Viewer,
		mqtt:      deps.MQTT,
		db:        deps.DB,
		metrics:   deps.Metrics,
		version:   deps.Version,
		startTime: time.Now(),
	}

	page, err := panel.New(deps.PanelDir, panel.Config{
		APIBase:        apiBase,
		WSPath:         apiBase + "/ws",
		FrameChannel:   ChannelFrame,
		DevicesChannel: ChannelDevicesChanged,
		Version:        deps.Version,
	})
	if err != nil {
		return nil, fmt.Errorf("loading viewer page: %w", err)
	}
	s.panel = page

	// The renderer's HubSurface needs the hub before the server starts.
	if deps.Hub != nil {
		s.hub = deps.Hub
		s.externalHub = true
	}

	return s, nil
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub, relays the device stream to WebSocket
// clients, and launches the HTTP listener in a background goroutine.
// The server can be stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	// Create internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}
	s.hub.SetCommandHandler(s.handleWSCommand)

	s.relayDeviceChanges()

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	// Start listening in background
	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	s.unsubMu.Lock()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.unsubMu.Unlock()

	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (hub)
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// Hub returns the server's WebSocket hub, or nil before Start when none
// was injected.
func (s *Server) Hub() *Hub {
	return s.hub
}

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
