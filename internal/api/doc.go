// Package api implements the HTTP REST API and WebSocket server for the
// Gray Logic device viewer.
//
// This package provides:
//   - REST endpoints for device CRUD with form defaults and validation
//   - Viewport endpoints for device selection, resize and state snapshots
//   - WebSocket hub streaming rendered frames and device list changes
//   - JWT authentication on mutating endpoints
//   - Middleware stack (request ID, logging, recovery, CORS, metrics)
//   - TLS support for production deployments
//
// # Architecture
//
// The server sits between browsers and two collaborators: the device store,
// which owns persistence, and the viewer controller, which owns the scene.
// Device mutations go to the store; the controller observes the store's
// stream and re-lays the scene. Frames drawn by the renderer reach browsers
// through HubSurface, which broadcasts them on the "viewer.frame" channel.
//
// # Security
//
// Reads and viewport control are open. Creating, editing and deleting
// devices requires a bearer token whose role grants device:write.
//
// # Graceful Degradation
//
// The server operates without MQTT, InfluxDB or a mounted viewer: device
// CRUD keeps working and viewport endpoints answer 503 until the viewer is
// available.
package api
