package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-viewer/internal/device"
	"github.com/nerrad567/gray-logic-viewer/internal/render"
	"github.com/nerrad567/gray-logic-viewer/internal/viewer"
)

// WebSocket channels published by the server.
const (
	ChannelFrame          = "viewer.frame"
	ChannelViewport       = "viewer.resized"
	ChannelDevicesChanged = "devices.changed"
)

// WebSocket commands accepted from clients.
const (
	WSTypeSelect = "select"
	WSTypeResize = "resize"
)

// wsCommandTimeout bounds a WebSocket command's wait for the render loop.
const wsCommandTimeout = 5 * time.Second

// selectRequest is the body of POST /viewer/select and the payload of a
// "select" WebSocket command.
type selectRequest struct {
	DeviceID string `json:"device_id"`
}

// resizeRequest is the body of POST /viewer/resize and the payload of a
// "resize" WebSocket command.
type resizeRequest struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// devicesChanged is the payload broadcast on ChannelDevicesChanged.
type devicesChanged struct {
	Devices []device.Device `json:"devices"`
	Count   int             `json:"count"`
}

// relayDeviceChanges broadcasts every device list the store emits.
func (s *Server) relayDeviceChanges() {
	unsubscribe := s.store.Subscribe(func(devices []device.Device) {
		s.hub.Broadcast(ChannelDevicesChanged, devicesChanged{Devices: devices, Count: len(devices)})
	})

	s.unsubMu.Lock()
	s.unsubscribe = unsubscribe
	s.unsubMu.Unlock()
}

// handleViewerState returns a snapshot of the viewport.
func (s *Server) handleViewerState(w http.ResponseWriter, r *http.Request) {
	if s.viewer == nil {
		writeUnavailable(w, "viewer is not running")
		return
	}

	st, err := s.viewer.State(r.Context())
	if err != nil {
		s.writeViewerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleViewerSelect flies the camera to a device, as clicking its row does.
func (s *Server) handleViewerSelect(w http.ResponseWriter, r *http.Request) {
	if s.viewer == nil {
		writeUnavailable(w, "viewer is not running")
		return
	}

	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.DeviceID == "" {
		writeBadRequest(w, "device_id is required")
		return
	}

	if err := s.viewer.Select(r.Context(), req.DeviceID); err != nil {
		s.writeViewerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"selected": req.DeviceID})
}

// handleViewerResize updates the viewport size after the host resized.
func (s *Server) handleViewerResize(w http.ResponseWriter, r *http.Request) {
	if s.viewer == nil {
		writeUnavailable(w, "viewer is not running")
		return
	}

	var req resizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.viewer.Resize(r.Context(), req.Width, req.Height); err != nil {
		s.writeViewerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"width": req.Width, "height": req.Height})
}

// writeViewerError maps controller errors onto HTTP responses.
func (s *Server) writeViewerError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, viewer.ErrNodeNotFound):
		writeNotFound(w, "device is not in the scene")
	case errors.Is(err, render.ErrInvalidSize):
		writeBadRequest(w, err.Error())
	case errors.Is(err, viewer.ErrNotMounted),
		errors.Is(err, render.ErrLoopStopped),
		errors.Is(err, context.DeadlineExceeded):
		writeUnavailable(w, "viewer is not running")
	default:
		s.logger.Error("viewer request failed",
			"error", err,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		writeInternalError(w, "viewer request failed")
	}
}

// handleWSCommand executes select and resize commands sent over the
// WebSocket. Other message types are rejected.
func (s *Server) handleWSCommand(msg WSMessage) (any, error) {
	if s.viewer == nil {
		return nil, errors.New("viewer is not running")
	}

	ctx, cancel := context.WithTimeout(context.Background(), wsCommandTimeout)
	defer cancel()

	switch msg.Type {
	case WSTypeSelect:
		var req selectRequest
		if err := decodePayload(msg.Payload, &req); err != nil || req.DeviceID == "" {
			return nil, errors.New("invalid select payload")
		}
		if err := s.viewer.Select(ctx, req.DeviceID); err != nil {
			return nil, err
		}
		return map[string]any{"selected": req.DeviceID}, nil

	case WSTypeResize:
		var req resizeRequest
		if err := decodePayload(msg.Payload, &req); err != nil {
			return nil, errors.New("invalid resize payload")
		}
		if err := s.viewer.Resize(ctx, req.Width, req.Height); err != nil {
			return nil, err
		}
		return map[string]any{"width": req.Width, "height": req.Height}, nil

	default:
		return nil, fmt.Errorf("unknown message type: %s", msg.Type)
	}
}

// decodePayload re-decodes a generic JSON payload into v.
func decodePayload(payload any, v any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
