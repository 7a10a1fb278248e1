package api

import (
	"errors"
	"sync"

	"github.com/nerrad567/gray-logic-viewer/internal/render"
)

// ErrSurfaceReleased is returned by Draw after Release.
var ErrSurfaceReleased = errors.New("api: surface released")

// HubSurface is a render.Surface that streams frames to WebSocket clients
// subscribed to ChannelFrame. Browsers project the frame onto a canvas.
type HubSurface struct {
	hub *Hub

	mu       sync.Mutex
	width    int
	height   int
	released bool
}

// NewHubSurface creates a surface broadcasting on hub.
func NewHubSurface(hub *Hub) *HubSurface {
	return &HubSurface{hub: hub}
}

// Draw implements render.Surface. Frames are skipped while nobody is
// subscribed.
func (s *HubSurface) Draw(f render.Frame) error {
	s.mu.Lock()
	released := s.released
	s.mu.Unlock()
	if released {
		return ErrSurfaceReleased
	}

	if !s.hub.HasSubscribers(ChannelFrame) {
		return nil
	}
	s.hub.Broadcast(ChannelFrame, f)
	return nil
}

// Resize implements render.Surface and tells clients about the new size.
func (s *HubSurface) Resize(width, height int) {
	s.mu.Lock()
	s.width, s.height = width, height
	s.mu.Unlock()

	s.hub.Broadcast(ChannelViewport, resizeRequest{Width: width, Height: height})
}

// Release implements render.Surface.
func (s *HubSurface) Release() {
	s.mu.Lock()
	s.released = true
	s.mu.Unlock()
}

// Size returns the last size passed to Resize.
func (s *HubSurface) Size() (width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// Released reports whether Release has been called.
func (s *HubSurface) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}
