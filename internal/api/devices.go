package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-viewer/internal/device"
	"github.com/nerrad567/gray-logic-viewer/internal/viewer"
)

// Form option lists sent with the defaults so a client can build the
// add/edit dialog without hard-coding them.
type formDefaults struct {
	Fields   device.Fields   `json:"fields"`
	Types    []device.Type   `json:"types"`
	Statuses []device.Status `json:"statuses"`
}

// validationResult mirrors the form's Validate result.
type validationResult struct {
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems"`
}

// handleListDevices returns all devices in creation order.
//
// Query parameters:
//   - type: filter by device type (Sensor, Controller, Monitor, Actuator)
//   - status: filter by status (Active, Idle, Offline)
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices := s.store.List()

	typeFilter := device.Type(r.URL.Query().Get("type"))
	statusFilter := device.Status(r.URL.Query().Get("status"))
	if typeFilter != "" || statusFilter != "" {
		filtered := make([]device.Device, 0, len(devices))
		for _, d := range devices {
			if typeFilter != "" && d.Type != typeFilter {
				continue
			}
			if statusFilter != "" && d.Status != statusFilter {
				continue
			}
			filtered = append(filtered, d)
		}
		devices = filtered
	}

	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleDeviceDefaults returns the values a fresh add form starts with.
func (s *Server) handleDeviceDefaults(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, formDefaults{
		Fields:   device.DefaultFields(),
		Types:    device.AllTypes(),
		Statuses: device.AllStatuses(),
	})
}

// handleValidateDevice reports whether a form payload would be accepted.
// It never persists anything.
func (s *Server) handleValidateDevice(w http.ResponseWriter, r *http.Request) {
	var f device.Fields
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	ok, problems := f.Validate()
	if problems == nil {
		problems = []string{}
	}
	writeJSON(w, http.StatusOK, validationResult{Valid: ok, Problems: problems})
}

// handleGetDevice returns a single device by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dev, err := s.store.Get(id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device")
		return
	}

	writeJSON(w, http.StatusOK, dev)
}

// handleCreateDevice creates a new device from the add form. Any id in
// the body is ignored; the store assigns one.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var f device.Fields
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if ok, problems := f.Validate(); !ok {
		writeValidationError(w, problems)
		return
	}

	dev, err := s.store.Create(r.Context(), f)
	if err != nil {
		s.writeStoreError(w, r, err, "failed to create device")
		return
	}

	writeJSON(w, http.StatusCreated, dev)
}

// handleUpdateDevice partially updates a device from the edit form.
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var p device.Patch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	dev, err := s.store.Update(r.Context(), id, p)
	if err != nil {
		s.writeStoreError(w, r, err, "failed to update device")
		return
	}

	writeJSON(w, http.StatusOK, dev)
}

// handleDeleteDevice deletes a device. The caller must confirm with
// ?confirm=true; deleting an unknown device succeeds.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm")) //nolint:errcheck // anything unparsable means unconfirmed

	var err error
	switch {
	case s.viewer != nil:
		err = s.viewer.DeleteDevice(r.Context(), id, confirmed)
	case !confirmed:
		err = viewer.ErrDeleteNotConfirmed
	default:
		err = s.store.Delete(r.Context(), id)
		if errors.Is(err, device.ErrDeviceNotFound) {
			err = nil
		}
	}

	if err != nil {
		if errors.Is(err, viewer.ErrDeleteNotConfirmed) {
			writeError(w, http.StatusBadRequest, ErrCodeNotConfirmed, "delete requires confirm=true")
			return
		}
		s.writeStoreError(w, r, err, "failed to delete device")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeStoreError maps store errors onto HTTP responses.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error, message string) {
	switch {
	case errors.Is(err, device.ErrDeviceNotFound):
		writeNotFound(w, "device not found")
	case errors.Is(err, device.ErrInvalidDevice):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, device.ErrEmptyPatch):
		writeBadRequest(w, "no fields to update")
	case errors.Is(err, device.ErrDeviceExists):
		writeError(w, http.StatusConflict, ErrCodeConflict, "device already exists")
	default:
		s.logger.Error(message,
			"error", err,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		writeInternalError(w, message)
	}
}
