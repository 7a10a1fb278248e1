package device

import "time"

// Device is one inventory record. This matches the devices table in
// migrations/20260301_120000_create_devices.up.sql.
//
// ID is assigned by the Store on create and never changes afterwards.
type Device struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      Type      `json:"type"`
	Status    Status    `json:"status"`
	ModelPath string    `json:"model_path"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Fields returns the editable part of the device.
func (d Device) Fields() Fields {
	return Fields{
		Name:      d.Name,
		Type:      d.Type,
		Status:    d.Status,
		ModelPath: d.ModelPath,
	}
}

// Fields is the payload of the add/edit form. It deliberately has no ID:
// identity belongs to the store, and saving a form can never rewrite it.
type Fields struct {
	Name      string `json:"name"`
	Type      Type   `json:"type"`
	Status    Status `json:"status"`
	ModelPath string `json:"model_path"`
}

// DefaultModelPath is the asset offered to a freshly opened add form.
const DefaultModelPath = "/models/device1.glb"

// DefaultFields returns the values an empty add form starts with.
func DefaultFields() Fields {
	return Fields{
		Name:      "",
		Type:      TypeSensor,
		Status:    StatusActive,
		ModelPath: DefaultModelPath,
	}
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Name      *string `json:"name,omitempty"`
	Type      *Type   `json:"type,omitempty"`
	Status    *Status `json:"status,omitempty"`
	ModelPath *string `json:"model_path,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Type == nil && p.Status == nil && p.ModelPath == nil
}

// Apply returns f with the patch's non-nil fields written over it.
func (p Patch) Apply(f Fields) Fields {
	if p.Name != nil {
		f.Name = *p.Name
	}
	if p.Type != nil {
		f.Type = *p.Type
	}
	if p.Status != nil {
		f.Status = *p.Status
	}
	if p.ModelPath != nil {
		f.ModelPath = *p.ModelPath
	}
	return f
}

// Type classifies what a device is.
type Type string

// Type constants.
const (
	TypeSensor     Type = "Sensor"
	TypeController Type = "Controller"
	TypeMonitor    Type = "Monitor"
	TypeActuator   Type = "Actuator"
)

// AllTypes returns all valid device types in form display order.
func AllTypes() []Type {
	return []Type{TypeSensor, TypeController, TypeMonitor, TypeActuator}
}

// Status is the operational state shown in the inventory table.
type Status string

// Status constants.
const (
	StatusActive  Status = "Active"
	StatusIdle    Status = "Idle"
	StatusOffline Status = "Offline"
)

// AllStatuses returns all valid statuses in form display order.
func AllStatuses() []Status {
	return []Status{StatusActive, StatusIdle, StatusOffline}
}
