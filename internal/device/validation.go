package device

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

const (
	maxNameLength      = 100
	maxModelPathLength = 1024
)

// Validate reports whether the form may be saved, plus a human-readable
// reason for each field that fails. All four fields are required.
func (f Fields) Validate() (bool, []string) {
	var problems []string

	name := strings.TrimSpace(f.Name)
	switch {
	case name == "":
		problems = append(problems, "name is required")
	case len(name) > maxNameLength:
		problems = append(problems, fmt.Sprintf("name must be at most %d characters", maxNameLength))
	}

	switch {
	case f.Type == "":
		problems = append(problems, "type is required")
	case !slices.Contains(AllTypes(), f.Type):
		problems = append(problems, fmt.Sprintf("type %q is not one of %v", f.Type, AllTypes()))
	}

	switch {
	case f.Status == "":
		problems = append(problems, "status is required")
	case !slices.Contains(AllStatuses(), f.Status):
		problems = append(problems, fmt.Sprintf("status %q is not one of %v", f.Status, AllStatuses()))
	}

	modelPath := strings.TrimSpace(f.ModelPath)
	switch {
	case modelPath == "":
		problems = append(problems, "model_path is required")
	case len(modelPath) > maxModelPathLength:
		problems = append(problems, fmt.Sprintf("model_path must be at most %d characters", maxModelPathLength))
	}

	return len(problems) == 0, problems
}

// ValidateFields is Validate expressed as an error wrapping ErrInvalidDevice.
func ValidateFields(f Fields) error {
	if ok, problems := f.Validate(); !ok {
		return fmt.Errorf("%w: %s", ErrInvalidDevice, strings.Join(problems, "; "))
	}
	return nil
}

// normalise trims the free-text fields before they are persisted.
func (f Fields) normalise() Fields {
	f.Name = strings.TrimSpace(f.Name)
	f.ModelPath = strings.TrimSpace(f.ModelPath)
	return f
}

// GenerateID returns a new random device identifier.
func GenerateID() string {
	return uuid.NewString()
}
