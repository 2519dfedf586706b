package enums

import "fmt"

// FloorStatus tracks the operational state of a floor within a building.
type FloorStatus string

const (
	FloorStatusActive      FloorStatus = "ACTIVE"
	FloorStatusMaintenance FloorStatus = "MAINTENANCE"
)

var validFloorStatuses = []FloorStatus{
	FloorStatusActive,
	FloorStatusMaintenance,
}

// String implements fmt.Stringer.
func (f FloorStatus) String() string {
	return string(f)
}

// IsValid reports whether the value is a known FloorStatus.
func (f FloorStatus) IsValid() bool {
	for _, candidate := range validFloorStatuses {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFloorStatus converts raw input into a FloorStatus.
func ParseFloorStatus(value string) (FloorStatus, error) {
	for _, candidate := range validFloorStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid floor status %q", value)
}
