package enums

import "fmt"

// BuildingStatus tracks the operational state of a building.
type BuildingStatus string

const (
	BuildingStatusActive      BuildingStatus = "ACTIVE"
	BuildingStatusMaintenance BuildingStatus = "MAINTENANCE"
	BuildingStatusInactive    BuildingStatus = "INACTIVE"
)

var validBuildingStatuses = []BuildingStatus{
	BuildingStatusActive,
	BuildingStatusMaintenance,
	BuildingStatusInactive,
}

// String implements fmt.Stringer.
func (b BuildingStatus) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BuildingStatus.
func (b BuildingStatus) IsValid() bool {
	for _, candidate := range validBuildingStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBuildingStatus converts raw input into a BuildingStatus.
func ParseBuildingStatus(value string) (BuildingStatus, error) {
	for _, candidate := range validBuildingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid building status %q", value)
}
