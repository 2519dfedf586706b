package enums

import "fmt"

// ApartmentStatus reflects the occupancy state of an apartment. It must agree
// with the active contract on the apartment, or MAINTENANCE when cascaded
// from the parent building/floor, or AVAILABLE otherwise.
type ApartmentStatus string

const (
	ApartmentStatusAvailable   ApartmentStatus = "AVAILABLE"
	ApartmentStatusRented      ApartmentStatus = "RENTED"
	ApartmentStatusOwned       ApartmentStatus = "OWNED"
	ApartmentStatusMaintenance ApartmentStatus = "MAINTENANCE"
)

var validApartmentStatuses = []ApartmentStatus{
	ApartmentStatusAvailable,
	ApartmentStatusRented,
	ApartmentStatusOwned,
	ApartmentStatusMaintenance,
}

// String implements fmt.Stringer.
func (a ApartmentStatus) String() string {
	return string(a)
}

// IsValid reports whether the value is a known ApartmentStatus.
func (a ApartmentStatus) IsValid() bool {
	for _, candidate := range validApartmentStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}

// IsOccupied reports whether the apartment currently has an occupant.
func (a ApartmentStatus) IsOccupied() bool {
	return a == ApartmentStatusRented || a == ApartmentStatusOwned
}

// ParseApartmentStatus converts raw input into an ApartmentStatus.
func ParseApartmentStatus(value string) (ApartmentStatus, error) {
	for _, candidate := range validApartmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid apartment status %q", value)
}
