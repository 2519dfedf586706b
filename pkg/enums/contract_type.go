package enums

import "fmt"

// ContractType distinguishes rental agreements from ownership transfers.
type ContractType string

const (
	ContractTypeRental    ContractType = "RENTAL"
	ContractTypeOwnership ContractType = "OWNERSHIP"
)

var validContractTypes = []ContractType{
	ContractTypeRental,
	ContractTypeOwnership,
}

// String implements fmt.Stringer.
func (c ContractType) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ContractType.
func (c ContractType) IsValid() bool {
	for _, candidate := range validContractTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// OccupancyStatus returns the apartment status an active contract of this
// type implies.
func (c ContractType) OccupancyStatus() ApartmentStatus {
	if c == ContractTypeOwnership {
		return ApartmentStatusOwned
	}
	return ApartmentStatusRented
}

// ParseContractType converts raw input into a ContractType.
func ParseContractType(value string) (ContractType, error) {
	for _, candidate := range validContractTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid contract type %q", value)
}
