package scope

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/estatedesk/estatedesk-backend/pkg/enums"
)

// Scope is the set of buildings a principal may see and act on.
// Administrators resolve to an unrestricted scope; everyone else is
// limited to their assigned buildings. A principal with no assignments
// resolves to the empty scope, which matches nothing.
type Scope struct {
	unrestricted bool
	buildingIDs  []uuid.UUID
}

// Unrestricted returns a scope that matches every building.
func Unrestricted() Scope {
	return Scope{unrestricted: true}
}

// ForBuildings returns a scope limited to the provided building ids.
func ForBuildings(ids []uuid.UUID) Scope {
	cpy := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		cpy = append(cpy, id)
	}
	return Scope{buildingIDs: cpy}
}

// Resolve maps a principal's role and building assignments to a scope.
// It never errors: an unknown or empty role resolves to the empty scope.
func Resolve(role enums.UserRole, assignments []uuid.UUID) Scope {
	if role == enums.UserRoleAdmin {
		return Unrestricted()
	}
	if !role.IsValid() {
		return Scope{}
	}
	return ForBuildings(assignments)
}

// IsUnrestricted reports whether the scope matches every building.
func (s Scope) IsUnrestricted() bool {
	return s.unrestricted
}

// IsEmpty reports whether the scope matches nothing.
func (s Scope) IsEmpty() bool {
	return !s.unrestricted && len(s.buildingIDs) == 0
}

// BuildingIDs returns a copy of the scoped building ids.
func (s Scope) BuildingIDs() []uuid.UUID {
	cpy := make([]uuid.UUID, len(s.buildingIDs))
	copy(cpy, s.buildingIDs)
	return cpy
}

// AllowsBuilding reports whether the scope covers the building id.
func (s Scope) AllowsBuilding(id uuid.UUID) bool {
	if s.unrestricted {
		return true
	}
	for _, allowed := range s.buildingIDs {
		if allowed == id {
			return true
		}
	}
	return false
}

// matchNothing is a predicate that no row satisfies. Applied for empty
// scopes so a user without assignments sees nothing instead of everything.
func matchNothing(query *gorm.DB) *gorm.DB {
	return query.Where("1 = 0")
}

// FilterBuildings restricts a buildings query to the scope.
func (s Scope) FilterBuildings(query *gorm.DB) *gorm.DB {
	if s.unrestricted {
		return query
	}
	if len(s.buildingIDs) == 0 {
		return matchNothing(query)
	}
	return query.Where("buildings.id IN ?", s.buildingIDs)
}

// FilterFloors restricts a floors query to the scope.
func (s Scope) FilterFloors(query *gorm.DB) *gorm.DB {
	if s.unrestricted {
		return query
	}
	if len(s.buildingIDs) == 0 {
		return matchNothing(query)
	}
	return query.Where("floors.building_id IN ?", s.buildingIDs)
}

// FilterApartments restricts an apartments query to the scope by joining
// through floors. The caller must not have joined floors already.
func (s Scope) FilterApartments(query *gorm.DB) *gorm.DB {
	if s.unrestricted {
		return query
	}
	if len(s.buildingIDs) == 0 {
		return matchNothing(query)
	}
	return query.
		Joins("JOIN floors ON floors.id = apartments.floor_id").
		Where("floors.building_id IN ?", s.buildingIDs)
}

// FilterContracts restricts a contracts query to the scope by joining
// through apartments and floors.
func (s Scope) FilterContracts(query *gorm.DB) *gorm.DB {
	if s.unrestricted {
		return query
	}
	if len(s.buildingIDs) == 0 {
		return matchNothing(query)
	}
	return query.
		Joins("JOIN apartments ON apartments.id = contracts.apartment_id").
		Joins("JOIN floors ON floors.id = apartments.floor_id").
		Where("floors.building_id IN ?", s.buildingIDs)
}

// FilterInvoices restricts an invoices query to the scope by joining
// through contracts, apartments, and floors.
func (s Scope) FilterInvoices(query *gorm.DB) *gorm.DB {
	if s.unrestricted {
		return query
	}
	if len(s.buildingIDs) == 0 {
		return matchNothing(query)
	}
	return query.
		Joins("JOIN contracts ON contracts.id = invoices.contract_id").
		Joins("JOIN apartments ON apartments.id = contracts.apartment_id").
		Joins("JOIN floors ON floors.id = apartments.floor_id").
		Where("floors.building_id IN ?", s.buildingIDs)
}

// FilterResidents restricts a residents query to the scope through the
// resident's contracts.
func (s Scope) FilterResidents(query *gorm.DB) *gorm.DB {
	if s.unrestricted {
		return query
	}
	if len(s.buildingIDs) == 0 {
		return matchNothing(query)
	}
	return query.Where(
		"residents.id IN (?)",
		query.Session(&gorm.Session{NewDB: true}).
			Table("contracts").
			Select("contracts.resident_id").
			Joins("JOIN apartments ON apartments.id = contracts.apartment_id").
			Joins("JOIN floors ON floors.id = apartments.floor_id").
			Where("floors.building_id IN ?", s.buildingIDs),
	)
}
