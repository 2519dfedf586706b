package apartments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/estatedesk/estatedesk-backend/pkg/db/models"
	"github.com/estatedesk/estatedesk-backend/pkg/enums"
	"github.com/estatedesk/estatedesk-backend/pkg/pagination"
	"github.com/estatedesk/estatedesk-backend/pkg/scope"
)

// ApartmentWithBuilding pairs an apartment with the building it belongs to,
// resolved through its floor.
type ApartmentWithBuilding struct {
	models.Apartment
	BuildingID uuid.UUID `gorm:"column:building_id"`
}

// Repository manages persistence for apartments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, apartment *models.Apartment) error
	FindByID(ctx context.Context, id uuid.UUID) (*ApartmentWithBuilding, error)
	Update(ctx context.Context, apartment *models.Apartment) error
	SoftDelete(ctx context.Context, id uuid.UUID) (int64, error)
	List(ctx context.Context, s scope.Scope, params pagination.Params) ([]ApartmentWithBuilding, error)
	ListByFloor(ctx context.Context, floorID uuid.UUID) ([]models.Apartment, error)
	RoomNumberExists(ctx context.Context, floorID uuid.UUID, roomNumber string) (bool, error)
	HasContractHistory(ctx context.Context, apartmentID uuid.UUID) (bool, error)
	HasActiveContract(ctx context.Context, apartmentID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, apartment *models.Apartment) error {
	if apartment.ID == uuid.Nil {
		apartment.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(apartment).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*ApartmentWithBuilding, error) {
	var row ApartmentWithBuilding
	err := r.db.WithContext(ctx).
		Model(&models.Apartment{}).
		Select("apartments.*, floors.building_id AS building_id").
		Joins("JOIN floors ON floors.id = apartments.floor_id").
		Where("apartments.id = ? AND NOT apartments.is_deleted", id).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) Update(ctx context.Context, apartment *models.Apartment) error {
	return r.db.WithContext(ctx).Save(apartment).Error
}

func (r *repository) SoftDelete(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Apartment{}).
		Where("id = ? AND NOT is_deleted", id).
		Update("is_deleted", true)
	return result.RowsAffected, result.Error
}

func (r *repository) List(ctx context.Context, s scope.Scope, params pagination.Params) ([]ApartmentWithBuilding, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Apartment{}).
		Select("apartments.*, floors.building_id AS building_id").
		Where("NOT apartments.is_deleted")

	query = s.FilterApartments(query)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(apartments.created_at, apartments.id) > (?, ?)",
			cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []ApartmentWithBuilding
	err = query.
		Order("apartments.created_at, apartments.id").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListByFloor(ctx context.Context, floorID uuid.UUID) ([]models.Apartment, error) {
	var apartments []models.Apartment
	err := r.db.WithContext(ctx).
		Where("floor_id = ? AND NOT is_deleted", floorID).
		Order("room_number").
		Find(&apartments).Error
	if err != nil {
		return nil, err
	}
	return apartments, nil
}

func (r *repository) RoomNumberExists(ctx context.Context, floorID uuid.UUID, roomNumber string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Apartment{}).
		Where("floor_id = ? AND room_number = ? AND NOT is_deleted", floorID, roomNumber).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) HasContractHistory(ctx context.Context, apartmentID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Contract{}).
		Where("apartment_id = ?", apartmentID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) HasActiveContract(ctx context.Context, apartmentID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Contract{}).
		Where("apartment_id = ? AND status = ? AND NOT is_deleted", apartmentID, enums.ContractStatusActive).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
