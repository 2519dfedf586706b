package residents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/estatedesk/estatedesk-backend/pkg/db/models"
	"github.com/estatedesk/estatedesk-backend/pkg/enums"
	pkgerrors "github.com/estatedesk/estatedesk-backend/pkg/errors"
	"github.com/estatedesk/estatedesk-backend/pkg/scope"
)

type contractReader interface {
	GetByID(ctx context.Context, actor scope.Principal, id uuid.UUID) (*models.Contract, error)
}

// Service exposes resident and household member operations. Household
// members move out independently; the contract itself is never touched here.
type Service interface {
	Create(ctx context.Context, actor scope.Principal, input CreateResidentInput) (*models.Resident, error)
	GetByID(ctx context.Context, actor scope.Principal, id uuid.UUID) (*models.Resident, error)
	List(ctx context.Context, actor scope.Principal) ([]models.Resident, error)
	Update(ctx context.Context, actor scope.Principal, id uuid.UUID, input UpdateResidentInput) (*models.Resident, error)
	Delete(ctx context.Context, actor scope.Principal, id uuid.UUID) error
	AddMember(ctx context.Context, actor scope.Principal, input AddMemberInput) (*models.HouseholdMember, error)
	ListMembers(ctx context.Context, actor scope.Principal, contractID uuid.UUID, activeOnly bool) ([]models.HouseholdMember, error)
	MoveOutMember(ctx context.Context, actor scope.Principal, memberID uuid.UUID) error
}

// CreateResidentInput captures the fields required to register a resident.
type CreateResidentInput struct {
	FullName string
	Phone    string
	Email    string
}

// UpdateResidentInput captures the mutable resident fields.
type UpdateResidentInput struct {
	FullName *string
	Phone    *string
	Email    *string
}

// AddMemberInput captures the fields required to add a household member.
type AddMemberInput struct {
	ContractID   uuid.UUID
	FullName     string
	Relationship string
	MovedInAt    time.Time
}

type service struct {
	repo      Repository
	contracts contractReader
	now       func() time.Time
}

// NewService builds a resident service with the provided collaborators.
func NewService(repo Repository, contracts contractReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("resident repository required")
	}
	if contracts == nil {
		return nil, fmt.Errorf("contract service required")
	}
	return &service{repo: repo, contracts: contracts, now: time.Now}, nil
}

func (s *service) Create(ctx context.Context, actor scope.Principal, input CreateResidentInput) (*models.Resident, error) {
	if actor.Scope().IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller has no building access")
	}
	fullName := strings.TrimSpace(input.FullName)
	if fullName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name is required")
	}
	email := strings.TrimSpace(input.Email)
	if email != "" && !strings.Contains(email, "@") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid email")
	}

	resident := &models.Resident{
		FullName: fullName,
		Phone:    strings.TrimSpace(input.Phone),
		Email:    email,
	}
	if err := s.repo.Create(ctx, resident); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create resident")
	}
	return resident, nil
}

func (s *service) GetByID(ctx context.Context, actor scope.Principal, id uuid.UUID) (*models.Resident, error) {
	if actor.Scope().IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller has no building access")
	}
	resident, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "resident not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load resident")
	}
	return resident, nil
}

func (s *service) List(ctx context.Context, actor scope.Principal) ([]models.Resident, error) {
	residents, err := s.repo.List(ctx, actor.Scope())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list residents")
	}
	return residents, nil
}

func (s *service) Update(ctx context.Context, actor scope.Principal, id uuid.UUID, input UpdateResidentInput) (*models.Resident, error) {
	resident, err := s.GetByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if input.FullName != nil {
		fullName := strings.TrimSpace(*input.FullName)
		if fullName == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name must not be empty")
		}
		resident.FullName = fullName
	}
	if input.Phone != nil {
		resident.Phone = strings.TrimSpace(*input.Phone)
	}
	if input.Email != nil {
		email := strings.TrimSpace(*input.Email)
		if email != "" && !strings.Contains(email, "@") {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid email")
		}
		resident.Email = email
	}

	if err := s.repo.Update(ctx, resident); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update resident")
	}
	return resident, nil
}

// Delete soft-deletes a resident. Blocked while the resident is a party to
// any contract, active or historical.
func (s *service) Delete(ctx context.Context, actor scope.Principal, id uuid.UUID) error {
	if _, err := s.GetByID(ctx, actor, id); err != nil {
		return err
	}

	hasContracts, err := s.repo.HasContracts(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check contracts")
	}
	if hasContracts {
		return pkgerrors.New(pkgerrors.CodeConflict, "resident has contracts")
	}

	affected, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete resident")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "resident not found")
	}
	return nil
}

func (s *service) AddMember(ctx context.Context, actor scope.Principal, input AddMemberInput) (*models.HouseholdMember, error) {
	fullName := strings.TrimSpace(input.FullName)
	if fullName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name is required")
	}

	contract, err := s.contracts.GetByID(ctx, actor, input.ContractID)
	if err != nil {
		return nil, err
	}
	if contract.Status != enums.ContractStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "contract is not active")
	}

	movedInAt := input.MovedInAt
	if movedInAt.IsZero() {
		movedInAt = s.now()
	}

	member := &models.HouseholdMember{
		ContractID:   contract.ID,
		FullName:     fullName,
		Relationship: strings.TrimSpace(input.Relationship),
		MovedInAt:    movedInAt,
		IsActive:     true,
	}
	if err := s.repo.AddMember(ctx, member); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add household member")
	}
	return member, nil
}

func (s *service) ListMembers(ctx context.Context, actor scope.Principal, contractID uuid.UUID, activeOnly bool) ([]models.HouseholdMember, error) {
	if _, err := s.contracts.GetByID(ctx, actor, contractID); err != nil {
		return nil, err
	}
	members, err := s.repo.ListMembers(ctx, contractID, activeOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list household members")
	}
	return members, nil
}

// MoveOutMember deactivates a household member without touching the
// contract.
func (s *service) MoveOutMember(ctx context.Context, actor scope.Principal, memberID uuid.UUID) error {
	member, err := s.repo.FindMember(ctx, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "household member not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load household member")
	}
	if _, err := s.contracts.GetByID(ctx, actor, member.ContractID); err != nil {
		return err
	}

	affected, err := s.repo.MarkMemberMovedOut(ctx, memberID, s.now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "move out household member")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "household member already moved out")
	}
	return nil
}
