package contracts

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/estatedesk/estatedesk-backend/internal/history"
	"github.com/estatedesk/estatedesk-backend/pkg/config"
	"github.com/estatedesk/estatedesk-backend/pkg/db"
	"github.com/estatedesk/estatedesk-backend/pkg/db/models"
	"github.com/estatedesk/estatedesk-backend/pkg/enums"
	pkgerrors "github.com/estatedesk/estatedesk-backend/pkg/errors"
	"github.com/estatedesk/estatedesk-backend/pkg/logger"
	"github.com/estatedesk/estatedesk-backend/pkg/scope"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the contract lifecycle state machine. Every transition runs as
// one transaction covering the contract row, the apartment status flip, and
// the history entry; a failed history append rolls the transition back.
type Service interface {
	Create(ctx context.Context, actor scope.Principal, input CreateContractInput) (*models.Contract, error)
	GetByID(ctx context.Context, actor scope.Principal, id uuid.UUID) (*models.Contract, error)
	List(ctx context.Context, actor scope.Principal, includeTerminated bool) ([]models.Contract, error)
	Renew(ctx context.Context, actor scope.Principal, contractID uuid.UUID, newEndDate time.Time) (*models.Contract, error)
	Terminate(ctx context.Context, actor scope.Principal, contractID uuid.UUID, reason string) error
	SoftDelete(ctx context.Context, actor scope.Principal, contractID uuid.UUID, reason string) error
	GenerateContractNumber(ctx context.Context) (string, error)
	ExpireContracts(ctx context.Context) (int, error)
}

// CreateContractInput captures the data required to sign a contract.
type CreateContractInput struct {
	ApartmentID uuid.UUID
	ResidentID  uuid.UUID
	Type        enums.ContractType
	SignedDate  time.Time
	StartDate   *time.Time
	EndDate     *time.Time
	MonthlyRent decimal.Decimal
	Deposit     decimal.Decimal
}

type service struct {
	repo    Repository
	history history.Repository
	tx      txRunner
	cfg     config.ContractsConfig
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds a contract service with the provided collaborators.
func NewService(repo Repository, historyRepo history.Repository, tx txRunner, cfg config.ContractsConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("contract repository required")
	}
	if historyRepo == nil {
		return nil, fmt.Errorf("history repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.NumberPrefix) == "" {
		cfg.NumberPrefix = "CT"
	}
	return &service{
		repo:    repo,
		history: historyRepo,
		tx:      tx,
		cfg:     cfg,
		logg:    logg,
		now:     time.Now,
	}, nil
}

func (s *service) validateCreate(input CreateContractInput) error {
	if input.ApartmentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "apartment id is required")
	}
	if input.ResidentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "resident id is required")
	}
	if !input.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid contract type %q", input.Type))
	}
	if input.SignedDate.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "signed date is required")
	}
	if !input.MonthlyRent.IsPositive() && input.Type == enums.ContractTypeRental {
		return pkgerrors.New(pkgerrors.CodeValidation, "monthly rent must be positive")
	}
	if input.MonthlyRent.IsNegative() || input.Deposit.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amounts must not be negative")
	}

	switch input.Type {
	case enums.ContractTypeRental:
		if input.StartDate == nil || input.EndDate == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "rental contracts require start and end dates")
		}
		if !input.EndDate.After(*input.StartDate) {
			return pkgerrors.New(pkgerrors.CodeValidation, "end date must be after start date")
		}
	case enums.ContractTypeOwnership:
		if input.StartDate != nil || input.EndDate != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "ownership contracts must not carry start or end dates")
		}
	}
	return nil
}

func (s *service) Create(ctx context.Context, actor scope.Principal, input CreateContractInput) (*models.Contract, error) {
	if err := s.validateCreate(input); err != nil {
		return nil, err
	}

	apartment, err := s.repo.FindApartmentRef(ctx, input.ApartmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "apartment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load apartment")
	}
	if !actor.Scope().AllowsBuilding(apartment.BuildingID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "apartment outside caller scope")
	}
	if apartment.Status == enums.ApartmentStatusMaintenance {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "apartment is under maintenance")
	}

	exists, err := s.repo.ResidentExists(ctx, input.ResidentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check resident")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "resident not found")
	}

	var contract *models.Contract
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		// application-level check; the partial unique index on
		// (apartment_id) WHERE status = 'ACTIVE' closes the race
		active, err := repo.HasActiveForApartment(ctx, input.ApartmentID)
		if err != nil {
			return fmt.Errorf("check active contract: %w", err)
		}
		if active {
			return pkgerrors.New(pkgerrors.CodeConflict, "apartment already has an active contract")
		}

		number, err := s.nextNumber(ctx, repo)
		if err != nil {
			return fmt.Errorf("generate contract number: %w", err)
		}

		contract = &models.Contract{
			ContractNumber: number,
			ApartmentID:    input.ApartmentID,
			ResidentID:     input.ResidentID,
			Type:           input.Type,
			Status:         enums.ContractStatusActive,
			SignedDate:     input.SignedDate,
			StartDate:      input.StartDate,
			EndDate:        input.EndDate,
			MonthlyRent:    input.MonthlyRent,
			Deposit:        input.Deposit,
		}
		if err := repo.Create(ctx, contract); err != nil {
			return fmt.Errorf("insert contract: %w", err)
		}

		occupancy := input.Type.OccupancyStatus()
		affected, err := repo.UpdateApartmentStatus(ctx, input.ApartmentID, occupancy)
		if err != nil {
			return fmt.Errorf("set apartment status: %w", err)
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "apartment not found")
		}

		newValue := contract.Status.String()
		if err := s.history.WithTx(tx).Create(ctx, &models.ContractHistory{
			ContractID:  contract.ID,
			Action:      enums.HistoryActionCreated,
			NewValue:    &newValue,
			NewEndDate:  contract.EndDate,
			ActorUserID: actorID(actor),
		}); err != nil {
			return fmt.Errorf("record history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.mapTxError(err, "create contract")
	}

	logCtx := s.logg.WithBuildingID(ctx, apartment.BuildingID.String())
	logCtx = s.logg.WithField(logCtx, "contract_number", contract.ContractNumber)
	s.logg.Info(logCtx, "contract created")
	return contract, nil
}

func (s *service) GetByID(ctx context.Context, actor scope.Principal, id uuid.UUID) (*models.Contract, error) {
	contract, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "contract not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load contract")
	}

	apartment, err := s.repo.FindApartmentRef(ctx, contract.ApartmentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load apartment")
	}
	if !actor.Scope().AllowsBuilding(apartment.BuildingID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "contract outside caller scope")
	}
	return contract, nil
}

func (s *service) List(ctx context.Context, actor scope.Principal, includeTerminated bool) ([]models.Contract, error) {
	contracts, err := s.repo.List(ctx, actor.Scope(), includeTerminated)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list contracts")
	}
	return contracts, nil
}

// Renew extends a rental contract's end date. Ownership contracts have no
// end date and are rejected before any mutation or history write.
func (s *service) Renew(ctx context.Context, actor scope.Principal, contractID uuid.UUID, newEndDate time.Time) (*models.Contract, error) {
	if newEndDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "new end date is required")
	}

	contract, err := s.GetByID(ctx, actor, contractID)
	if err != nil {
		return nil, err
	}
	if contract.Type != enums.ContractTypeRental {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only rental contracts can be renewed")
	}
	if contract.Status != enums.ContractStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only active contracts can be renewed")
	}
	if contract.EndDate != nil && !newEndDate.After(*contract.EndDate) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "new end date must extend the contract")
	}

	oldEndDate := contract.EndDate
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		affected, err := repo.UpdateEndDate(ctx, contract.ID, &newEndDate)
		if err != nil {
			return fmt.Errorf("update end date: %w", err)
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "contract not found")
		}

		if err := s.history.WithTx(tx).Create(ctx, &models.ContractHistory{
			ContractID:  contract.ID,
			Action:      enums.HistoryActionRenewed,
			OldEndDate:  oldEndDate,
			NewEndDate:  &newEndDate,
			ActorUserID: actorID(actor),
		}); err != nil {
			return fmt.Errorf("record history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.mapTxError(err, "renew contract")
	}

	contract.EndDate = &newEndDate
	return contract, nil
}

// Terminate ends a contract and frees its apartment. The apartment id is
// resolved from the contract row inside the transaction; a caller-supplied
// apartment id is never trusted.
func (s *service) Terminate(ctx context.Context, actor scope.Principal, contractID uuid.UUID, reason string) error {
	contract, err := s.GetByID(ctx, actor, contractID)
	if err != nil {
		return err
	}
	if contract.Status != enums.ContractStatusActive {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "contract is not active")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := repo.FindByID(ctx, contractID)
		if err != nil {
			return fmt.Errorf("reload contract: %w", err)
		}
		if current.Status != enums.ContractStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "contract is not active")
		}

		if _, err := repo.UpdateStatus(ctx, current.ID, enums.ContractStatusTerminated); err != nil {
			return fmt.Errorf("update contract status: %w", err)
		}
		if _, err := repo.UpdateApartmentStatus(ctx, current.ApartmentID, enums.ApartmentStatusAvailable); err != nil {
			return fmt.Errorf("free apartment: %w", err)
		}

		oldValue := enums.ContractStatusActive.String()
		newValue := enums.ContractStatusTerminated.String()
		if err := s.history.WithTx(tx).Create(ctx, &models.ContractHistory{
			ContractID:  current.ID,
			Action:      enums.HistoryActionTerminated,
			OldValue:    &oldValue,
			NewValue:    &newValue,
			Reason:      reason,
			ActorUserID: actorID(actor),
		}); err != nil {
			return fmt.Errorf("record history: %w", err)
		}
		return nil
	})
	if err != nil {
		return s.mapTxError(err, "terminate contract")
	}
	return nil
}

// SoftDelete removes a contract from default listings while preserving its
// row and history. The apartment is freed like a termination, but the
// contract keeps its last status for historical queries.
func (s *service) SoftDelete(ctx context.Context, actor scope.Principal, contractID uuid.UUID, reason string) error {
	contract, err := s.GetByID(ctx, actor, contractID)
	if err != nil {
		return err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		affected, err := repo.MarkDeleted(ctx, contract.ID)
		if err != nil {
			return fmt.Errorf("mark deleted: %w", err)
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "contract not found")
		}
		if _, err := repo.UpdateApartmentStatus(ctx, contract.ApartmentID, enums.ApartmentStatusAvailable); err != nil {
			return fmt.Errorf("free apartment: %w", err)
		}

		if err := s.history.WithTx(tx).Create(ctx, &models.ContractHistory{
			ContractID:  contract.ID,
			Action:      enums.HistoryActionDeleted,
			Reason:      reason,
			ActorUserID: actorID(actor),
		}); err != nil {
			return fmt.Errorf("record history: %w", err)
		}
		return nil
	})
	if err != nil {
		return s.mapTxError(err, "delete contract")
	}
	return nil
}

// GenerateContractNumber previews the next number in today's sequence. It
// does not reserve anything: two concurrent previews with no insert in
// between return the same candidate. Create assigns the real number inside
// its transaction.
func (s *service) GenerateContractNumber(ctx context.Context) (string, error) {
	number, err := s.nextNumber(ctx, s.repo)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "generate contract number")
	}
	return number, nil
}

func (s *service) nextNumber(ctx context.Context, repo Repository) (string, error) {
	prefix := fmt.Sprintf("%s-%s-", s.cfg.NumberPrefix, s.now().Format("20060102"))
	last, err := repo.LastNumberWithPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}

	seq := 0
	if last != "" {
		suffix := strings.TrimPrefix(last, prefix)
		parsed, err := strconv.Atoi(suffix)
		if err != nil {
			return "", fmt.Errorf("malformed contract number %q", last)
		}
		seq = parsed
	}
	return fmt.Sprintf("%s%03d", prefix, seq+1), nil
}

// ExpireContracts terminates rental contracts whose end date has passed.
// Called by the cron worker; runs unscoped because leases expire regardless
// of who manages the building.
func (s *service) ExpireContracts(ctx context.Context) (int, error) {
	expired, err := s.repo.ListExpiredActive(ctx, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expired contracts")
	}

	terminated := 0
	for _, contract := range expired {
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)

			current, err := repo.FindByID(ctx, contract.ID)
			if err != nil {
				return fmt.Errorf("reload contract: %w", err)
			}
			if current.Status != enums.ContractStatusActive {
				return nil
			}

			if _, err := repo.UpdateStatus(ctx, current.ID, enums.ContractStatusTerminated); err != nil {
				return fmt.Errorf("update contract status: %w", err)
			}
			if _, err := repo.UpdateApartmentStatus(ctx, current.ApartmentID, enums.ApartmentStatusAvailable); err != nil {
				return fmt.Errorf("free apartment: %w", err)
			}

			oldValue := enums.ContractStatusActive.String()
			newValue := enums.ContractStatusTerminated.String()
			if err := s.history.WithTx(tx).Create(ctx, &models.ContractHistory{
				ContractID: current.ID,
				Action:     enums.HistoryActionTerminated,
				OldValue:   &oldValue,
				NewValue:   &newValue,
				Reason:     "contract term ended",
			}); err != nil {
				return fmt.Errorf("record history: %w", err)
			}
			terminated++
			return nil
		})
		if err != nil {
			return terminated, s.mapTxError(err, "expire contract "+contract.ContractNumber)
		}
	}

	if terminated > 0 {
		s.logg.Info(s.logg.WithField(ctx, "count", terminated), "expired rental contracts terminated")
	}
	return terminated, nil
}

func (s *service) mapTxError(err error, action string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.New(pkgerrors.CodeConflict, "apartment already has an active contract")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

func actorID(actor scope.Principal) *uuid.UUID {
	if actor.UserID == uuid.Nil {
		return nil
	}
	id := actor.UserID
	return &id
}
