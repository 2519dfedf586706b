package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/estatedesk/estatedesk-backend/pkg/config"
	"github.com/estatedesk/estatedesk-backend/pkg/db"
	"github.com/estatedesk/estatedesk-backend/pkg/db/models"
	"github.com/estatedesk/estatedesk-backend/pkg/enums"
	pkgerrors "github.com/estatedesk/estatedesk-backend/pkg/errors"
	"github.com/estatedesk/estatedesk-backend/pkg/scope"
	"github.com/estatedesk/estatedesk-backend/pkg/security"
)

const tempPasswordLength = 16

// Service manages staff accounts. New accounts and admin resets issue a
// temporary password that is returned once and never stored in plain text.
type Service interface {
	Create(ctx context.Context, actor scope.Principal, input CreateUserInput) (*CreatedUser, error)
	GetByID(ctx context.Context, actor scope.Principal, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, actor scope.Principal) ([]models.User, error)
	Update(ctx context.Context, actor scope.Principal, id uuid.UUID, input UpdateUserInput) (*models.User, error)
	SetActive(ctx context.Context, actor scope.Principal, id uuid.UUID, active bool) error
	ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error
	ResetPassword(ctx context.Context, actor scope.Principal, id uuid.UUID) (string, error)
}

// CreateUserInput captures the fields required to open a staff account.
type CreateUserInput struct {
	Email    string
	FullName string
	Role     enums.UserRole
}

// UpdateUserInput captures the mutable account fields.
type UpdateUserInput struct {
	FullName *string
	Role     *enums.UserRole
}

// CreatedUser pairs a new account with its one-time temporary password.
type CreatedUser struct {
	User         *models.User
	TempPassword string
}

type service struct {
	repo Repository
	cfg  config.PasswordConfig
}

// NewService builds a user service with the provided collaborators.
func NewService(repo Repository, cfg config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	return &service{repo: repo, cfg: cfg}, nil
}

func (s *service) Create(ctx context.Context, actor scope.Principal, input CreateUserInput) (*CreatedUser, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins manage accounts")
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "valid email is required")
	}
	fullName := strings.TrimSpace(input.FullName)
	if fullName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name is required")
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}

	tempPassword, err := security.GenerateTempPassword(tempPasswordLength)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate password")
	}
	hash, err := security.HashPassword(tempPassword, s.cfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		Role:         input.Role,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}
	return &CreatedUser{User: user, TempPassword: tempPassword}, nil
}

func (s *service) GetByID(ctx context.Context, actor scope.Principal, id uuid.UUID) (*models.User, error) {
	if !actor.IsAdmin() && actor.UserID != id {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins view other accounts")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

func (s *service) List(ctx context.Context, actor scope.Principal) ([]models.User, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins list accounts")
	}
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	return users, nil
}

func (s *service) Update(ctx context.Context, actor scope.Principal, id uuid.UUID, input UpdateUserInput) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins manage accounts")
	}
	user, err := s.GetByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if input.FullName != nil {
		fullName := strings.TrimSpace(*input.FullName)
		if fullName == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name must not be empty")
		}
		user.FullName = fullName
	}
	if input.Role != nil {
		if !input.Role.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
		}
		if actor.UserID == id && *input.Role != enums.UserRoleAdmin {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "admins cannot demote themselves")
		}
		user.Role = *input.Role
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user")
	}
	return user, nil
}

func (s *service) SetActive(ctx context.Context, actor scope.Principal, id uuid.UUID, active bool) error {
	if !actor.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only admins manage accounts")
	}
	if actor.UserID == id && !active {
		return pkgerrors.New(pkgerrors.CodeConflict, "admins cannot deactivate themselves")
	}
	if _, err := s.GetByID(ctx, actor, id); err != nil {
		return err
	}

	affected, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set active")
	}
	if affected == 0 {
		if active {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "user is already active")
		}
		return pkgerrors.New(pkgerrors.CodeStateConflict, "user is already inactive")
	}
	return nil
}

func (s *service) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	ok, err := security.VerifyPassword(currentPassword, user.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "current password is incorrect")
	}

	hash, err := security.HashPassword(newPassword, s.cfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if _, err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update password")
	}
	return nil
}

// ResetPassword issues a fresh temporary password for the account.
func (s *service) ResetPassword(ctx context.Context, actor scope.Principal, id uuid.UUID) (string, error) {
	if !actor.IsAdmin() {
		return "", pkgerrors.New(pkgerrors.CodeForbidden, "only admins reset passwords")
	}
	if _, err := s.GetByID(ctx, actor, id); err != nil {
		return "", err
	}

	tempPassword, err := security.GenerateTempPassword(tempPasswordLength)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate password")
	}
	hash, err := security.HashPassword(tempPassword, s.cfg)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if _, err := s.repo.UpdatePassword(ctx, id, hash); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update password")
	}
	return tempPassword, nil
}
