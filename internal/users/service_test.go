package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/estatedesk/estatedesk-backend/pkg/config"
	"github.com/estatedesk/estatedesk-backend/pkg/db/models"
	"github.com/estatedesk/estatedesk-backend/pkg/enums"
	pkgerrors "github.com/estatedesk/estatedesk-backend/pkg/errors"
	"github.com/estatedesk/estatedesk-backend/pkg/scope"
	"github.com/estatedesk/estatedesk-backend/pkg/security"
)

// small parameters keep argon2 fast in tests
func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8192,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func newTestService(t *testing.T) Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	svc, err := NewService(NewRepository(db), testPasswordConfig())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func admin() scope.Principal {
	return scope.Principal{UserID: uuid.New(), Role: enums.UserRoleAdmin}
}

func TestCreateUser(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	actor := admin()

	created, err := svc.Create(ctx, actor, CreateUserInput{
		Email:    "  Manager@Example.COM ",
		FullName: "Pat Manager",
		Role:     enums.UserRoleManager,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.User.Email != "manager@example.com" {
		t.Fatalf("expected normalized email, got %q", created.User.Email)
	}
	if created.TempPassword == "" {
		t.Fatal("expected a temporary password")
	}
	if created.User.PasswordHash == created.TempPassword {
		t.Fatal("password must be stored hashed")
	}
	ok, err := security.VerifyPassword(created.TempPassword, created.User.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("temp password must verify against the stored hash: ok=%v err=%v", ok, err)
	}

	_, err = svc.Create(ctx, actor, CreateUserInput{
		Email:    "manager@example.com",
		FullName: "Duplicate",
		Role:     enums.UserRoleStaff,
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for duplicate email, got %v", err)
	}
}

func TestCreateUserGuards(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	manager := scope.Principal{UserID: uuid.New(), Role: enums.UserRoleManager}
	if _, err := svc.Create(ctx, manager, CreateUserInput{Email: "x@example.com", FullName: "X", Role: enums.UserRoleStaff}); pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := svc.Create(ctx, admin(), CreateUserInput{Email: "not-an-email", FullName: "X", Role: enums.UserRoleStaff}); pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.Create(ctx, admin(), CreateUserInput{Email: "x@example.com", FullName: "X", Role: enums.UserRole("OWNER")}); pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for bad role, got %v", err)
	}
}

func TestSetActive(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	actor := admin()

	created, err := svc.Create(ctx, actor, CreateUserInput{Email: "staff@example.com", FullName: "Staff", Role: enums.UserRoleStaff})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.SetActive(ctx, actor, created.User.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if err := svc.SetActive(ctx, actor, created.User.ID, false); pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict on double deactivate, got %v", err)
	}
	if err := svc.SetActive(ctx, actor, created.User.ID, true); err != nil {
		t.Fatalf("reactivate: %v", err)
	}

	// an admin cannot lock themselves out
	self, err := svc.Create(ctx, actor, CreateUserInput{Email: "root@example.com", FullName: "Root", Role: enums.UserRoleAdmin})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	selfActor := scope.Principal{UserID: self.User.ID, Role: enums.UserRoleAdmin}
	if err := svc.SetActive(ctx, selfActor, self.User.ID, false); pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict on self-deactivation, got %v", err)
	}
}

func TestSelfDemotionBlocked(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, admin(), CreateUserInput{Email: "boss@example.com", FullName: "Boss", Role: enums.UserRoleAdmin})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	selfActor := scope.Principal{UserID: created.User.ID, Role: enums.UserRoleAdmin}
	staff := enums.UserRoleStaff
	if _, err := svc.Update(ctx, selfActor, created.User.ID, UpdateUserInput{Role: &staff}); pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict on self-demotion, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, admin(), CreateUserInput{Email: "p@example.com", FullName: "P", Role: enums.UserRoleStaff})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	userID := created.User.ID

	err = svc.ChangePassword(ctx, userID, "wrong-password", "new-password-1")
	if pkgerrors.As(err).Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for wrong current password, got %v", err)
	}
	if err := svc.ChangePassword(ctx, userID, created.TempPassword, "short"); pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for short password, got %v", err)
	}
	if err := svc.ChangePassword(ctx, userID, created.TempPassword, "new-password-1"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	// the old temp password no longer works
	err = svc.ChangePassword(ctx, userID, created.TempPassword, "new-password-2")
	if pkgerrors.As(err).Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized with stale password, got %v", err)
	}
}

func TestResetPassword(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	actor := admin()

	created, err := svc.Create(ctx, actor, CreateUserInput{Email: "r@example.com", FullName: "R", Role: enums.UserRoleStaff})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	temp, err := svc.ResetPassword(ctx, actor, created.User.ID)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if temp == created.TempPassword {
		t.Fatal("expected a fresh temporary password")
	}
	if err := svc.ChangePassword(ctx, created.User.ID, temp, "after-reset-1"); err != nil {
		t.Fatalf("new temp password must work: %v", err)
	}
}
