package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/estatedesk/estatedesk-backend/api/routes"
	"github.com/estatedesk/estatedesk-backend/internal/apartments"
	"github.com/estatedesk/estatedesk-backend/internal/assignments"
	"github.com/estatedesk/estatedesk-backend/internal/auth"
	"github.com/estatedesk/estatedesk-backend/internal/buildings"
	"github.com/estatedesk/estatedesk-backend/internal/cascade"
	"github.com/estatedesk/estatedesk-backend/internal/contracts"
	"github.com/estatedesk/estatedesk-backend/internal/floors"
	"github.com/estatedesk/estatedesk-backend/internal/history"
	"github.com/estatedesk/estatedesk-backend/internal/invoices"
	"github.com/estatedesk/estatedesk-backend/internal/residents"
	catalog "github.com/estatedesk/estatedesk-backend/internal/services"
	"github.com/estatedesk/estatedesk-backend/internal/stats"
	"github.com/estatedesk/estatedesk-backend/internal/users"
	"github.com/estatedesk/estatedesk-backend/pkg/auth/session"
	"github.com/estatedesk/estatedesk-backend/pkg/config"
	"github.com/estatedesk/estatedesk-backend/pkg/db"
	"github.com/estatedesk/estatedesk-backend/pkg/logger"
	"github.com/estatedesk/estatedesk-backend/pkg/metrics"
	"github.com/estatedesk/estatedesk-backend/pkg/migrate"
	"github.com/estatedesk/estatedesk-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	svcs, err := buildServices(dbClient, redisClient, sessionManager, cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	httpMetrics := metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)
	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, httpMetrics, svcs),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func buildServices(dbClient *db.Client, redisClient *redis.Client, sessionManager *session.Manager, cfg *config.Config, logg *logger.Logger) (routes.Services, error) {
	gormDB := dbClient.DB()

	buildingsRepo := buildings.NewRepository(gormDB)
	floorsRepo := floors.NewRepository(gormDB)
	apartmentsRepo := apartments.NewRepository(gormDB)
	contractsRepo := contracts.NewRepository(gormDB)
	historyRepo := history.NewRepository(gormDB)
	residentsRepo := residents.NewRepository(gormDB)
	assignmentsRepo := assignments.NewRepository(gormDB)
	cascadeRepo := cascade.NewRepository(gormDB)
	invoicesRepo := invoices.NewRepository(gormDB)
	catalogRepo := catalog.NewRepository(gormDB)
	usersRepo := users.NewRepository(gormDB)
	statsRepo := stats.NewRepository(gormDB)

	buildingsSvc, err := buildings.NewService(buildingsRepo)
	if err != nil {
		return routes.Services{}, err
	}
	floorsSvc, err := floors.NewService(floorsRepo, buildingsRepo)
	if err != nil {
		return routes.Services{}, err
	}
	apartmentsSvc, err := apartments.NewService(apartmentsRepo, floorsRepo)
	if err != nil {
		return routes.Services{}, err
	}
	cascadeSvc, err := cascade.NewService(cascadeRepo, dbClient, logg)
	if err != nil {
		return routes.Services{}, err
	}
	contractsSvc, err := contracts.NewService(contractsRepo, historyRepo, dbClient, cfg.Contracts, logg)
	if err != nil {
		return routes.Services{}, err
	}
	residentsSvc, err := residents.NewService(residentsRepo, contractsSvc)
	if err != nil {
		return routes.Services{}, err
	}
	assignmentsSvc, err := assignments.NewService(assignmentsRepo, dbClient)
	if err != nil {
		return routes.Services{}, err
	}
	historySvc, err := history.NewService(historyRepo)
	if err != nil {
		return routes.Services{}, err
	}
	invoicesSvc, err := invoices.NewService(invoicesRepo, dbClient, cfg.Invoices, logg)
	if err != nil {
		return routes.Services{}, err
	}
	catalogSvc, err := catalog.NewService(catalogRepo, contractsSvc)
	if err != nil {
		return routes.Services{}, err
	}
	usersSvc, err := users.NewService(usersRepo, cfg.Password)
	if err != nil {
		return routes.Services{}, err
	}
	statsSvc, err := stats.NewService(statsRepo)
	if err != nil {
		return routes.Services{}, err
	}
	authSvc, err := auth.NewService(auth.ServiceParams{
		UserRepo:        usersRepo,
		AssignmentsRepo: assignmentsRepo,
		SessionManager:  sessionManager,
		RateLimiter:     redisClient,
		JWTConfig:       cfg.JWT,
		RateLimitConfig: cfg.AuthRateLimit,
	})
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Auth:        authSvc,
		Buildings:   buildingsSvc,
		Floors:      floorsSvc,
		Apartments:  apartmentsSvc,
		Cascade:     cascadeSvc,
		Contracts:   contractsSvc,
		Residents:   residentsSvc,
		Assignments: assignmentsSvc,
		History:     historySvc,
		Invoices:    invoicesSvc,
		Catalog:     catalogSvc,
		Users:       usersSvc,
		Stats:       statsSvc,
	}, nil
}
