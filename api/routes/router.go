package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/estatedesk/estatedesk-backend/api/controllers"
	"github.com/estatedesk/estatedesk-backend/api/middleware"
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
	"github.com/estatedesk/estatedesk-backend/pkg/redis"
)

// Services bundles everything the router wires into handlers.
type Services struct {
	Auth        auth.Service
	Buildings   buildings.Service
	Floors      floors.Service
	Apartments  apartments.Service
	Cascade     cascade.Service
	Contracts   contracts.Service
	Residents   residents.Service
	Assignments assignments.Service
	History     history.Service
	Invoices    invoices.Service
	Catalog     catalog.Service
	Users       users.Service
	Stats       stats.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessionChecker session.AccessSessionChecker,
	httpMetrics *metrics.HTTPMetrics,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	// Login throttling lives inside the auth service, so these routes
	// carry no middleware of their own.
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/login", controllers.AuthLogin(svcs.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(svcs.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(svcs.Auth, cfg.JWT, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/buildings", func(r chi.Router) {
			r.Get("/", controllers.BuildingList(svcs.Buildings, logg))
			r.Post("/", controllers.BuildingCreate(svcs.Buildings, logg))
			r.Route("/{buildingId}", func(r chi.Router) {
				r.Get("/", controllers.BuildingDetail(svcs.Buildings, logg))
				r.Put("/", controllers.BuildingUpdate(svcs.Buildings, logg))
				r.Delete("/", controllers.BuildingDelete(svcs.Buildings, logg))
				r.Post("/status", controllers.BuildingSetStatus(svcs.Cascade, logg))
				r.Get("/floors", controllers.FloorListByBuilding(svcs.Floors, logg))
				r.Get("/occupancy", controllers.StatsBuildingOccupancy(svcs.Stats, logg))
				r.Get("/assignments", controllers.AssignmentListForBuilding(svcs.Assignments, logg))
				r.Put("/primary-manager", controllers.BuildingSetPrimaryManager(svcs.Assignments, logg))
			})
		})

		r.Route("/v1/floors", func(r chi.Router) {
			r.Post("/", controllers.FloorCreate(svcs.Floors, logg))
			r.Route("/{floorId}", func(r chi.Router) {
				r.Get("/", controllers.FloorDetail(svcs.Floors, logg))
				r.Put("/", controllers.FloorRename(svcs.Floors, logg))
				r.Delete("/", controllers.FloorDelete(svcs.Floors, logg))
				r.Post("/status", controllers.FloorSetStatus(svcs.Cascade, logg))
				r.Get("/apartments", controllers.ApartmentListByFloor(svcs.Apartments, logg))
			})
		})

		r.Route("/v1/apartments", func(r chi.Router) {
			r.Get("/", controllers.ApartmentList(svcs.Apartments, logg))
			r.Post("/", controllers.ApartmentCreate(svcs.Apartments, logg))
			r.Route("/{apartmentId}", func(r chi.Router) {
				r.Get("/", controllers.ApartmentDetail(svcs.Apartments, logg))
				r.Put("/", controllers.ApartmentUpdate(svcs.Apartments, logg))
				r.Delete("/", controllers.ApartmentDelete(svcs.Apartments, logg))
			})
		})

		r.Route("/v1/contracts", func(r chi.Router) {
			r.Get("/", controllers.ContractList(svcs.Contracts, logg))
			r.Post("/", controllers.ContractCreate(svcs.Contracts, logg))
			r.Get("/next-number", controllers.ContractNumberPreview(svcs.Contracts, logg))
			r.Route("/{contractId}", func(r chi.Router) {
				r.Get("/", controllers.ContractDetail(svcs.Contracts, logg))
				r.Delete("/", controllers.ContractDelete(svcs.Contracts, logg))
				r.Post("/renew", controllers.ContractRenew(svcs.Contracts, logg))
				r.Post("/terminate", controllers.ContractTerminate(svcs.Contracts, logg))
				r.Get("/history", controllers.ContractHistory(svcs.Contracts, svcs.History, logg))
				r.Get("/members", controllers.HouseholdMemberList(svcs.Residents, logg))
				r.Get("/services", controllers.SubscriptionList(svcs.Catalog, logg))
				r.Post("/services/{serviceId}", controllers.SubscriptionCreate(svcs.Catalog, logg))
				r.Delete("/services/{serviceId}", controllers.SubscriptionDelete(svcs.Catalog, logg))
			})
		})

		r.Route("/v1/residents", func(r chi.Router) {
			r.Get("/", controllers.ResidentList(svcs.Residents, logg))
			r.Post("/", controllers.ResidentCreate(svcs.Residents, logg))
			r.Route("/{residentId}", func(r chi.Router) {
				r.Get("/", controllers.ResidentDetail(svcs.Residents, logg))
				r.Put("/", controllers.ResidentUpdate(svcs.Residents, logg))
				r.Delete("/", controllers.ResidentDelete(svcs.Residents, logg))
			})
		})

		r.Route("/v1/household-members", func(r chi.Router) {
			r.Post("/", controllers.HouseholdMemberAdd(svcs.Residents, logg))
			r.Post("/{memberId}/move-out", controllers.HouseholdMemberMoveOut(svcs.Residents, logg))
		})

		r.Route("/v1/invoices", func(r chi.Router) {
			r.Get("/", controllers.InvoiceList(svcs.Invoices, logg))
			r.Route("/{invoiceId}", func(r chi.Router) {
				r.Get("/", controllers.InvoiceDetail(svcs.Invoices, logg))
				r.Get("/lines", controllers.InvoiceLines(svcs.Invoices, logg))
				r.Post("/pay", controllers.InvoicePay(svcs.Invoices, logg))
				r.Post("/cancel", controllers.InvoiceCancel(svcs.Invoices, logg))
			})
		})

		r.Route("/v1/services", func(r chi.Router) {
			r.Get("/", controllers.ServiceList(svcs.Catalog, logg))
		})

		r.Get("/v1/stats/overview", controllers.StatsOverview(svcs.Stats, logg))

		r.Post("/v1/me/change-password", controllers.UserChangePassword(svcs.Users, logg))
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))
		r.Use(middleware.RequireAdmin(logg))

		r.Route("/v1/users", func(r chi.Router) {
			r.Get("/", controllers.UserList(svcs.Users, logg))
			r.Post("/", controllers.UserCreate(svcs.Users, logg))
			r.Route("/{userId}", func(r chi.Router) {
				r.Get("/", controllers.UserDetail(svcs.Users, logg))
				r.Put("/", controllers.UserUpdate(svcs.Users, logg))
				r.Put("/active", controllers.UserSetActive(svcs.Users, logg))
				r.Post("/reset-password", controllers.UserResetPassword(svcs.Users, logg))
				r.Put("/assignments", controllers.AssignmentReplace(svcs.Assignments, logg))
				r.Delete("/assignments/{buildingId}", controllers.AssignmentDelete(svcs.Assignments, logg))
			})
		})

		r.Post("/v1/assignments", controllers.AssignmentCreate(svcs.Assignments, logg))

		r.Post("/v1/invoices/generate", controllers.InvoiceGenerate(svcs.Invoices, logg))

		r.Route("/v1/services", func(r chi.Router) {
			r.Post("/", controllers.ServiceCreate(svcs.Catalog, logg))
			r.Put("/{serviceId}", controllers.ServiceUpdate(svcs.Catalog, logg))
			r.Delete("/{serviceId}", controllers.ServiceDeactivate(svcs.Catalog, logg))
		})

		r.Get("/v1/history", controllers.HistoryFeed(svcs.History, logg))
	})

	return r
}
