package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/bitetrack-backend/api/controllers"
	"github.com/angelmondragon/bitetrack-backend/api/middleware"
	"github.com/angelmondragon/bitetrack-backend/internal/drops"
	"github.com/angelmondragon/bitetrack-backend/internal/sales"
	"github.com/angelmondragon/bitetrack-backend/pkg/config"
	"github.com/angelmondragon/bitetrack-backend/pkg/db"
	"github.com/angelmondragon/bitetrack-backend/pkg/logger"
	"github.com/angelmondragon/bitetrack-backend/pkg/redis"
)

// NewRouter mounts health, metrics and the versioned inventory API. A nil
// idempotency store disables replay protection; a nil metrics handler leaves
// /metrics unmounted.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP db.Pinger,
	idempotencyStore redis.IdempotencyStore,
	salesService sales.Service,
	dropsService drops.Service,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	readiness := map[string]controllers.Pinger{}
	if dbP != nil {
		readiness["db"] = dbP
	}
	if redisP != nil {
		readiness["redis"] = redisP
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg.App.Env))
		r.Get("/ready", controllers.HealthReady(cfg.App.Env, readiness, logg))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Actor(logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/sales", func(r chi.Router) {
			r.Post("/", controllers.CreateSale(salesService, logg))
			r.Get("/{saleId}", controllers.GetSale(salesService, logg))
			r.Post("/{saleId}/settlement", controllers.SettleSale(salesService, logg))
		})

		r.Route("/inventory/drops", func(r chi.Router) {
			r.Post("/", controllers.DropInventory(dropsService, logg))
			r.Get("/", controllers.ListDrops(dropsService, logg))
			r.Get("/summary", controllers.WasteSummary(dropsService, logg))
			r.Get("/{dropId}", controllers.GetDrop(dropsService, logg))
			r.Post("/{dropId}/undo", controllers.UndoDrop(dropsService, logg))
		})
	})

	return r
}
