package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shopgrid/catalog-engine/api/controllers"
	"github.com/shopgrid/catalog-engine/api/middleware"
	"github.com/shopgrid/catalog-engine/internal/catalog"
	"github.com/shopgrid/catalog-engine/internal/importer"
	"github.com/shopgrid/catalog-engine/internal/inventory"
	"github.com/shopgrid/catalog-engine/internal/moderation"
	"github.com/shopgrid/catalog-engine/pkg/config"
	"github.com/shopgrid/catalog-engine/pkg/db"
	"github.com/shopgrid/catalog-engine/pkg/enums"
	"github.com/shopgrid/catalog-engine/pkg/logger"
	"github.com/shopgrid/catalog-engine/pkg/redis"
)

// NewRouter wires the HTTP surface over the domain services.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	registry *prometheus.Registry,
	catalogService catalog.Service,
	inventoryService inventory.Service,
	moderationService moderation.Service,
	importService importer.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProductsByStatus(catalogService, logg))
			r.Post("/submit", controllers.SubmitProduct(catalogService, logg))
			r.Post("/custom", controllers.CreateCustomProduct(catalogService, logg))
			r.Patch("/custom/{productID}", controllers.UpdateCustomProduct(catalogService, logg))
			r.Post("/custom/{productID}/promotion", controllers.RequestPromotion(moderationService, logg))
			r.Get("/{productID}", controllers.GetProduct(catalogService, logg))
			r.Get("/{productID}/history", controllers.GetStatusHistory(moderationService, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Post("/", controllers.AddToInventory(inventoryService, logg))
			r.Get("/products", controllers.ListVisibleProducts(inventoryService, logg))
			r.Post("/{productID}/stock", controllers.UpdateStock(inventoryService, logg))
			r.Get("/{productID}/movements", controllers.ListStockMovements(inventoryService, logg))
			r.Delete("/{productID}", controllers.RemoveFromInventory(inventoryService, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.ActorRoleAdmin), logg))

			r.Patch("/products/{productID}/status", controllers.UpdateProductStatus(moderationService, logg))
			r.Post("/products/status", controllers.BulkUpdateProductStatus(moderationService, logg))
			r.Post("/products/{productID}/promotion/approve", controllers.ApprovePromotion(moderationService, logg))
			r.Post("/products/{productID}/promotion/reject", controllers.RejectPromotion(moderationService, logg))

			r.Route("/imports", func(r chi.Router) {
				r.Post("/preview", controllers.PreviewImport(importService, logg))
				r.Post("/", controllers.CommitImport(importService, logg))
				r.Get("/{jobID}", controllers.GetImportJob(importService, logg))
				r.Post("/{jobID}/cancel", controllers.CancelImportJob(importService, logg))
			})
		})
	})

	return r
}
