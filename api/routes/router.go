package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/auditmagic/api/controllers"
	"github.com/angelmondragon/auditmagic/api/middleware"
	"github.com/angelmondragon/auditmagic/internal/grouping"
	"github.com/angelmondragon/auditmagic/internal/items"
	"github.com/angelmondragon/auditmagic/internal/itemtypes"
	"github.com/angelmondragon/auditmagic/internal/ledger"
	"github.com/angelmondragon/auditmagic/internal/search"
	"github.com/angelmondragon/auditmagic/pkg/config"
	"github.com/angelmondragon/auditmagic/pkg/db"
	"github.com/angelmondragon/auditmagic/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	gatherer prometheus.Gatherer,
	typesService itemtypes.Service,
	itemsService items.Service,
	groupingService grouping.Service,
	ledgerService ledger.Service,
	searchService search.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)
	if len(cfg.App.CORSOrigins) > 0 {
		r.Use(middleware.CORS(cfg.App.CORSOrigins))
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP))
	})

	if cfg.Metrics.Enabled && gatherer != nil {
		r.Method(http.MethodGet, cfg.Metrics.Path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/types", func(r chi.Router) {
			r.Get("/", controllers.ListItemTypes(typesService, logg))
			r.Post("/resolve", controllers.ResolveItemType(typesService, logg))
			r.Get("/lookup", controllers.LookupItemType(typesService, logg))
			r.Get("/names", controllers.AutocompleteTypeNames(typesService, logg))
			r.Get("/sub-types", controllers.AutocompleteSubTypes(typesService, logg))

			r.Route("/{typeId}", func(r chi.Router) {
				r.Get("/", controllers.GetItemType(typesService, logg))
				r.Patch("/", controllers.UpdateItemType(typesService, logg))
				r.Delete("/", controllers.DeleteItemType(typesService, logg))
				r.Get("/items", controllers.ListTypeItems(itemsService, logg))
				r.Get("/group", controllers.GroupForType(groupingService, logg))
				r.Post("/bulk", controllers.CreateBulkItem(itemsService, logg))
				r.Post("/merge", controllers.MergeBulkItem(itemsService, logg))
				r.Post("/units", controllers.CreateSerializedUnit(itemsService, logg))
				r.Post("/units/delete", controllers.DeleteSerializedUnits(itemsService, logg))
			})
		})

		r.Get("/groups", controllers.ListGroups(groupingService, logg))

		r.Route("/items", func(r chi.Router) {
			r.Get("/", controllers.FindItems(itemsService, logg))
			r.Route("/{itemId}", func(r chi.Router) {
				r.Get("/", controllers.GetItem(itemsService, logg))
				r.Patch("/", controllers.EditItem(itemsService, logg))
				r.Delete("/", controllers.DeleteBulkItem(itemsService, logg))
				r.Post("/add", controllers.AddQuantity(itemsService, logg))
				r.Post("/remove", controllers.RemoveQuantity(itemsService, logg))
			})
		})

		r.Get("/ledger", controllers.ListLedger(ledgerService, logg))

		r.Route("/search", func(r chi.Router) {
			r.Get("/", controllers.Search(searchService, logg))
			r.Get("/autocomplete", controllers.Autocomplete(searchService, logg))
			r.Get("/history", controllers.SearchHistory(searchService, logg))
			r.Delete("/history", controllers.ClearSearchHistory(searchService, logg))
		})
	})

	return r
}
