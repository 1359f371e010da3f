package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	zlog "github.com/rs/zerolog/log"

	"github.com/pulsohq/pulso-kpi-be/internal/core/jobs"
	"github.com/pulsohq/pulso-kpi-be/internal/modules/kpi/handlers"
	"github.com/pulsohq/pulso-kpi-be/internal/modules/kpi/services"
	"github.com/pulsohq/pulso-kpi-be/internal/modules/kpi/store"
	"github.com/pulsohq/pulso-kpi-be/internal/shared/config"
	"github.com/pulsohq/pulso-kpi-be/internal/shared/utils"
)

func main() {
	// Load config
	cfg := config.LoadConfig()
	utils.InitLogger(cfg.Env)
	log.Printf("🚀 Starting kpi-api on port %s", cfg.Port)

	// Init catalog store
	st, err := store.New(store.Config{
		Persist: cfg.Persistence,
		Path:    cfg.DataPath,
	}, zlog.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize catalog store: %v", err)
	}
	if cfg.Persistence {
		log.Printf("💾 Persistence enabled: %s", cfg.DataPath)
	} else {
		log.Printf("⚠️  Persistence disabled, catalog lives in memory only")
	}

	// Init services
	catalogService := services.NewCatalogService(st, zlog.Logger)
	resolveService := services.NewResolveService(st, catalogService, zlog.Logger)

	// Init autosave job
	autosave, err := jobs.NewAutosave(st, cfg.AutosaveCron)
	if err != nil {
		log.Fatalf("Failed to initialize autosave: %v", err)
	}
	autosave.Start()
	defer autosave.Stop()

	// Init handlers
	healthHandler := handlers.NewHealthHandler(st)
	catalogHandler := handlers.NewCatalogHandler(st, catalogService)
	dashboardHandler := handlers.NewDashboardHandler(catalogService)
	resolveHandler := handlers.NewResolveHandler(resolveService)
	snapshotHandler := handlers.NewSnapshotHandler(st)

	// Init Fiber app
	app := fiber.New(fiber.Config{
		AppName: "Pulso KPI API",
	})

	// Middleware
	app.Use(cors.New())

	// Health check
	app.Get("/health", healthHandler.GetHealth)

	// Catalog routes
	app.Get("/catalog/:collection", catalogHandler.List)
	app.Post("/catalog/:collection", catalogHandler.Create)
	app.Get("/catalog/:collection/:id", catalogHandler.Get)
	app.Put("/catalog/:collection/:id", catalogHandler.Update)
	app.Delete("/catalog/:collection/:id", catalogHandler.Delete)
	app.Post("/catalog/:collection/:id/clone", catalogHandler.Clone)

	// Dashboard / editor routes
	app.Get("/dashboard", dashboardHandler.FetchDashboard)
	app.Post("/definitions/bundle", dashboardHandler.SaveMetricBundle)
	app.Get("/definitions/:id/bundle", dashboardHandler.GetMetricBundle)
	app.Post("/widgets/save", dashboardHandler.SaveWidget)
	app.Put("/dashboards/:id/layout", dashboardHandler.SaveLayout)

	// Resolution routes
	app.Post("/resolve/dashboard", resolveHandler.ResolveDashboard)
	app.Post("/resolve/widgets/:id", resolveHandler.ResolveWidget)
	app.Post("/resolve/metrics/:id", resolveHandler.ResolveMetric)

	// Snapshot / history routes
	app.Get("/snapshot", snapshotHandler.Export)
	app.Post("/snapshot", snapshotHandler.Import)
	app.Post("/snapshot/save", snapshotHandler.Save)
	app.Post("/reset", snapshotHandler.Reset)
	app.Post("/undo", snapshotHandler.Undo)
	app.Post("/redo", snapshotHandler.Redo)

	// Start server
	log.Printf("✅ kpi-api running at :%s", cfg.Port)
	log.Fatal(app.Listen(":" + cfg.Port))
}
