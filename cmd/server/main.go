package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/postvault/postvault/configs"
	"github.com/postvault/postvault/internal/api/handlers"
	"github.com/postvault/postvault/internal/api/middleware"
	job "github.com/postvault/postvault/internal/jobs"
	"github.com/postvault/postvault/internal/queue"
	"github.com/postvault/postvault/internal/repository"
	"github.com/postvault/postvault/internal/service"
	"github.com/postvault/postvault/internal/snapshot"
	"github.com/postvault/postvault/internal/storage"
	syncpkg "github.com/postvault/postvault/internal/sync"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	draftRepo := repository.NewDraftRepository(db)
	slotRepo := repository.NewScheduleSlotRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	tombstoneRepo := repository.NewTombstoneRepository(db)
	credentialsRepo := repository.NewCredentialsRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	apiKeyRepo := repository.NewApiKeyRepository(db)

	objects, err := storage.NewR2(*cfg)
	if err != nil {
		log.Fatalf("Failed to initialize object storage: %v", err)
	}
	snapshotStore := snapshot.NewStore(cfg.R2.PublicURL, objects)

	localState := service.NewLocalStateService(db, draftRepo, slotRepo, templateRepo, tombstoneRepo, credentialsRepo, settingsRepo)
	orchestrator := syncpkg.NewOrchestrator(snapshotStore, localState, cfg.ProfileID)

	draftService := service.NewDraftService(draftRepo, slotRepo, tombstoneRepo, orchestrator)
	scheduleService := service.NewScheduleService(slotRepo, draftRepo, tombstoneRepo, orchestrator)
	templateService := service.NewTemplateService(templateRepo, tombstoneRepo, orchestrator)
	settingsService := service.NewSettingsService(settingsRepo, orchestrator)
	credentialsService := service.NewCredentialsService(*cfg, credentialsRepo, orchestrator)
	assetService := service.NewAssetService(objects)
	apiKeyService := service.NewApiKeyService(apiKeyRepo)
	instagramService := service.NewInstagramService(*cfg)

	var notifier service.Notifier
	if cfg.NotifyWebhookURL != "" {
		notifier = service.NewWebhookNotifier(cfg.NotifyWebhookURL)
	} else {
		notifier = service.NewLogNotifier()
	}
	runnerService := service.NewRunnerService(*cfg, snapshotStore, orchestrator, instagramService, notifier)

	authMiddleware := middleware.NewAuthMiddleware(*cfg, apiKeyService)

	auth := handlers.NewAuthHandler(*cfg, apiKeyService)
	app.Post("/login", auth.Login)
	app.Post("/logout", auth.Logout)

	creds := handlers.NewCredentialsHandler(*cfg, credentialsService)
	app.Get("/auth/instagram", creds.Connect)
	app.Get("/auth/instagram/callback", creds.ConnectCallback)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	api.Get("/credentials", creds.GetCredentials)
	api.Post("/credentials/disconnect", creds.Disconnect)

	settings := handlers.NewSettingsHandler(settingsService)
	api.Get("/settings/info", settings.GetSettingsInfo)
	api.Post("/settings/update", settings.UpdateSettings)

	apiKeys := handlers.NewApiKeyHandler(apiKeyService)
	api.Post("/api_key/new", apiKeys.CreateApiKey)
	api.Get("/api_key/list", apiKeys.ListKeys)
	api.Post("/api_key/remove", apiKeys.RemoveApiKey)

	draft := handlers.NewDraftHandler(draftService)
	api.Post("/drafts/create", draft.CreateDraft)
	api.Get("/drafts", draft.ListDrafts)
	api.Put("/drafts/:id", draft.UpdateDraft)
	api.Delete("/drafts/:id", draft.RemoveDraft)

	schedule := handlers.NewScheduleHandler(scheduleService)
	api.Post("/slots/create", schedule.CreateSlot)
	api.Get("/slots", schedule.ListSlots)
	api.Put("/slots/:id", schedule.RescheduleSlot)
	api.Delete("/slots/:id", schedule.RemoveSlot)
	api.Post("/slots/:id/retry", schedule.RetrySlot)
	api.Post("/slots/:id/override", schedule.OverrideSlot)

	template := handlers.NewTemplateHandler(templateService)
	api.Post("/templates/create", template.CreateTemplate)
	api.Get("/templates", template.ListTemplates)
	api.Put("/templates/:id", template.UpdateTemplate)
	api.Delete("/templates/:id", template.RemoveTemplate)
	api.Get("/templates/default", template.GetDefaultTemplate)
	api.Post("/templates/default", template.UpdateDefaultTemplate)

	asset := handlers.NewAssetHandler(assetService)
	api.Post("/assets/upload", asset.UploadAsset)

	syncHandler := handlers.NewSyncHandler(orchestrator, client)
	api.Post("/sync/now", syncHandler.SyncNow)
	api.Post("/sync/restore", syncHandler.Restore)
	api.Get("/sync/status", syncHandler.Status)
	api.Post("/run/trigger", syncHandler.TriggerRun)

	// cron jobs
	publishRunJob := job.NewPublishRunJob(client)
	refreshJob := job.NewCredentialsRefreshJob(credentialsService)

	// queue
	queueW := queue.NewQueue(runnerService)

	c := cron.New()
	c.AddFunc("@every 01h00m00s", publishRunJob.EnqueueRun)
	c.AddFunc("@every 06h00m00s", refreshJob.RefreshTokens)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			// Publish runs must never overlap.
			Concurrency: 1,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePublishRun, queueW.HandlePublishRunTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
