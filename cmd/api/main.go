package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/blindpi/arccm-api/internal/config"
	"github.com/blindpi/arccm-api/internal/database"
	"github.com/blindpi/arccm-api/internal/handler"
	"github.com/blindpi/arccm-api/internal/middleware"
	"github.com/blindpi/arccm-api/internal/models"
	"github.com/blindpi/arccm-api/internal/repository"
	"github.com/blindpi/arccm-api/internal/router"
	"github.com/blindpi/arccm-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.RequirementDefinition{},
		&models.ComplianceRecord{},
		&models.TierHistory{},
		&models.ProgressionPath{},
		&models.ProgressionRequirement{},
		&models.AuditEvent{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NatsURL, cfg.AppName)
	if err != nil {
		// The engine degrades to single-node fanout when NATS is unreachable.
		logger.Warn().Err(err).Msg("nats unavailable, change feed runs without cross-node fanout")
		natsConn = nil
	} else {
		defer natsConn.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	requirementRepo := repository.NewRequirementRepository(db)
	recordRepo := repository.NewRecordRepository(db)
	tierHistoryRepo := repository.NewTierHistoryRepository(db)
	progressionRepo := repository.NewProgressionRepository(db)
	auditLogRepo := repository.NewAuditLogRepository(db)

	locks := service.NewUserLocks()
	engine := service.NewAssignmentEngine(requirementRepo, recordRepo)

	rootCtx, stopConsumers := context.WithCancel(context.Background())
	defer stopConsumers()

	auditService := service.NewAuditService(auditLogRepo, validate, logger)
	statisticsService := service.NewStatisticsService(userRepo, recordRepo, redisClient, cfg.StatsCacheTTL, logger)
	changeFeed := service.NewChangeFeedService(redisClient, cfg.EventChannelBase, natsConn, logger)
	changeFeed.Start(rootCtx)

	tierService := service.NewTierService(db, userRepo, tierHistoryRepo, engine, locks, auditService, changeFeed, statisticsService, logger)
	recordService := service.NewRecordService(recordRepo, validate, auditService, changeFeed, statisticsService, logger)
	progressionService := service.NewProgressionService(db, userRepo, recordRepo, progressionRepo, engine, locks, auditService, changeFeed, statisticsService, logger)
	catalogService, err := service.NewCatalogService(requirementRepo, validate, auditService, logger)
	if err != nil {
		log.Fatalf("failed to create catalog service: %v", err)
	}
	seedService := service.NewSeedService(requirementRepo, progressionRepo, cfg.SeedEnabled, cfg.SeedToken, logger)

	tierHandler := handler.NewTierHandler(tierService, logger)
	recordHandler := handler.NewRecordHandler(recordService, logger)
	progressionHandler := handler.NewProgressionHandler(progressionService, logger)
	statisticsHandler := handler.NewStatisticsHandler(statisticsService, logger)
	auditHandler := handler.NewAuditHandler(auditService, logger)
	catalogHandler := handler.NewCatalogHandler(catalogService, logger)
	seedHandler := handler.NewSeedHandler(seedService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		TierHandler:        tierHandler,
		RecordHandler:      recordHandler,
		ProgressionHandler: progressionHandler,
		StatisticsHandler:  statisticsHandler,
		AuditHandler:       auditHandler,
		CatalogHandler:     catalogHandler,
		SeedHandler:        seedHandler,
		JWTMiddleware:      middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, stopConsumers)
}

func waitForShutdown(app *fiber.App, stopConsumers context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	stopConsumers()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
