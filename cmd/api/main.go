package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/feedback-service/internal/ai"
	httptransport "github.com/spec-kit/feedback-service/internal/api/http"
	"github.com/spec-kit/feedback-service/internal/api/http/handlers"
	"github.com/spec-kit/feedback-service/internal/auth"
	"github.com/spec-kit/feedback-service/internal/cache"
	"github.com/spec-kit/feedback-service/internal/config"
	"github.com/spec-kit/feedback-service/internal/events"
	"github.com/spec-kit/feedback-service/internal/observability"
	"github.com/spec-kit/feedback-service/internal/routing"
	"github.com/spec-kit/feedback-service/internal/service"
	"github.com/spec-kit/feedback-service/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	metrics := observability.NewMetrics(nil)

	db, err := store.Open(store.Options{
		SnapshotPath: cfg.Store.SnapshotPath,
		UploadDir:    cfg.Store.UploadDir,
		BcryptCost:   cfg.Auth.BcryptCost,
		Logger:       logger,
		Metrics:      metrics,
	})
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}

	redis := cache.NewRedis(cfg.Redis, logger)
	if redis != nil {
		defer redis.Close()
	}
	classifyCache := cache.NewClassificationCache(redis, cfg.Redis.CacheTTL, logger)

	// NewGroqClient returns nil without an API key; the classifier falls
	// back to its heuristic pass whenever the client is absent.
	var aiClient ai.Client
	if groq := ai.NewGroqClient(cfg.AI, logger); groq != nil {
		aiClient = groq
	}
	classifier := ai.NewClassifier(aiClient, classifyCache, metrics, logger, cfg.AI.Timeout())

	router := routing.NewEngine(db, metrics, logger)
	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(db, cfg.Auth, logger)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), db)

	var mailer service.Mailer
	if m := service.NewLogMailer(cfg.Notification, logger); m != nil {
		mailer = m
	}

	complaintService := service.NewComplaintService(service.ComplaintDependencies{
		Store:      db,
		Classifier: classifier,
		Router:     router,
		Dispatcher: dispatcher,
		Plants:     cfg.Store.Plants,
		Logger:     logger,
	})
	replyService := service.NewReplyService(db, mailer, dispatcher, logger)
	attachmentService := service.NewAttachmentService(db, cfg.Store.UploadDir, cfg.Store.MaxFileSize, logger)
	reportService := service.NewReportService(db, classifier, cfg.Report.DefaultRecipients, logger)
	userService := service.NewUserService(db, cfg.Store.Plants, logger)
	categoryService := service.NewCategoryService(db, logger)

	notificationService := service.NewNotificationService(db, dispatcher, metrics, logger, cfg.Notification)
	notificationService.RegisterHandlers()

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: int(cfg.Store.MaxFileSize) + 1024*1024,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, db, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Complaints:     handlers.NewComplaintsHandler(complaintService),
		Replies:        handlers.NewRepliesHandler(replyService),
		Attachments:    handlers.NewAttachmentsHandler(attachmentService),
		Admin:          handlers.NewAdminHandler(userService, categoryService, db),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		Reports:        handlers.NewReportsHandler(reportService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
