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
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/promptlab-dev/promptlab-api/internal/config"
	"github.com/promptlab-dev/promptlab-api/internal/database"
	"github.com/promptlab-dev/promptlab-api/internal/handler"
	"github.com/promptlab-dev/promptlab-api/internal/middleware"
	"github.com/promptlab-dev/promptlab-api/internal/models"
	"github.com/promptlab-dev/promptlab-api/internal/repository"
	"github.com/promptlab-dev/promptlab-api/internal/router"
	"github.com/promptlab-dev/promptlab-api/internal/service"
	"github.com/promptlab-dev/promptlab-api/pkg/ai"
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

	if err := db.AutoMigrate(&models.User{}, &models.PromptEvaluation{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, feed fan-out limited to this node")
		} else {
			defer natsConn.Close()
		}
	}

	var aiClient ai.Client
	if cfg.OpenAIAPIKey != "" {
		aiClient, err = ai.NewOpenAIClient(ai.OpenAIConfig{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.OpenAIModel,
			OrgContext: cfg.OrgContext,
			Logger:     logger,
		})
		if err != nil {
			log.Fatalf("failed to create openai client: %v", err)
		}
	} else {
		logger.Warn().Msg("openai api key missing, generation and evaluation endpoints disabled")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	evaluationRepo := repository.NewEvaluationRepository(db)
	userRepo := repository.NewUserRepository(db)

	feedService := service.NewFeedService(redisClient, cfg.FeedChannelBase, natsConn, logger)
	useCaseService := service.NewUseCaseService(aiClient, validate, logger)
	evaluationService := service.NewEvaluationService(evaluationRepo, userRepo, aiClient, feedService, validate, logger)
	editSessionService := service.NewEditSessionService(evaluationRepo, redisClient, cfg.EditSessionTTL, logger)
	adminService := service.NewAdminService(evaluationRepo, userRepo, redisClient, cfg.AdminCacheTTL, cfg.AdminWindow, logger)

	useCaseHandler := handler.NewUseCaseHandler(useCaseService, logger)
	evaluationHandler := handler.NewEvaluationHandler(evaluationService, editSessionService, logger)
	adminHandler := handler.NewAdminHandler(adminService, logger)
	feedHandler := handler.NewFeedHandler(feedService, logger, cfg.StreamKeepAlive)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		UseCaseHandler:    useCaseHandler,
		EvaluationHandler: evaluationHandler,
		AdminHandler:      adminHandler,
		FeedHandler:       feedHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
		GenerateLimiter:   middleware.RateLimit("generate", cfg.RateLimitMax, cfg.RateLimitWindow),
		EvaluateLimiter:   middleware.RateLimit("evaluate", cfg.RateLimitMax, cfg.RateLimitWindow),
	})

	feedCtx, stopFeed := context.WithCancel(context.Background())
	defer stopFeed()
	feedService.Start(feedCtx)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
