package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"chat-client/internal/config"
	"chat-client/internal/db"
	"chat-client/internal/handlers"
	"chat-client/internal/logging"
	"chat-client/internal/middleware"
	"chat-client/internal/observability"
	"chat-client/internal/repositories"
	"chat-client/internal/ws"
)

func main() {
	configPath := flag.String("config", "", "directory containing devserver.yaml")
	flag.Parse()

	cfg, err := config.LoadServer(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := logging.Init(cfg.Log, "chat-devserver")

	shutdown, err := observability.InitTracer(context.Background(), "chat-devserver", cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init tracer")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(ctx)
	}()

	if cfg.AMQPURL != "" {
		publisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to amqp")
		}
		defer publisher.Close()
		observability.SetPublisher(publisher)
	}

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to db")
	}
	if err := db.Seed(database); err != nil {
		logger.Fatal().Err(err).Msg("failed to seed db")
	}

	userRepo := repositories.NewUserRepo(database)
	messageRepo := repositories.NewMessageRepo(database)

	hub := ws.NewHub(logger)
	chatWS := ws.NewChatWebSocketHandler(hub, userRepo, messageRepo, logger)

	userHandler := handlers.NewUserHandler(userRepo)
	messageHandler := handlers.NewMessageHandler(messageRepo)
	uploadHandler, err := handlers.NewUploadHandler(cfg.UploadDir, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init upload handler")
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("chat-devserver"))
	router.Use(observability.HTTPMetricsMiddleware())

	apiGroup := router.Group("/api")
	apiGroup.Use(middleware.AuthMiddleware(userRepo))
	{
		apiGroup.GET("/users", userHandler.ListUsers)
		apiGroup.GET("/messages/:peer_id", messageHandler.GetConversation)
		apiGroup.POST("/upload", uploadHandler.Upload)
	}

	router.GET("/ws/chat/:user_id", chatWS.Handle)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.Static("/uploads", cfg.UploadDir)

	logger.Info().Str("port", cfg.Port).Msg("devserver listening")
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
