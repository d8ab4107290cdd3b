package main

// @title           WePollin API
// @version         1.0
// @description     Real-time poll voting service with live tally broadcast.
// @host            localhost:8080
// @BasePath        /api/v1
// @schemes         http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DevOwais28/wepollin/internal/config"
	"github.com/DevOwais28/wepollin/internal/database"
	"github.com/DevOwais28/wepollin/internal/events"
	mongorepo "github.com/DevOwais28/wepollin/internal/repository/mongo"
	"github.com/DevOwais28/wepollin/internal/server"
	"github.com/DevOwais28/wepollin/internal/service"
	"github.com/DevOwais28/wepollin/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting wepollin server")

	db, err := database.NewMongoConnection(cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		slog.Error("Failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.Close(ctx); err != nil {
			slog.Error("MongoDB disconnect failed", "error", err)
		}
	}()

	pollRepo := mongorepo.NewPollRepository(db.DB)
	voteRepo := mongorepo.NewVoteRepository(db.DB)
	userRepo := mongorepo.NewUserRepository(db.DB)

	// The unique vote index is what enforces one-vote-per-user; refuse to
	// serve without it.
	indexCtx, cancelIndex := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelIndex()
	if err := voteRepo.EnsureIndexes(indexCtx); err != nil {
		slog.Error("Failed to create vote indexes", "error", err)
		os.Exit(1)
	}
	if err := userRepo.EnsureIndexes(indexCtx); err != nil {
		slog.Error("Failed to create user indexes", "error", err)
		os.Exit(1)
	}

	presence := service.NewPresenceService(nil)
	if cfg.Redis.Enabled {
		redisClient, err := database.NewRedisConnection(cfg.Redis.URL)
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		presence = service.NewPresenceService(redisClient)
	}

	authSvc := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expire)
	pollSvc := service.NewPollService(pollRepo, voteRepo)
	voteSvc := service.NewVoteService(pollRepo, voteRepo)

	hub := ws.NewHub(voteSvc, presence)
	voteSvc.SetBroadcaster(hub)
	go hub.Run()

	if cfg.Kafka.Enabled {
		publisher := events.NewKafkaVotePublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer publisher.Close()
		voteSvc.SetPublisher(publisher)
		slog.Info("Vote event publishing enabled", "topic", cfg.Kafka.Topic)
	}

	router := server.NewRouter(server.Services{
		Auth:     authSvc,
		Polls:    pollSvc,
		Votes:    voteSvc,
		Presence: presence,
		Hub:      hub,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("Server starting", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	hub.Stop()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server stopped")
}
