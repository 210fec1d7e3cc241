package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-backend/internal/app"
	"quiz-backend/internal/auth"
	"quiz-backend/internal/config"
	"quiz-backend/internal/infra/memory"
	"quiz-backend/internal/infra/postgres"
	rediscache "quiz-backend/internal/infra/redis"
	"quiz-backend/internal/logger"
	transport "quiz-backend/internal/transport/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const devSecret = "dev-secret-change-me"

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// repositories is the storage backend behind the services.
type repositories interface {
	app.UserRepository
	app.QuizRepository
	app.ResultRepository
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logger.New(logger.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	defer func() { _ = log.Sync() }()

	var repos repositories
	if cfg.Postgres.URL != "" {
		store, err := postgres.Open(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := applyMigrations(ctx, store.DB(), log); err != nil {
			return err
		}
		repos = store
		log.Info("using postgres storage")
	} else {
		repos = memory.NewStore()
		log.Warn("postgres url not configured, using in-memory storage")
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return err
		}
	}

	quizTTL := config.TTLDuration(cfg.Quiz.CacheTTL, 10*time.Minute)
	var (
		quizCache app.QuizCache
		blacklist app.TokenBlacklist
	)
	if redisClient != nil {
		quizCache = rediscache.NewQuizCache(redisClient, repos, quizTTL)
		blacklist = rediscache.NewTokenBlacklist(redisClient)
	} else {
		quizCache = memory.NewQuizCache(repos, quizTTL)
		blacklist = memory.NewTokenBlacklist()
	}

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = devSecret
		log.Warn("jwt secret not configured, using development secret")
	}
	tokens := auth.NewTokenIssuer(secret, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))

	feed := app.NewResultFeed()
	services := transport.Services{
		Accounts:    app.NewAccountService(repos, auth.NewBcryptHasher(cfg.Auth.BcryptCost), tokens, blacklist),
		Quizzes:     app.NewQuizService(repos),
		Submissions: app.NewSubmissionService(quizCache, repos, feed),
		Results:     app.NewResultsService(repos),
		Feed:        feed,
	}

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := transport.NewRouter(services, transport.Options{
		Logger:     log,
		RateLimit:  cfg.RateLimit.Requests,
		RateWindow: config.TTLDuration(cfg.RateLimit.Window, time.Minute),
	})

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  config.TTLDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.TTLDuration(cfg.Server.WriteTimeout, 15*time.Second),
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("starting quiz api", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	case err := <-serverErr:
		log.Error("server failed", zap.Error(err))
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
