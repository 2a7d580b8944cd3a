package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quiz-engine/internal/app"
	"quiz-engine/internal/config"
	"quiz-engine/internal/infra/file"
	"quiz-engine/internal/infra/memory"
	pgloader "quiz-engine/internal/infra/postgres"
	redisinfra "quiz-engine/internal/infra/redis"
	"quiz-engine/internal/logger"
	transport "quiz-engine/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string, envPort string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the quiz WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
	cmd.Flags().StringVar(port, "port", envPort, "port to listen on (overrides server.port)")
	return cmd
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var db *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		db, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer db.Close()
	}

	pools := buildPoolRepository(cfg, db, redisClient, log)

	var store sessionStore
	if redisClient != nil {
		store = redisinfra.NewSessionStore(redisClient, redisTTL, log)
	} else {
		store = memory.NewSessionStore()
	}
	service := app.NewQuizService(store, pools, runnerConfig(cfg), log)
	wsHandler := transport.NewWSHandler(service, transport.Defaults{
		PoolID: cfg.DefaultPool(),
		Count:  cfg.QuestionCount(),
	}, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthHandler(store, log))
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           mux,
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting quiz engine", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sessionStore is a session repository that can also report how many sessions are live.
type sessionStore interface {
	app.SessionRepository
	CountLive(ctx context.Context) (int, error)
}

type healthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

// healthHandler reports liveness plus the number of live quiz sessions. A failing
// count degrades the status but still answers 200 so the process is not restarted.
func healthHandler(store sessionStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		n, err := store.CountLive(r.Context())
		if err != nil {
			log.Warn("count live sessions", zap.Error(err))
			resp.Status = "degraded"
		}
		resp.Sessions = n
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// buildPoolRepository picks the pool source (Postgres, a directory of files, a single
// file, or the built-in sample) and puts a Redis or in-memory cache in front of it.
func buildPoolRepository(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client, log *zap.Logger) app.PoolRepository {
	var loader memory.PoolLoader
	switch {
	case db != nil:
		loader = pgloader.NewPoolLoader(db)
	case cfg.Pool.Dir != "":
		loader = file.NewPoolLoader(cfg.Pool.Dir)
	case cfg.Pool.Path != "" && fileExists(cfg.Pool.Path):
		loader = file.NewSinglePoolLoader(cfg.Pool.Path, cfg.DefaultPool())
	default:
		log.Warn("no question source configured, serving the sample pool", zap.String("pool_id", cfg.DefaultPool()))
		loader = memory.NewStaticPoolLoader(samplePools(cfg.DefaultPool()))
	}

	ttl := config.TTLDuration(cfg.Pool.TTL, 10*time.Minute)
	if redisClient != nil {
		return redisinfra.NewPoolRepository(redisClient, loader, ttl, log)
	}
	return memory.NewPoolRepository(loader, ttl)
}

func runnerConfig(cfg config.Config) app.RunnerConfig {
	def := app.DefaultRunnerConfig()
	return app.RunnerConfig{
		TimeLimit: config.TTLDuration(cfg.Quiz.TimeLimit, def.TimeLimit),
		Tick:      config.TTLDuration(cfg.Quiz.Tick, def.Tick),
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
