package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"engtest-service/internal/ai"
	"engtest-service/internal/app"
	"engtest-service/internal/config"
	"engtest-service/internal/infra/memory"
	pgstate "engtest-service/internal/infra/postgres"
	redisstate "engtest-service/internal/infra/redis"
	transport "engtest-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the exam server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
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

	// Persistence backend: Redis when configured (it also carries change
	// notifications between processes), else Postgres, else in-memory only.
	var backend memory.Backend
	var watcher *redisstate.StateBackend
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rb := redisstate.NewStateBackend(client)
		backend = rb
		watcher = rb
	} else if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		backend = pgstate.NewStateBackend(pool)
	}

	store := memory.NewStateStore(ctx, backend)
	if watcher != nil {
		keys, cancelWatch := watcher.Watch(ctx)
		defer cancelWatch()
		go func() {
			for key := range keys {
				store.ApplyRemote(ctx, key)
			}
		}()
	}

	var generator app.Generator
	var analyzer app.Analyzer
	client := ai.NewClient(cfg.AI.URL, cfg.AI.Key, cfg.AI.Model, config.Duration(cfg.AI.Timeout, 60*time.Second))
	if client.Available() {
		generator, analyzer = client, client
	} else {
		log.Printf("no AI credentials configured, using the built-in static generator")
		static := ai.NewStatic()
		generator, analyzer = static, static
	}

	password := cfg.Teacher.Password
	if password == "" {
		password = "gv2024"
	}

	examService := app.NewExamService(store, generator)
	attemptService := app.NewAttemptService(store)
	analyticsService := app.NewAnalyticsService(store, analyzer, config.Duration(cfg.Analysis.TTL, 5*time.Minute))
	wsHandler := transport.NewWSHandler(examService, attemptService, analyticsService, store, password)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting engtest service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
