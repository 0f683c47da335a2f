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

	"millionaire-quiz-engine/internal/bank"
	"millionaire-quiz-engine/internal/config"
	"millionaire-quiz-engine/internal/engine"
	csvsource "millionaire-quiz-engine/internal/infra/csv"
	"millionaire-quiz-engine/internal/infra/memory"
	pgloader "millionaire-quiz-engine/internal/infra/postgres"
	redisinfra "millionaire-quiz-engine/internal/infra/redis"
	transport "millionaire-quiz-engine/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz engine server",
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

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.RecordLoader = memory.NewStaticRecordLoader(sampleDatasets())
	switch {
	case pool != nil:
		loader = pgloader.NewQuestionLoader(pool)
	case cfg.Quiz.DataDir != "":
		loader = csvsource.NewSource(cfg.Quiz.DataDir)
	}

	bankTTL := config.Duration(cfg.Quiz.TTL, 10*time.Minute)
	var banks engine.BankRepository
	if redisClient != nil {
		banks = redisinfra.NewBankRepository(redisClient, loader, bankTTL)
	} else {
		banks = memory.NewBankRepository(loader, bankTTL)
	}

	var store engine.ProgressStore
	if redisClient != nil {
		store = redisinfra.NewProgressStore(redisClient, "quiz:progress", cfg.Quiz.HistoryLimit)
	} else {
		store = memory.NewProgressStore()
	}

	engineCfg := engine.Config{
		PrizeLadder:   cfg.Quiz.Prizes,
		MaxQuestions:  cfg.Quiz.MaxQuestions,
		SuspenseDelay: config.Duration(cfg.Quiz.SuspenseDelay, engine.DefaultSuspenseDelay),
		HistoryLimit:  cfg.Quiz.HistoryLimit,
	}
	factory := func(p engine.Presenter) *engine.Controller {
		return engine.NewController(banks, store, p, nil, nil, nil, engineCfg)
	}

	datasetID := cfg.Quiz.Dataset
	if datasetID == "" {
		datasetID = "sample"
	}
	wsHandler := transport.NewWSHandler(factory, banks, store, datasetID)

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
		log.Printf("starting quiz engine on :%s", finalPort)
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

// sampleDatasets provides a minimal question set; swap in the CSV or
// Postgres loader via config for real data.
func sampleDatasets() map[string][]bank.Record {
	return map[string][]bank.Record{
		"sample": {
			{ID: "q1", Unit: "geometry", Text: "How many degrees do the angles of a triangle sum to?", CorrectAnswer: "180", Explanation: "The interior angles of any triangle always sum to 180 degrees.", Columns: 6},
			{ID: "q2", Unit: "geometry", Text: "How many sides does a hexagon have?", CorrectAnswer: "6", Columns: 6},
			{ID: "q3", Unit: "geometry", Text: "How many degrees is a right angle?", CorrectAnswer: "90", Columns: 6},
			{ID: "q4", Unit: "arithmetic", Text: "What is 7 times 8?", CorrectAnswer: "56", Columns: 6},
			{ID: "q5", Unit: "arithmetic", Text: "What is the square root of 144?", CorrectAnswer: "12", Columns: 6},
		},
	}
}
