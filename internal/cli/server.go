package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"code-session-service/internal/app"
	"code-session-service/internal/config"
	"code-session-service/internal/domain"
	"code-session-service/internal/infra/judge"
	"code-session-service/internal/infra/memory"
	pgloader "code-session-service/internal/infra/postgres"
	redisinfra "code-session-service/internal/infra/redis"
	transport "code-session-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the editor session server",
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

	retention := config.Duration(cfg.Drafts.Retention, 7*24*time.Hour)
	var drafts app.DraftStore
	if redisClient != nil {
		drafts = redisinfra.NewDraftStore(redisClient, retention)
	} else {
		drafts = memory.NewDraftStore(retention)
	}

	var progress app.ProgressRepository
	var assignments app.AssignmentRepository
	var assignmentLoader redisinfra.AssignmentLoader
	if pool != nil {
		loader := pgloader.NewLoader(pool)
		progress = loader
		assignments = loader
		assignmentLoader = loader
	} else {
		static := sampleAssignments()
		progress = memory.NewStaticProgressRepo(nil)
		assignments = static
		assignmentLoader = static
	}
	if redisClient != nil {
		metaTTL := config.Duration(cfg.Redis.TTL, 10*time.Minute)
		assignments = redisinfra.NewAssignmentRepository(redisClient, assignmentLoader, metaTTL)
	}

	var judgeClient app.JudgeClient
	if cfg.Judge.URL != "" {
		judgeClient = judge.NewClient(cfg.Judge.URL, config.Duration(cfg.Judge.Timeout, 30*time.Second))
	} else {
		log.Printf("no judge endpoint configured, submissions will be accepted by a stub")
		judgeClient = &memory.StubJudge{Result: domain.SubmissionResult{
			SubmissionID: "stub",
			RawVerdict:   domain.VerdictAccepted,
		}}
	}

	wsHandler := transport.NewWSHandler(drafts, progress, assignments, judgeClient, transport.SessionConfig{
		AutosaveInterval: config.Duration(cfg.Autosave.Interval, 30*time.Second),
		StatusRevert:     config.Duration(cfg.Autosave.StatusRevert, 2*time.Second),
		WarnWindow:       config.Duration(cfg.Deadline.WarnWindow, 5*time.Minute),
		ClearedNotice:    config.Duration(cfg.Deadline.ClearedNotice, 3*time.Second),
	})

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
		log.Printf("starting editor session service on :%s", finalPort)
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

// sampleAssignments provides minimal metadata for redis/postgres-less demo
// runs: one untimed assignment and one timed quiz section.
func sampleAssignments() *memory.StaticAssignmentRepo {
	return memory.NewStaticAssignmentRepo(map[int64]domain.Assignment{
		1: {SectionID: 1, Active: true},
		2: {SectionID: 2, EndAt: time.Now().Add(30 * time.Minute), Active: true},
	})
}
