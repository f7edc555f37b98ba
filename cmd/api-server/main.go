package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/carelink/telehealth-scheduling/internal/api"
	"github.com/carelink/telehealth-scheduling/internal/appointment"
	"github.com/carelink/telehealth-scheduling/internal/config"
	"github.com/carelink/telehealth-scheduling/internal/db"
	"github.com/carelink/telehealth-scheduling/internal/meeting"
	"github.com/carelink/telehealth-scheduling/internal/notify"
	redisclient "github.com/carelink/telehealth-scheduling/internal/redis"
	"github.com/carelink/telehealth-scheduling/internal/storage"
)

const version = "0.3.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s", cfg.Env, cfg.HTTPPort)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	repo := appointment.NewPgRepository(pgPool)
	locker := redisclient.NewRedisBookingLocker(rdb, cfg.LockTTL)
	appts := appointment.NewService(repo, locker, notify.LogNotifier{}, cfg)

	var store storage.RecordingStore
	if cfg.RecordingStoreURL != "" {
		store = storage.NewHTTPStore(cfg.RecordingStoreURL)
		log.Printf("recording uploads enabled store=%s", cfg.RecordingStoreURL)
	} else {
		log.Println("no recording store configured, uploads disabled")
	}

	meetings := meeting.NewService(meeting.NewPgRepository(pgPool), appts, store)

	handler := api.NewRouter(api.RouterConfig{
		Appointments: appts,
		Meetings:     meetings,
		PgPool:       pgPool,
		Redis:        rdb,
		Env:          cfg.Env,
		Version:      version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-rootCtx.Done()

	log.Println("shutting down api-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
