package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fieldtrace/replay-backend-go/internal/api"
	"github.com/fieldtrace/replay-backend-go/internal/config"
	"github.com/fieldtrace/replay-backend-go/internal/database"
	"github.com/fieldtrace/replay-backend-go/internal/handler"
	"github.com/fieldtrace/replay-backend-go/internal/repository"
	"github.com/fieldtrace/replay-backend-go/internal/service"
	"github.com/fieldtrace/replay-backend-go/internal/snapcache"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatal("Failed to open database: ", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var backup snapcache.RemoteBackup
	if cfg.Backup.Enabled {
		s3backup, err := snapcache.NewS3Backup(ctx, cfg.Backup.Region, cfg.Backup.Bucket, cfg.Backup.Prefix)
		if err != nil {
			log.Fatal("Failed to set up cache backup: ", err)
		}
		backup = s3backup
	}

	store, err := snapcache.OpenStore(cfg.SnapCacheDir, backup)
	if err != nil {
		log.Fatal("Failed to open snap cache: ", err)
	}
	store.Preload(ctx, time.Now())
	if cfg.FlushIntervalSeconds > 0 {
		store.StartPeriodicFlush(ctx, time.Duration(cfg.FlushIntervalSeconds)*time.Second)
	}

	snapper := snapcache.NewRoadsClient(cfg.SnapAPIKey, cfg.SnapBaseURL)
	snapService := snapcache.NewService(store, snapper, snapcache.DefaultGapMeters)

	trackRepo := repository.NewTrackRepository(db)
	breakRepo := repository.NewBreakRepository(db)
	trackService := service.NewTrackService(trackRepo, breakRepo)
	replayService := service.NewReplayService(trackService, breakRepo, snapService)

	router := api.SetupRouter(api.Handlers{
		Track:  handler.NewTrackHandler(trackService),
		Replay: handler.NewReplayHandler(replayService),
		Snap:   handler.NewSnapHandler(replayService, snapService),
	})

	srv := &http.Server{
		Addr:    cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server: ", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}

	replayService.CloseAll()
	store.Close(shutdownCtx)
}
