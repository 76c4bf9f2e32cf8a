package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/gorm"

	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/api"
	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/config"
	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/events"
	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/functions"
	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/imapsync"
	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/services"
)

const shutdownTimeout = 10 * time.Second

// Run wires the sync engine, processing pipeline, and HTTP API together
// and blocks until the process receives an interrupt
func Run(db *gorm.DB, cfg *config.Config) error {
	logService := services.NewLogServiceWithLevel(db, cfg.LogLevel)
	bus := events.NewBus(events.DefaultBufferSize)

	manager, err := imapsync.NewManager(cfg, bus, logService)
	if err != nil {
		return err
	}

	processor := functions.NewProcessor(cfg.AI)
	store := services.NewStoreService(db, logService)
	notify := services.NewNotifyService(cfg.Notify, logService)
	vectors := services.NewVectorService(cfg.Vector, processor.AIClient(), logService)
	replies := services.NewReplyService(store, vectors, processor.AIClient())

	pipeline := services.NewPipeline(bus, store, processor, notify, logService)
	pipeline.Start()

	// Accounts connect in the background; the API is up regardless of
	// how slow or broken any mailbox is
	go func() {
		results := manager.ConnectAll()
		for id, err := range results {
			if err != nil {
				log.Printf("[Sync] %s initial connect failed: %v", id, err)
			}
		}
	}()

	router := api.SetupRouter(cfg, api.Services{
		Manager:    manager,
		Store:      store,
		Replies:    replies,
		Notify:     notify,
		LogService: logService,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting OneBox server on port %s", cfg.APIPort)
		log.Printf("Database path: %s", cfg.DatabasePath)
		log.Printf("Categorization mode: %s", processor.Mode())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		manager.Shutdown()
		bus.Close()
		pipeline.Stop()
		return err
	case sig := <-quit:
		log.Printf("Received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}

	manager.Shutdown()
	bus.Close()
	pipeline.Stop()

	log.Printf("OneBox stopped")
	return nil
}
