package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"mineralclassifier/internal/config"
	"mineralclassifier/internal/logger"
	"mineralclassifier/internal/repository"
	"mineralclassifier/internal/repository/sqlite"
	"mineralclassifier/internal/routes"
	"mineralclassifier/internal/services"
	"mineralclassifier/internal/services/ai"
	"mineralclassifier/internal/services/websocket"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config     *config.Config
	logger     *logger.Logger
	db         *sqlite.DB
	classifier *ai.Classifier
	hubService *websocket.HubService
	manager    *services.Manager
}

func NewApp() (*App, error) {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, err
	}

	// The load history is optional; the demo still works without it.
	var history repository.LoadEventRepository
	db, err := openDatabase(cfg.DatabasePath)
	if err != nil {
		log.Warning("Load history disabled: %v", err)
	} else {
		history = sqlite.NewLoadEventRepository(db)
	}

	classifier := ai.NewClassifier(cfg, log)
	hub := websocket.NewHubService(cfg, log)
	mng := services.NewManager(classifier, hub, history, cfg, log)

	return &App{
		config:     cfg,
		logger:     log,
		db:         db,
		classifier: classifier,
		hubService: hub,
		manager:    mng,
	}, nil
}

func openDatabase(path string) (*sqlite.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	return sqlite.New(path)
}

// Run loads the model, serves HTTP until SIGINT/SIGTERM and then shuts
// everything down.
func (a *App) Run() error {
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start background services
	go a.hubService.Run()

	// A failed load is reported on the page; the server still starts.
	result := a.manager.Initialize()
	if !result.Success {
		a.logger.Warning("%s", result.Message)
	}

	// Setup routes
	router := routes.SetupRoutes(a.manager, a.hubService, a.config, a.logger)
	server := &http.Server{
		Addr:              a.config.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	fmt.Printf("🔬 Mineral Classifier\n")
	fmt.Printf("📍 URL: http://%s\n", a.config.Address())
	fmt.Printf("🤖 Model: %s (%s)\n", a.config.ModelDir, a.config.Runtime)
	fmt.Printf("📚 Classes: %d\n", len(result.Status.Classes))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("🛑 Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.hubService.Stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

func (a *App) close() {
	a.hubService.Stop()
	if err := a.manager.Close(); err != nil {
		a.logger.Warning("Failed to release model: %v", err)
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warning("Failed to close database: %v", err)
		}
	}
	a.logger.Close()
}
