package routes

import (
	"net/http"

	"mineralclassifier/internal/config"
	"mineralclassifier/internal/handlers"
	"mineralclassifier/internal/logger"
	"mineralclassifier/internal/middleware"
	"mineralclassifier/internal/services"
	"mineralclassifier/internal/services/websocket"
)

// SetupRoutes registers the page, API, log and static endpoints and wraps
// the mux with request logging and panic recovery.
func SetupRoutes(manager *services.Manager, hub *websocket.HubService, cfg *config.Config, logger *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir))))

	// Page
	mux.HandleFunc("/", handlers.IndexHandler(manager, cfg, logger))
	mux.HandleFunc("/classify", handlers.ClassifyFormHandler(manager, cfg, logger))
	mux.HandleFunc("/reload", handlers.ReloadPageHandler(manager, cfg, logger))
	mux.HandleFunc("/health", handlers.HealthHandler(manager, logger))

	// API endpoints
	api := http.NewServeMux()
	api.HandleFunc("/api/classify", handlers.ClassifyAPIHandler(manager, cfg, logger))
	api.HandleFunc("/api/model", handlers.ModelStatusHandler(manager, logger))
	api.HandleFunc("/api/model/classes", handlers.ModelClassesHandler(manager, logger))
	api.HandleFunc("/api/model/reload", handlers.ReloadModelHandler(manager, logger))
	api.HandleFunc("/api/model/history", handlers.ModelHistoryHandler(manager, logger))
	mux.Handle("/api/", middleware.CORS(api))
	mux.HandleFunc("/api/status", handlers.StatusWebsocketHandler(hub, logger))

	// Log endpoints
	mux.HandleFunc("/logs/info", handlers.ShowInfoLogsHandler(logger))
	mux.HandleFunc("/logs/warning", handlers.ShowWarningLogsHandler(logger))
	mux.HandleFunc("/logs/error", handlers.ShowErrorLogsHandler(logger))

	mux.HandleFunc("/logs/info/clear", handlers.ClearInfoLogsHandler(logger))
	mux.HandleFunc("/logs/warning/clear", handlers.ClearWarningLogsHandler(logger))
	mux.HandleFunc("/logs/error/clear", handlers.ClearErrorLogsHandler(logger))

	// Apply middleware
	return middleware.RequestLogger(logger)(middleware.Recover(logger)(mux))
}
