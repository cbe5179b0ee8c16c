package handlers

import (
	"net/http"

	"mineralclassifier/internal/logger"
	"mineralclassifier/internal/services"
)

// HealthHandler reports liveness and whether a model is ready.
func HealthHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := manager.Status()
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "healthy",
			"model_ready": status.Loaded,
		}, logger)
	}
}
