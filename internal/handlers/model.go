package handlers

import (
	"net/http"
	"strconv"

	"mineralclassifier/internal/logger"
	"mineralclassifier/internal/services"
)

// ModelStatusHandler returns the current model status.
func ModelStatusHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, manager.Status(), logger)
	}
}

// ModelClassesHandler returns the label set of the current model.
func ModelClassesHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names := manager.ClassNames()
		writeJSON(w, http.StatusOK, map[string]any{
			"classes": names,
			"count":   len(names),
		}, logger)
	}
}

// ReloadModelHandler reloads the model and reports the outcome.
func ReloadModelHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		result := manager.Reload()
		status := http.StatusOK
		if !result.Success {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, result, logger)
	}
}

// ModelHistoryHandler lists recent load attempts. ?limit= overrides the
// configured default.
func ModelHistoryHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
		if err != nil || limit <= 0 {
			limit = 0
		}

		events, err := manager.History(limit)
		if err != nil {
			logger.Error("Error reading load history: %v", err)
			http.Error(w, "Unable to read load history", http.StatusInternalServerError)
			return
		}
		stats, err := manager.HistoryStats()
		if err != nil {
			logger.Error("Error reading load stats: %v", err)
			http.Error(w, "Unable to read load history", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"events": events,
			"stats":  stats,
		}, logger)
	}
}
