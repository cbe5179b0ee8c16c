package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"mineralclassifier/internal/logger"
)

// Handler parameters shadow the logger package.
const (
	loggerInfoFile    = logger.InfoFile
	loggerWarningFile = logger.WarningFile
	loggerErrorFile   = logger.ErrorFile
)

func ShowInfoLogsHandler(logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serveLogFile(w, r, logger.Dir(), loggerInfoFile)
	}
}

func ShowWarningLogsHandler(logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serveLogFile(w, r, logger.Dir(), loggerWarningFile)
	}
}

func ShowErrorLogsHandler(logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serveLogFile(w, r, logger.Dir(), loggerErrorFile)
	}
}

func serveLogFile(w http.ResponseWriter, r *http.Request, logDir, filename string) {
	filePath := filepath.Join(logDir, filename)

	if _, err := os.Stat(filePath); logDir == "" || os.IsNotExist(err) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Log file not found: " + filename))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	http.ServeFile(w, r, filePath)
}

func ClearInfoLogsHandler(logger *logger.Logger) http.HandlerFunc {
	return clearLogs(logger, loggerInfoFile)
}

func ClearWarningLogsHandler(logger *logger.Logger) http.HandlerFunc {
	return clearLogs(logger, loggerWarningFile)
}

func ClearErrorLogsHandler(logger *logger.Logger) http.HandlerFunc {
	return clearLogs(logger, loggerErrorFile)
}

func clearLogs(logger *logger.Logger, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := logger.CleanLogs(name); err != nil {
			http.Error(w, "Unable to clear logs", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "cleared", "file": name}, logger)
	}
}
