package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strings"

	"mineralclassifier/internal/config"
	"mineralclassifier/internal/dto"
	"mineralclassifier/internal/logger"
	"mineralclassifier/internal/render"
	"mineralclassifier/internal/services"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"markup":     render.HTML,
	"capitalize": render.Capitalize,
	"join":       strings.Join,
}).ParseFS(templateFS, "templates/index.html"))

type pageData struct {
	Status      dto.ModelStatus
	Result      *dto.ClassificationView
	LoadResult  *dto.LoadResult
	MaxUploadMB int64
}

func renderPage(w http.ResponseWriter, status int, data pageData, logger *logger.Logger) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		logger.Error("Error rendering page: %v", err)
		http.Error(w, "Unable to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func newPageData(manager *services.Manager, cfg *config.Config) pageData {
	return pageData{
		Status:      manager.Status(),
		MaxUploadMB: cfg.MaxUploadSize >> 20,
	}
}

// IndexHandler serves the upload form with the current model status.
func IndexHandler(manager *services.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		renderPage(w, http.StatusOK, newPageData(manager, cfg), logger)
	}
}

// ReloadPageHandler reloads the model from the form and shows the outcome.
func ReloadPageHandler(manager *services.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		result := manager.Reload()
		data := newPageData(manager, cfg)
		data.LoadResult = &result
		renderPage(w, http.StatusOK, data, logger)
	}
}
