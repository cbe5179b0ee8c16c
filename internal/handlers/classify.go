package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"mineralclassifier/internal/config"
	"mineralclassifier/internal/dto"
	"mineralclassifier/internal/logger"
	"mineralclassifier/internal/middleware"
	"mineralclassifier/internal/services"
)

// FormField is the multipart field carrying the uploaded image.
const FormField = "image"

// ClassifyFormHandler classifies the uploaded image and re-renders the page
// with the summary, ranking and chart.
func ClassifyFormHandler(manager *services.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		input, err := uploadedImage(w, r, cfg)
		var view dto.ClassificationView
		if err != nil {
			logger.Warning("Rejected upload: %v", err)
			view = uploadErrorView(err)
		} else {
			view = manager.Classify(input)
		}
		view.RequestID = middleware.RequestID(r.Context())

		data := newPageData(manager, cfg)
		data.Result = &view
		renderPage(w, http.StatusOK, data, logger)
	}
}

// ClassifyAPIHandler accepts a multipart upload or a raw image body and
// answers with the classification as JSON.
func ClassifyAPIHandler(manager *services.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var input any
		var err error
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
			input, err = uploadedImage(w, r, cfg)
		} else {
			input, err = io.ReadAll(http.MaxBytesReader(w, r.Body, cfg.MaxUploadSize))
		}

		var view dto.ClassificationView
		if err != nil {
			logger.Warning("Rejected upload: %v", err)
			view = uploadErrorView(err)
		} else {
			view = manager.Classify(input)
		}
		view.RequestID = middleware.RequestID(r.Context())

		writeJSON(w, statusFor(view), view, logger)
	}
}

// uploadedImage returns the uploaded file header, or nil when the form has
// no file.
func uploadedImage(w http.ResponseWriter, r *http.Request, cfg *config.Config) (any, error) {
	r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadSize)
	if err := r.ParseMultipartForm(cfg.MaxUploadSize); err != nil {
		return nil, err
	}
	_, header, err := r.FormFile(FormField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return header, nil
}

func uploadErrorView(err error) dto.ClassificationView {
	view := dto.ClassificationView{
		Level:   dto.LevelError,
		Reason:  "invalid_upload",
		Summary: fmt.Sprintf(services.MsgClassifyError, err),
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		view.Reason = "upload_too_large"
		view.Summary = fmt.Sprintf(services.MsgClassifyError,
			fmt.Sprintf("image is larger than %d MB", tooLarge.Limit>>20))
	}
	return view
}

func statusFor(view dto.ClassificationView) int {
	switch {
	case view.Succeeded():
		return http.StatusOK
	case view.Reason == "not_loaded":
		return http.StatusServiceUnavailable
	case view.Reason == "missing_image":
		return http.StatusBadRequest
	case view.Reason == "invalid_upload":
		return http.StatusBadRequest
	case view.Reason == "upload_too_large":
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusUnprocessableEntity
	}
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}
