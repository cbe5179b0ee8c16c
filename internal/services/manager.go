package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mineralclassifier/internal/config"
	"mineralclassifier/internal/dto"
	"mineralclassifier/internal/imageio"
	"mineralclassifier/internal/logger"
	"mineralclassifier/internal/models"
	"mineralclassifier/internal/render"
	"mineralclassifier/internal/repository"
	"mineralclassifier/internal/services/ai"
)

// User-facing messages.
const (
	MsgNotLoaded     = "❌ Model is not loaded yet!"
	MsgMissingImage  = "⚠️ Please upload an image!"
	MsgClassifyError = "❌ Classification error: %s"
	MsgLoadOK        = "✅ Model loaded successfully!"
	MsgLoadFailed    = "❌ Model loading failed: %s"
)

// Status events pushed to subscribers.
const (
	EventLoaded     = "loaded"
	EventLoadFailed = "load_failed"
	EventUnloaded   = "unloaded"
)

// StatusPublisher receives serialized model status updates.
type StatusPublisher interface {
	Broadcast(message []byte)
}

// Manager sits between the HTTP layer and the classifier: it turns any
// submitted input into a ClassificationView and keeps the load history and
// status subscribers up to date.
type Manager struct {
	classifier   *ai.Classifier
	publisher    StatusPublisher
	history      repository.LoadEventRepository
	modelDir     string
	historyLimit int
	logger       *logger.Logger
}

// NewManager wires a classifier to its status publisher and load history.
// Both publisher and history may be nil.
func NewManager(classifier *ai.Classifier, publisher StatusPublisher, history repository.LoadEventRepository, config *config.Config, logger *logger.Logger) *Manager {
	return &Manager{
		classifier:   classifier,
		publisher:    publisher,
		history:      history,
		modelDir:     config.ModelDir,
		historyLimit: config.HistoryLimit,
		logger:       logger,
	}
}

// Initialize loads the configured model directory.
func (m *Manager) Initialize() dto.LoadResult {
	m.logger.Info("🚀 Initializing classifier from %s", m.modelDir)
	return m.load()
}

// Reload loads the configured model directory again, replacing the current
// model on success.
func (m *Manager) Reload() dto.LoadResult {
	m.logger.Info("🔄 Reloading classifier from %s", m.modelDir)
	return m.load()
}

func (m *Manager) load() dto.LoadResult {
	start := time.Now()
	status, err := m.classifier.Load(m.modelDir)
	elapsed := time.Since(start)

	ev := &models.LoadEvent{
		ModelDir:   m.modelDir,
		Success:    err == nil,
		DurationMS: elapsed.Milliseconds(),
		Timestamp:  start,
	}

	result := dto.LoadResult{Success: err == nil, Status: status}
	event := EventLoaded
	if err != nil {
		result.Message = fmt.Sprintf(MsgLoadFailed, cause(err))
		ev.Error = cause(err)
		event = EventLoadFailed
	} else {
		result.Message = MsgLoadOK
		ev.Runtime = status.Runtime
		ev.Device = string(status.Device)
		ev.ClassCount = len(status.Classes)
	}

	m.record(ev)
	m.publish(event, status)
	return result
}

func (m *Manager) record(ev *models.LoadEvent) {
	if m.history == nil {
		return
	}
	if err := m.history.Insert(ev); err != nil {
		m.logger.Warning("Failed to record load event: %v", err)
	}
}

func (m *Manager) publish(event string, status ai.Status) {
	if m.publisher == nil {
		return
	}
	data, err := json.Marshal(dto.ModelStatus{Status: status, Event: event, UpdatedAt: time.Now()})
	if err != nil {
		m.logger.Error("Failed to encode model status: %v", err)
		return
	}
	m.publisher.Broadcast(data)
}

// Classify runs the whole request pipeline for one input and reports the
// outcome as a view. It never panics; every failure becomes a warning or
// error view without a chart.
func (m *Manager) Classify(input any) (view dto.ClassificationView) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Recovered from panic during classification: %v", r)
			view = errorView(fmt.Errorf("internal error: %v", r))
		}
	}()

	if !m.classifier.IsLoaded() {
		return warningView("not_loaded", MsgNotLoaded)
	}

	img, err := imageio.Normalize(input)
	if errors.Is(err, imageio.ErrNoImage) {
		return warningView("missing_image", MsgMissingImage)
	}
	if err != nil {
		m.logger.Warning("Rejected image: %v", err)
		return errorView(err)
	}

	start := time.Now()
	p, err := m.classifier.Predict(img)
	if err != nil {
		if ai.KindOf(err) == ai.KindNotLoaded {
			return warningView("not_loaded", MsgNotLoaded)
		}
		m.logger.Error("Classification failed: %v", err)
		return errorView(err)
	}

	m.logger.Info("🔬 Classified %dx%d image as %s (%s) in %s",
		img.Bounds().Dx(), img.Bounds().Dy(), p.Label, render.Percent(p.Confidence, 2),
		time.Since(start).Round(time.Millisecond))

	view = dto.ClassificationView{
		Level:      dto.LevelOK,
		Summary:    render.Summary(p),
		Details:    render.Ranking(p),
		Prediction: p,
	}
	if chart, err := render.Chart(p); err != nil {
		m.logger.Warning("Failed to render chart: %v", err)
	} else {
		view.Chart = chart
	}
	return view
}

func warningView(reason, msg string) dto.ClassificationView {
	return dto.ClassificationView{Level: dto.LevelWarning, Reason: reason, Summary: msg}
}

func errorView(err error) dto.ClassificationView {
	return dto.ClassificationView{
		Level:   dto.LevelError,
		Reason:  "classification_error",
		Summary: fmt.Sprintf(MsgClassifyError, cause(err)),
	}
}

// cause drops the operation prefix of classifier errors.
func cause(err error) string {
	var e *ai.Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err.Error()
	}
	return err.Error()
}

// Status returns the current model status.
func (m *Manager) Status() dto.ModelStatus {
	status := m.classifier.Status()
	event := EventLoaded
	switch {
	case status.Loaded:
	case status.LastError != "":
		event = EventLoadFailed
	default:
		event = EventUnloaded
	}
	return dto.ModelStatus{Status: status, Event: event, UpdatedAt: time.Now()}
}

// ClassNames returns the labels of the current model.
func (m *Manager) ClassNames() []string {
	return m.classifier.ClassNames()
}

// History returns up to limit recent load events; limit <= 0 uses the
// configured default.
func (m *Manager) History(limit int) ([]models.LoadEvent, error) {
	if m.history == nil {
		return []models.LoadEvent{}, nil
	}
	if limit <= 0 {
		limit = m.historyLimit
	}
	return m.history.Recent(limit)
}

// HistoryStats summarises the load history.
func (m *Manager) HistoryStats() (*models.LoadEventStats, error) {
	if m.history == nil {
		return &models.LoadEventStats{}, nil
	}
	return m.history.Stats()
}

// Close releases the classifier.
func (m *Manager) Close() error {
	return m.classifier.Close()
}
