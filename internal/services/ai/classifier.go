package ai

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"mineralclassifier/internal/config"
	"mineralclassifier/internal/logger"
)

type loadedModel struct {
	dir      string
	runtime  string
	engine   Engine
	labels   LabelMap
	pre      *Preprocessor
	loadedAt time.Time
}

// Classifier owns a loaded image-classification model. The zero state is
// unloaded; Load moves it to loaded and later calls replace the model.
//
// Predict holds a read lock for the whole forward pass, so Load never closes
// an engine that is still in use.
type Classifier struct {
	mu       sync.RWMutex
	current  *loadedModel
	lastErr  string
	lastDir  string
	runtime  string
	prefer   bool
	runtimes []Runtime
	logger   *logger.Logger
}

// NewClassifier creates an unloaded classifier. Without explicit runtimes the
// built-in ones are used.
func NewClassifier(cfg *config.Config, logger *logger.Logger, runtimes ...Runtime) *Classifier {
	if len(runtimes) == 0 {
		runtimes = DefaultRuntimes(RuntimeOptions{ONNXLibraryPath: cfg.ONNXLibraryPath})
	}
	return &Classifier{
		runtime:  cfg.Runtime,
		prefer:   cfg.PreferAccelerator,
		runtimes: runtimes,
		logger:   logger,
	}
}

// Load reads the model in dir and makes it the current model. On failure the
// previous model, if any, stays in place and the returned error has KindLoad.
func (c *Classifier) Load(dir string) (Status, error) {
	start := time.Now()
	c.logger.Info("Loading model from %s (runtime: %s)", dir, c.runtime)

	m, err := c.open(dir)
	if err != nil {
		lerr := &Error{Kind: KindLoad, Op: "load", Err: err}
		c.mu.Lock()
		c.lastErr = lerr.Error()
		c.lastDir = dir
		c.mu.Unlock()
		c.logger.Error("Model loading failed: %v", err)
		return c.Status(), lerr
	}

	c.mu.Lock()
	prev := c.current
	c.current = m
	c.lastErr = ""
	c.lastDir = dir
	c.mu.Unlock()

	if prev != nil {
		if err := prev.engine.Close(); err != nil {
			c.logger.Warning("Failed to release previous model: %v", err)
		}
	}

	c.logger.Info("Model loaded in %s: %d classes on %s via %s",
		time.Since(start).Round(time.Millisecond), len(m.labels), m.engine.Device(), m.runtime)
	return c.Status(), nil
}

func (c *Classifier) open(dir string) (m *loadedModel, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("runtime panic: %v", r)
		}
	}()

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("model directory not found: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	modelCfg, err := ReadModelConfig(dir)
	if err != nil {
		return nil, err
	}
	labels, err := modelCfg.Labels()
	if err != nil {
		return nil, fmt.Errorf("invalid label map: %w", err)
	}

	preCfg, err := ReadPreprocessorConfig(dir)
	if err != nil {
		return nil, err
	}
	pre, err := NewPreprocessor(preCfg)
	if err != nil {
		return nil, fmt.Errorf("invalid preprocessor config: %w", err)
	}

	spec := ModelSpec{NumLabels: len(labels), InputShape: pre.InputShape()}
	engine, rt, err := openEngine(c.runtimes, c.runtime, dir, spec, c.prefer)
	if err != nil {
		return nil, err
	}

	return &loadedModel{
		dir:      dir,
		runtime:  rt.Name(),
		engine:   engine,
		labels:   labels,
		pre:      pre,
		loadedAt: time.Now(),
	}, nil
}

// Predict classifies img with the current model.
func (c *Classifier) Predict(img image.Image) (p *Prediction, err error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m := c.current
	if m == nil {
		return nil, &Error{Kind: KindNotLoaded, Op: "predict", Err: ErrNotLoaded}
	}
	if img == nil {
		return nil, &Error{Kind: KindInvalidInput, Op: "predict", Err: errors.New("image is nil")}
	}

	defer func() {
		if r := recover(); r != nil {
			p = nil
			err = &Error{Kind: KindInference, Op: "predict", Err: fmt.Errorf("runtime panic: %v", r)}
		}
	}()

	input, err := m.pre.Apply(img)
	if err != nil {
		return nil, &Error{Kind: KindInference, Op: "preprocess", Err: err}
	}

	logits, err := m.engine.Infer(input)
	if err != nil {
		return nil, &Error{Kind: KindInference, Op: "inference", Err: err}
	}

	p, err = newPrediction(m.labels, logits)
	if err != nil {
		return nil, &Error{Kind: KindInference, Op: "inference", Err: err}
	}
	return p, nil
}

// ClassNames returns the label set in index order, empty before loading.
func (c *Classifier) ClassNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.current == nil {
		return []string{}
	}
	names := make([]string, len(c.current.labels))
	copy(names, c.current.labels)
	return names
}

// IsLoaded reports whether a model is ready for Predict.
func (c *Classifier) IsLoaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current != nil
}

// Status describes the current model and the last load error.
func (c *Classifier) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	st := Status{
		ModelDir:  c.lastDir,
		Classes:   []string{},
		LastError: c.lastErr,
	}
	if m := c.current; m != nil {
		st.Loaded = true
		st.ModelDir = m.dir
		st.Runtime = m.runtime
		st.Device = m.engine.Device()
		st.Classes = append(st.Classes, m.labels...)
		loadedAt := m.loadedAt
		st.LoadedAt = &loadedAt
	}
	return st
}

// Close releases the current model and returns the classifier to unloaded.
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return nil
	}
	err := c.current.engine.Close()
	c.current = nil
	return err
}
