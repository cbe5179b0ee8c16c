package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// Files expected in a model directory.
const (
	ConfigFile       = "config.json"
	PreprocessorFile = "preprocessor_config.json"
)

// LabelMap is the ordered association between output index and class name.
type LabelMap []string

// ModelConfig is the subset of a model's config.json the classifier needs.
type ModelConfig struct {
	Architectures []string          `json:"architectures"`
	ID2Label      map[string]string `json:"id2label"`
	Label2ID      map[string]int    `json:"label2id"`
	NumLabels     int               `json:"num_labels"`
}

// ReadModelConfig parses dir/config.json.
func ReadModelConfig(dir string) (*ModelConfig, error) {
	path := filepath.Join(dir, ConfigFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model config: %w", err)
	}

	var cfg ModelConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Labels builds the label map from id2label, falling back to label2id.
// Indices must be contiguous from zero and names unique.
func (c *ModelConfig) Labels() (LabelMap, error) {
	byIndex := make(map[int]string, len(c.ID2Label))
	for key, name := range c.ID2Label {
		idx, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("invalid label index %q", key)
		}
		byIndex[idx] = name
	}
	if len(byIndex) == 0 {
		for name, idx := range c.Label2ID {
			if prev, ok := byIndex[idx]; ok {
				return nil, fmt.Errorf("labels %q and %q share index %d", prev, name, idx)
			}
			byIndex[idx] = name
		}
	}
	if len(byIndex) == 0 {
		return nil, errors.New("model config defines no labels")
	}
	if c.NumLabels > 0 && c.NumLabels != len(byIndex) {
		return nil, fmt.Errorf("num_labels is %d but %d labels are defined", c.NumLabels, len(byIndex))
	}

	indices := make([]int, 0, len(byIndex))
	for idx := range byIndex {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	labels := make(LabelMap, len(indices))
	seen := make(map[string]bool, len(indices))
	for i, idx := range indices {
		if idx != i {
			return nil, fmt.Errorf("label indices are not contiguous: missing %d", i)
		}
		name := byIndex[idx]
		if name == "" {
			return nil, fmt.Errorf("label %d has no name", idx)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate label %q", name)
		}
		seen[name] = true
		labels[i] = name
	}
	return labels, nil
}

// ImageSize is the "size" entry of preprocessor_config.json. It accepts
// {"height":h,"width":w}, {"shortest_edge":s} or a bare integer.
type ImageSize struct {
	Height       int `json:"height,omitempty"`
	Width        int `json:"width,omitempty"`
	ShortestEdge int `json:"shortest_edge,omitempty"`
}

func (s *ImageSize) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*s = ImageSize{Height: n, Width: n}
		return nil
	}
	type plain ImageSize
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("invalid size: %w", err)
	}
	*s = ImageSize(p)
	return nil
}

// PreprocessorConfig mirrors an image processor configuration.
type PreprocessorConfig struct {
	DoResize      bool       `json:"do_resize"`
	Size          ImageSize  `json:"size"`
	Resample      int        `json:"resample"`
	DoCenterCrop  bool       `json:"do_center_crop"`
	CropSize      *ImageSize `json:"crop_size,omitempty"`
	DoRescale     bool       `json:"do_rescale"`
	RescaleFactor float64    `json:"rescale_factor"`
	DoNormalize   bool       `json:"do_normalize"`
	ImageMean     []float64  `json:"image_mean"`
	ImageStd      []float64  `json:"image_std"`
}

// Resampling filters, numbered as in PIL.
const (
	ResampleNearest  = 0
	ResampleLanczos  = 1
	ResampleBilinear = 2
	ResampleBicubic  = 3
)

// DefaultPreprocessorConfig matches a ViT image processor.
func DefaultPreprocessorConfig() PreprocessorConfig {
	return PreprocessorConfig{
		DoResize:      true,
		Size:          ImageSize{Height: 224, Width: 224},
		Resample:      ResampleBilinear,
		DoRescale:     true,
		RescaleFactor: 1.0 / 255.0,
		DoNormalize:   true,
		ImageMean:     []float64{0.5, 0.5, 0.5},
		ImageStd:      []float64{0.5, 0.5, 0.5},
	}
}

// ReadPreprocessorConfig parses dir/preprocessor_config.json over the
// defaults. A missing file yields the defaults.
func ReadPreprocessorConfig(dir string) (PreprocessorConfig, error) {
	cfg := DefaultPreprocessorConfig()

	path := filepath.Join(dir, PreprocessorFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read preprocessor config: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}
