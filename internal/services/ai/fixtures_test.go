package ai

import (
	"encoding/json"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"mineralclassifier/internal/config"
	"mineralclassifier/internal/logger"
)

// writeLinearModel creates a model directory with a linear head and an 8x8
// ViT-style preprocessor.
func writeLinearModel(t *testing.T, labels []string, weights [][3]float32, bias []float32) string {
	t.Helper()
	dir := t.TempDir()

	id2label := make(map[string]string, len(labels))
	for i, l := range labels {
		id2label[strconv.Itoa(i)] = l
	}
	writeJSON(t, filepath.Join(dir, ConfigFile), map[string]any{
		"architectures": []string{"ViTForImageClassification"},
		"id2label":      id2label,
	})
	writeJSON(t, filepath.Join(dir, PreprocessorFile), map[string]any{
		"do_resize":      true,
		"size":           map[string]int{"height": 8, "width": 8},
		"resample":       ResampleBilinear,
		"do_rescale":     true,
		"rescale_factor": 1.0 / 255.0,
		"do_normalize":   true,
		"image_mean":     []float64{0.5, 0.5, 0.5},
		"image_std":      []float64{0.5, 0.5, 0.5},
	})
	writeJSON(t, filepath.Join(dir, LinearArtifact), LinearHead{Weights: weights, Bias: bias})
	return dir
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func solidImage(w, h int, c color.Color) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func newTestClassifier(runtimes ...Runtime) *Classifier {
	if len(runtimes) == 0 {
		runtimes = []Runtime{NewLinearRuntime()}
	}
	return NewClassifier(config.Default(), logger.NewDiscard(), runtimes...)
}
