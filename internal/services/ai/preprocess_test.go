package ai

import (
	"encoding/json"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreprocessorDefaults(t *testing.T) {
	pre, err := NewPreprocessor(DefaultPreprocessorConfig())
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 224, 224}, pre.InputShape())

	tensor, err := pre.Apply(solidImage(640, 480, color.White))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 224, 224}, tensor.Shape)
	require.Len(t, tensor.Data, 3*224*224)
	for _, v := range tensor.Data[:10] {
		assert.InDelta(t, 1.0, v, 1e-6)
	}
}

func TestPreprocessorChannelLayout(t *testing.T) {
	cfg := DefaultPreprocessorConfig()
	cfg.Size = ImageSize{Height: 4, Width: 6}
	pre, err := NewPreprocessor(cfg)
	require.NoError(t, err)

	tensor, err := pre.Apply(solidImage(12, 8, color.RGBA{R: 255, G: 0, B: 51, A: 255}))
	require.NoError(t, err)
	require.Equal(t, []int64{1, 3, 4, 6}, tensor.Shape)

	plane := 4 * 6
	assert.InDelta(t, 1.0, tensor.Data[0], 1e-5)          // red
	assert.InDelta(t, -1.0, tensor.Data[plane], 1e-5)     // green
	assert.InDelta(t, -0.6, tensor.Data[2*plane], 1e-5)   // blue: 51/255 = 0.2
	assert.InDelta(t, -0.6, tensor.Data[3*plane-1], 1e-5) // last blue pixel
}

func TestPreprocessorShortestEdgeWithCrop(t *testing.T) {
	cfg := DefaultPreprocessorConfig()
	cfg.Size = ImageSize{ShortestEdge: 16}
	cfg.DoCenterCrop = true
	pre, err := NewPreprocessor(cfg)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 16, 16}, pre.InputShape())

	tensor, err := pre.Apply(solidImage(64, 32, color.Gray{Y: 128}))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 16, 16}, tensor.Shape)
}

func TestPreprocessorShortestEdgeAlwaysSquare(t *testing.T) {
	cases := map[string]struct{ w, h int }{
		"wide":   {32, 16},
		"tall":   {16, 32},
		"square": {20, 20},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultPreprocessorConfig()
			cfg.Size = ImageSize{ShortestEdge: 8}
			cfg.DoCenterCrop = false
			pre, err := NewPreprocessor(cfg)
			require.NoError(t, err)

			tensor, err := pre.Apply(solidImage(tc.w, tc.h, color.White))
			require.NoError(t, err)
			assert.Equal(t, []int64{1, 3, 8, 8}, tensor.Shape)
			assert.Equal(t, pre.InputShape(), tensor.Shape)
			assert.Len(t, tensor.Data, 3*8*8)
		})
	}
}

func TestPreprocessorExplicitCropSize(t *testing.T) {
	cfg := DefaultPreprocessorConfig()
	cfg.Size = ImageSize{ShortestEdge: 16}
	cfg.DoCenterCrop = true
	cfg.CropSize = &ImageSize{Height: 12, Width: 10}
	pre, err := NewPreprocessor(cfg)
	require.NoError(t, err)

	tensor, err := pre.Apply(solidImage(48, 16, color.White))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 12, 10}, tensor.Shape)
	assert.Equal(t, pre.InputShape(), tensor.Shape)
}

func TestPreprocessorWithoutResize(t *testing.T) {
	cfg := DefaultPreprocessorConfig()
	cfg.DoResize = false
	cfg.DoNormalize = false
	pre, err := NewPreprocessor(cfg)
	require.NoError(t, err)
	assert.Nil(t, pre.InputShape())

	tensor, err := pre.Apply(solidImage(5, 3, color.White))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 3, 5}, tensor.Shape)
	assert.InDelta(t, 1.0, tensor.Data[0], 1e-6)
}

func TestPreprocessorValidation(t *testing.T) {
	cases := map[string]func(*PreprocessorConfig){
		"zero size":        func(c *PreprocessorConfig) { c.Size = ImageSize{} },
		"short mean":       func(c *PreprocessorConfig) { c.ImageMean = []float64{0.5} },
		"zero std":         func(c *PreprocessorConfig) { c.ImageStd = []float64{0.5, 0, 0.5} },
		"bad rescale":      func(c *PreprocessorConfig) { c.RescaleFactor = 0 },
		"unknown resample": func(c *PreprocessorConfig) { c.Resample = 9 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultPreprocessorConfig()
			mutate(&cfg)
			_, err := NewPreprocessor(cfg)
			assert.Error(t, err)
		})
	}
}

func TestImageSizeUnmarshal(t *testing.T) {
	var s ImageSize
	require.NoError(t, json.Unmarshal([]byte(`384`), &s))
	assert.Equal(t, ImageSize{Height: 384, Width: 384}, s)

	require.NoError(t, json.Unmarshal([]byte(`{"shortest_edge": 256}`), &s))
	assert.Equal(t, ImageSize{ShortestEdge: 256}, s)

	require.NoError(t, json.Unmarshal([]byte(`{"height": 224, "width": 160}`), &s))
	assert.Equal(t, ImageSize{Height: 224, Width: 160}, s)

	assert.Error(t, json.Unmarshal([]byte(`"big"`), &s))
}
