package ai

import (
	"errors"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var minerals = []string{"biotite", "bornite", "chrysocolla"}

func TestPredictBeforeLoad(t *testing.T) {
	c := newTestClassifier()

	p, err := c.Predict(solidImage(4, 4, color.White))
	require.Error(t, err)
	assert.Nil(t, p)
	assert.True(t, errors.Is(err, ErrNotLoaded))
	assert.Equal(t, KindNotLoaded, KindOf(err))

	assert.False(t, c.IsLoaded())
	assert.Empty(t, c.ClassNames())
	st := c.Status()
	assert.False(t, st.Loaded)
	assert.Empty(t, st.LastError)
	assert.Nil(t, st.LoadedAt)
}

func TestPredictKnownLogits(t *testing.T) {
	dir := writeLinearModel(t, minerals, nil, []float32{2.0, 1.0, 0.1})
	c := newTestClassifier()

	st, err := c.Load(dir)
	require.NoError(t, err)
	assert.True(t, st.Loaded)
	assert.Equal(t, "linear", st.Runtime)
	assert.Equal(t, DeviceCPU, st.Device)
	assert.Equal(t, minerals, st.Classes)
	require.NotNil(t, st.LoadedAt)
	assert.False(t, st.LoadedAt.IsZero())

	p, err := c.Predict(solidImage(32, 20, color.RGBA{R: 120, G: 80, B: 40, A: 255}))
	require.NoError(t, err)

	denom := math.Exp(2.0) + math.Exp(1.0) + math.Exp(0.1)
	assert.Equal(t, "biotite", p.Label)
	assert.Equal(t, 0, p.Index)
	assert.InDelta(t, math.Exp(2.0)/denom, p.Confidence, 1e-6)

	var sum float64
	for _, s := range p.Scores {
		sum += s.Probability
	}
	assert.InDelta(t, 1.0, sum, 1e-4)
	assert.Equal(t, minerals, c.ClassNames())
}

func TestPredictedLabelIsArgmax(t *testing.T) {
	labels := []string{"malachite", "pyrite", "quartz"}
	weights := [][3]float32{
		{-1, 2, -1}, // green
		{1, 1, -2},  // yellow
		{0, 0, 0},
	}
	dir := writeLinearModel(t, labels, weights, []float32{0, 0, 0})
	c := newTestClassifier()
	_, err := c.Load(dir)
	require.NoError(t, err)

	cases := []struct {
		color color.Color
		want  string
	}{
		{color.RGBA{G: 255, A: 255}, "malachite"},
		{color.RGBA{R: 255, G: 255, A: 255}, "pyrite"},
	}
	for _, tc := range cases {
		p, err := c.Predict(solidImage(10, 10, tc.color))
		require.NoError(t, err)
		assert.Equal(t, tc.want, p.Label)

		best := Argmax(scoresOf(p))
		assert.Equal(t, p.Label, p.Scores[best].Label)
		assert.Equal(t, p.Confidence, p.Scores[best].Probability)
	}
}

func scoresOf(p *Prediction) []float64 {
	out := make([]float64, len(p.Scores))
	for i, s := range p.Scores {
		out[i] = s.Probability
	}
	return out
}

func TestReloadReplacesLabelSet(t *testing.T) {
	first := writeLinearModel(t, minerals, nil, []float32{0, 0, 3})
	second := writeLinearModel(t, []string{"muscovite", "pyrite", "quartz", "malachite"}, nil, []float32{0, 5, 0, 0})
	c := newTestClassifier()

	_, err := c.Load(first)
	require.NoError(t, err)
	p, err := c.Predict(solidImage(4, 4, color.Black))
	require.NoError(t, err)
	assert.Equal(t, "chrysocolla", p.Label)

	st, err := c.Load(second)
	require.NoError(t, err)
	assert.Equal(t, second, st.ModelDir)
	assert.Equal(t, []string{"muscovite", "pyrite", "quartz", "malachite"}, c.ClassNames())

	p, err = c.Predict(solidImage(4, 4, color.Black))
	require.NoError(t, err)
	assert.Equal(t, "pyrite", p.Label)
	assert.Len(t, p.Scores, 4)
	for _, s := range p.Scores {
		assert.NotContains(t, minerals, s.Label)
	}
}

func TestLoadFailures(t *testing.T) {
	corruptConfig := writeLinearModel(t, minerals, nil, []float32{1, 2, 3})
	require.NoError(t, os.WriteFile(filepath.Join(corruptConfig, ConfigFile), []byte("{not json"), 0644))

	missingWeights := writeLinearModel(t, minerals, nil, []float32{1, 2, 3})
	require.NoError(t, os.Remove(filepath.Join(missingWeights, LinearArtifact)))

	wrongBias := writeLinearModel(t, minerals, nil, []float32{1, 2})

	corruptPreprocessor := writeLinearModel(t, minerals, nil, []float32{1, 2, 3})
	require.NoError(t, os.WriteFile(filepath.Join(corruptPreprocessor, PreprocessorFile), []byte(`{"image_std":[0,1,1]}`), 0644))

	cases := map[string]string{
		"missing directory":    filepath.Join(t.TempDir(), "nope"),
		"corrupt config":       corruptConfig,
		"missing weights":      missingWeights,
		"label count mismatch": wrongBias,
		"zero std":             corruptPreprocessor,
	}

	for name, dir := range cases {
		t.Run(name, func(t *testing.T) {
			c := newTestClassifier()
			st, err := c.Load(dir)
			require.Error(t, err)
			assert.Equal(t, KindLoad, KindOf(err))
			assert.False(t, st.Loaded)
			assert.NotEmpty(t, st.LastError)
			assert.False(t, c.IsLoaded())
			assert.Empty(t, c.ClassNames())
		})
	}
}

func TestFailedReloadKeepsPreviousModel(t *testing.T) {
	good := writeLinearModel(t, minerals, nil, []float32{2, 1, 0.1})
	c := newTestClassifier()
	_, err := c.Load(good)
	require.NoError(t, err)

	st, err := c.Load(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.True(t, st.Loaded)
	assert.NotEmpty(t, st.LastError)

	p, err := c.Predict(solidImage(4, 4, color.White))
	require.NoError(t, err)
	assert.Equal(t, "biotite", p.Label)

	st, err = c.Load(good)
	require.NoError(t, err)
	assert.Empty(t, st.LastError)
}

func TestUnknownRuntime(t *testing.T) {
	dir := writeLinearModel(t, minerals, nil, []float32{1, 2, 3})
	c := newTestClassifier()
	c.runtime = "tensorflow"

	_, err := c.Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown runtime")
}

func TestPredictInvalidInput(t *testing.T) {
	dir := writeLinearModel(t, minerals, nil, []float32{1, 2, 3})
	c := newTestClassifier()
	_, err := c.Load(dir)
	require.NoError(t, err)

	_, err = c.Predict(nil)
	assert.Equal(t, KindInvalidInput, KindOf(err))

	_, err = c.Predict(image.NewNRGBA(image.Rect(0, 0, 0, 0)))
	assert.Equal(t, KindInference, KindOf(err))
}

func TestCloseReturnsToUnloaded(t *testing.T) {
	dir := writeLinearModel(t, minerals, nil, []float32{1, 2, 3})
	c := newTestClassifier()
	_, err := c.Load(dir)
	require.NoError(t, err)

	require.NoError(t, c.Close())
	assert.False(t, c.IsLoaded())
	_, err = c.Predict(solidImage(2, 2, color.White))
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.NoError(t, c.Close())
}

func TestConcurrentPredictAndReload(t *testing.T) {
	first := writeLinearModel(t, minerals, nil, []float32{3, 0, 0})
	second := writeLinearModel(t, []string{"pyrite", "quartz"}, nil, []float32{0, 3})
	c := newTestClassifier()
	_, err := c.Load(first)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				p, err := c.Predict(solidImage(6, 6, color.White))
				if assert.NoError(t, err) {
					assert.Contains(t, []string{"biotite", "quartz"}, p.Label)
				}
			}
		}()
	}
	for i := 0; i < 5; i++ {
		dir := first
		if i%2 == 0 {
			dir = second
		}
		_, err := c.Load(dir)
		require.NoError(t, err)
	}
	wg.Wait()
}
