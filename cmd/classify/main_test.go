package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mineralclassifier/internal/services/ai"
)

func samplePrediction() *ai.Prediction {
	return &ai.Prediction{
		Label:      "pyrite",
		Index:      1,
		Confidence: 0.6,
		Scores: []ai.Score{
			{Label: "biotite", Probability: 0.1},
			{Label: "pyrite", Probability: 0.6},
			{Label: "quartz", Probability: 0.3},
		},
	}
}

// ========================================
// Text output
// ========================================

func TestFormatPrediction(t *testing.T) {
	cases := map[string]struct {
		top    int
		labels []string
		absent []string
	}{
		"all scores":     {top: 0, labels: []string{"Pyrite", "Quartz", "Biotite"}},
		"top larger":     {top: 10, labels: []string{"Pyrite", "Quartz", "Biotite"}},
		"top one":        {top: 1, labels: []string{"Pyrite"}, absent: []string{"Quartz", "Biotite"}},
		"top truncates":  {top: 2, labels: []string{"Pyrite", "Quartz"}, absent: []string{"Biotite"}},
		"negative shows": {top: -1, labels: []string{"Pyrite", "Quartz", "Biotite"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			out := formatPrediction("rock.jpg", samplePrediction(), tc.top)
			lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
			require.Len(t, lines, 1+len(tc.labels))

			assert.Contains(t, lines[0], "PYRITE")
			assert.Contains(t, lines[0], "60.00%")
			assert.Contains(t, lines[0], "rock.jpg")
			for i, label := range tc.labels {
				assert.Contains(t, lines[i+1], label)
			}
			for _, label := range tc.absent {
				assert.NotContains(t, out, label)
			}
		})
	}
}

func TestFormatPredictionBars(t *testing.T) {
	out := formatPrediction("rock.jpg", samplePrediction(), 0)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)

	assert.Equal(t, 18, strings.Count(lines[1], "█"))
	assert.Equal(t, 12, strings.Count(lines[1], "░"))
	assert.Contains(t, lines[1], "60.00%")
	assert.Equal(t, 9, strings.Count(lines[2], "█"))
	assert.Contains(t, lines[2], "30.00%")
	assert.Equal(t, 3, strings.Count(lines[3], "█"))
	assert.Contains(t, lines[3], "10.00%")
}

func TestTopScores(t *testing.T) {
	p := samplePrediction()
	assert.Equal(t, []ai.Score{{Label: "pyrite", Probability: 0.6}}, topScores(p, 1))
	assert.Len(t, topScores(p, 0), 3)
	assert.Len(t, topScores(p, 5), 3)
	// label-index order of the prediction is untouched
	assert.Equal(t, "biotite", p.Scores[0].Label)
}

// ========================================
// JSON output
// ========================================

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, "rock.jpg", samplePrediction(), 0))

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "rock.jpg", out["file"])
	assert.Equal(t, "pyrite", out["label"])
	assert.InDelta(t, 0.6, out["confidence"], 1e-9)
	assert.Len(t, out["scores"], 3)
}

func TestPrintJSONTop(t *testing.T) {
	p := samplePrediction()
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, "rock.jpg", p, 2))

	var out jsonRecord
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.NotNil(t, out.Prediction)
	assert.Equal(t, "rock.jpg", out.File)
	assert.Equal(t, []ai.Score{{Label: "pyrite", Probability: 0.6}, {Label: "quartz", Probability: 0.3}}, out.Scores)
	assert.Len(t, p.Scores, 3)
}

// ========================================
// Commands
// ========================================

func writeModel(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]any{
		ai.ConfigFile: map[string]any{
			"id2label": map[string]string{"0": "quartz", "1": "pyrite"},
		},
		ai.PreprocessorFile: map[string]any{
			"do_resize":      true,
			"size":           map[string]int{"height": 4, "width": 4},
			"do_rescale":     true,
			"rescale_factor": 1.0 / 255.0,
			"do_normalize":   true,
			"image_mean":     []float64{0.5, 0.5, 0.5},
			"image_std":      []float64{0.5, 0.5, 0.5},
		},
		ai.LinearArtifact: ai.LinearHead{
			Weights: [][3]float32{{-1, 0, 0}, {1, 0, 0}},
			Bias:    []float32{0, 0},
		},
	}
	for name, v := range files {
		data, err := json.Marshal(v)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0644))
	}
	return dir
}

func writePNG(t *testing.T, c color.Color) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, c)
		}
	}
	path := filepath.Join(t.TempDir(), "sample.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestClassifyCommandJSON(t *testing.T) {
	model := writeModel(t)
	img := writePNG(t, color.RGBA{R: 255, A: 255})

	out, err := runCmd(t, "--model", model, "--runtime", "linear", "--json", "--top", "1", img)
	require.NoError(t, err)

	var rec jsonRecord
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, img, rec.File)
	assert.Equal(t, "pyrite", rec.Label)
	require.Len(t, rec.Scores, 1)
	assert.Equal(t, "pyrite", rec.Scores[0].Label)
}

func TestClassifyCommandReportsBadFiles(t *testing.T) {
	model := writeModel(t)
	img := writePNG(t, color.White)

	out, err := runCmd(t, "--model", model, "--runtime", "linear", img, filepath.Join(t.TempDir(), "missing.png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 images")
	assert.Contains(t, out, img)
}

func TestClassesCommand(t *testing.T) {
	out, err := runCmd(t, "classes", "--model", writeModel(t), "--runtime", "linear")
	require.NoError(t, err)
	assert.Contains(t, out, "2 classes")
	assert.Contains(t, out, "Quartz")
	assert.Contains(t, out, "Pyrite")
}

func TestMissingModelFails(t *testing.T) {
	_, err := runCmd(t, "--model", filepath.Join(t.TempDir(), "nope"), "--runtime", "linear", "x.png")
	assert.Error(t, err)
}
