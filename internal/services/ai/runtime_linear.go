package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// LinearArtifact is the weights file of the linear runtime.
const LinearArtifact = "linear.json"

// LinearHead is a linear classifier over the per-channel means of the
// preprocessed image: logits[i] = bias[i] + sum_c weights[i][c]*mean[c].
type LinearHead struct {
	Weights [][3]float32 `json:"weights"`
	Bias    []float32    `json:"bias"`
}

type linearRuntime struct{}

// NewLinearRuntime returns the pure-Go runtime for linear.json heads.
func NewLinearRuntime() Runtime {
	return linearRuntime{}
}

func (linearRuntime) Name() string     { return "linear" }
func (linearRuntime) Artifact() string { return LinearArtifact }

func (linearRuntime) Devices() ([]Device, error) {
	return []Device{DeviceCPU}, nil
}

func (linearRuntime) Open(dir string, spec ModelSpec, device Device) (Engine, error) {
	if device != DeviceCPU {
		return nil, fmt.Errorf("device %s is not supported", device)
	}

	data, err := os.ReadFile(filepath.Join(dir, LinearArtifact))
	if err != nil {
		return nil, fmt.Errorf("failed to read weights: %w", err)
	}

	var head LinearHead
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to parse weights: %w", err)
	}
	if len(head.Bias) != spec.NumLabels {
		return nil, fmt.Errorf("bias has %d entries for %d labels", len(head.Bias), spec.NumLabels)
	}
	if head.Weights == nil {
		head.Weights = make([][3]float32, spec.NumLabels)
	}
	if len(head.Weights) != spec.NumLabels {
		return nil, fmt.Errorf("weights have %d rows for %d labels", len(head.Weights), spec.NumLabels)
	}

	return &linearEngine{head: head}, nil
}

type linearEngine struct {
	head LinearHead
}

func (e *linearEngine) Infer(input Tensor) ([]float32, error) {
	if len(input.Shape) != 4 || input.Shape[0] != 1 || input.Shape[1] != 3 {
		return nil, fmt.Errorf("unexpected input shape %v", input.Shape)
	}
	plane := int(input.Shape[2] * input.Shape[3])
	if plane == 0 || len(input.Data) != 3*plane {
		return nil, errors.New("input tensor does not match its shape")
	}

	var means [3]float64
	for c := 0; c < 3; c++ {
		var sum float64
		for _, v := range input.Data[c*plane : (c+1)*plane] {
			sum += float64(v)
		}
		means[c] = sum / float64(plane)
	}

	logits := make([]float32, len(e.head.Bias))
	for i, bias := range e.head.Bias {
		v := float64(bias)
		for c := 0; c < 3; c++ {
			v += float64(e.head.Weights[i][c]) * means[c]
		}
		logits[i] = float32(v)
	}
	return logits, nil
}

func (e *linearEngine) Device() Device { return DeviceCPU }

func (e *linearEngine) Close() error { return nil }
