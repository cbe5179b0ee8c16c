//go:build gocv
// +build gocv

package ai

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"gocv.io/x/gocv"
)

type opencvRuntime struct{}

// NewOpenCVRuntime returns a runtime backed by the OpenCV DNN module.
func NewOpenCVRuntime() Runtime {
	return opencvRuntime{}
}

func (opencvRuntime) Name() string     { return "opencv" }
func (opencvRuntime) Artifact() string { return ONNXArtifact }

// Devices lists CUDA first; Open rejects it when OpenCV was built without
// the CUDA backend.
func (opencvRuntime) Devices() ([]Device, error) {
	return []Device{DeviceCUDA, DeviceCPU}, nil
}

func (opencvRuntime) Open(dir string, spec ModelSpec, device Device) (Engine, error) {
	path := filepath.Join(dir, ONNXArtifact)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", path)
	}

	net := gocv.ReadNetFromONNX(path)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network from %s", path)
	}

	backend, target := gocv.NetBackendDefault, gocv.NetTargetCPU
	if device == DeviceCUDA {
		backend, target = gocv.NetBackendCUDA, gocv.NetTargetCUDA
	}
	errBackend := net.SetPreferableBackend(backend)
	errTarget := net.SetPreferableTarget(target)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set preferable backend or target")
	}

	engine := &opencvEngine{net: net, device: device, numLabels: spec.NumLabels}

	// OpenCV only reports a missing CUDA backend on the first forward pass.
	if device == DeviceCUDA && spec.InputShape != nil {
		if _, err := engine.Infer(zeroTensor(spec.InputShape)); err != nil {
			engine.Close()
			return nil, fmt.Errorf("CUDA warmup failed: %w", err)
		}
	}
	return engine, nil
}

type opencvEngine struct {
	mu        sync.Mutex
	net       gocv.Net
	device    Device
	numLabels int
}

func (e *opencvEngine) Infer(input Tensor) (logits []float32, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sizes := make([]int, len(input.Shape))
	for i, d := range input.Shape {
		sizes[i] = int(d)
	}

	blob, err := gocv.NewMatWithSizesFromBytes(sizes, gocv.MatTypeCV32F, float32Bytes(input.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to create input blob: %w", err)
	}
	defer blob.Close()

	e.net.SetInput(blob, "")
	output := e.net.Forward("")
	defer output.Close()

	if output.Empty() {
		return nil, fmt.Errorf("network returned an empty output")
	}
	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read output: %w", err)
	}
	if len(data) < e.numLabels {
		return nil, fmt.Errorf("network returned %d values for %d labels", len(data), e.numLabels)
	}

	logits = make([]float32, e.numLabels)
	copy(logits, data)
	return logits, nil
}

func (e *opencvEngine) Device() Device { return e.device }

func (e *opencvEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.net.Close()
}

func float32Bytes(values []float32) []byte {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func zeroTensor(shape []int64) Tensor {
	n := int64(1)
	for _, d := range shape {
		n *= d
	}
	return Tensor{Shape: shape, Data: make([]float32, n)}
}
