package ai

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Device is a compute device an engine runs on.
type Device string

const (
	DeviceCPU  Device = "cpu"
	DeviceCUDA Device = "cuda"
)

// Accelerated reports whether d is anything other than the CPU.
func (d Device) Accelerated() bool {
	return d != DeviceCPU
}

// ModelSpec carries what a runtime needs to know about the model besides the
// weights file.
type ModelSpec struct {
	NumLabels  int
	InputShape []int64 // nil when the input size is not fixed
}

// Engine runs forward passes for one loaded network.
type Engine interface {
	// Infer runs one forward pass and returns the raw logits.
	Infer(input Tensor) ([]float32, error)
	Device() Device
	Close() error
}

// Runtime is an inference backend able to open a weights artifact.
type Runtime interface {
	Name() string
	// Artifact is the weights file name the runtime reads from a model directory.
	Artifact() string
	// Devices checks the runtime and returns the usable devices, preferred
	// first. An error means the runtime is unavailable in this process.
	Devices() ([]Device, error)
	Open(dir string, spec ModelSpec, device Device) (Engine, error)
}

// RuntimeOptions configures the built-in runtimes.
type RuntimeOptions struct {
	ONNXLibraryPath string
}

// DefaultRuntimes returns the built-in runtimes in auto-selection order.
func DefaultRuntimes(opts RuntimeOptions) []Runtime {
	return []Runtime{
		NewONNXRuntime(opts.ONNXLibraryPath),
		NewOpenCVRuntime(),
		NewLinearRuntime(),
	}
}

// openEngine picks the first runtime matching name ("auto" or "" matches all)
// whose artifact exists in dir and which opens on one of its devices.
// Accelerators are tried before the CPU unless preferAccelerator is false.
func openEngine(runtimes []Runtime, name, dir string, spec ModelSpec, preferAccelerator bool) (Engine, Runtime, error) {
	var errs []error
	matched := false

	for _, rt := range runtimes {
		if name != "" && name != "auto" && rt.Name() != name {
			continue
		}
		matched = true

		if _, err := os.Stat(filepath.Join(dir, rt.Artifact())); err != nil {
			errs = append(errs, fmt.Errorf("%s: %s not found", rt.Name(), rt.Artifact()))
			continue
		}

		devices, err := rt.Devices()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rt.Name(), err))
			continue
		}

		for _, device := range devices {
			if device.Accelerated() && !preferAccelerator {
				continue
			}
			engine, err := rt.Open(dir, spec, device)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s on %s: %w", rt.Name(), device, err))
				continue
			}
			return engine, rt, nil
		}
	}

	if !matched {
		return nil, nil, fmt.Errorf("unknown runtime %q", name)
	}
	if len(errs) == 0 {
		return nil, nil, errors.New("no usable device")
	}
	return nil, nil, errors.Join(errs...)
}
