package ai

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXArtifact is the weights file shared by the ONNX Runtime and OpenCV runtimes.
const ONNXArtifact = "model.onnx"

type onnxRuntime struct {
	libraryPath string

	once    sync.Once
	initErr error
	devices []Device
}

// NewONNXRuntime returns a runtime backed by the ONNX Runtime shared library.
// An empty libraryPath uses the library's default lookup.
func NewONNXRuntime(libraryPath string) Runtime {
	return &onnxRuntime{libraryPath: libraryPath}
}

func (r *onnxRuntime) Name() string     { return "onnx" }
func (r *onnxRuntime) Artifact() string { return ONNXArtifact }

// Devices initializes the ONNX environment once and checks the CUDA
// execution provider.
func (r *onnxRuntime) Devices() ([]Device, error) {
	r.once.Do(func() {
		if !ort.IsInitialized() {
			if r.libraryPath != "" {
				ort.SetSharedLibraryPath(r.libraryPath)
			}
			if err := ort.InitializeEnvironment(); err != nil {
				r.initErr = fmt.Errorf("failed to initialize ONNX environment: %w", err)
				return
			}
		}
		r.devices = []Device{DeviceCPU}
		if cudaAvailable() {
			r.devices = []Device{DeviceCUDA, DeviceCPU}
		}
	})
	return r.devices, r.initErr
}

func cudaAvailable() bool {
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return false
	}
	defer opts.Destroy()

	cudaOpts, err := ort.NewCUDAProviderOptions()
	if err != nil {
		return false
	}
	defer cudaOpts.Destroy()

	return opts.AppendExecutionProviderCUDA(cudaOpts) == nil
}

func (r *onnxRuntime) Open(dir string, spec ModelSpec, device Device) (Engine, error) {
	path := filepath.Join(dir, ONNXArtifact)

	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect model: %w", err)
	}
	inputName, err := pickTensorName(inputs, "pixel_values")
	if err != nil {
		return nil, fmt.Errorf("model inputs: %w", err)
	}
	outputName, err := pickTensorName(outputs, "logits")
	if err != nil {
		return nil, fmt.Errorf("model outputs: %w", err)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer opts.Destroy()

	if device == DeviceCUDA {
		cudaOpts, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return nil, fmt.Errorf("failed to create CUDA options: %w", err)
		}
		defer cudaOpts.Destroy()
		if err := opts.AppendExecutionProviderCUDA(cudaOpts); err != nil {
			return nil, fmt.Errorf("failed to enable CUDA: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(path, []string{inputName}, []string{outputName}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &onnxEngine{
		session:   session,
		device:    device,
		numLabels: spec.NumLabels,
	}, nil
}

func pickTensorName(infos []ort.InputOutputInfo, preferred string) (string, error) {
	if len(infos) == 0 {
		return "", errors.New("model declares no tensors")
	}
	for _, info := range infos {
		if info.Name == preferred {
			return info.Name, nil
		}
	}
	return infos[0].Name, nil
}

type onnxEngine struct {
	session   *ort.DynamicAdvancedSession
	device    Device
	numLabels int
}

func (e *onnxEngine) Infer(input Tensor) ([]float32, error) {
	in, err := ort.NewTensor(ort.NewShape(input.Shape...), input.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer in.Destroy()

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(e.numLabels)))
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer out.Destroy()

	if err := e.session.Run([]ort.ArbitraryTensor{in}, []ort.ArbitraryTensor{out}); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	logits := make([]float32, e.numLabels)
	copy(logits, out.GetData())
	return logits, nil
}

func (e *onnxEngine) Device() Device { return e.device }

func (e *onnxEngine) Close() error {
	return e.session.Destroy()
}
