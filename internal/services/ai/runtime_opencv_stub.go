//go:build !gocv
// +build !gocv

package ai

import "errors"

var errOpenCVDisabled = errors.New("gocv build tag is not enabled")

type opencvRuntime struct{}

// NewOpenCVRuntime returns a placeholder that reports itself unavailable;
// build with -tags gocv for the OpenCV DNN runtime.
func NewOpenCVRuntime() Runtime {
	return opencvRuntime{}
}

func (opencvRuntime) Name() string     { return "opencv" }
func (opencvRuntime) Artifact() string { return ONNXArtifact }

func (opencvRuntime) Devices() ([]Device, error) {
	return nil, errOpenCVDisabled
}

func (opencvRuntime) Open(string, ModelSpec, Device) (Engine, error) {
	return nil, errOpenCVDisabled
}
