// Package inference - Execution provider selection.
package inference

import (
	"fmt"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// ProviderBackend names a hardware execution provider for ONNX Runtime.
type ProviderBackend string

const (
	// CPUProviderBackend runs inference on the CPU. This is the default and
	// needs no configuration.
	CPUProviderBackend ProviderBackend = "cpu"
	// CUDAProviderBackend uses NVIDIA CUDA for inference acceleration.
	CUDAProviderBackend ProviderBackend = "cuda"
	// CoreMLProviderBackend uses Apple CoreML for macOS acceleration.
	CoreMLProviderBackend ProviderBackend = "coreml"
)

// ProviderConfig selects and parameterizes the execution provider for a
// session.
type ProviderConfig struct {
	// Backend is the provider to enable. Empty means CPU.
	Backend ProviderBackend `json:"backend" yaml:"backend"`
	// DeviceID selects the accelerator device for CUDA and CoreML.
	DeviceID int `json:"deviceID" yaml:"deviceID"`
	// GPUMemLimit caps the CUDA arena in bytes. Zero leaves the runtime
	// default.
	GPUMemLimit int64 `json:"gpuMemLimit" yaml:"gpuMemLimit"`
}

// apply appends the configured execution provider to the session options.
// Proper EP setup can dramatically accelerate inference; an unavailable
// provider is a hard error rather than a silent CPU fallback.
func (c ProviderConfig) apply(options *ort.SessionOptions) error {
	switch c.Backend {
	case "", CPUProviderBackend:
		return nil
	case CUDAProviderBackend:
		cuda, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return errors.Wrap(err, "creating CUDA provider options")
		}
		defer cuda.Destroy()
		settings := map[string]string{
			"device_id": fmt.Sprintf("%d", c.DeviceID),
		}
		if c.GPUMemLimit > 0 {
			settings["gpu_mem_limit"] = fmt.Sprintf("%d", c.GPUMemLimit)
		}
		if err := cuda.Update(settings); err != nil {
			return errors.Wrap(err, "configuring CUDA provider")
		}
		if err := options.AppendExecutionProviderCUDA(cuda); err != nil {
			return errors.Wrap(err, "enabling CUDA")
		}
		return nil
	case CoreMLProviderBackend:
		if err := options.AppendExecutionProviderCoreML(uint32(c.DeviceID)); err != nil {
			return errors.Wrap(err, "enabling CoreML")
		}
		return nil
	default:
		return errors.Errorf("unknown execution provider %q", c.Backend)
	}
}
