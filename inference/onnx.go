// Package inference - ONNX Runtime backed engine.
package inference

import (
	"context"
	"os"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/xamde/AutoKorrektur/models/model"
)

// ONNXConfig configures an ONNX Runtime session.
type ONNXConfig struct {
	// ModelPath is the path to the .onnx model file.
	ModelPath string `json:"modelPath" yaml:"modelPath"`
	// LibraryPath overrides the onnxruntime shared library location. Empty
	// uses the platform default under ./third_party.
	LibraryPath string `json:"libraryPath" yaml:"libraryPath"`
	// InputNames are the model's input tensor names, in declaration order.
	InputNames []string `json:"inputNames" yaml:"inputNames"`
	// OutputNames are the model's output tensor names, in declaration order.
	OutputNames []string `json:"outputNames" yaml:"outputNames"`
	// IntraOpThreads parallelizes execution within graph nodes. Zero uses
	// the runtime default.
	IntraOpThreads int `json:"intraOpThreads" yaml:"intraOpThreads"`
	// InterOpThreads parallelizes execution across graph nodes. Zero uses
	// the runtime default.
	InterOpThreads int `json:"interOpThreads" yaml:"interOpThreads"`
	// Provider selects the hardware execution provider. The zero value runs
	// on the CPU.
	Provider ProviderConfig `json:"provider" yaml:"provider"`
}

// ONNXEngine is an Engine backed by an ONNX Runtime dynamic session.
type ONNXEngine struct {
	session     *ort.DynamicAdvancedSession
	inputNames  []string
	outputNames []string
	mu          sync.Mutex
}

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// GetSharedLibPath returns the path to the onnxruntime shared library for the
// current platform.
//
// Returns:
//   - string: The path to the shared library.
func GetSharedLibPath() string {
	if runtime.GOOS == "windows" && runtime.GOARCH == "amd64" {
		return "./third_party/onnxruntime.dll"
	}
	if runtime.GOOS == "darwin" {
		return "./third_party/libonnxruntime.dylib"
	}
	if runtime.GOOS == "linux" {
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.so"
		}
		return "./third_party/onnxruntime.so"
	}
	panic("Unable to find a version of the onnxruntime library supporting this system.")
}

// initEnvironment initializes the ONNX Runtime environment exactly once per
// process.
func initEnvironment(libraryPath string) error {
	ortInitOnce.Do(func() {
		if libraryPath == "" {
			libraryPath = GetSharedLibPath()
		}
		if _, err := os.Stat(libraryPath); os.IsNotExist(err) {
			ortInitErr = errors.Wrapf(model.ErrInference,
				"ONNX Runtime library not found at %s", libraryPath)
			return
		}
		ort.SetSharedLibraryPath(libraryPath)
		if err := ort.InitializeEnvironment(); err != nil {
			ortInitErr = errors.Wrap(err, "initializing ONNX Runtime environment")
		}
	})
	return ortInitErr
}

// NewONNXEngine opens an ONNX Runtime session for the given model.
//
// Arguments:
//   - config: The session configuration.
//
// Returns:
//   - *ONNXEngine: The ready engine.
//   - error: An error if the environment or session cannot be created.
func NewONNXEngine(config ONNXConfig) (*ONNXEngine, error) {
	if config.ModelPath == "" {
		return nil, errors.New("ONNX engine requires a model path")
	}
	if len(config.InputNames) == 0 || len(config.OutputNames) == 0 {
		return nil, errors.New("ONNX engine requires input and output names")
	}

	if err := initEnvironment(config.LibraryPath); err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "creating ORT session options")
	}
	defer options.Destroy()

	if config.IntraOpThreads > 0 {
		if err := options.SetIntraOpNumThreads(config.IntraOpThreads); err != nil {
			return nil, errors.Wrap(err, "setting intra-op threads")
		}
	}
	if config.InterOpThreads > 0 {
		if err := options.SetInterOpNumThreads(config.InterOpThreads); err != nil {
			return nil, errors.Wrap(err, "setting inter-op threads")
		}
	}
	if err := options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended); err != nil {
		return nil, errors.Wrap(err, "setting graph optimization level")
	}
	if err := config.Provider.apply(options); err != nil {
		return nil, err
	}

	session, err := ort.NewDynamicAdvancedSession(
		config.ModelPath, config.InputNames, config.OutputNames, options)
	if err != nil {
		return nil, errors.Wrapf(err, "creating session for %s", config.ModelPath)
	}

	return &ONNXEngine{
		session:     session,
		inputNames:  config.InputNames,
		outputNames: config.OutputNames,
	}, nil
}

// Infer runs the session on the given named inputs.
//
// Arguments:
//   - ctx: Checked for cancellation before the (non-interruptible) run.
//   - inputs: The named input tensors; every declared input must be present.
//
// Returns:
//   - map[string]*Tensor: The named output tensors, copied out of ONNX
//     Runtime owned memory.
//   - error: model.ErrInference wrapped failures.
func (e *ONNXEngine) Infer(ctx context.Context, inputs map[string]*Tensor) (map[string]*Tensor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ortInputs := make([]ort.Value, len(e.inputNames))
	defer func() {
		for _, v := range ortInputs {
			if v != nil {
				v.Destroy()
			}
		}
	}()

	for i, name := range e.inputNames {
		t, ok := inputs[name]
		if !ok {
			return nil, errors.Wrapf(model.ErrInference, "missing input tensor %q", name)
		}
		if err := t.Validate(); err != nil {
			return nil, errors.Wrapf(model.ErrInference, "input %q: %v", name, err)
		}
		value, err := newOrtValue(t)
		if err != nil {
			return nil, errors.Wrapf(err, "creating input tensor %q", name)
		}
		ortInputs[i] = value
	}

	ortOutputs := make([]ort.Value, len(e.outputNames))

	e.mu.Lock()
	err := e.session.Run(ortInputs, ortOutputs)
	e.mu.Unlock()
	if err != nil {
		return nil, errors.Wrapf(model.ErrInference, "session run: %v", err)
	}
	defer func() {
		for _, v := range ortOutputs {
			if v != nil {
				v.Destroy()
			}
		}
	}()

	outputs := make(map[string]*Tensor, len(e.outputNames))
	for i, name := range e.outputNames {
		t, err := fromOrtValue(ortOutputs[i])
		if err != nil {
			return nil, errors.Wrapf(err, "reading output tensor %q", name)
		}
		outputs[name] = t
	}

	return outputs, nil
}

// Close destroys the underlying session.
func (e *ONNXEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		err := e.session.Destroy()
		e.session = nil
		return err
	}
	return nil
}

// newOrtValue converts a Tensor into an ONNX Runtime tensor.
func newOrtValue(t *Tensor) (ort.Value, error) {
	shape := ort.NewShape(t.Shape...)
	switch t.DType {
	case Float32:
		return ort.NewTensor(shape, t.Floats)
	case Uint8:
		return ort.NewTensor(shape, t.Bytes)
	default:
		return nil, errors.Errorf("unsupported tensor data type %d", t.DType)
	}
}

// fromOrtValue copies an ONNX Runtime tensor into an engine-independent
// Tensor.
func fromOrtValue(v ort.Value) (*Tensor, error) {
	switch typed := v.(type) {
	case *ort.Tensor[float32]:
		shape := typed.GetShape()
		data := make([]float32, len(typed.GetData()))
		copy(data, typed.GetData())
		return NewFloat32Tensor(append([]int64(nil), shape...), data), nil
	case *ort.Tensor[uint8]:
		shape := typed.GetShape()
		data := make([]uint8, len(typed.GetData()))
		copy(data, typed.GetData())
		return NewUint8Tensor(append([]int64(nil), shape...), data), nil
	default:
		return nil, errors.Wrapf(model.ErrModelContract,
			"model produced an output of unsupported element type %T", v)
	}
}
