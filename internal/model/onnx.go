package model

import (
	"fmt"
	"sync"

	"github.com/Brownie44l1/leaf-api/internal/preprocess"
	ort "github.com/yalue/onnxruntime_go"
)

type ONNXOptions struct {
	// LibraryPath points at libonnxruntime; empty uses the runtime default.
	LibraryPath string
	// Threads caps intra-op parallelism; 0 leaves the runtime default.
	Threads int
}

// ONNXClassifier runs an image classifier exported to ONNX with an NHWC
// (N, 224, 224, 3) float input and a (N, classes) probability output.
type ONNXClassifier struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	io           ioLayout
}

type ioLayout struct {
	InputName  string
	OutputName string
	Classes    int
}

// Runtime entry points, swapped in tests.
var (
	ortIsInitialized = ort.IsInitialized
	ortInitialize    = func() error { return ort.InitializeEnvironment() }
	ortDestroy       = func() error { return ort.DestroyEnvironment() }
	ortIOInfo        = func(path string) ([]ort.InputOutputInfo, []ort.InputOutputInfo, error) {
		return ort.GetInputOutputInfo(path)
	}
)

// NewONNXClassifier initializes the runtime environment if nobody has yet.
// If it did so and then fails, the environment is torn down again.
func NewONNXClassifier(modelPath string, opts ONNXOptions) (c *ONNXClassifier, err error) {
	if !ortIsInitialized() {
		if opts.LibraryPath != "" {
			ort.SetSharedLibraryPath(opts.LibraryPath)
		}
		if err := ortInitialize(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
		defer func() {
			if err != nil {
				ortDestroy()
			}
		}()
	}

	inputs, outputs, err := ortIOInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model inputs and outputs: %w", err)
	}
	layout, err := checkIO(inputs, outputs)
	if err != nil {
		return nil, fmt.Errorf("unsupported model %s: %w", modelPath, err)
	}

	inputShape := ort.NewShape(1, preprocess.InputSize, preprocess.InputSize, preprocess.Channels)
	outputShape := ort.NewShape(1, int64(layout.Classes))

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	var options *ort.SessionOptions
	if opts.Threads > 0 {
		options, err = ort.NewSessionOptions()
		if err != nil {
			inputTensor.Destroy()
			outputTensor.Destroy()
			return nil, fmt.Errorf("failed to create session options: %w", err)
		}
		defer options.Destroy()
		if err = options.SetIntraOpNumThreads(opts.Threads); err != nil {
			inputTensor.Destroy()
			outputTensor.Destroy()
			return nil, fmt.Errorf("failed to set thread count: %w", err)
		}
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{layout.InputName}, []string{layout.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		options)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNXClassifier{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		io:           layout,
	}, nil
}

// checkIO picks the first input and output and verifies their shapes.
// A leading -1 is a dynamic batch dimension.
func checkIO(inputs, outputs []ort.InputOutputInfo) (ioLayout, error) {
	if len(inputs) != 1 {
		return ioLayout{}, fmt.Errorf("expected 1 input, model has %d", len(inputs))
	}
	if len(outputs) < 1 {
		return ioLayout{}, fmt.Errorf("model has no outputs")
	}
	in, out := inputs[0], outputs[0]

	if in.DataType != ort.TensorElementDataTypeFloat {
		return ioLayout{}, fmt.Errorf("input %q has element type %v, want float", in.Name, in.DataType)
	}
	want := []int64{1, preprocess.InputSize, preprocess.InputSize, preprocess.Channels}
	if len(in.Dimensions) != len(want) {
		return ioLayout{}, fmt.Errorf("input %q has shape %v, want %v", in.Name, in.Dimensions, want)
	}
	for i, d := range in.Dimensions {
		if i == 0 && d == -1 {
			continue
		}
		if d != want[i] {
			return ioLayout{}, fmt.Errorf("input %q has shape %v, want %v", in.Name, in.Dimensions, want)
		}
	}

	if out.DataType != ort.TensorElementDataTypeFloat {
		return ioLayout{}, fmt.Errorf("output %q has element type %v, want float", out.Name, out.DataType)
	}
	if len(out.Dimensions) != 2 || (out.Dimensions[0] != 1 && out.Dimensions[0] != -1) {
		return ioLayout{}, fmt.Errorf("output %q has shape %v, want (1, classes)", out.Name, out.Dimensions)
	}
	classes := out.Dimensions[1]
	if classes < 1 {
		return ioLayout{}, fmt.Errorf("output %q has no fixed class dimension: %v", out.Name, out.Dimensions)
	}

	return ioLayout{InputName: in.Name, OutputName: out.Name, Classes: int(classes)}, nil
}

// Classes is the length of the probability vector Classify returns.
func (c *ONNXClassifier) Classes() int { return c.io.Classes }

// Classify runs one inference. The session owns a single pair of tensors,
// so calls are serialized.
func (c *ONNXClassifier) Classify(input []float32) ([]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	dst := c.inputTensor.GetData()
	if len(input) != len(dst) {
		return nil, fmt.Errorf("expected %d input values, got %d", len(dst), len(input))
	}
	copy(dst, input)

	if err := c.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	out := c.outputTensor.GetData()
	probs := make([]float32, len(out))
	copy(probs, out)
	return probs, nil
}

func (c *ONNXClassifier) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inputTensor != nil {
		c.inputTensor.Destroy()
		c.inputTensor = nil
	}
	if c.outputTensor != nil {
		c.outputTensor.Destroy()
		c.outputTensor = nil
	}
	if c.session != nil {
		c.session.Destroy()
		c.session = nil
	}
	ortDestroy()
}
