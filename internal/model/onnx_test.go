package model

import (
	"errors"
	"testing"

	ort "github.com/yalue/onnxruntime_go"
)

func info(name string, dims ...int64) ort.InputOutputInfo {
	return ort.InputOutputInfo{
		Name:       name,
		Dimensions: ort.NewShape(dims...),
		DataType:   ort.TensorElementDataTypeFloat,
	}
}

func TestCheckIO(t *testing.T) {
	t.Run("keras export with dynamic batch", func(t *testing.T) {
		layout, err := checkIO(
			[]ort.InputOutputInfo{info("input_1", -1, 224, 224, 3)},
			[]ort.InputOutputInfo{info("dense_1", -1, 38)},
		)
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		if layout.InputName != "input_1" || layout.OutputName != "dense_1" || layout.Classes != 38 {
			t.Fatalf("unexpected layout %+v", layout)
		}
	})

	t.Run("fixed batch", func(t *testing.T) {
		if _, err := checkIO(
			[]ort.InputOutputInfo{info("input", 1, 224, 224, 3)},
			[]ort.InputOutputInfo{info("output", 1, 4)},
		); err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
	})

	bad := []struct {
		name    string
		inputs  []ort.InputOutputInfo
		outputs []ort.InputOutputInfo
	}{
		{"channels first", []ort.InputOutputInfo{info("input", 1, 3, 224, 224)}, []ort.InputOutputInfo{info("output", 1, 4)}},
		{"wrong size", []ort.InputOutputInfo{info("input", 1, 256, 256, 3)}, []ort.InputOutputInfo{info("output", 1, 4)}},
		{"two inputs", []ort.InputOutputInfo{info("a", 1, 224, 224, 3), info("b", 1)}, []ort.InputOutputInfo{info("output", 1, 4)}},
		{"no outputs", []ort.InputOutputInfo{info("input", 1, 224, 224, 3)}, nil},
		{"dynamic classes", []ort.InputOutputInfo{info("input", 1, 224, 224, 3)}, []ort.InputOutputInfo{info("output", 1, -1)}},
		{"rank 3 output", []ort.InputOutputInfo{info("input", 1, 224, 224, 3)}, []ort.InputOutputInfo{info("output", 1, 1, 4)}},
		{"int input", []ort.InputOutputInfo{{Name: "input", Dimensions: ort.NewShape(1, 224, 224, 3), DataType: ort.TensorElementDataTypeUint8}}, []ort.InputOutputInfo{info("output", 1, 4)}},
	}
	for _, tc := range bad {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := checkIO(tc.inputs, tc.outputs); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

// stubRuntime replaces the runtime entry points for one test and counts
// environment setup and teardown.
type stubRuntime struct {
	initialized bool
	inits       int
	destroys    int
}

func useStubRuntime(t *testing.T, rt *stubRuntime, inputs, outputs []ort.InputOutputInfo, ioErr error) {
	t.Helper()
	origIs, origInit, origDestroy, origInfo := ortIsInitialized, ortInitialize, ortDestroy, ortIOInfo
	t.Cleanup(func() {
		ortIsInitialized, ortInitialize, ortDestroy, ortIOInfo = origIs, origInit, origDestroy, origInfo
	})

	ortIsInitialized = func() bool { return rt.initialized }
	ortInitialize = func() error {
		rt.inits++
		rt.initialized = true
		return nil
	}
	ortDestroy = func() error {
		rt.destroys++
		rt.initialized = false
		return nil
	}
	ortIOInfo = func(string) ([]ort.InputOutputInfo, []ort.InputOutputInfo, error) {
		return inputs, outputs, ioErr
	}
}

func TestNewONNXClassifier_ReleasesEnvironmentOnFailure(t *testing.T) {
	channelsFirst := []ort.InputOutputInfo{info("input", 1, 3, 224, 224)}
	probs := []ort.InputOutputInfo{info("output", 1, 38)}

	t.Run("unreadable model", func(t *testing.T) {
		rt := &stubRuntime{}
		useStubRuntime(t, rt, nil, nil, errors.New("protobuf parsing failed"))

		if _, err := NewONNXClassifier("plant.onnx", ONNXOptions{}); err == nil {
			t.Fatalf("expected error")
		}
		if rt.inits != 1 || rt.destroys != 1 {
			t.Fatalf("inits = %d, destroys = %d, want 1 and 1", rt.inits, rt.destroys)
		}
		if rt.initialized {
			t.Fatalf("environment left initialized after a failed load")
		}
	})

	t.Run("unsupported layout", func(t *testing.T) {
		rt := &stubRuntime{}
		useStubRuntime(t, rt, channelsFirst, probs, nil)

		if _, err := NewONNXClassifier("plant.onnx", ONNXOptions{}); err == nil {
			t.Fatalf("expected error")
		}
		if rt.destroys != 1 {
			t.Fatalf("destroys = %d, want 1", rt.destroys)
		}
	})

	t.Run("environment owned by someone else", func(t *testing.T) {
		rt := &stubRuntime{initialized: true}
		useStubRuntime(t, rt, channelsFirst, probs, nil)

		if _, err := NewONNXClassifier("plant.onnx", ONNXOptions{}); err == nil {
			t.Fatalf("expected error")
		}
		if rt.inits != 0 || rt.destroys != 0 {
			t.Fatalf("inits = %d, destroys = %d, want 0 and 0", rt.inits, rt.destroys)
		}
		if !rt.initialized {
			t.Fatalf("environment set up elsewhere must not be destroyed")
		}
	})

	t.Run("initialization fails", func(t *testing.T) {
		rt := &stubRuntime{}
		useStubRuntime(t, rt, nil, nil, nil)
		ortInitialize = func() error { return errors.New("libonnxruntime.so: cannot open shared object file") }

		if _, err := NewONNXClassifier("plant.onnx", ONNXOptions{}); err == nil {
			t.Fatalf("expected error")
		}
		if rt.destroys != 0 {
			t.Fatalf("destroys = %d, want 0 when initialization never succeeded", rt.destroys)
		}
	})
}
