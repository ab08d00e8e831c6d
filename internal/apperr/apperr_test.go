package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestFatal_WrapsCause(t *testing.T) {
	cause := errors.New("no such file")
	err := fmt.Errorf("provider: %w", Fatal("load model", cause))

	if !IsFatal(err) {
		t.Fatalf("expected IsFatal to be true for %v", err)
	}
	if IsInput(err) {
		t.Fatalf("fatal error must not be classified as input error")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable through Unwrap")
	}
	if got, want := err.Error(), "provider: load model: no such file"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestInput(t *testing.T) {
	t.Run("with cause", func(t *testing.T) {
		err := Input("decode image", errors.New("bad header"))
		if !IsInput(err) {
			t.Fatalf("expected IsInput")
		}
		if err.Error() != "decode image: bad header" {
			t.Fatalf("unexpected message %q", err.Error())
		}
	})

	t.Run("formatted", func(t *testing.T) {
		err := Inputf("unsupported format %q", "gif")
		if !IsInput(err) {
			t.Fatalf("expected IsInput")
		}
		if err.Error() != `unsupported format "gif"` {
			t.Fatalf("unexpected message %q", err.Error())
		}
	})

	t.Run("plain errors are neither", func(t *testing.T) {
		err := errors.New("boom")
		if IsInput(err) || IsFatal(err) {
			t.Fatalf("plain error must not be categorized")
		}
	})
}
