package model

import (
	"errors"
	"fmt"

	"github.com/Brownie44l1/leaf-api/internal/preprocess"
)

var ErrEmptyOutput = errors.New("classifier returned an empty probability vector")

// Argmax returns the position and value of the first maximum in probs.
// It returns (-1, 0) for an empty vector.
func Argmax(probs []float32) (int, float32) {
	if len(probs) == 0 {
		return -1, 0
	}
	maxIdx := 0
	maxVal := probs[0]
	for i, val := range probs[1:] {
		if val > maxVal {
			maxVal = val
			maxIdx = i + 1
		}
	}
	return maxIdx, maxVal
}

// Invoke calls c exactly once and reduces its output to a single labelled
// prediction. The confidence is the raw maximum; it is not re-normalized.
func Invoke(c Classifier, labels LabelMap, t preprocess.Tensor) (Prediction, error) {
	if err := t.Validate(); err != nil {
		return Prediction{}, err
	}

	probs, err := c.Classify(t.Data)
	if err != nil {
		return Prediction{}, err
	}

	idx, confidence := Argmax(probs)
	if idx < 0 {
		return Prediction{}, ErrEmptyOutput
	}

	label, err := labels.Lookup(idx)
	if err != nil {
		return Prediction{}, fmt.Errorf("model and label map disagree: %w", err)
	}

	return Prediction{
		ClassIndex: idx,
		Label:      label,
		Confidence: confidence,
	}, nil
}
