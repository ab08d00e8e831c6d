package model

// LabelMap maps a class index to its human-readable name.
type LabelMap map[int]string

// Prediction is the reduced output of one inference call.
type Prediction struct {
	ClassIndex int     `json:"class_index"`
	Label      string  `json:"label"`
	Confidence float32 `json:"confidence"`
}

// Classifier maps one preprocessed input to a probability vector over all
// known classes.
type Classifier interface {
	Classify(input []float32) ([]float32, error)
	Close()
}
