// Package report turns a prediction into what the user sees: a coarse
// healthy/diseased category, a confidence tier and care guidance.
package report

import (
	"fmt"
	"strings"

	"github.com/Brownie44l1/leaf-api/internal/model"
)

type Category string

const (
	Healthy  Category = "healthy"
	Diseased Category = "diseased"
)

type Tier string

const (
	TierHigh Tier = "high"
	TierLow  Tier = "low"
)

const DefaultThreshold = 0.8

const (
	GuidanceHealthy  = "Your plant looks healthy. Maintain current care routine: regular watering, good light and periodic checks for new spots."
	GuidanceDiseased = "Signs of disease detected. Isolate the affected plant, remove damaged leaves and consult a local extension service about treatment."
)

type Report struct {
	Label      string   `json:"label"`
	ClassIndex int      `json:"class_index"`
	Confidence float32  `json:"confidence"`
	Percent    int      `json:"percent"`
	Category   Category `json:"category"`
	Tier       Tier     `json:"tier"`
	Guidance   string   `json:"guidance"`
}

// Build derives the presentational fields. threshold is the confidence at
// or above which the result counts as high tier.
func Build(p model.Prediction, threshold float64) Report {
	category := Diseased
	guidance := GuidanceDiseased
	if IsHealthy(p.Label) {
		category = Healthy
		guidance = GuidanceHealthy
	}

	tier := TierLow
	if float64(p.Confidence) >= threshold {
		tier = TierHigh
	}

	return Report{
		Label:      p.Label,
		ClassIndex: p.ClassIndex,
		Confidence: p.Confidence,
		Percent:    Percent(p.Confidence),
		Category:   category,
		Tier:       tier,
		Guidance:   guidance,
	}
}

func IsHealthy(label string) bool {
	return strings.Contains(strings.ToLower(label), "healthy")
}

// Percent truncates confidence*100 to an integer.
func Percent(confidence float32) int {
	return int(confidence * 100)
}

// DisplayLabel makes dataset names like "Tomato___Late_blight" readable.
func DisplayLabel(label string) string {
	s := strings.ReplaceAll(label, "___", " - ")
	s = strings.ReplaceAll(s, "_", " ")
	return strings.Join(strings.Fields(s), " ")
}

// Fraction formats confidence with two decimals, e.g. "0.93".
func (r Report) Fraction() string {
	return fmt.Sprintf("%.2f", r.Confidence)
}
