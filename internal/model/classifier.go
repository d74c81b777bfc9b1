package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

// Classifier errors.
var (
	ErrFeatureMismatch = errors.New("feature vector length does not match model weights")
	ErrEmptySchedule   = errors.New("model schedule has no entries")
)

// Classifier gates strategy entries. Predict returns 1 to accept the entry
// and 0 to reject it.
type Classifier interface {
	Predict(features []float64) (int, error)
}

// LinearClassifier is a pretrained logistic model: accept when
// sigmoid(w·x + b) crosses the threshold.
type LinearClassifier struct {
	Weights   []float64 `json:"weights"`
	Bias      float64   `json:"bias"`
	Threshold float64   `json:"threshold"`
}

// Predict returns 1 when the logistic score is at or above the threshold.
func (m *LinearClassifier) Predict(features []float64) (int, error) {
	if len(features) != len(m.Weights) {
		return 0, fmt.Errorf("%w: got %d features, model has %d weights",
			ErrFeatureMismatch, len(features), len(m.Weights))
	}

	z := m.Bias
	for i, w := range m.Weights {
		z += w * features[i]
	}

	score := 1.0 / (1.0 + math.Exp(-z))
	threshold := m.Threshold
	if threshold == 0 {
		threshold = 0.5
	}

	if score >= threshold {
		return 1, nil
	}
	return 0, nil
}

// LoadLinearClassifier reads a pretrained model from a JSON file.
func LoadLinearClassifier(path string) (*LinearClassifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}

	var m LinearClassifier
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse model file %s: %w", path, err)
	}
	if len(m.Weights) == 0 {
		return nil, fmt.Errorf("model file %s: no weights", path)
	}

	return &m, nil
}

var _ Classifier = (*LinearClassifier)(nil)
