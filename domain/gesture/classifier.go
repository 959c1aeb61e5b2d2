package gesture

import (
	"time"

	"github.com/satriahrh/morsenet/domain/entities"
)

// DefaultThreshold is the press length, in seconds, at which a dot becomes a dash
const DefaultThreshold = 0.2

// Classifier turns press durations into dots and dashes
type Classifier struct {
	// Threshold in seconds. Presses strictly shorter are dots.
	Threshold float64
}

// NewClassifier creates a classifier. A non-positive threshold falls back to DefaultThreshold.
func NewClassifier(threshold time.Duration) Classifier {
	if threshold <= 0 {
		return Classifier{Threshold: DefaultThreshold}
	}
	return Classifier{Threshold: threshold.Seconds()}
}

// ClassifySeconds classifies a press duration given in seconds
func (c Classifier) ClassifySeconds(seconds float64) entities.Symbol {
	threshold := c.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if seconds < threshold {
		return entities.Dot
	}
	return entities.Dash
}

// Classify classifies a press duration
func (c Classifier) Classify(d time.Duration) entities.Symbol {
	return c.ClassifySeconds(d.Seconds())
}
