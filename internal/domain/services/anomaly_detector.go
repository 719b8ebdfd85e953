package services

import (
	"math"

	"adscope-lab/internal/domain/models"
)

// AnomalyResult carries the deviation score for one feature vector against
// the fleet baseline.
type AnomalyResult struct {
	Score float64 `json:"score"`
	ZMax  float64 `json:"zmax"`
}

// AnomalyDetector scores feature vectors against per-feature baseline
// statistics using z-score deviation.
type AnomalyDetector struct{}

// NewAnomalyDetector creates a new AnomalyDetector.
func NewAnomalyDetector() *AnomalyDetector {
	return &AnomalyDetector{}
}

// Evaluate returns nil when the baseline has too few samples to be trusted.
// That is the "no signal" outcome, not an error.
func (d *AnomalyDetector) Evaluate(features models.FeatureVector, baseline *models.BaselineStats) *AnomalyResult {
	if baseline == nil || !baseline.Usable() {
		return nil
	}

	var zmax, sumSquares float64
	for _, name := range models.NumericFeatureNames {
		value := features.NumericValue(name)
		mean := baseline.Means[name]
		std := baseline.Stds[name]

		var z float64
		if std <= 1e-9 {
			// Degenerate feature: any deviation from a flat baseline is
			// itself a strong signal.
			if math.Abs(value-mean) < 1e-9 {
				z = 0
			} else {
				z = 3.0
			}
		} else {
			z = math.Abs(value-mean) / std
		}

		if z > zmax {
			zmax = z
		}
		sumSquares += z * z
	}

	score := math.Min(100.0, round2(zmax*18.0+math.Sqrt(sumSquares)*4.0))

	return &AnomalyResult{
		Score: score,
		ZMax:  round4(zmax),
	}
}
