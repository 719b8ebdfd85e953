package models

// MinBaselineSamples is the sample count below which the anomaly detector
// reports no signal rather than unstable z-scores.
const MinBaselineSamples = 8

// BaselineStats holds the per-feature mean/std computed from recent history.
// Rebuilds replace the whole snapshot; no baseline history is kept.
type BaselineStats struct {
	Means      map[string]float64 `json:"means"`
	Stds       map[string]float64 `json:"stds"`
	SampleSize int                `json:"sample_size"`
}

// Usable reports whether the baseline carries enough samples to score
// against.
func (b *BaselineStats) Usable() bool {
	return b != nil && b.SampleSize >= MinBaselineSamples
}
