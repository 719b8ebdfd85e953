package models

import "errors"

// Sentinel errors for validation failures surfaced to callers. Wrap them
// with context; callers test with errors.Is.
var (
	// ErrInsufficientSamples is returned when a training run has fewer
	// labeled rows than the configured minimum. No state is mutated.
	ErrInsufficientSamples = errors.New("insufficient labeled samples")

	// ErrInvalidLabel is returned for label values outside {0, 1}.
	ErrInvalidLabel = errors.New("label must be 0 or 1")

	// ErrScanNotFound is returned when labeling references a scan id or
	// package with no stored scans.
	ErrScanNotFound = errors.New("scan not found")
)
