package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adscope-lab/internal/domain/models"
)

func testBaseline(sampleSize int) *models.BaselineStats {
	return &models.BaselineStats{
		Means: map[string]float64{
			"permissions_total":            4,
			"suspicious_permissions_count": 0,
			"dangerous_permissions_count":  4,
			"ad_sdk_hits":                  1,
			"tracker_hits":                 1,
			"suspicious_keyword_hits":      0,
		},
		Stds: map[string]float64{
			"permissions_total":            1,
			"suspicious_permissions_count": 0.5,
			"dangerous_permissions_count":  1,
			"ad_sdk_hits":                  0.5,
			"tracker_hits":                 0.5,
			"suspicious_keyword_hits":      0.5,
		},
		SampleSize: sampleSize,
	}
}

func TestAnomalyDetectorNoSignalBelowMinimumSamples(t *testing.T) {
	detector := NewAnomalyDetector()

	assert.Nil(t, detector.Evaluate(hostileFeatures(), nil))
	assert.Nil(t, detector.Evaluate(hostileFeatures(), testBaseline(7)))
	assert.NotNil(t, detector.Evaluate(hostileFeatures(), testBaseline(8)))
}

func TestAnomalyDetectorFlagsStrongDeviation(t *testing.T) {
	detector := NewAnomalyDetector()

	// Every numeric feature sits at least 3 standard deviations out.
	outlier := models.FeatureVector{
		PermissionsTotal:           12,
		SuspiciousPermissionsCount: 3,
		DangerousPermissionsCount:  12,
		AdSDKHits:                  5,
		TrackerHits:                3,
		SuspiciousKeywordHits:      2,
	}

	result := detector.Evaluate(outlier, testBaseline(25))
	require.NotNil(t, result)
	assert.Greater(t, result.Score, 50.0)
	assert.GreaterOrEqual(t, result.ZMax, 3.0)
}

func TestAnomalyDetectorBaselineMatchScoresZero(t *testing.T) {
	detector := NewAnomalyDetector()

	onBaseline := models.FeatureVector{
		PermissionsTotal:          4,
		DangerousPermissionsCount: 4,
		AdSDKHits:                 1,
		TrackerHits:               1,
	}

	result := detector.Evaluate(onBaseline, testBaseline(25))
	require.NotNil(t, result)
	assert.Equal(t, 0.0, result.Score)
	assert.Equal(t, 0.0, result.ZMax)
}

func TestAnomalyDetectorDegenerateStd(t *testing.T) {
	detector := NewAnomalyDetector()

	baseline := testBaseline(25)
	for name := range baseline.Stds {
		baseline.Stds[name] = 0
	}

	// Flat baseline, on-mean vector: no deviation, no signal strength.
	onMean := models.FeatureVector{
		PermissionsTotal:          4,
		DangerousPermissionsCount: 4,
		AdSDKHits:                 1,
		TrackerHits:               1,
	}
	result := detector.Evaluate(onMean, baseline)
	require.NotNil(t, result)
	assert.Equal(t, 0.0, result.ZMax)

	// Any deviation from a flat baseline pins z at the sentinel.
	off := onMean
	off.PermissionsTotal = 5
	result = detector.Evaluate(off, baseline)
	require.NotNil(t, result)
	assert.Equal(t, 3.0, result.ZMax)
}
