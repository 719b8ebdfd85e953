package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"adscope-lab/internal/domain/models"
	"adscope-lab/pkg/logger"
)

func benignFeatures() models.FeatureVector {
	return models.FeatureVector{
		PackageName:               "com.example.safe",
		Installer:                 "com.android.vending",
		InstallPath:               "/data/app/com.example.safe/base.apk",
		PermissionsTotal:          2,
		DangerousPermissionsCount: 2,
	}
}

func hostileFeatures() models.FeatureVector {
	return models.FeatureVector{
		PackageName:                       "com.example.mal",
		Installer:                         "unknown",
		InstallPath:                       "/data/app/com.example.mal/base.apk",
		PermissionsTotal:                  12,
		SuspiciousPermissionsCount:        3,
		DangerousPermissionsCount:         12,
		AdSDKHits:                         5,
		TrackerHits:                       3,
		SuspiciousKeywordHits:             2,
		BootReceiverDetected:              1,
		AccessibilityBindingDetected:      1,
		OverlayPermissionDetected:         1,
		InstallPackagesPermissionDetected: 1,
		WriteSettingsDetected:             1,
		APKHashPresent:                    1,
		APKSizeKB:                         2048,
	}
}

func TestRiskEngineBounds(t *testing.T) {
	engine := NewRiskEngine(logger.Nop())

	score, reasons := engine.Score(benignFeatures(), nil)
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 100.0)
	assert.Equal(t, models.RiskLevelLow, models.ScoreToLevel(score))
	assert.Empty(t, reasons)

	// Even a fully hostile vector with many IOC hits stays capped.
	score, _ = engine.Score(hostileFeatures(), []string{"a", "b", "c", "d", "e", "f"})
	assert.LessOrEqual(t, score, 100.0)
}

func TestRiskEngineCriticalScenario(t *testing.T) {
	engine := NewRiskEngine(logger.Nop())

	score, reasons := engine.Score(hostileFeatures(), []string{"silentinstall"})
	assert.GreaterOrEqual(t, score, 75.0)
	assert.Equal(t, models.RiskLevelCritical, models.ScoreToLevel(score))
	assert.NotEmpty(t, reasons)
}

func TestRiskEngineUnknownInstaller(t *testing.T) {
	engine := NewRiskEngine(logger.Nop())

	trusted := benignFeatures()
	sideloaded := benignFeatures()
	sideloaded.Installer = "unknown"

	trustedScore, _ := engine.Score(trusted, nil)
	sideloadedScore, _ := engine.Score(sideloaded, nil)
	assert.Equal(t, trustedScore+6, sideloadedScore)

	blank := benignFeatures()
	blank.Installer = "  "
	blankScore, _ := engine.Score(blank, nil)
	assert.Equal(t, sideloadedScore, blankScore)
}

func TestScoreToLevelThresholds(t *testing.T) {
	assert.Equal(t, models.RiskLevelLow, models.ScoreToLevel(29.99))
	assert.Equal(t, models.RiskLevelMedium, models.ScoreToLevel(30))
	assert.Equal(t, models.RiskLevelMedium, models.ScoreToLevel(54.99))
	assert.Equal(t, models.RiskLevelHigh, models.ScoreToLevel(55))
	assert.Equal(t, models.RiskLevelHigh, models.ScoreToLevel(74.99))
	assert.Equal(t, models.RiskLevelCritical, models.ScoreToLevel(75))
}

func TestRiskEngineIOCContributionCapped(t *testing.T) {
	engine := NewRiskEngine(logger.Nop())

	base, _ := engine.Score(benignFeatures(), nil)
	four, _ := engine.Score(benignFeatures(), []string{"a", "b", "c", "d"})
	ten, _ := engine.Score(benignFeatures(), []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"})

	assert.Equal(t, base+32, four)
	assert.Equal(t, four, ten)
}
