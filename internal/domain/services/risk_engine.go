package services

import (
	"fmt"
	"math"
	"strings"

	"adscope-lab/internal/domain/models"
	"adscope-lab/pkg/logger"
)

// RiskEngine is the additive rule-based scorer. Every triggered rule adds a
// fixed weight and appends a human-readable reason so scores stay auditable.
type RiskEngine struct {
	logger *logger.Logger
}

// NewRiskEngine creates a new RiskEngine.
func NewRiskEngine(log *logger.Logger) *RiskEngine {
	return &RiskEngine{
		logger: log.WithComponent("risk_engine"),
	}
}

// Score evaluates a feature vector plus its IOC matches and returns the
// capped rule score with the list of triggered reasons.
func (e *RiskEngine) Score(features models.FeatureVector, iocMatches []string) (float64, []string) {
	var score float64
	var reasons []string

	switch {
	case features.SuspiciousPermissionsCount >= 3:
		score += 28
		reasons = append(reasons, "High count of high-risk permissions requested")
	case features.SuspiciousPermissionsCount > 0:
		score += 14
		reasons = append(reasons, "High-risk permissions requested")
	}

	if features.OverlayPermissionDetected == 1 {
		score += 10
		reasons = append(reasons, "Overlay permission detected (SYSTEM_ALERT_WINDOW)")
	}
	if features.AccessibilityBindingDetected == 1 {
		score += 14
		reasons = append(reasons, "Accessibility service binding detected")
	}
	if features.InstallPackagesPermissionDetected == 1 {
		score += 12
		reasons = append(reasons, "Package-install capability requested")
	}
	if features.WriteSettingsDetected == 1 {
		score += 10
		reasons = append(reasons, "System settings write capability requested")
	}
	if features.BootReceiverDetected == 1 {
		score += 8
		reasons = append(reasons, "Boot-completed receiver registered")
	}

	switch {
	case features.AdSDKHits >= 4:
		score += 15
		reasons = append(reasons, "Aggressive ad SDK presence in package metadata")
	case features.AdSDKHits > 0:
		score += 6
		reasons = append(reasons, "Ad SDK markers present in package metadata")
	}

	switch {
	case features.TrackerHits >= 3:
		score += 10
		reasons = append(reasons, "Multiple tracking indicators in metadata")
	case features.TrackerHits > 0:
		score += 5
		reasons = append(reasons, "Tracking indicators in metadata")
	}

	if features.SuspiciousKeywordHits >= 2 {
		score += 6
		reasons = append(reasons, "Sensitive keywords detected in package information")
	}

	switch {
	case features.DangerousPermissionsCount >= 8:
		score += 12
		reasons = append(reasons, "Very large dangerous-permission surface")
	case features.DangerousPermissionsCount >= 4:
		score += 6
		reasons = append(reasons, "Elevated dangerous-permission surface")
	}

	if len(iocMatches) > 0 {
		score += math.Min(32.0, 8.0*float64(len(iocMatches)))
		reasons = append(reasons, fmt.Sprintf("Active IOC matches: %d", len(iocMatches)))
	}

	installer := strings.ToLower(strings.TrimSpace(features.Installer))
	if installer == "" || strings.Contains(installer, "unknown") {
		score += 6
		reasons = append(reasons, "Unknown or missing installer source")
	}

	final := math.Min(100.0, round2(score))

	e.logger.Debug().
		Str("package", features.PackageName).
		Float64("rule_score", final).
		Int("reasons", len(reasons)).
		Msg("rule-based score computed")

	return final, reasons
}
