package services

import (
	"strings"

	"adscope-lab/internal/domain/models"
)

// AttackMapper maps observable app traits to ATT&CK-for-Mobile technique
// descriptors. This is evidence-based heuristic inference, not attribution.
type AttackMapper struct{}

// NewAttackMapper creates a new AttackMapper.
func NewAttackMapper() *AttackMapper {
	return &AttackMapper{}
}

// Infer returns the techniques suggested by the feature flags and raw
// dumpsys text, deduplicated by technique id.
func (m *AttackMapper) Infer(features models.FeatureVector, dumpsysText string) []models.AttackTechnique {
	lowered := strings.ToLower(dumpsysText)
	var techniques []models.AttackTechnique

	if features.AccessibilityBindingDetected == 1 {
		techniques = append(techniques, models.AttackTechnique{
			ID:         "T1453",
			Name:       "Abuse Accessibility Features",
			Tactic:     "Privilege Escalation/Defense Evasion",
			Confidence: "high",
		})
	}
	if features.BootReceiverDetected == 1 {
		techniques = append(techniques, models.AttackTechnique{
			ID:         "T1624.001",
			Name:       "Broadcast Receivers",
			Tactic:     "Persistence",
			Confidence: "high",
		})
	}
	if features.OverlayPermissionDetected == 1 {
		techniques = append(techniques, models.AttackTechnique{
			ID:         "T1417.002",
			Name:       "GUI Input Capture",
			Tactic:     "Credential Access",
			Confidence: "medium",
		})
	}
	if features.SuspiciousPermissionsCount > 0 {
		techniques = append(techniques, models.AttackTechnique{
			ID:         "T1636",
			Name:       "Protected User Data",
			Tactic:     "Collection",
			Confidence: "medium",
		})
	}
	if strings.Contains(lowered, "bind_notification_listener_service") {
		techniques = append(techniques, models.AttackTechnique{
			ID:         "T1517",
			Name:       "Access Notifications",
			Tactic:     "Collection",
			Confidence: "medium",
		})
	}
	if strings.Contains(lowered, "bind_device_admin") || strings.Contains(lowered, "device_admin") {
		techniques = append(techniques, models.AttackTechnique{
			ID:         "T1626",
			Name:       "Abuse Elevation Control Mechanism",
			Tactic:     "Privilege Escalation",
			Confidence: "low",
		})
	}

	seen := make(map[string]struct{}, len(techniques))
	deduped := techniques[:0]
	for _, t := range techniques {
		if _, ok := seen[t.ID]; ok {
			continue
		}
		seen[t.ID] = struct{}{}
		deduped = append(deduped, t)
	}
	return deduped
}
