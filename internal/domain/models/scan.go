package models

import "time"

// RiskLevel buckets a 0-100 risk score.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "LOW"
	RiskLevelMedium   RiskLevel = "MEDIUM"
	RiskLevelHigh     RiskLevel = "HIGH"
	RiskLevelCritical RiskLevel = "CRITICAL"
)

// ScoreToLevel maps a risk score onto the documented 30/55/75 thresholds.
// Rule scoring, fusion and campaign levels all share this mapping.
func ScoreToLevel(score float64) RiskLevel {
	switch {
	case score >= 75:
		return RiskLevelCritical
	case score >= 55:
		return RiskLevelHigh
	case score >= 30:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

// AttackTechnique is a MITRE ATT&CK-for-Mobile style descriptor inferred
// from observable traits. Confidence expresses heuristic correlation
// strength, never attribution certainty.
type AttackTechnique struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Tactic     string `json:"tactic"`
	Confidence string `json:"confidence"`
}

// ScanResult is the fused outcome of one package scan. The store assigns
// ScanID on insert; the record is immutable afterwards.
type ScanResult struct {
	ScanID       int64         `json:"scan_id"`
	DeviceID     string        `json:"device_id"`
	PackageName  string        `json:"package_name"`
	TimestampUTC string        `json:"timestamp_utc"`
	Features     FeatureVector `json:"feature_vector"`

	RiskScore float64   `json:"risk_score"`
	RiskLevel RiskLevel `json:"risk_level"`

	AnomalyScore *float64 `json:"anomaly_score,omitempty"`
	AnomalyZMax  *float64 `json:"anomaly_zmax,omitempty"`

	MLRiskScore    *float64 `json:"ml_risk_score,omitempty"`
	MLModelVersion string   `json:"ml_model_version,omitempty"`

	ComponentFingerprint string `json:"component_fingerprint,omitempty"`

	Reasons          []string          `json:"reasons"`
	IOCMatches       []string          `json:"ioc_matches"`
	AttackTechniques []AttackTechnique `json:"attack_techniques"`
}

// ScanRecord is a stored scan decoded for batch consumers (campaign
// correlation, STIX export, listings). JSON blob fields that fail to decode
// degrade to empty structures so one corrupt row never aborts a batch read.
type ScanRecord struct {
	ID          int64     `json:"id"`
	CreatedAt   string    `json:"created_at"`
	DeviceID    string    `json:"device_id"`
	PackageName string    `json:"package_name"`
	RiskScore   float64   `json:"risk_score"`
	RiskLevel   RiskLevel `json:"risk_level"`

	AnomalyScore *float64 `json:"anomaly_score,omitempty"`
	AnomalyZMax  *float64 `json:"anomaly_zmax,omitempty"`

	Label *int `json:"label,omitempty"`

	Reasons          []string          `json:"reasons"`
	IOCMatches       []string          `json:"ioc_matches"`
	Features         FeatureVector     `json:"features"`
	RawSnapshot      StoredSnapshot    `json:"raw_snapshot"`
	AttackTechniques []AttackTechnique `json:"attack_techniques"`
}

// ParsedCreatedAt returns the record timestamp, or the zero time when it
// does not parse.
func (r *ScanRecord) ParsedCreatedAt() time.Time {
	ts, err := time.Parse(time.RFC3339, r.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

// RecentScan is the compact listing row returned to clients.
type RecentScan struct {
	ID          int64     `json:"id"`
	CreatedAt   string    `json:"created_at"`
	DeviceID    string    `json:"device_id"`
	PackageName string    `json:"package_name"`
	RiskScore   float64   `json:"risk_score"`
	RiskLevel   RiskLevel `json:"risk_level"`
	Label       *int      `json:"label,omitempty"`
}

// ScanLabel is the analyst verdict for one scan: 0 benign, 1 malicious.
// At most one label exists per scan; relabeling overwrites.
type ScanLabel struct {
	ScanID    int64  `json:"scan_id"`
	Label     int    `json:"label"`
	Source    string `json:"source"`
	CreatedAt string `json:"created_at"`
}
