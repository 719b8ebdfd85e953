package models

// STIX 2.1-shaped export objects. Only the subset of properties this engine
// emits is modeled; custom properties carry the x_ prefix per convention.

// STIXIdentity is the shared producer identity for an export.
type STIXIdentity struct {
	Type          string `json:"type"`
	SpecVersion   string `json:"spec_version"`
	ID            string `json:"id"`
	Created       string `json:"created"`
	Modified      string `json:"modified"`
	Name          string `json:"name"`
	IdentityClass string `json:"identity_class"`
}

// STIXObservedData represents one stored scan.
type STIXObservedData struct {
	Type           string        `json:"type"`
	SpecVersion    string        `json:"spec_version"`
	ID             string        `json:"id"`
	CreatedByRef   string        `json:"created_by_ref"`
	Created        string        `json:"created"`
	Modified       string        `json:"modified"`
	FirstObserved  string        `json:"first_observed"`
	LastObserved   string        `json:"last_observed"`
	NumberObserved int           `json:"number_observed"`
	XScanID        int64         `json:"x_scan_id"`
	XDeviceID      string        `json:"x_device_id"`
	XPackageName   string        `json:"x_package_name"`
	XRiskLevel     string        `json:"x_risk_level"`
	XRiskScore     float64       `json:"x_risk_score"`
	XFeatures      FeatureVector `json:"x_features"`
}

// STIXNote carries the scan's reason list.
type STIXNote struct {
	Type         string   `json:"type"`
	SpecVersion  string   `json:"spec_version"`
	ID           string   `json:"id"`
	CreatedByRef string   `json:"created_by_ref"`
	Created      string   `json:"created"`
	Modified     string   `json:"modified"`
	Content      string   `json:"content"`
	ObjectRefs   []string `json:"object_refs"`
}

// STIXIndicator is an artifact-hash or IOC-match pattern.
type STIXIndicator struct {
	Type         string   `json:"type"`
	SpecVersion  string   `json:"spec_version"`
	ID           string   `json:"id"`
	CreatedByRef string   `json:"created_by_ref"`
	Created      string   `json:"created"`
	Modified     string   `json:"modified"`
	Name         string   `json:"name"`
	PatternType  string   `json:"pattern_type"`
	Pattern      string   `json:"pattern"`
	ValidFrom    string   `json:"valid_from"`
	Labels       []string `json:"labels"`
	Description  string   `json:"description,omitempty"`
}

// STIXRelationship links two objects in the bundle.
type STIXRelationship struct {
	Type             string `json:"type"`
	SpecVersion      string `json:"spec_version"`
	ID               string `json:"id"`
	Created          string `json:"created"`
	Modified         string `json:"modified"`
	RelationshipType string `json:"relationship_type"`
	SourceRef        string `json:"source_ref"`
	TargetRef        string `json:"target_ref"`
}

// STIXAttackPattern is a technique descriptor shared across the export.
type STIXAttackPattern struct {
	Type                 string `json:"type"`
	SpecVersion          string `json:"spec_version"`
	ID                   string `json:"id"`
	Created              string `json:"created"`
	Modified             string `json:"modified"`
	Name                 string `json:"name"`
	Description          string `json:"description"`
	XAttackTechniqueID   string `json:"x_attack_technique_id"`
	XAttackTactic        string `json:"x_attack_tactic"`
	XInferenceConfidence string `json:"x_inference_confidence"`
}

// STIXBundle is the export envelope. Objects is heterogeneous on purpose.
type STIXBundle struct {
	Type        string `json:"type"`
	ID          string `json:"id"`
	SpecVersion string `json:"spec_version"`
	Objects     []any  `json:"objects"`
}
