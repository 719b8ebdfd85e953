package models

// DeviceSnapshot is the boundary record produced by the external snapshot
// collector. The core never shells out to device tooling itself; it consumes
// the raw inspection text and the optional pulled-artifact metadata as-is.
type DeviceSnapshot struct {
	DumpsysPackage string `json:"dumpsys_package"`
	PMPath         string `json:"pm_path"`
	PMInstaller    string `json:"pm_installer"`

	// Artifact metadata. Empty/zero when the pull failed; the failure text
	// is carried in APKPullError so the scan can proceed degraded.
	APKSHA256     string `json:"apk_sha256"`
	APKSizeBytes  int64  `json:"apk_size_bytes"`
	APKRemotePath string `json:"apk_remote_path"`
	APKPullError  string `json:"apk_pull_error"`
}

// ComponentSummary counts the component surface visible in the inspection
// text. It feeds the cross-scan fingerprint, so field meanings must stay
// stable.
type ComponentSummary struct {
	ReceiverHits     int `json:"receiver_hits"`
	ServiceHits      int `json:"service_hits"`
	ActivityHits     int `json:"activity_hits"`
	ProviderHits     int `json:"provider_hits"`
	ExportedTrueHits int `json:"exported_true_hits"`

	HasBootReceiver         int `json:"has_boot_receiver"`
	HasNotificationListener int `json:"has_notification_listener"`
	HasAccessibilityBinding int `json:"has_accessibility_binding"`
}

// StoredSnapshot is the raw snapshot as persisted with a scan: the collector
// fields plus the derived artifacts attached by the pipeline before insert.
type StoredSnapshot struct {
	DeviceSnapshot
	ComponentSummary     *ComponentSummary `json:"component_summary,omitempty"`
	ComponentFingerprint string            `json:"component_fingerprint,omitempty"`
	AttackTechniques     []AttackTechnique `json:"attack_techniques,omitempty"`
}
