package models

// FeatureVector is the fixed-shape numeric record extracted from one device
// snapshot. It is built once per scan and embedded verbatim in the result;
// nothing mutates it afterwards.
type FeatureVector struct {
	PackageName string `json:"package_name"`
	Installer   string `json:"installer"`
	InstallPath string `json:"install_path"`

	PermissionsTotal           int `json:"permissions_total"`
	SuspiciousPermissionsCount int `json:"suspicious_permissions_count"`
	DangerousPermissionsCount  int `json:"dangerous_permissions_count"`
	AdSDKHits                  int `json:"ad_sdk_hits"`
	TrackerHits                int `json:"tracker_hits"`
	SuspiciousKeywordHits      int `json:"suspicious_keyword_hits"`

	// Capability flags kept as 0/1 ints so they feed the scaler and the
	// stored JSON row without a conversion layer.
	BootReceiverDetected              int `json:"boot_receiver_detected"`
	AccessibilityBindingDetected      int `json:"accessibility_binding_detected"`
	OverlayPermissionDetected         int `json:"overlay_permission_detected"`
	InstallPackagesPermissionDetected int `json:"install_packages_permission_detected"`
	WriteSettingsDetected             int `json:"write_settings_detected"`

	APKHashPresent int     `json:"apk_hash_present"`
	APKSizeKB      float64 `json:"apk_size_kb"`
}

// NumericFeatureNames lists the features tracked by the anomaly baseline.
var NumericFeatureNames = []string{
	"permissions_total",
	"suspicious_permissions_count",
	"dangerous_permissions_count",
	"ad_sdk_hits",
	"tracker_hits",
	"suspicious_keyword_hits",
}

// NumericValue returns the named baseline feature as a float. Unknown names
// return 0.
func (f *FeatureVector) NumericValue(name string) float64 {
	switch name {
	case "permissions_total":
		return float64(f.PermissionsTotal)
	case "suspicious_permissions_count":
		return float64(f.SuspiciousPermissionsCount)
	case "dangerous_permissions_count":
		return float64(f.DangerousPermissionsCount)
	case "ad_sdk_hits":
		return float64(f.AdSDKHits)
	case "tracker_hits":
		return float64(f.TrackerHits)
	case "suspicious_keyword_hits":
		return float64(f.SuspiciousKeywordHits)
	case "boot_receiver_detected":
		return float64(f.BootReceiverDetected)
	case "accessibility_binding_detected":
		return float64(f.AccessibilityBindingDetected)
	case "overlay_permission_detected":
		return float64(f.OverlayPermissionDetected)
	case "install_packages_permission_detected":
		return float64(f.InstallPackagesPermissionDetected)
	case "write_settings_detected":
		return float64(f.WriteSettingsDetected)
	case "apk_hash_present":
		return float64(f.APKHashPresent)
	case "apk_size_kb":
		return f.APKSizeKB
	default:
		return 0
	}
}
