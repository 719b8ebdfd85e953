package services

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"adscope-lab/internal/domain/models"
)

var (
	permissionPattern = regexp.MustCompile(`android\.permission\.[A-Z0-9_]+`)
	installerPattern  = regexp.MustCompile(`installer=([^\s]+)`)
	pathPattern       = regexp.MustCompile(`package:(.+)`)
	exportedPattern   = regexp.MustCompile(`exported\s*=\s*true`)
)

// highRiskPermissions are the Android permissions most frequently abused by
// adware and spyware families for overlay, install and surveillance behavior.
var highRiskPermissions = map[string]struct{}{
	"android.permission.SYSTEM_ALERT_WINDOW":        {},
	"android.permission.BIND_ACCESSIBILITY_SERVICE": {},
	"android.permission.REQUEST_INSTALL_PACKAGES":   {},
	"android.permission.WRITE_SETTINGS":             {},
	"android.permission.PACKAGE_USAGE_STATS":        {},
	"android.permission.READ_LOGS":                  {},
}

var adSDKMarkers = []string{
	"admob", "applovin", "unityads", "appsflyer", "facebook ads",
	"ironsource", "chartboost", "mintegral", "mbridge", "tiktokads",
}

var trackerMarkers = []string{
	"analytics", "track", "telemetry", "fingerprint", "referrer", "attribution",
}

var suspiciousKeywords = []string{
	"accessibility", "overlay", "autostart", "silent",
	"background install", "receiver", "unknown source",
}

// FeatureExtractor derives the numeric and boolean features used by the risk
// engine, anomaly detector and supervised model from a raw device snapshot.
type FeatureExtractor struct{}

// NewFeatureExtractor creates a new FeatureExtractor.
func NewFeatureExtractor() *FeatureExtractor {
	return &FeatureExtractor{}
}

// Extract turns a device snapshot into a feature vector for one package.
func (e *FeatureExtractor) Extract(packageName string, snap models.DeviceSnapshot) models.FeatureVector {
	lowered := strings.ToLower(snap.DumpsysPackage)

	permissions := e.Permissions(snap.DumpsysPackage)

	suspicious := 0
	for _, perm := range permissions {
		if _, ok := highRiskPermissions[perm]; ok {
			suspicious++
		}
	}

	fv := models.FeatureVector{
		PackageName:                packageName,
		Installer:                  extractFirstGroup(installerPattern, snap.PMInstaller, "unknown"),
		InstallPath:                strings.TrimSpace(extractFirstGroup(pathPattern, snap.PMPath, "unknown")),
		PermissionsTotal:           len(permissions),
		SuspiciousPermissionsCount: suspicious,
		// The dangerous-surface signal is deliberately coarse: every
		// requested permission widens the surface, so the raw count is
		// used rather than a curated subset.
		DangerousPermissionsCount: len(permissions),
		AdSDKHits:                 countMarkers(lowered, adSDKMarkers),
		TrackerHits:               countMarkers(lowered, trackerMarkers),
		SuspiciousKeywordHits:     countMarkers(lowered, suspiciousKeywords),
	}

	if strings.Contains(lowered, "receive_boot_completed") {
		fv.BootReceiverDetected = 1
	}
	if strings.Contains(lowered, "bind_accessibility_service") {
		fv.AccessibilityBindingDetected = 1
	}
	if strings.Contains(lowered, "system_alert_window") {
		fv.OverlayPermissionDetected = 1
	}
	if strings.Contains(lowered, "request_install_packages") {
		fv.InstallPackagesPermissionDetected = 1
	}
	if strings.Contains(lowered, "write_settings") {
		fv.WriteSettingsDetected = 1
	}
	if snap.APKSHA256 != "" {
		fv.APKHashPresent = 1
	}
	if snap.APKSizeBytes > 0 {
		fv.APKSizeKB = round2(float64(snap.APKSizeBytes) / 1024.0)
	}

	return fv
}

// Permissions returns the sorted unique android.permission.* identifiers
// found in dumpsys output.
func (e *FeatureExtractor) Permissions(dumpsys string) []string {
	seen := make(map[string]struct{})
	for _, m := range permissionPattern.FindAllString(dumpsys, -1) {
		seen[m] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// SummarizeComponents counts declared component kinds and hardening-relevant
// flags from dumpsys output.
func (e *FeatureExtractor) SummarizeComponents(dumpsys string) models.ComponentSummary {
	summary := models.ComponentSummary{}
	lower := strings.ToLower(dumpsys)

	for _, line := range strings.Split(lower, "\n") {
		if strings.Contains(line, "receiver") {
			summary.ReceiverHits++
		}
		if strings.Contains(line, "service") {
			summary.ServiceHits++
		}
		if strings.Contains(line, "activity") {
			summary.ActivityHits++
		}
		if strings.Contains(line, "provider") {
			summary.ProviderHits++
		}
	}

	summary.ExportedTrueHits = len(exportedPattern.FindAllString(lower, -1))

	if strings.Contains(lower, "receive_boot_completed") {
		summary.HasBootReceiver = 1
	}
	if strings.Contains(lower, "bind_notification_listener_service") {
		summary.HasNotificationListener = 1
	}
	if strings.Contains(lower, "bind_accessibility_service") {
		summary.HasAccessibilityBinding = 1
	}

	return summary
}

func extractFirstGroup(re *regexp.Regexp, text, fallback string) string {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 || m[1] == "" {
		return fallback
	}
	return m[1]
}

func countMarkers(corpus string, markers []string) int {
	n := 0
	for _, m := range markers {
		if strings.Contains(corpus, m) {
			n++
		}
	}
	return n
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
