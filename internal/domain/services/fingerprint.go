package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"adscope-lab/internal/domain/models"
)

// Fingerprinter derives a stable content digest for a package's declared
// shape. Identical logical input yields an identical digest regardless of
// upstream ordering.
type Fingerprinter struct{}

// NewFingerprinter creates a new Fingerprinter.
func NewFingerprinter() *Fingerprinter {
	return &Fingerprinter{}
}

// Fingerprint hashes the canonical JSON form of the package identity fields.
// Maps are used throughout so key order is always sorted by the encoder.
func (f *Fingerprinter) Fingerprint(packageName string, permissions []string, summary models.ComponentSummary, snap models.DeviceSnapshot) string {
	sorted := append([]string(nil), permissions...)
	sort.Strings(sorted)

	canonical := map[string]any{
		"package_name": packageName,
		"permissions":  sorted,
		"component_summary": map[string]int{
			"receiver_hits":             summary.ReceiverHits,
			"service_hits":              summary.ServiceHits,
			"activity_hits":             summary.ActivityHits,
			"provider_hits":             summary.ProviderHits,
			"exported_true_hits":        summary.ExportedTrueHits,
			"has_boot_receiver":         summary.HasBootReceiver,
			"has_notification_listener": summary.HasNotificationListener,
			"has_accessibility_binding": summary.HasAccessibilityBinding,
		},
		"apk_sha256":      snap.APKSHA256,
		"apk_remote_path": snap.APKRemotePath,
	}

	// Canonical form cannot fail to encode: only strings, ints and slices.
	raw, _ := json.Marshal(canonical)
	digest := sha256.Sum256(raw)
	return hex.EncodeToString(digest[:])
}
