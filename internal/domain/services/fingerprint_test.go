package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"adscope-lab/internal/domain/models"
)

func TestFingerprintOrderInvariance(t *testing.T) {
	fp := NewFingerprinter()

	summary := models.ComponentSummary{ReceiverHits: 2, ServiceHits: 1, HasBootReceiver: 1}
	snap := models.DeviceSnapshot{APKSHA256: "abc123", APKRemotePath: "/data/app/base.apk"}

	a := fp.Fingerprint("com.example.app",
		[]string{"android.permission.CAMERA", "android.permission.INTERNET"}, summary, snap)
	b := fp.Fingerprint("com.example.app",
		[]string{"android.permission.INTERNET", "android.permission.CAMERA"}, summary, snap)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestFingerprintSensitivity(t *testing.T) {
	fp := NewFingerprinter()

	summary := models.ComponentSummary{ReceiverHits: 2}
	snap := models.DeviceSnapshot{APKSHA256: "abc123"}
	base := fp.Fingerprint("com.example.app", []string{"android.permission.CAMERA"}, summary, snap)

	otherPackage := fp.Fingerprint("com.example.other", []string{"android.permission.CAMERA"}, summary, snap)
	assert.NotEqual(t, base, otherPackage)

	otherHash := fp.Fingerprint("com.example.app", []string{"android.permission.CAMERA"}, summary,
		models.DeviceSnapshot{APKSHA256: "def456"})
	assert.NotEqual(t, base, otherHash)

	otherSummary := fp.Fingerprint("com.example.app", []string{"android.permission.CAMERA"},
		models.ComponentSummary{ReceiverHits: 3}, snap)
	assert.NotEqual(t, base, otherSummary)
}

func TestFingerprintDoesNotMutateInput(t *testing.T) {
	fp := NewFingerprinter()

	perms := []string{"android.permission.INTERNET", "android.permission.CAMERA"}
	fp.Fingerprint("com.example.app", perms, models.ComponentSummary{}, models.DeviceSnapshot{})
	assert.Equal(t, []string{"android.permission.INTERNET", "android.permission.CAMERA"}, perms)
}
