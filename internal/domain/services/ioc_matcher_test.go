package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"adscope-lab/internal/domain/models"
	"adscope-lab/pkg/logger"
)

func TestIOCMatcherModes(t *testing.T) {
	matcher := NewIOCMatcher(logger.Nop())

	snap := models.DeviceSnapshot{
		DumpsysPackage: "Package [com.fake.system.updater]\nandroid.permission.BIND_ACCESSIBILITY_SERVICE",
		PMPath:         "package:/data/app/base.apk",
		PMInstaller:    "installer=null",
		APKSHA256:      "ABCDEF0123456789",
	}

	iocs := []models.IOCSignature{
		{Type: models.IOCTypeKeyword, Value: "com.fake.system.updater", Active: true},
		{Type: models.IOCTypeKeyword, Value: "not-present", Active: true},
		{Type: models.IOCTypeRegex, Value: `android\.permission\.BIND_ACCESSIBILITY_SERVICE`, Active: true},
		{Type: models.IOCTypeSHA256, Value: "abcdef0123456789", Active: true},
		{Type: models.IOCTypeSHA256, Value: "0000000000000000", Active: true},
	}

	matches := matcher.Match(snap, iocs)
	assert.ElementsMatch(t, []string{
		"com.fake.system.updater",
		`android\.permission\.bind_accessibility_service`,
		"sha256:abcdef0123456789",
	}, matches)
}

func TestIOCMatcherSkipsInvalidRegex(t *testing.T) {
	matcher := NewIOCMatcher(logger.Nop())

	snap := models.DeviceSnapshot{DumpsysPackage: "overlay autostart"}
	iocs := []models.IOCSignature{
		{Type: models.IOCTypeRegex, Value: "([unclosed", Active: true},
		{Type: models.IOCTypeKeyword, Value: "overlay", Active: true},
	}

	matches := matcher.Match(snap, iocs)
	assert.Equal(t, []string{"overlay"}, matches)
}

func TestIOCMatcherIgnoresBlankValuesAndMissingHash(t *testing.T) {
	matcher := NewIOCMatcher(logger.Nop())

	snap := models.DeviceSnapshot{DumpsysPackage: "anything"}
	iocs := []models.IOCSignature{
		{Type: models.IOCTypeKeyword, Value: "   ", Active: true},
		{Type: models.IOCTypeSHA256, Value: "abc123", Active: true},
	}

	assert.Empty(t, matcher.Match(snap, iocs))
}
