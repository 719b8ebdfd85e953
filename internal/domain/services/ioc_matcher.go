package services

import (
	"regexp"
	"strings"

	"adscope-lab/internal/domain/models"
	"adscope-lab/pkg/logger"
)

// IOCMatcher evaluates a device snapshot against the active IOC catalogue.
// Matching is deliberately forgiving: a malformed signature never fails a
// scan, it is skipped.
type IOCMatcher struct {
	logger *logger.Logger
}

// NewIOCMatcher creates a new IOCMatcher.
func NewIOCMatcher(log *logger.Logger) *IOCMatcher {
	return &IOCMatcher{
		logger: log.WithComponent("ioc_matcher"),
	}
}

// Match returns the matched IOC values for one snapshot. Hash matches are
// recorded with a "sha256:" prefix so downstream consumers can tell artifact
// identity apart from textual hits.
func (m *IOCMatcher) Match(snap models.DeviceSnapshot, iocs []models.IOCSignature) []string {
	corpus := strings.ToLower(strings.Join([]string{
		snap.DumpsysPackage,
		snap.PMPath,
		snap.PMInstaller,
	}, "\n"))
	apkHash := strings.ToLower(strings.TrimSpace(snap.APKSHA256))

	var matches []string
	for _, ioc := range iocs {
		value := strings.ToLower(strings.TrimSpace(ioc.Value))
		if value == "" {
			continue
		}

		switch strings.ToLower(strings.TrimSpace(string(ioc.Type))) {
		case "hash_sha256", "sha256":
			if apkHash != "" && value == apkHash {
				matches = append(matches, "sha256:"+value)
			}
		case "regex":
			re, err := regexp.Compile("(?i)" + value)
			if err != nil {
				m.logger.Warn().Str("pattern", ioc.Value).Msg("skipping invalid IOC regex")
				continue
			}
			if re.MatchString(corpus) {
				matches = append(matches, value)
			}
		default:
			if strings.Contains(corpus, value) {
				matches = append(matches, value)
			}
		}
	}

	return matches
}
