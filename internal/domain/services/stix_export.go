package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"adscope-lab/internal/domain/models"
	"adscope-lab/pkg/logger"
)

const stixSpecVersion = "2.1"

// STIXExporter maps stored scans onto a minimal STIX 2.1 object graph.
// Identifiers are freshly generated on every export; bundles are not
// content-addressed across runs.
type STIXExporter struct {
	sourceName string
	logger     *logger.Logger
}

// NewSTIXExporter creates a new STIXExporter emitting under the given
// producer identity name.
func NewSTIXExporter(sourceName string, log *logger.Logger) *STIXExporter {
	return &STIXExporter{
		sourceName: sourceName,
		logger:     log.WithComponent("stix_exporter"),
	}
}

// BuildBundle produces a bundle with one shared identity, per-scan
// observed-data and note objects, indicators for artifact hashes and IOC
// matches, and attack-pattern objects deduplicated by technique id.
func (e *STIXExporter) BuildBundle(records []models.ScanRecord) models.STIXBundle {
	now := time.Now().UTC().Format("2006-01-02T15:04:05Z")

	identityID := newSTIXID("identity")
	objects := []any{models.STIXIdentity{
		Type:          "identity",
		SpecVersion:   stixSpecVersion,
		ID:            identityID,
		Created:       now,
		Modified:      now,
		Name:          e.sourceName,
		IdentityClass: "organization",
	}}

	attackPatternIDs := make(map[string]string)

	for _, rec := range records {
		createdAt := normalizeSTIXTime(rec.CreatedAt)

		observedID := newSTIXID("observed-data")
		objects = append(objects, models.STIXObservedData{
			Type:           "observed-data",
			SpecVersion:    stixSpecVersion,
			ID:             observedID,
			CreatedByRef:   identityID,
			Created:        createdAt,
			Modified:       createdAt,
			FirstObserved:  createdAt,
			LastObserved:   createdAt,
			NumberObserved: 1,
			XScanID:        rec.ID,
			XDeviceID:      rec.DeviceID,
			XPackageName:   rec.PackageName,
			XRiskLevel:     string(rec.RiskLevel),
			XRiskScore:     rec.RiskScore,
			XFeatures:      rec.Features,
		})

		content := "No reasons recorded"
		if len(rec.Reasons) > 0 {
			content = strings.Join(rec.Reasons, "\n")
		}
		objects = append(objects, models.STIXNote{
			Type:         "note",
			SpecVersion:  stixSpecVersion,
			ID:           newSTIXID("note"),
			CreatedByRef: identityID,
			Created:      createdAt,
			Modified:     createdAt,
			Content:      content,
			ObjectRefs:   []string{observedID},
		})

		if apkHash := strings.ToLower(strings.TrimSpace(rec.RawSnapshot.APKSHA256)); apkHash != "" {
			indicatorID := newSTIXID("indicator")
			objects = append(objects,
				models.STIXIndicator{
					Type:         "indicator",
					SpecVersion:  stixSpecVersion,
					ID:           indicatorID,
					CreatedByRef: identityID,
					Created:      createdAt,
					Modified:     createdAt,
					Name:         fmt.Sprintf("APK SHA-256 %s", rec.PackageName),
					PatternType:  "stix",
					Pattern:      fmt.Sprintf("[file:hashes.'SHA-256' = '%s']", apkHash),
					ValidFrom:    createdAt,
					Labels:       []string{"apk-hash", "android", strings.ToLower(string(rec.RiskLevel))},
				},
				newRelationship("based-on", indicatorID, observedID, createdAt),
			)
		}

		for _, ioc := range rec.IOCMatches {
			if strings.HasPrefix(ioc, "sha256:") {
				continue
			}
			indicatorID := newSTIXID("indicator")
			objects = append(objects,
				models.STIXIndicator{
					Type:         "indicator",
					SpecVersion:  stixSpecVersion,
					ID:           indicatorID,
					CreatedByRef: identityID,
					Created:      createdAt,
					Modified:     createdAt,
					Name:         fmt.Sprintf("IOC match %s", rec.PackageName),
					PatternType:  "stix",
					Pattern:      fmt.Sprintf("[software:name = '%s']", rec.PackageName),
					ValidFrom:    createdAt,
					Labels:       []string{"ioc", "android"},
					Description:  fmt.Sprintf("IOC match: %s", ioc),
				},
				newRelationship("related-to", indicatorID, observedID, createdAt),
			)
		}

		for _, tech := range rec.AttackTechniques {
			techID := strings.TrimSpace(tech.ID)
			if techID == "" {
				continue
			}
			techName := strings.TrimSpace(tech.Name)
			if techName == "" {
				techName = "Unknown Technique"
			}

			patternID, seen := attackPatternIDs[techID]
			if !seen {
				patternID = newSTIXID("attack-pattern")
				attackPatternIDs[techID] = patternID
				objects = append(objects, models.STIXAttackPattern{
					Type:                 "attack-pattern",
					SpecVersion:          stixSpecVersion,
					ID:                   patternID,
					Created:              now,
					Modified:             now,
					Name:                 fmt.Sprintf("ATT&CK Mobile %s - %s", techID, techName),
					Description:          fmt.Sprintf("Inferred technique: %s (%s)", techID, techName),
					XAttackTechniqueID:   techID,
					XAttackTactic:        tech.Tactic,
					XInferenceConfidence: tech.Confidence,
				})
			}

			objects = append(objects, newRelationship("related-to", observedID, patternID, createdAt))
		}
	}

	e.logger.Info().
		Int("scans", len(records)).
		Int("objects", len(objects)).
		Msg("STIX bundle built")

	return models.STIXBundle{
		Type:        "bundle",
		ID:          newSTIXID("bundle"),
		SpecVersion: stixSpecVersion,
		Objects:     objects,
	}
}

func newRelationship(relType, sourceRef, targetRef, created string) models.STIXRelationship {
	return models.STIXRelationship{
		Type:             "relationship",
		SpecVersion:      stixSpecVersion,
		ID:               newSTIXID("relationship"),
		Created:          created,
		Modified:         created,
		RelationshipType: relType,
		SourceRef:        sourceRef,
		TargetRef:        targetRef,
	}
}

func newSTIXID(stixType string) string {
	return stixType + "--" + uuid.NewString()
}

func normalizeSTIXTime(value string) string {
	if strings.HasSuffix(value, "Z") {
		return value
	}
	if strings.Contains(value, "+00:00") {
		return strings.Replace(value, "+00:00", "Z", 1)
	}
	return value
}
