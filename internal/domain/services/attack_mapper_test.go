package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"adscope-lab/internal/domain/models"
)

func techniqueIDs(techniques []models.AttackTechnique) []string {
	ids := make([]string, len(techniques))
	for i, t := range techniques {
		ids[i] = t.ID
	}
	return ids
}

func TestAttackMapperHostileTraits(t *testing.T) {
	mapper := NewAttackMapper()

	techniques := mapper.Infer(hostileFeatures(),
		"BIND_NOTIFICATION_LISTENER_SERVICE bind_device_admin")

	assert.ElementsMatch(t,
		[]string{"T1453", "T1624.001", "T1417.002", "T1636", "T1517", "T1626"},
		techniqueIDs(techniques))

	for _, tech := range techniques {
		assert.NotEmpty(t, tech.Name)
		assert.NotEmpty(t, tech.Tactic)
		assert.NotEmpty(t, tech.Confidence)
	}
}

func TestAttackMapperBenignTraits(t *testing.T) {
	mapper := NewAttackMapper()
	assert.Empty(t, mapper.Infer(benignFeatures(), "nothing interesting here"))
}

func TestAttackMapperDeduplicatesByID(t *testing.T) {
	mapper := NewAttackMapper()

	// device_admin appears twice in the text; only one T1626 may come out.
	techniques := mapper.Infer(models.FeatureVector{}, "bind_device_admin device_admin")
	assert.Equal(t, []string{"T1626"}, techniqueIDs(techniques))
}
