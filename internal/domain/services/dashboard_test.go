package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"adscope-lab/internal/domain/models"
)

func TestDashboardMarkdownWithClusters(t *testing.T) {
	renderer := NewDashboardRenderer()

	summary := models.CampaignSummary{
		GeneratedAt:        "2026-08-25T12:00:00Z",
		TotalScans:         5,
		HighRiskScans:      2,
		GlobalDeviceCount:  3,
		GlobalPackageCount: 2,
		Clusters: []models.CampaignCluster{
			{
				CampaignID:    "camp-abc123def456",
				ClusterKey:    "sha256:ffee00",
				CampaignScore: 71.3,
				CampaignLevel: models.RiskLevelHigh,
				ScanCount:     3,
				DeviceCount:   2,
				PackageCount:  1,
				Devices:       []string{"device-a", "device-b"},
				Packages:      []string{"com.bad.one"},
				Trend:         "growing",
				ScanIDs:       []int64{1, 2, 3},
			},
			{
				CampaignID:    "camp-000000000000",
				ClusterKey:    "package:com.low.app",
				CampaignScore: 12,
				CampaignLevel: models.RiskLevelLow,
				ScanCount:     2,
			},
		},
	}

	md := renderer.RenderMarkdown(summary, 1)
	assert.True(t, strings.HasPrefix(md, "# Campaign Correlation Dashboard"))
	assert.Contains(t, md, "Total scans: 5")
	assert.Contains(t, md, "## Top Campaigns")
	assert.Contains(t, md, "camp-abc123def456")
	assert.Contains(t, md, "- Scan IDs: 1, 2, 3")
	// topN=1 keeps the second cluster out of the report.
	assert.NotContains(t, md, "camp-000000000000")
}

func TestDashboardMarkdownEmpty(t *testing.T) {
	renderer := NewDashboardRenderer()

	md := renderer.RenderMarkdown(models.CampaignSummary{GeneratedAt: "2026-08-25T12:00:00Z"}, 20)
	assert.Contains(t, md, "No campaign clusters found with current filters.")
	assert.NotContains(t, md, "## Top Campaigns")
}
