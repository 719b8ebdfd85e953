package services

import (
	"fmt"
	"strconv"
	"strings"

	"adscope-lab/internal/domain/models"
)

// DashboardRenderer turns a campaign summary into a Markdown report.
type DashboardRenderer struct{}

// NewDashboardRenderer creates a new DashboardRenderer.
func NewDashboardRenderer() *DashboardRenderer {
	return &DashboardRenderer{}
}

// RenderMarkdown produces the dashboard document showing at most topN
// clusters (floor 1).
func (r *DashboardRenderer) RenderMarkdown(summary models.CampaignSummary, topN int) string {
	var b strings.Builder

	b.WriteString("# Campaign Correlation Dashboard\n\n")
	fmt.Fprintf(&b, "Generated at (UTC): %s\n", summary.GeneratedAt)
	fmt.Fprintf(&b, "Total scans: %d\n", summary.TotalScans)
	fmt.Fprintf(&b, "High risk scans: %d\n", summary.HighRiskScans)
	fmt.Fprintf(&b, "Devices observed: %d\n", summary.GlobalDeviceCount)
	fmt.Fprintf(&b, "Packages observed: %d\n\n", summary.GlobalPackageCount)

	if topN < 1 {
		topN = 1
	}
	clusters := summary.Clusters
	if len(clusters) > topN {
		clusters = clusters[:topN]
	}
	if len(clusters) == 0 {
		b.WriteString("No campaign clusters found with current filters.\n")
		return b.String()
	}

	b.WriteString("## Top Campaigns\n\n")
	b.WriteString("| Campaign | Score | Level | Scans | Devices | Packages | Trend |\n")
	b.WriteString("|---|---:|---|---:|---:|---:|---|\n")
	for _, c := range clusters {
		fmt.Fprintf(&b, "| %s | %g | %s | %d | %d | %d | %s |\n",
			c.CampaignID, c.CampaignScore, c.CampaignLevel,
			c.ScanCount, c.DeviceCount, c.PackageCount, c.Trend)
	}
	b.WriteString("\n")

	for _, c := range clusters {
		fmt.Fprintf(&b, "### %s (%s)\n", c.CampaignID, c.CampaignLevel)
		fmt.Fprintf(&b, "- Cluster key: `%s`\n", c.ClusterKey)
		fmt.Fprintf(&b, "- Campaign score: %g\n", c.CampaignScore)
		fmt.Fprintf(&b, "- Avg risk / Max risk: %g / %g\n", c.AvgRisk, c.MaxRisk)
		fmt.Fprintf(&b, "- Trend: %s (24h=%d, prev24h=%d)\n", c.Trend, c.ScansLast24h, c.ScansPrev24h)
		fmt.Fprintf(&b, "- Devices: %s\n", strings.Join(c.Devices, ", "))
		fmt.Fprintf(&b, "- Packages: %s\n", strings.Join(c.Packages, ", "))

		techniques := "none"
		if len(c.AttackTechniques) > 0 {
			techniques = strings.Join(c.AttackTechniques, ", ")
		}
		fmt.Fprintf(&b, "- ATT&CK techniques: %s\n", techniques)
		fmt.Fprintf(&b, "- IOC density: %g (total=%d)\n", c.IOCDensity, c.IOCMatchesTotal)
		fmt.Fprintf(&b, "- First seen: %s\n", c.FirstSeen)
		fmt.Fprintf(&b, "- Last seen: %s\n", c.LastSeen)
		fmt.Fprintf(&b, "- Scan IDs: %s\n\n", joinInt64(c.ScanIDs, ", "))
	}

	return b.String()
}

func joinInt64(values []int64, sep string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return strings.Join(parts, sep)
}
