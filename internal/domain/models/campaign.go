package models

// CampaignCluster is one correlated group of scans that share an APK hash,
// a component fingerprint, or a package name.
type CampaignCluster struct {
	CampaignID          string    `json:"campaign_id"`
	ClusterKey          string    `json:"cluster_key"`
	CampaignScore       float64   `json:"campaign_score"`
	CampaignLevel       RiskLevel `json:"campaign_level"`
	ScanCount           int       `json:"scan_count"`
	DeviceCount         int       `json:"device_count"`
	PackageCount        int       `json:"package_count"`
	Devices             []string  `json:"devices"`
	Packages            []string  `json:"packages"`
	AvgRisk             float64   `json:"avg_risk"`
	MaxRisk             float64   `json:"max_risk"`
	IOCDensity          float64   `json:"ioc_density"`
	IOCMatchesTotal     int       `json:"ioc_matches_total"`
	AttackTechniques    []string  `json:"attack_techniques"`
	MaliciousLabelRatio float64   `json:"malicious_label_ratio"`
	FirstSeen           string    `json:"first_seen"`
	LastSeen            string    `json:"last_seen"`
	Trend               string    `json:"trend"`
	ScansLast24h        int       `json:"scans_last_24h"`
	ScansPrev24h        int       `json:"scans_prev_24h"`
	ScanIDs             []int64   `json:"scan_ids"`
}

// DashboardExport describes where a rendered dashboard landed.
type DashboardExport struct {
	GeneratedAt    string `json:"generated_at"`
	ClustersCount  int    `json:"clusters_count"`
	TotalScans     int    `json:"total_scans"`
	MarkdownOutput string `json:"markdown_output"`
	JSONOutput     string `json:"json_output"`
}

// CampaignSummary is the full correlation output over a scan window.
type CampaignSummary struct {
	GeneratedAt        string            `json:"generated_at"`
	TotalScans         int               `json:"total_scans"`
	HighRiskScans      int               `json:"high_risk_scans"`
	GlobalDeviceCount  int               `json:"global_device_count"`
	GlobalPackageCount int               `json:"global_package_count"`
	Clusters           []CampaignCluster `json:"clusters"`
}
