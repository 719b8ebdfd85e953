package services

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"adscope-lab/internal/domain/models"
	"adscope-lab/pkg/logger"
)

const highRiskThreshold = 55.0

// CampaignCorrelator groups stored scans into campaign clusters by shared
// artifact identity and scores each cluster by spread, severity and recency.
type CampaignCorrelator struct {
	logger *logger.Logger
}

// NewCampaignCorrelator creates a new CampaignCorrelator.
func NewCampaignCorrelator(log *logger.Logger) *CampaignCorrelator {
	return &CampaignCorrelator{
		logger: log.WithComponent("campaign_correlator"),
	}
}

// Summarize clusters the records and returns the campaign summary. Clusters
// smaller than minClusterSize are dropped (floor 1).
func (c *CampaignCorrelator) Summarize(records []models.ScanRecord, minClusterSize int) models.CampaignSummary {
	groups := make(map[string][]models.ScanRecord)
	for _, rec := range records {
		groups[clusterKey(rec)] = append(groups[clusterKey(rec)], rec)
	}

	minSize := minClusterSize
	if minSize < 1 {
		minSize = 1
	}

	clusters := make([]models.CampaignCluster, 0, len(groups))
	for key, items := range groups {
		if len(items) < minSize {
			continue
		}
		clusters = append(clusters, c.buildCluster(key, items))
	}

	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].CampaignScore != clusters[j].CampaignScore {
			return clusters[i].CampaignScore > clusters[j].CampaignScore
		}
		return clusters[i].ScanCount > clusters[j].ScanCount
	})

	highRisk := 0
	globalDevices := make(map[string]struct{})
	globalPackages := make(map[string]struct{})
	for _, rec := range records {
		if rec.RiskScore >= highRiskThreshold {
			highRisk++
		}
		globalDevices[rec.DeviceID] = struct{}{}
		globalPackages[rec.PackageName] = struct{}{}
	}

	c.logger.Info().
		Int("total_scans", len(records)).
		Int("clusters", len(clusters)).
		Msg("campaign correlation completed")

	return models.CampaignSummary{
		GeneratedAt:        time.Now().UTC().Format(time.RFC3339),
		TotalScans:         len(records),
		HighRiskScans:      highRisk,
		GlobalDeviceCount:  len(globalDevices),
		GlobalPackageCount: len(globalPackages),
		Clusters:           clusters,
	}
}

func (c *CampaignCorrelator) buildCluster(key string, items []models.ScanRecord) models.CampaignCluster {
	deviceSet := make(map[string]struct{})
	packageSet := make(map[string]struct{})
	techniqueSet := make(map[string]struct{})

	var scores []float64
	var timestamps []time.Time
	var scanIDs []int64
	iocTotal := 0
	maliciousLabels := 0

	for _, item := range items {
		deviceSet[item.DeviceID] = struct{}{}
		packageSet[item.PackageName] = struct{}{}
		scores = append(scores, item.RiskScore)
		iocTotal += len(item.IOCMatches)
		if item.Label != nil && *item.Label == 1 {
			maliciousLabels++
		}
		for _, tech := range item.AttackTechniques {
			if strings.TrimSpace(tech.ID) != "" {
				techniqueSet[tech.ID] = struct{}{}
			}
		}
		if ts := item.ParsedCreatedAt(); !ts.IsZero() {
			timestamps = append(timestamps, ts)
		}
		if item.ID > 0 {
			scanIDs = append(scanIDs, item.ID)
		}
	}

	devices := sortedKeys(deviceSet)
	packages := sortedKeys(packageSet)
	techniques := sortedKeys(techniqueSet)
	sort.Slice(scanIDs, func(i, j int) bool { return scanIDs[i] < scanIDs[j] })

	var sum, maxRisk float64
	for _, s := range scores {
		sum += s
		if s > maxRisk {
			maxRisk = s
		}
	}
	avgRisk := sum / float64(maxInt(1, len(scores)))
	iocDensity := float64(iocTotal) / float64(maxInt(1, len(items)))
	maliciousRatio := float64(maliciousLabels) / float64(maxInt(1, len(items)))

	firstSeen, lastSeen := "", ""
	if len(timestamps) > 0 {
		minTS, maxTS := timestamps[0], timestamps[0]
		for _, ts := range timestamps[1:] {
			if ts.Before(minTS) {
				minTS = ts
			}
			if ts.After(maxTS) {
				maxTS = ts
			}
		}
		firstSeen = minTS.Format(time.RFC3339)
		lastSeen = maxTS.Format(time.RFC3339)
	}

	trend, scans24h, scansPrev24h := trendLabel(timestamps)

	score := avgRisk*0.55 +
		maxRisk*0.20 +
		math.Min(100.0, float64(len(devices))*12.0)*0.10 +
		math.Min(100.0, float64(len(items))*8.0)*0.05 +
		math.Min(100.0, float64(len(techniques))*15.0)*0.05 +
		math.Min(100.0, iocDensity*40.0)*0.03 +
		math.Min(100.0, maliciousRatio*100.0)*0.02

	switch trend {
	case "growing":
		score += 5.0
	case "emerging":
		score += 3.0
	}
	score = round2(math.Min(100.0, score))

	seed := fmt.Sprintf("%s|%s|%s", key, strings.Join(devices, ","), strings.Join(packages, ","))

	return models.CampaignCluster{
		CampaignID:          campaignID(seed),
		ClusterKey:          key,
		CampaignScore:       score,
		CampaignLevel:       models.ScoreToLevel(score),
		ScanCount:           len(items),
		DeviceCount:         len(devices),
		PackageCount:        len(packages),
		Devices:             devices,
		Packages:            packages,
		AvgRisk:             round2(avgRisk),
		MaxRisk:             round2(maxRisk),
		IOCDensity:          round3(iocDensity),
		IOCMatchesTotal:     iocTotal,
		AttackTechniques:    techniques,
		MaliciousLabelRatio: round3(maliciousRatio),
		FirstSeen:           firstSeen,
		LastSeen:            lastSeen,
		Trend:               trend,
		ScansLast24h:        scans24h,
		ScansPrev24h:        scansPrev24h,
		ScanIDs:             scanIDs,
	}
}

// clusterKey picks the strongest identity available: exact artifact hash,
// then component fingerprint, then the lowercased package name.
func clusterKey(rec models.ScanRecord) string {
	if hash := strings.ToLower(strings.TrimSpace(rec.RawSnapshot.APKSHA256)); hash != "" {
		return "sha256:" + hash
	}
	if fp := strings.ToLower(strings.TrimSpace(rec.RawSnapshot.ComponentFingerprint)); fp != "" {
		return "fingerprint:" + fp
	}
	return "package:" + strings.ToLower(rec.PackageName)
}

// trendLabel compares scan counts in the trailing 24h window against the
// prior 24h window, anchored at the newest timestamp in the cluster.
func trendLabel(timestamps []time.Time) (string, int, int) {
	if len(timestamps) == 0 {
		return "unknown", 0, 0
	}

	newest := timestamps[0]
	for _, ts := range timestamps[1:] {
		if ts.After(newest) {
			newest = ts
		}
	}
	windowLast := newest.Add(-24 * time.Hour)
	windowPrev := newest.Add(-48 * time.Hour)

	lastCount, prevCount := 0, 0
	for _, ts := range timestamps {
		if !ts.Before(windowLast) {
			lastCount++
		} else if !ts.Before(windowPrev) {
			prevCount++
		}
	}

	if prevCount == 0 && lastCount > 0 {
		return "emerging", lastCount, prevCount
	}

	ratio := float64(lastCount-prevCount) / float64(maxInt(1, prevCount))
	switch {
	case ratio > 0.4:
		return "growing", lastCount, prevCount
	case ratio < -0.4:
		return "declining", lastCount, prevCount
	default:
		return "stable", lastCount, prevCount
	}
}

func campaignID(seed string) string {
	digest := sha1.Sum([]byte(seed))
	return "camp-" + hex.EncodeToString(digest[:])[:12]
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
