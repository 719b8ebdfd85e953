package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adscope-lab/internal/config"
	"adscope-lab/internal/domain/models"
	"adscope-lab/internal/infrastructure/database"
	"adscope-lab/pkg/logger"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testScanResult(deviceID, packageName string, score float64) *models.ScanResult {
	return &models.ScanResult{
		DeviceID:     deviceID,
		PackageName:  packageName,
		TimestampUTC: "2026-08-25T10:00:00Z",
		Features: models.FeatureVector{
			PackageName:      packageName,
			Installer:        "unknown",
			PermissionsTotal: 6,
		},
		RiskScore:  score,
		RiskLevel:  models.ScoreToLevel(score),
		Reasons:    []string{"Unknown or missing installer source"},
		IOCMatches: []string{"silentinstall"},
	}
}

func TestScanInsertAndRecords(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := NewScanRepository(db, logger.Nop())

	snapshot := models.StoredSnapshot{
		DeviceSnapshot:       models.DeviceSnapshot{APKSHA256: "aabbcc", DumpsysPackage: "x"},
		ComponentFingerprint: "fp-1",
		AttackTechniques:     []models.AttackTechnique{{ID: "T1453", Name: "Abuse Accessibility Features"}},
	}

	id, err := repo.Insert(ctx, testScanResult("device-a", "com.bad.one", 80), snapshot)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	records, err := repo.ScanRecords(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, int64(1), rec.ID)
	assert.Equal(t, "device-a", rec.DeviceID)
	assert.Equal(t, models.RiskLevelCritical, rec.RiskLevel)
	assert.Equal(t, []string{"silentinstall"}, rec.IOCMatches)
	assert.Equal(t, "aabbcc", rec.RawSnapshot.APKSHA256)
	assert.Equal(t, "fp-1", rec.RawSnapshot.ComponentFingerprint)
	require.Len(t, rec.AttackTechniques, 1)
	assert.Equal(t, "T1453", rec.AttackTechniques[0].ID)
	assert.Nil(t, rec.Label)
}

func TestScanRecordsByIDs(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := NewScanRepository(db, logger.Nop())

	for i := 0; i < 3; i++ {
		_, err := repo.Insert(ctx, testScanResult("device-a", "com.bad.one", 50), models.StoredSnapshot{})
		require.NoError(t, err)
	}

	records, err := repo.ScanRecordsByIDs(ctx, []int64{1, 3, 99})
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = repo.ScanRecordsByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCorruptBlobDegradesToEmpty(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := NewScanRepository(db, logger.Nop())

	_, err := db.ExecContext(ctx, `
		INSERT INTO scan_sessions (
			created_at, device_id, package_name, risk_score, risk_level,
			reasons_json, ioc_matches_json, features_json, raw_snapshot_json
		) VALUES ('2026-08-25T10:00:00Z', 'device-a', 'com.bad.one', 50, 'MEDIUM',
			'{broken', '["ok"]', 'not json at all', '{}')`)
	require.NoError(t, err)

	records, err := repo.ScanRecords(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Empty(t, rec.Reasons)
	assert.Equal(t, []string{"ok"}, rec.IOCMatches)
	assert.Equal(t, models.FeatureVector{}, rec.Features)
	assert.Equal(t, 50.0, rec.RiskScore)
}

func TestLatestScanIDForPackage(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := NewScanRepository(db, logger.Nop())

	_, err := repo.LatestScanIDForPackage(ctx, "com.never.seen")
	assert.ErrorIs(t, err, models.ErrScanNotFound)

	first := testScanResult("device-a", "com.bad.one", 50)
	second := testScanResult("device-a", "com.bad.one", 60)
	second.TimestampUTC = "2026-08-25T11:00:00Z"

	_, err = repo.Insert(ctx, first, models.StoredSnapshot{})
	require.NoError(t, err)
	latest, err := repo.Insert(ctx, second, models.StoredSnapshot{})
	require.NoError(t, err)

	got, err := repo.LatestScanIDForPackage(ctx, "com.bad.one")
	require.NoError(t, err)
	assert.Equal(t, latest, got)
}

func TestLabelValidationAndUpsert(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	scans := NewScanRepository(db, logger.Nop())
	labels := NewLabelRepository(db, logger.Nop())

	id, err := scans.Insert(ctx, testScanResult("device-a", "com.bad.one", 50), models.StoredSnapshot{})
	require.NoError(t, err)

	assert.ErrorIs(t, labels.Set(ctx, id, 2, "analyst"), models.ErrInvalidLabel)
	assert.ErrorIs(t, labels.Set(ctx, id, -1, "analyst"), models.ErrInvalidLabel)

	require.NoError(t, labels.Set(ctx, id, 1, "analyst"))
	require.NoError(t, labels.Set(ctx, id, 0, "review"))

	recent, err := scans.RecentScans(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.NotNil(t, recent[0].Label)
	assert.Equal(t, 0, *recent[0].Label)
}

func TestIOCUpsertRefreshesExisting(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := NewIOCRepository(db, logger.Nop())

	count, err := repo.Upsert(ctx, []models.IOCSignature{
		{Type: models.IOCTypeKeyword, Value: "SilentInstall", Severity: 8, Confidence: 0.8, Source: "seed", Active: true},
		{Type: models.IOCTypeKeyword, Value: "  ", Severity: 5, Confidence: 0.5, Active: true},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Same identity, refreshed attributes.
	count, err = repo.Upsert(ctx, []models.IOCSignature{
		{Type: models.IOCTypeKeyword, Value: "silentinstall", Severity: 9, Confidence: 0.95, Source: "feed", Active: true},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	active, err := repo.Active(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "silentinstall", active[0].Value)
	assert.Equal(t, 9, active[0].Severity)
	assert.Equal(t, "feed", active[0].Source)

	// Deactivation removes it from the active view.
	_, err = repo.Upsert(ctx, []models.IOCSignature{
		{Type: models.IOCTypeKeyword, Value: "silentinstall", Severity: 9, Confidence: 0.95, Source: "feed", Active: false},
	})
	require.NoError(t, err)
	active, err = repo.Active(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestBaselineRebuildAndLoad(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := NewBaselineRepository(db, logger.Nop())

	stats, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, stats)

	vectors := make([]models.FeatureVector, 10)
	for i := range vectors {
		vectors[i] = models.FeatureVector{PermissionsTotal: 4 + i%2, AdSDKHits: 1}
	}

	n, err := repo.Rebuild(ctx, vectors)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	stats, err = repo.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, 10, stats.SampleSize)
	assert.True(t, stats.Usable())
	assert.InDelta(t, 4.5, stats.Means["permissions_total"], 0.001)
	assert.InDelta(t, 1.0, stats.Means["ad_sdk_hits"], 0.001)
	assert.InDelta(t, 0.0, stats.Stds["ad_sdk_hits"], 0.001)

	// A rebuild from fewer rows replaces the snapshot wholesale.
	n, err = repo.Rebuild(ctx, vectors[:3])
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	stats, err = repo.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, 3, stats.SampleSize)
	assert.False(t, stats.Usable())
}

func TestModelStoreAndLatest(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := NewModelRepository(db, logger.Nop())

	rec, err := repo.Latest(ctx, "supervised_risk_v1")
	require.NoError(t, err)
	assert.Nil(t, rec)

	_, err = repo.Store(ctx, models.ModelRecord{
		ModelName: "supervised_risk_v1", ModelVersion: "v1",
		PayloadJSON: "{}", MetricsJSON: "{}", TrainedSamples: 10,
	})
	require.NoError(t, err)
	_, err = repo.Store(ctx, models.ModelRecord{
		ModelName: "supervised_risk_v1", ModelVersion: "v2",
		PayloadJSON: "{}", MetricsJSON: "{}", TrainedSamples: 20,
	})
	require.NoError(t, err)

	rec, err = repo.Latest(ctx, "supervised_risk_v1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "v2", rec.ModelVersion)
	assert.Equal(t, 20, rec.TrainedSamples)
}
