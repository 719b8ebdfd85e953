package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"adscope-lab/internal/domain/models"
	"adscope-lab/pkg/logger"
)

const scanRecordColumns = `s.id, s.created_at, s.device_id, s.package_name,
       s.risk_score, s.risk_level, s.anomaly_score, s.anomaly_zmax,
       s.reasons_json, s.ioc_matches_json, s.features_json, s.raw_snapshot_json,
       l.label`

// ScanRepository handles the append-only scan session log. Rows are never
// updated after insert; labels live in their own table.
type ScanRepository struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewScanRepository creates a new scan repository.
func NewScanRepository(db *sql.DB, log *logger.Logger) *ScanRepository {
	return &ScanRepository{
		db:     db,
		logger: log.WithComponent("scan_repository"),
	}
}

// Insert stores a scan result with its raw snapshot and returns the new
// scan id.
func (r *ScanRepository) Insert(ctx context.Context, result *models.ScanResult, snapshot models.StoredSnapshot) (int64, error) {
	reasonsJSON, err := json.Marshal(emptyIfNil(result.Reasons))
	if err != nil {
		return 0, fmt.Errorf("failed to marshal reasons: %w", err)
	}
	iocJSON, err := json.Marshal(emptyIfNil(result.IOCMatches))
	if err != nil {
		return 0, fmt.Errorf("failed to marshal ioc matches: %w", err)
	}
	featuresJSON, err := json.Marshal(result.Features)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal features: %w", err)
	}
	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal raw snapshot: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO scan_sessions (
			created_at, device_id, package_name,
			risk_score, risk_level, anomaly_score, anomaly_zmax,
			reasons_json, ioc_matches_json, features_json, raw_snapshot_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.TimestampUTC,
		result.DeviceID,
		result.PackageName,
		result.RiskScore,
		string(result.RiskLevel),
		result.AnomalyScore,
		result.AnomalyZMax,
		string(reasonsJSON),
		string(iocJSON),
		string(featuresJSON),
		string(snapshotJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert scan session: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read scan session id: %w", err)
	}
	return id, nil
}

// LatestScanIDForPackage returns the newest scan id for a package, or
// models.ErrScanNotFound when the package was never scanned.
func (r *ScanRepository) LatestScanIDForPackage(ctx context.Context, packageName string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		SELECT id FROM scan_sessions
		WHERE package_name = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`,
		packageName,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("package %q: %w", packageName, models.ErrScanNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query latest scan id: %w", err)
	}
	return id, nil
}

// RecentScans returns a lightweight recency-ordered view of the scan log
// with labels joined in.
func (r *ScanRepository) RecentScans(ctx context.Context, limit int) ([]models.RecentScan, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.created_at, s.device_id, s.package_name,
		       s.risk_score, s.risk_level, l.label
		FROM scan_sessions s
		LEFT JOIN scan_labels l ON l.scan_id = s.id
		ORDER BY s.created_at DESC, s.id DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent scans: %w", err)
	}
	defer rows.Close()

	var scans []models.RecentScan
	for rows.Next() {
		var scan models.RecentScan
		var level string
		var label sql.NullInt64
		if err := rows.Scan(&scan.ID, &scan.CreatedAt, &scan.DeviceID, &scan.PackageName,
			&scan.RiskScore, &level, &label); err != nil {
			return nil, fmt.Errorf("failed to scan recent scan row: %w", err)
		}
		scan.RiskLevel = models.RiskLevel(level)
		if label.Valid {
			v := int(label.Int64)
			scan.Label = &v
		}
		scans = append(scans, scan)
	}
	return scans, rows.Err()
}

// ScanRecords returns full decoded scan records, newest first.
func (r *ScanRepository) ScanRecords(ctx context.Context, limit int) ([]models.ScanRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+scanRecordColumns+`
		FROM scan_sessions s
		LEFT JOIN scan_labels l ON l.scan_id = s.id
		ORDER BY s.created_at DESC, s.id DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan records: %w", err)
	}
	defer rows.Close()

	return r.collectRecords(rows)
}

// ScanRecordsByIDs returns full decoded scan records for the given ids,
// newest first. Unknown ids are silently absent from the result.
func (r *ScanRepository) ScanRecordsByIDs(ctx context.Context, scanIDs []int64) ([]models.ScanRecord, error) {
	if len(scanIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(scanIDs)), ",")
	args := make([]any, len(scanIDs))
	for i, id := range scanIDs {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+scanRecordColumns+`
		FROM scan_sessions s
		LEFT JOIN scan_labels l ON l.scan_id = s.id
		WHERE s.id IN (`+placeholders+`)
		ORDER BY s.created_at DESC, s.id DESC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan records by ids: %w", err)
	}
	defer rows.Close()

	return r.collectRecords(rows)
}

// LabeledFeatureRows returns the training dataset: feature vectors joined
// with their labels, newest first. Rows with undecodable feature blobs are
// dropped.
func (r *ScanRepository) LabeledFeatureRows(ctx context.Context, maxRows int) ([]models.FeatureVector, []int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.features_json, l.label
		FROM scan_sessions s
		INNER JOIN scan_labels l ON l.scan_id = s.id
		ORDER BY s.created_at DESC, s.id DESC
		LIMIT ?`,
		maxRows,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query labeled feature rows: %w", err)
	}
	defer rows.Close()

	var features []models.FeatureVector
	var labels []int
	for rows.Next() {
		var blob string
		var label int
		if err := rows.Scan(&blob, &label); err != nil {
			return nil, nil, fmt.Errorf("failed to scan labeled row: %w", err)
		}
		var fv models.FeatureVector
		if err := json.Unmarshal([]byte(blob), &fv); err != nil {
			r.logger.Warn().Err(err).Msg("skipping labeled row with corrupt feature blob")
			continue
		}
		features = append(features, fv)
		labels = append(labels, label)
	}
	return features, labels, rows.Err()
}

// FeatureHistory returns up to maxRows recent feature vectors for baseline
// rebuilds. Corrupt blobs are skipped.
func (r *ScanRepository) FeatureHistory(ctx context.Context, maxRows int) ([]models.FeatureVector, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT features_json
		FROM scan_sessions
		ORDER BY created_at DESC
		LIMIT ?`,
		maxRows,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query feature history: %w", err)
	}
	defer rows.Close()

	var vectors []models.FeatureVector
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("failed to scan feature row: %w", err)
		}
		var fv models.FeatureVector
		if err := json.Unmarshal([]byte(blob), &fv); err != nil {
			r.logger.Warn().Err(err).Msg("skipping corrupt feature blob in history")
			continue
		}
		vectors = append(vectors, fv)
	}
	return vectors, rows.Err()
}

func (r *ScanRepository) collectRecords(rows *sql.Rows) ([]models.ScanRecord, error) {
	var records []models.ScanRecord
	for rows.Next() {
		var rec models.ScanRecord
		var level string
		var anomalyScore, anomalyZMax sql.NullFloat64
		var label sql.NullInt64
		var reasonsJSON, iocJSON, featuresJSON, snapshotJSON string

		if err := rows.Scan(&rec.ID, &rec.CreatedAt, &rec.DeviceID, &rec.PackageName,
			&rec.RiskScore, &level, &anomalyScore, &anomalyZMax,
			&reasonsJSON, &iocJSON, &featuresJSON, &snapshotJSON, &label); err != nil {
			return nil, fmt.Errorf("failed to scan record row: %w", err)
		}

		rec.RiskLevel = models.RiskLevel(level)
		if anomalyScore.Valid {
			v := anomalyScore.Float64
			rec.AnomalyScore = &v
		}
		if anomalyZMax.Valid {
			v := anomalyZMax.Float64
			rec.AnomalyZMax = &v
		}
		if label.Valid {
			v := int(label.Int64)
			rec.Label = &v
		}

		// A corrupt blob degrades that field to its zero value instead of
		// aborting the batch.
		r.decodeColumn(rec.ID, "reasons_json", reasonsJSON, &rec.Reasons)
		r.decodeColumn(rec.ID, "ioc_matches_json", iocJSON, &rec.IOCMatches)
		r.decodeColumn(rec.ID, "features_json", featuresJSON, &rec.Features)
		r.decodeColumn(rec.ID, "raw_snapshot_json", snapshotJSON, &rec.RawSnapshot)
		rec.AttackTechniques = rec.RawSnapshot.AttackTechniques

		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *ScanRepository) decodeColumn(scanID int64, column, blob string, target any) {
	if err := json.Unmarshal([]byte(blob), target); err != nil {
		r.logger.Warn().
			Err(err).
			Int64("scan_id", scanID).
			Str("column", column).
			Msg("corrupt stored blob, degrading to empty value")
	}
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// nowUTC is the canonical timestamp format shared by all repositories.
func nowUTC() string {
	return time.Now().UTC().Format(time.RFC3339)
}
