package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"adscope-lab/internal/domain/models"
	"adscope-lab/pkg/logger"
)

// BaselineRepository holds the single current baseline snapshot, one row per
// tracked feature. A rebuild replaces the snapshot wholesale.
type BaselineRepository struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewBaselineRepository creates a new baseline repository.
func NewBaselineRepository(db *sql.DB, log *logger.Logger) *BaselineRepository {
	return &BaselineRepository{
		db:     db,
		logger: log.WithComponent("baseline_repository"),
	}
}

// Load returns the stored baseline, or nil when none has been built yet.
// The reported sample size is the minimum across feature rows so a partial
// rebuild never overstates coverage.
func (r *BaselineRepository) Load(ctx context.Context) (*models.BaselineStats, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT feature_name, mean, std, sample_size FROM model_baseline`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query baseline: %w", err)
	}
	defer rows.Close()

	stats := &models.BaselineStats{
		Means: make(map[string]float64),
		Stds:  make(map[string]float64),
	}
	found := false
	for rows.Next() {
		var name string
		var mean, std float64
		var sampleSize int
		if err := rows.Scan(&name, &mean, &std, &sampleSize); err != nil {
			return nil, fmt.Errorf("failed to scan baseline row: %w", err)
		}
		stats.Means[name] = mean
		stats.Stds[name] = std
		if !found || sampleSize < stats.SampleSize {
			stats.SampleSize = sampleSize
		}
		found = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return stats, nil
}

// Rebuild recomputes per-feature mean and sample standard deviation from the
// vectors and replaces the stored snapshot in one transaction. Returns the
// number of vectors used.
func (r *BaselineRepository) Rebuild(ctx context.Context, vectors []models.FeatureVector) (int, error) {
	if len(vectors) == 0 {
		return 0, nil
	}

	n := float64(len(vectors))
	now := nowUTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin baseline rebuild: %w", err)
	}
	defer tx.Rollback()

	for _, name := range models.NumericFeatureNames {
		var sum float64
		for i := range vectors {
			sum += vectors[i].NumericValue(name)
		}
		mean := sum / n

		var sq float64
		for i := range vectors {
			d := vectors[i].NumericValue(name) - mean
			sq += d * d
		}
		std := math.Sqrt(sq / math.Max(1.0, n-1.0))

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO model_baseline (feature_name, mean, std, sample_size, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(feature_name)
			DO UPDATE SET mean = excluded.mean, std = excluded.std,
				sample_size = excluded.sample_size, updated_at = excluded.updated_at`,
			name, mean, std, len(vectors), now,
		); err != nil {
			return 0, fmt.Errorf("failed to upsert baseline feature %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit baseline rebuild: %w", err)
	}

	r.logger.Info().Int("sample_size", len(vectors)).Msg("baseline rebuilt")
	return len(vectors), nil
}
