package repository

import (
	"context"
	"database/sql"
	"fmt"

	"adscope-lab/internal/domain/models"
	"adscope-lab/pkg/logger"
)

// ModelRepository is the append-only model-version log. Every training run
// appends a snapshot; the newest snapshot per model name is the active one.
type ModelRepository struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewModelRepository creates a new model repository.
func NewModelRepository(db *sql.DB, log *logger.Logger) *ModelRepository {
	return &ModelRepository{
		db:     db,
		logger: log.WithComponent("model_repository"),
	}
}

// Store appends a model snapshot and returns its row id.
func (r *ModelRepository) Store(ctx context.Context, rec models.ModelRecord) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO ml_models (
			model_name, model_version, model_payload_json, metrics_json, trained_samples, created_at
		) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ModelName, rec.ModelVersion, rec.PayloadJSON, rec.MetricsJSON,
		rec.TrainedSamples, nowUTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to store model snapshot: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read model snapshot id: %w", err)
	}

	r.logger.Info().
		Str("model", rec.ModelName).
		Str("version", rec.ModelVersion).
		Int("trained_samples", rec.TrainedSamples).
		Msg("model snapshot stored")
	return id, nil
}

// Latest returns the newest snapshot for a model name, or nil when the
// model has never been trained.
func (r *ModelRepository) Latest(ctx context.Context, modelName string) (*models.ModelRecord, error) {
	var rec models.ModelRecord
	err := r.db.QueryRowContext(ctx, `
		SELECT id, model_name, model_version, model_payload_json, metrics_json, trained_samples, created_at
		FROM ml_models
		WHERE model_name = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`,
		modelName,
	).Scan(&rec.ID, &rec.ModelName, &rec.ModelVersion, &rec.PayloadJSON,
		&rec.MetricsJSON, &rec.TrainedSamples, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest model: %w", err)
	}
	return &rec, nil
}
