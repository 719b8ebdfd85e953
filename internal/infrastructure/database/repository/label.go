package repository

import (
	"context"
	"database/sql"
	"fmt"

	"adscope-lab/internal/domain/models"
	"adscope-lab/pkg/logger"
)

// LabelRepository handles analyst verdicts, one row per scan id. Relabeling
// a scan replaces the previous verdict.
type LabelRepository struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewLabelRepository creates a new label repository.
func NewLabelRepository(db *sql.DB, log *logger.Logger) *LabelRepository {
	return &LabelRepository{
		db:     db,
		logger: log.WithComponent("label_repository"),
	}
}

// Set stores a 0/1 verdict for a scan. Any other value fails with
// models.ErrInvalidLabel before touching the database.
func (r *LabelRepository) Set(ctx context.Context, scanID int64, label int, source string) error {
	if label != 0 && label != 1 {
		return fmt.Errorf("%w: got %d", models.ErrInvalidLabel, label)
	}
	if source == "" {
		source = "analyst"
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO scan_labels (scan_id, label, source, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(scan_id)
		DO UPDATE SET label = excluded.label, source = excluded.source,
			created_at = excluded.created_at`,
		scanID, label, source, nowUTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to set scan label: %w", err)
	}

	r.logger.Debug().Int64("scan_id", scanID).Int("label", label).Msg("scan labeled")
	return nil
}
