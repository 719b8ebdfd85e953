package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"adscope-lab/internal/domain/models"
	"adscope-lab/pkg/logger"
)

// IOCRepository handles the IOC signature catalogue. Identity is the
// (ioc_type, value) pair; re-ingesting a known signature refreshes its
// severity, confidence, source and active flag.
type IOCRepository struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewIOCRepository creates a new IOC repository.
func NewIOCRepository(db *sql.DB, log *logger.Logger) *IOCRepository {
	return &IOCRepository{
		db:     db,
		logger: log.WithComponent("ioc_repository"),
	}
}

// Upsert writes the signatures in one transaction and returns the number of
// rows processed. Blank values are skipped, not errors.
func (r *IOCRepository) Upsert(ctx context.Context, iocs []models.IOCSignature) (int, error) {
	if len(iocs) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin ioc upsert: %w", err)
	}
	defer tx.Rollback()

	now := nowUTC()
	upserted := 0
	for _, ioc := range iocs {
		iocType := strings.ToLower(strings.TrimSpace(string(ioc.Type)))
		if iocType == "" {
			iocType = string(models.IOCTypeKeyword)
		}
		value := strings.ToLower(strings.TrimSpace(ioc.Value))
		if value == "" {
			continue
		}

		source := strings.TrimSpace(ioc.Source)
		if source == "" {
			source = "local"
		}
		active := 0
		if ioc.Active {
			active = 1
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO ioc_signatures (
				ioc_type, value, severity, confidence, source, active, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(ioc_type, value)
			DO UPDATE SET
				severity = excluded.severity,
				confidence = excluded.confidence,
				source = excluded.source,
				active = excluded.active,
				updated_at = excluded.updated_at`,
			iocType, value, ioc.Severity, ioc.Confidence, source, active, now, now,
		); err != nil {
			return 0, fmt.Errorf("failed to upsert ioc %q: %w", value, err)
		}
		upserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit ioc upsert: %w", err)
	}

	r.logger.Debug().Int("count", upserted).Msg("ioc signatures upserted")
	return upserted, nil
}

// Active returns all currently active signatures.
func (r *IOCRepository) Active(ctx context.Context) ([]models.IOCSignature, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ioc_type, value, severity, confidence, source
		FROM ioc_signatures
		WHERE active = 1`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query active iocs: %w", err)
	}
	defer rows.Close()

	var iocs []models.IOCSignature
	for rows.Next() {
		var ioc models.IOCSignature
		var iocType string
		if err := rows.Scan(&iocType, &ioc.Value, &ioc.Severity, &ioc.Confidence, &ioc.Source); err != nil {
			return nil, fmt.Errorf("failed to scan ioc row: %w", err)
		}
		ioc.Type = models.IOCType(iocType)
		ioc.Active = true
		iocs = append(iocs, ioc)
	}
	return iocs, rows.Err()
}
