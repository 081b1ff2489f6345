package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Daquiver1/veefyed/internal/models"
)

var ErrAnalysisNotFound = errors.New("analysis not found")

type AnalysisRepository struct {
	pool *pgxpool.Pool
}

func NewAnalysisRepository(pool *pgxpool.Pool) *AnalysisRepository {
	return &AnalysisRepository{pool: pool}
}

// Create inserts a new analysis row and fills in the database-assigned
// sequence number. Concurrent inserts for the same image both land; the
// sequence decides which one LatestByImage returns.
func (r *AnalysisRepository) Create(ctx context.Context, analysis *models.Analysis) error {
	const query = `
		INSERT INTO image_analyses (
			id, image_id, skin_type, issues, confidence, engine_version, analyzed_at, is_deleted, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()
		)
		RETURNING seq, created_at, updated_at
	`

	issues, err := json.Marshal(analysis.Issues)
	if err != nil {
		return fmt.Errorf("encode issues: %w", err)
	}

	row := r.pool.QueryRow(ctx, query,
		analysis.ID,
		analysis.ImageID,
		analysis.SkinType,
		issues,
		analysis.Confidence,
		analysis.EngineVersion,
		analysis.AnalyzedAt,
		analysis.IsDeleted,
	)
	return row.Scan(&analysis.Seq, &analysis.CreatedAt, &analysis.UpdatedAt)
}

// LatestByImage returns the newest non-deleted analysis for an image,
// ordered by the insertion sequence rather than timestamps so ties resolve
// deterministically.
func (r *AnalysisRepository) LatestByImage(ctx context.Context, imageID string) (models.Analysis, error) {
	const query = `
		SELECT id, seq, image_id, skin_type, issues, confidence, engine_version, analyzed_at, is_deleted, created_at, updated_at
		FROM image_analyses
		WHERE image_id = $1 AND is_deleted = FALSE
		ORDER BY seq DESC
		LIMIT 1
	`

	row := r.pool.QueryRow(ctx, query, imageID)
	var (
		analysis models.Analysis
		issues   []byte
	)
	if err := row.Scan(
		&analysis.ID,
		&analysis.Seq,
		&analysis.ImageID,
		&analysis.SkinType,
		&issues,
		&analysis.Confidence,
		&analysis.EngineVersion,
		&analysis.AnalyzedAt,
		&analysis.IsDeleted,
		&analysis.CreatedAt,
		&analysis.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Analysis{}, ErrAnalysisNotFound
		}
		return models.Analysis{}, err
	}
	if err := json.Unmarshal(issues, &analysis.Issues); err != nil {
		return models.Analysis{}, fmt.Errorf("decode issues: %w", err)
	}
	return analysis, nil
}
