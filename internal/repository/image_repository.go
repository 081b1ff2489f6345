package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Daquiver1/veefyed/internal/models"
)

var ErrImageNotFound = errors.New("image not found")

type ImageRepository struct {
	pool *pgxpool.Pool
}

func NewImageRepository(pool *pgxpool.Pool) *ImageRepository {
	return &ImageRepository{pool: pool}
}

func (r *ImageRepository) Create(ctx context.Context, image models.Image) error {
	const query = `
		INSERT INTO images (
			id, filename, content_type, size_bytes, bucket, object_key, checksum, is_deleted, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		image.ID,
		image.Filename,
		image.ContentType,
		image.SizeBytes,
		image.Bucket,
		image.ObjectKey,
		image.Checksum,
		image.IsDeleted,
	)
	return err
}

// GetByID returns ErrImageNotFound for unknown ids and for soft-deleted rows.
func (r *ImageRepository) GetByID(ctx context.Context, id string) (models.Image, error) {
	const query = `
		SELECT id, filename, content_type, size_bytes, bucket, object_key, checksum, is_deleted, created_at, updated_at
		FROM images WHERE id = $1 AND is_deleted = FALSE
	`

	row := r.pool.QueryRow(ctx, query, id)
	var image models.Image
	if err := row.Scan(
		&image.ID,
		&image.Filename,
		&image.ContentType,
		&image.SizeBytes,
		&image.Bucket,
		&image.ObjectKey,
		&image.Checksum,
		&image.IsDeleted,
		&image.CreatedAt,
		&image.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Image{}, ErrImageNotFound
		}
		return models.Image{}, err
	}
	return image, nil
}

// ExistsByObjectKey reports whether any row references the given blob key.
// The reconciliation sweep uses it to tell orphaned blobs apart from blobs a
// metadata write landed for.
func (r *ImageRepository) ExistsByObjectKey(ctx context.Context, objectKey string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM images WHERE object_key = $1)`
	row := r.pool.QueryRow(ctx, query, objectKey)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *ImageRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `
		UPDATE images SET is_deleted = TRUE, updated_at = NOW()
		WHERE id = $1 AND is_deleted = FALSE
	`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrImageNotFound
	}
	return nil
}
