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

var ErrCredentialNotFound = errors.New("credential not found")

type CredentialRepository struct {
	pool *pgxpool.Pool
}

func NewCredentialRepository(pool *pgxpool.Pool) *CredentialRepository {
	return &CredentialRepository{pool: pool}
}

func (r *CredentialRepository) Create(ctx context.Context, credential models.Credential) error {
	const query = `
		INSERT INTO api_keys (
			id, name, scopes, key_prefix, key_hash, is_active, is_deleted, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, NOW(), NOW()
		)
	`

	scopes, err := json.Marshal(credential.Scopes)
	if err != nil {
		return fmt.Errorf("encode scopes: %w", err)
	}

	_, err = r.pool.Exec(ctx, query,
		credential.ID,
		credential.Name,
		scopes,
		credential.KeyPrefix,
		credential.KeyHash,
		credential.IsActive,
		credential.IsDeleted,
	)
	return err
}

// FindByPrefix returns the row for a lookup prefix regardless of its status
// flags. The caller decides how a revoked or disabled credential is reported.
func (r *CredentialRepository) FindByPrefix(ctx context.Context, prefix string) (models.Credential, error) {
	const query = `
		SELECT id, name, scopes, key_prefix, key_hash, is_active, is_deleted, created_at, updated_at
		FROM api_keys WHERE key_prefix = $1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, prefix))
}

func (r *CredentialRepository) GetByID(ctx context.Context, id string) (models.Credential, error) {
	const query = `
		SELECT id, name, scopes, key_prefix, key_hash, is_active, is_deleted, created_at, updated_at
		FROM api_keys WHERE id = $1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// Revoke soft-deletes a credential. The row stays for audit; verification
// fails from this point on.
func (r *CredentialRepository) Revoke(ctx context.Context, id string) error {
	const query = `
		UPDATE api_keys SET is_deleted = TRUE, updated_at = NOW()
		WHERE id = $1 AND is_deleted = FALSE
	`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrCredentialNotFound
	}
	return nil
}

func (r *CredentialRepository) scanOne(row pgx.Row) (models.Credential, error) {
	var (
		credential models.Credential
		scopes     []byte
	)
	if err := row.Scan(
		&credential.ID,
		&credential.Name,
		&scopes,
		&credential.KeyPrefix,
		&credential.KeyHash,
		&credential.IsActive,
		&credential.IsDeleted,
		&credential.CreatedAt,
		&credential.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Credential{}, ErrCredentialNotFound
		}
		return models.Credential{}, err
	}
	if err := json.Unmarshal(scopes, &credential.Scopes); err != nil {
		return models.Credential{}, fmt.Errorf("decode scopes: %w", err)
	}
	return credential, nil
}
