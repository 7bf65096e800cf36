package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/medsafe-api/internal/model"
	"github.com/jwalitptl/medsafe-api/internal/repository"
)

type accessTokenRepository struct {
	BaseRepository
}

func NewAccessTokenRepository(base BaseRepository) repository.AccessTokenRepository {
	return &accessTokenRepository{base}
}

const accessTokenColumns = `id, token_hash, patient_id, expires_at, used_by, used_at, created_at`

func (r *accessTokenRepository) Create(ctx context.Context, token *model.AccessToken) error {
	query := `
		INSERT INTO access_tokens (id, token_hash, patient_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.GetDB().ExecContext(ctx, query,
		token.ID, token.TokenHash, token.PatientID, token.ExpiresAt, token.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to store access token: %w", err)
	}
	return nil
}

func (r *accessTokenRepository) FindUnexpired(ctx context.Context, tokenHash string) (*model.AccessToken, error) {
	query := `SELECT ` + accessTokenColumns + `
		FROM access_tokens
		WHERE token_hash = $1
		AND expires_at > NOW()
	`
	var token model.AccessToken
	if err := r.GetDB().GetContext(ctx, &token, query, tokenHash); err != nil {
		return nil, notFound(err)
	}
	return &token, nil
}

func (r *accessTokenRepository) Consume(ctx context.Context, tokenHash string, doctorID uuid.UUID) (*model.AccessToken, error) {
	query := `
		UPDATE access_tokens
		SET used_by = $1, used_at = COALESCE(used_at, NOW())
		WHERE token_hash = $2
		AND expires_at > NOW()
		AND (used_by IS NULL OR used_by = $1)
		RETURNING ` + accessTokenColumns

	var token model.AccessToken
	if err := r.GetDB().GetContext(ctx, &token, query, doctorID, tokenHash); err != nil {
		if notFound(err) == repository.ErrNotFound {
			return nil, repository.ErrTokenUnavailable
		}
		return nil, fmt.Errorf("failed to consume access token: %w", err)
	}
	return &token, nil
}

func (r *accessTokenRepository) HasGrant(ctx context.Context, doctorID, patientID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM access_tokens
			WHERE used_by = $1
			AND patient_id = $2
			AND expires_at > NOW()
		)
	`
	var ok bool
	if err := r.GetDB().GetContext(ctx, &ok, query, doctorID, patientID); err != nil {
		return false, fmt.Errorf("failed to check access grant: %w", err)
	}
	return ok, nil
}

func (r *accessTokenRepository) ListActiveByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.AccessToken, error) {
	query := `SELECT ` + accessTokenColumns + `
		FROM access_tokens
		WHERE patient_id = $1
		AND expires_at > NOW()
		ORDER BY created_at DESC
	`
	tokens := []*model.AccessToken{}
	if err := r.GetDB().SelectContext(ctx, &tokens, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list access tokens: %w", err)
	}
	return tokens, nil
}

func (r *accessTokenRepository) DeleteExpiredBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.GetDB().ExecContext(ctx, `DELETE FROM access_tokens WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}
	return result.RowsAffected()
}
