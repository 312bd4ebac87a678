package stores

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/verso-cms/server-verso/internal/schemas"
)

const tokenColumns = "token_id, user_id, token_hash, token_type, expires_at, created_at"

// VerificationTokenStore manages the lifecycle of single-use verification
// and password-reset tokens. Only token hashes are persisted; the raw token
// travels exclusively in the mail to the user.
type VerificationTokenStore struct{}

// NewVerificationTokenStore creates a new VerificationTokenStore.
func NewVerificationTokenStore() *VerificationTokenStore {
	return &VerificationTokenStore{}
}

// HashToken returns the hex-encoded SHA-256 of a raw token value.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func scanToken(row pgx.Row) (*schemas.VerificationToken, error) {
	token := &schemas.VerificationToken{}
	err := row.Scan(&token.ID, &token.UserID, &token.TokenHash, &token.Type,
		&token.ExpiresAt, &token.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return token, nil
}

// Create inserts a new token row.
func (s *VerificationTokenStore) Create(ctx context.Context, q Querier, token *schemas.VerificationToken) error {
	_, err := q.Exec(ctx,
		"INSERT INTO verso_schema.verification_tokens (token_id, user_id, token_hash, token_type, expires_at, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6)",
		token.ID, token.UserID, token.TokenHash, token.Type, token.ExpiresAt, token.CreatedAt)
	return err
}

// GetActiveByUserAndType returns the most recent token for the given user
// and purpose whose expiry is strictly in the future, or nil if none exists.
// Expired tokens are treated as absent.
func (s *VerificationTokenStore) GetActiveByUserAndType(ctx context.Context, q Querier, userId uuid.UUID, tokenType string) (*schemas.VerificationToken, error) {
	row := q.QueryRow(ctx,
		"SELECT "+tokenColumns+" FROM verso_schema.verification_tokens "+
			"WHERE user_id = $1 AND token_type = $2 AND expires_at > NOW() "+
			"ORDER BY created_at DESC LIMIT 1",
		userId, tokenType)
	return scanToken(row)
}

// GetLatestByUserAndType returns the most recent token for the given user
// and purpose regardless of expiry, or nil if none exists. Callers use it to
// tell an expired token apart from a token that never existed.
func (s *VerificationTokenStore) GetLatestByUserAndType(ctx context.Context, q Querier, userId uuid.UUID, tokenType string) (*schemas.VerificationToken, error) {
	row := q.QueryRow(ctx,
		"SELECT "+tokenColumns+" FROM verso_schema.verification_tokens "+
			"WHERE user_id = $1 AND token_type = $2 "+
			"ORDER BY created_at DESC LIMIT 1",
		userId, tokenType)
	return scanToken(row)
}

// DeleteByUserAndType purges all tokens for the given user and purpose and
// returns the number of deleted rows. It invalidates consumed tokens and
// clears stale ones before a reissue.
func (s *VerificationTokenStore) DeleteByUserAndType(ctx context.Context, q Querier, userId uuid.UUID, tokenType string) (int64, error) {
	tag, err := q.Exec(ctx,
		"DELETE FROM verso_schema.verification_tokens WHERE user_id = $1 AND token_type = $2",
		userId, tokenType)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteByUser purges all tokens for the given user regardless of purpose.
func (s *VerificationTokenStore) DeleteByUser(ctx context.Context, q Querier, userId uuid.UUID) (int64, error) {
	tag, err := q.Exec(ctx, "DELETE FROM verso_schema.verification_tokens WHERE user_id = $1", userId)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
