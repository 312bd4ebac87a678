package stores

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verso-cms/server-verso/internal/schemas"
)

var tokenTestColumns = []string{"token_id", "user_id", "token_hash", "token_type", "expires_at", "created_at"}

func TestHashTokenIsStableAndHex(t *testing.T) {
	first := HashToken("some-token-value")
	second := HashToken("some-token-value")
	other := HashToken("another-token-value")

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)
	assert.Len(t, first, 64)
}

func TestGetActiveByUserAndType(t *testing.T) {
	poolMock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer poolMock.Close()

	store := NewVerificationTokenStore()
	userId := uuid.New()
	tokenId := uuid.New()
	expiresAt := time.Now().Add(10 * time.Minute)

	poolMock.ExpectQuery("SELECT").WithArgs(userId, schemas.TokenTypeEmailVerification).
		WillReturnRows(pgxmock.NewRows(tokenTestColumns).
			AddRow(tokenId, userId, HashToken("raw"), schemas.TokenTypeEmailVerification, expiresAt, time.Now()))

	token, err := store.GetActiveByUserAndType(context.Background(), poolMock, userId, schemas.TokenTypeEmailVerification)
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Equal(t, tokenId, token.ID)
	assert.Equal(t, HashToken("raw"), token.TokenHash)

	assert.NoError(t, poolMock.ExpectationsWereMet())
}

func TestGetActiveByUserAndTypeAbsent(t *testing.T) {
	poolMock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer poolMock.Close()

	store := NewVerificationTokenStore()
	userId := uuid.New()

	poolMock.ExpectQuery("SELECT").WithArgs(userId, schemas.TokenTypePasswordReset).
		WillReturnRows(pgxmock.NewRows(tokenTestColumns))

	token, err := store.GetActiveByUserAndType(context.Background(), poolMock, userId, schemas.TokenTypePasswordReset)
	require.NoError(t, err)
	assert.Nil(t, token)
}

func TestDeleteByUserAndTypeReportsCount(t *testing.T) {
	poolMock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer poolMock.Close()

	store := NewVerificationTokenStore()
	userId := uuid.New()

	poolMock.ExpectExec("DELETE FROM verso_schema.verification_tokens").
		WithArgs(userId, schemas.TokenTypePasswordReset).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	count, err := store.DeleteByUserAndType(context.Background(), poolMock, userId, schemas.TokenTypePasswordReset)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	assert.NoError(t, poolMock.ExpectationsWereMet())
}
