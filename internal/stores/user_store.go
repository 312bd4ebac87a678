package stores

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/verso-cms/server-verso/internal/schemas"
)

const userColumns = "user_id, name, email, password, role, verified, email_verified_at, " +
	"profile_picture_url, accepted_tos, verification_sent_at, created_at, updated_at"

// UserStore reads and writes user records.
type UserStore struct{}

// NewUserStore creates a new UserStore.
func NewUserStore() *UserStore {
	return &UserStore{}
}

func scanUser(row pgx.Row) (*schemas.User, error) {
	user := &schemas.User{}
	var emailVerifiedAt, verificationSentAt pgtype.Timestamptz

	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Password, &user.Role, &user.Verified,
		&emailVerifiedAt, &user.ProfilePictureURL, &user.AcceptedTOS, &verificationSentAt,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if emailVerifiedAt.Valid {
		user.EmailVerifiedAt = &emailVerifiedAt.Time
	}
	if verificationSentAt.Valid {
		user.VerificationSentAt = &verificationSentAt.Time
	}

	return user, nil
}

// FindByEmail returns the user with the given email, or nil if no such user exists.
func (s *UserStore) FindByEmail(ctx context.Context, q Querier, email string) (*schemas.User, error) {
	row := q.QueryRow(ctx,
		"SELECT "+userColumns+" FROM verso_schema.users WHERE email = $1", email)
	return scanUser(row)
}

// FindById returns the user with the given id, or nil if no such user exists.
func (s *UserStore) FindById(ctx context.Context, q Querier, userId uuid.UUID) (*schemas.User, error) {
	row := q.QueryRow(ctx,
		"SELECT "+userColumns+" FROM verso_schema.users WHERE user_id = $1", userId)
	return scanUser(row)
}

// Create inserts a new user row. The email column carries a unique
// constraint, so a concurrent sign-up for the same address surfaces as a
// constraint violation instead of a silent duplicate.
func (s *UserStore) Create(ctx context.Context, q Querier, user *schemas.User) error {
	_, err := q.Exec(ctx,
		"INSERT INTO verso_schema.users (user_id, name, email, password, role, verified, "+
			"profile_picture_url, accepted_tos, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)",
		user.ID, user.Name, user.Email, user.Password, user.Role, user.Verified,
		user.ProfilePictureURL, user.AcceptedTOS, user.CreatedAt, user.UpdatedAt)
	return err
}

// MarkVerified flips the verified flag and stamps the verification time.
func (s *UserStore) MarkVerified(ctx context.Context, q Querier, userId uuid.UUID, at time.Time) error {
	_, err := q.Exec(ctx,
		"UPDATE verso_schema.users SET verified = TRUE, email_verified_at = $1, updated_at = $1 WHERE user_id = $2",
		at, userId)
	return err
}

// UpdatePassword replaces the stored password hash.
func (s *UserStore) UpdatePassword(ctx context.Context, q Querier, userId uuid.UUID, passwordHash string) error {
	_, err := q.Exec(ctx,
		"UPDATE verso_schema.users SET password = $1, updated_at = $2 WHERE user_id = $3",
		passwordHash, time.Now(), userId)
	return err
}

// StampVerificationSent records the time of the last verification mail,
// which drives the resend cooldown.
func (s *UserStore) StampVerificationSent(ctx context.Context, q Querier, userId uuid.UUID, at time.Time) error {
	_, err := q.Exec(ctx,
		"UPDATE verso_schema.users SET verification_sent_at = $1 WHERE user_id = $2",
		at, userId)
	return err
}

// UpdateProfile changes the display name and profile picture URL.
func (s *UserStore) UpdateProfile(ctx context.Context, q Querier, userId uuid.UUID, name, profilePictureURL string) error {
	_, err := q.Exec(ctx,
		"UPDATE verso_schema.users SET name = $1, profile_picture_url = $2, updated_at = $3 WHERE user_id = $4",
		name, profilePictureURL, time.Now(), userId)
	return err
}
