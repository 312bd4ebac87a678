// Package schemas defines the data structures
package schemas

import (
	"time"

	"github.com/google/uuid"
)

// Roles a user can hold. New accounts always start as RoleUser, regardless
// of what the client sends during sign-up.
const (
	RoleUser   = "user"
	RoleAuthor = "author"
	RoleAdmin  = "admin"
)

// Verification token purposes.
const (
	TokenTypeEmailVerification = "EMAIL_VERIFICATION"
	TokenTypePasswordReset     = "PASSWORD_RESET"
)

// User represents the data model for a user in the system.
type User struct {
	ID                 uuid.UUID  `json:"id"`                   // Unique identifier for the user.
	Name               string     `json:"name"`                 // Display name of the user.
	Email              string     `json:"email"`                // Email address, unique across the system.
	Password           string     `json:"password"`             // Bcrypt hash of the password.
	Role               string     `json:"role"`                 // Privilege level, one of RoleUser, RoleAuthor, RoleAdmin.
	Verified           bool       `json:"verified"`             // Whether the email address has been verified.
	EmailVerifiedAt    *time.Time `json:"email_verified_at"`    // Timestamp of the completed verification, nil until then.
	ProfilePictureURL  string     `json:"profile_picture_url"`  // Optional profile image URL.
	AcceptedTOS        bool       `json:"accepted_tos"`         // Acceptance of the terms of service during sign-up.
	VerificationSentAt *time.Time `json:"verification_sent_at"` // Last time a verification mail went out, drives the resend cooldown.
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// VerificationToken represents a single-use credential proof tied to a user
// and a purpose. Only the SHA-256 of the token value is stored.
type VerificationToken struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	TokenHash string    `json:"token_hash"`
	Type      string    `json:"type"` // TokenTypeEmailVerification or TokenTypePasswordReset.
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Article represents a published or draft article.
type Article struct {
	ID          uuid.UUID  `json:"id"`
	AuthorID    uuid.UUID  `json:"author_id"`
	CategoryID  *uuid.UUID `json:"category_id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Content     string     `json:"content"` // Sanitized HTML.
	Published   bool       `json:"published"`
	PublishedAt *time.Time `json:"published_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Category groups articles into a single rubric.
type Category struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

// Tag is a free-form label attached to articles via a join table.
type Tag struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Comment represents a comment on an article. ParentID is nil for top-level
// comments and references another comment for threaded replies.
type Comment struct {
	ID        uuid.UUID  `json:"id"`
	ArticleID uuid.UUID  `json:"article_id"`
	AuthorID  uuid.UUID  `json:"author_id"`
	ParentID  *uuid.UUID `json:"parent_id"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
}
