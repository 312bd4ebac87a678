package schemas

import "github.com/google/uuid"

// ErrorDTO is a struct that represents an error response
// Error is the custom error, see CustomError
type ErrorDTO struct {
	Error CustomError `json:"error"`
}

// UserDTO is the public projection of a user returned by the auth endpoints.
type UserDTO struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	Role              string    `json:"role"`
	Verified          bool      `json:"verified"`
	ProfilePictureURL string    `json:"profilePictureURL"`
}

// TokenPairDTO is a struct that represents a token response
// Token is the short-lived access token used for bearer auth
// RefreshToken is the long-lived token used to mint new pairs
type TokenPairDTO struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// AuthResponseDTO bundles the token pair with the public user projection.
type AuthResponseDTO struct {
	User         UserDTO `json:"user"`
	Token        string  `json:"token"`
	RefreshToken string  `json:"refreshToken"`
}

// MessageDTO is a struct that represents a plain acknowledgment response
type MessageDTO struct {
	Message string `json:"message"`
}

// AuthorDTO is a struct that represents an author response
type AuthorDTO struct {
	Name              string `json:"name"`
	ProfilePictureURL string `json:"profilePictureURL"`
}

// CategoryDTO is a struct that represents a category response
type CategoryDTO struct {
	CategoryID uuid.UUID `json:"categoryId"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
}

// TagDTO is a struct that represents a tag response
type TagDTO struct {
	TagID uuid.UUID `json:"tagId"`
	Name  string    `json:"name"`
}

// ArticleDTO is a struct that represents an article response
type ArticleDTO struct {
	ArticleID    string       `json:"articleId"`
	Title        string       `json:"title"`
	Slug         string       `json:"slug"`
	Content      string       `json:"content,omitempty"`
	Author       AuthorDTO    `json:"author"`
	Category     *CategoryDTO `json:"category,omitempty"`
	Tags         []string     `json:"tags"`
	Published    bool         `json:"published"`
	CreationDate string       `json:"creationDate"`
}

// CommentDTO is a struct that represents a comment response
// Replies holds the direct children of the comment (threaded view)
type CommentDTO struct {
	CommentID    string        `json:"commentId"`
	Content      string        `json:"content"`
	Author       AuthorDTO     `json:"author"`
	Likes        int           `json:"likes"`
	Liked        bool          `json:"liked"`
	CreationDate string        `json:"creationDate"`
	Replies      []*CommentDTO `json:"replies"`
}

// PaginatedResponse is a struct that represents a paginated response
// Records is the records of the response
// Pagination is the pagination of the response
type PaginatedResponse struct {
	Records    interface{} `json:"records"`
	Pagination Pagination  `json:"pagination"`
}

// Pagination is a struct that represents a pagination
// Offset is the given offset of the pagination
// Limit is the given limit of the pagination
// Records is the total records of the pagination
type Pagination struct {
	Offset  int `json:"offset"`
	Limit   int `json:"limit"`
	Records int `json:"records"`
}

// MetadataDTO describes the running API version.
type MetadataDTO struct {
	ApiVersion string `json:"apiVersion"`
	ApiName    string `json:"apiName"`
}
