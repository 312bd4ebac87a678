// Package schemas defines the request structures for various operations in the application.
package schemas

// SignupRequest is a struct that represents a sign-up request
// Name is required and must be less than 50 characters
// Email is required and must be a valid email
// Password is required and must be at least 8 characters
// AcceptedTOS must be true
type SignupRequest struct {
	Name        string `json:"name" validate:"required,max=50"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=72,password_validation"`
	AcceptedTOS bool   `json:"acceptedTOS" validate:"required,eq=true"`
}

// VerifyEmailRequest is a struct that represents an email verification request
// Email identifies the account, Token is the code from the verification mail
type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Token string `json:"token" validate:"required,len=64,hexadecimal"`
}

// ResendVerificationRequest is a struct that represents a resend request
type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// SigninRequest is a struct that represents a sign-in request
type SigninRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// ForgotPasswordRequest is a struct that represents a forgot-password request
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest is a struct that represents a password reset request
// Token is the code from the reset mail, NewPassword replaces the old one
type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Token       string `json:"token" validate:"required,len=64,hexadecimal"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=72,password_validation"`
}

// RefreshTokenRequest is a struct that represents a refresh-token request
// RefreshToken may be omitted when the refresh token travels in the cookie
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"omitempty"`
}

// UpdateProfileRequest is a struct that represents a profile update request
type UpdateProfileRequest struct {
	Name              string `json:"name" validate:"required,max=50"`
	ProfilePictureURL string `json:"profilePictureURL" validate:"omitempty,url,max=256"`
}

// CreateArticleRequest is a struct that represents a create article request
// Content is raw HTML and gets sanitized with a UGC policy before storage
type CreateArticleRequest struct {
	Title      string   `json:"title" validate:"required,max=120"`
	Content    string   `json:"content" validate:"required" sanitize:"ugc"`
	CategoryID string   `json:"categoryId" validate:"omitempty,uuid4"`
	Tags       []string `json:"tags" validate:"omitempty,max=10,dive,required,max=30"`
	Published  bool     `json:"published"`
}

// UpdateArticleRequest is a struct that represents an update article request
type UpdateArticleRequest struct {
	Title      string   `json:"title" validate:"required,max=120"`
	Content    string   `json:"content" validate:"required" sanitize:"ugc"`
	CategoryID string   `json:"categoryId" validate:"omitempty,uuid4"`
	Tags       []string `json:"tags" validate:"omitempty,max=10,dive,required,max=30"`
	Published  bool     `json:"published"`
}

// CreateCategoryRequest is a struct that represents a create category request
type CreateCategoryRequest struct {
	Name string `json:"name" validate:"required,max=40"`
}

// UpdateCategoryRequest is a struct that represents an update category request
type UpdateCategoryRequest struct {
	Name string `json:"name" validate:"required,max=40"`
}

// CreateTagRequest is a struct that represents a create tag request
type CreateTagRequest struct {
	Name string `json:"name" validate:"required,max=30"`
}

// CreateCommentRequest is a struct that represents a create comment request
// Content is required and must be less than 1024 characters
// ParentID references another comment of the same article for replies
type CreateCommentRequest struct {
	Content  string `json:"content" validate:"required,max=1024"`
	ParentID string `json:"parentId" validate:"omitempty,uuid4"`
}
