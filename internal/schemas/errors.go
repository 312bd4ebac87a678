// Package schemas defines the data structures exchanged between the
// handlers and the outside world, including the error catalog.
package schemas

import "fmt"

// CustomError is the uniform error payload returned by every endpoint.
// Code is a stable machine-readable identifier, Message is human-readable.
type CustomError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// WithMessage returns a copy of the error with a request-specific message,
// keeping the stable code. Used for errors that carry dynamic details like
// the remaining cooldown seconds.
func (e *CustomError) WithMessage(format string, args ...interface{}) *CustomError {
	return &CustomError{
		Message: fmt.Sprintf(format, args...),
		Code:    e.Code,
	}
}

var (
	BadRequest = &CustomError{
		Message: "The request body is invalid. Please check the request body and try again.",
		Code:    "ERR-001",
	}
	EmailTaken = &CustomError{
		Message: "The email address is already registered and verified. Please sign in instead.",
		Code:    "ERR-002",
	}
	UserAlreadyVerified = &CustomError{
		Message: "The account is already verified. There is nothing to resend.",
		Code:    "ERR-003",
	}
	UserNotFound = &CustomError{
		Message: "The user was not found. Please check the email address and try again.",
		Code:    "ERR-004",
	}
	InvalidToken = &CustomError{
		Message: "The token is invalid. Please request a new one and try again.",
		Code:    "ERR-005",
	}
	TokenExpired = &CustomError{
		Message: "The token has expired. Please request a new one and try again.",
		Code:    "ERR-006",
	}
	ResendCooldown = &CustomError{
		Message: "A verification mail was sent recently. Please wait before requesting another one.",
		Code:    "ERR-007",
	}
	InvalidCredentials = &CustomError{
		Message: "The email address is not registered or not verified.",
		Code:    "ERR-008",
	}
	PasswordIncorrect = &CustomError{
		Message: "The password is incorrect. Please try again.",
		Code:    "ERR-009",
	}
	UserNotVerified = &CustomError{
		Message: "The account is not verified yet. Please verify your email address first.",
		Code:    "ERR-010",
	}
	EmailNotSent = &CustomError{
		Message: "The mail could not be sent. Please try again later.",
		Code:    "ERR-011",
	}
	DatabaseError = &CustomError{
		Message: "A database error occurred. Please try again later.",
		Code:    "ERR-012",
	}
	InternalServerError = &CustomError{
		Message: "An internal error occurred. Please try again later.",
		Code:    "ERR-013",
	}
	Unauthorized = &CustomError{
		Message: "The request is unauthorized. Please sign in to your account.",
		Code:    "ERR-014",
	}
	AccessDenied = &CustomError{
		Message: "Access denied. The account referenced by the token no longer exists.",
		Code:    "ERR-015",
	}
	ArticleNotFound = &CustomError{
		Message: "The article was not found. Please check the identifier and try again.",
		Code:    "ERR-016",
	}
	SlugTaken = &CustomError{
		Message: "An article with this title already exists. Please choose another title.",
		Code:    "ERR-017",
	}
	CategoryNotFound = &CustomError{
		Message: "The category was not found. Please check the identifier and try again.",
		Code:    "ERR-018",
	}
	CategoryNameTaken = &CustomError{
		Message: "The category name is already taken. Please choose another name.",
		Code:    "ERR-019",
	}
	TagNotFound = &CustomError{
		Message: "The tag was not found. Please check the identifier and try again.",
		Code:    "ERR-020",
	}
	TagNameTaken = &CustomError{
		Message: "The tag name is already taken. Please choose another name.",
		Code:    "ERR-021",
	}
	CommentNotFound = &CustomError{
		Message: "The comment was not found. Please check the identifier and try again.",
		Code:    "ERR-022",
	}
	AlreadyLiked = &CustomError{
		Message: "The comment is already liked.",
		Code:    "ERR-023",
	}
	NotLiked = &CustomError{
		Message: "The comment is not liked.",
		Code:    "ERR-024",
	}
	Forbidden = &CustomError{
		Message: "You do not have permission to perform this action.",
		Code:    "ERR-025",
	}
	EmailUnreachable = &CustomError{
		Message: "The email address appears to be unreachable. Please check it and try again.",
		Code:    "ERR-026",
	}
)
