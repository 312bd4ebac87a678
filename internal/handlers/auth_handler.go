package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/verso-cms/server-verso/internal/config"
	"github.com/verso-cms/server-verso/internal/managers"
	"github.com/verso-cms/server-verso/internal/schemas"
	"github.com/verso-cms/server-verso/internal/stores"
	"github.com/verso-cms/server-verso/internal/utils"
)

// RefreshTokenCookie is the name of the HTTP-only cookie carrying the
// refresh token.
const RefreshTokenCookie = "refreshToken"

// AuthHdl bundles the handlers of the authentication flows: sign-up, email
// verification, sign-in, password reset and token refresh.
type AuthHdl interface {
	Signup(c *gin.Context)
	VerifyEmail(c *gin.Context)
	ResendVerification(c *gin.Context)
	Signin(c *gin.Context)
	ForgotPassword(c *gin.Context)
	ResetPassword(c *gin.Context)
	RefreshToken(c *gin.Context)
	Signout(c *gin.Context)
}

type AuthHandler struct {
	cfg             *config.Config
	databaseManager managers.DatabaseMgr
	jwtManager      managers.JWTMgr
	mailManager     managers.MailMgr
	users           *stores.UserStore
	tokens          *stores.VerificationTokenStore
	validator       *utils.Validator
}

func NewAuthHandler(cfg *config.Config, databaseManager managers.DatabaseMgr, jwtManager managers.JWTMgr, mailManager managers.MailMgr) AuthHdl {
	return &AuthHandler{
		cfg:             cfg,
		databaseManager: databaseManager,
		jwtManager:      jwtManager,
		mailManager:     mailManager,
		users:           stores.NewUserStore(),
		tokens:          stores.NewVerificationTokenStore(),
		validator:       utils.GetValidator(),
	}
}

// Signup registers a new user and sends a verification token to the user's
// email. Signing up again with the email of an unverified account re-sends
// the token instead of creating a duplicate.
func (handler *AuthHandler) Signup(ctx *gin.Context) {
	payload := ctx.MustGet(utils.SanitizedPayloadKey.String()).(*schemas.SignupRequest)

	if handler.cfg.VerifyEmailMX && !handler.validator.VerifyEmail(payload.Email) {
		utils.WriteAndLogError(ctx, schemas.EmailUnreachable, http.StatusBadRequest, errors.New("email unreachable"))
		return
	}

	tx := utils.BeginTransaction(ctx, handler.databaseManager.GetPool())
	if tx == nil {
		return
	}
	var err error
	defer func() { utils.RollbackTransaction(ctx, tx, err) }()

	user, err := handler.users.FindByEmail(ctx, tx, payload.Email)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if user != nil && user.Verified {
		err = errors.New("email already registered and verified")
		utils.WriteAndLogError(ctx, schemas.EmailTaken, http.StatusBadRequest, err)
		return
	}

	if user != nil {
		// Unverified duplicate: treat the sign-up as a resend.
		if err = handler.resendWithCooldown(ctx, tx, user); err != nil {
			return
		}

		if err = utils.CommitTransaction(ctx, tx); err != nil {
			return
		}

		utils.WriteAndLogResponse(ctx, &schemas.MessageDTO{
			Message: "This email is already registered but not verified. A new verification mail was sent.",
		}, http.StatusOK)
		return
	}

	hashedPassword, err := hashPassword(payload.Password)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.InternalServerError, http.StatusInternalServerError, err)
		return
	}

	now := time.Now()
	user = &schemas.User{
		ID:          uuid.New(),
		Name:        payload.Name,
		Email:       payload.Email,
		Password:    hashedPassword,
		Role:        schemas.RoleUser, // Clients never choose their own role.
		Verified:    false,
		AcceptedTOS: payload.AcceptedTOS,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err = handler.users.Create(ctx, tx, user); err != nil {
		// The unique constraint on the email column closes the window
		// between the lookup above and this insert.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			utils.WriteAndLogError(ctx, schemas.EmailTaken, http.StatusBadRequest, err)
			return
		}
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = handler.issueAndSendToken(ctx, tx, user, schemas.TokenTypeEmailVerification); err != nil {
		return
	}

	if err = utils.CommitTransaction(ctx, tx); err != nil {
		return
	}

	utils.WriteAndLogResponse(ctx, userToDTO(user), http.StatusCreated)
}

// VerifyEmail consumes a verification token and flips the user to verified.
// On success the client receives a fresh token pair and is authenticated
// right away.
func (handler *AuthHandler) VerifyEmail(ctx *gin.Context) {
	payload := ctx.MustGet(utils.SanitizedPayloadKey.String()).(*schemas.VerifyEmailRequest)

	tx := utils.BeginTransaction(ctx, handler.databaseManager.GetPool())
	if tx == nil {
		return
	}
	var err error
	defer func() { utils.RollbackTransaction(ctx, tx, err) }()

	user, err := handler.users.FindByEmail(ctx, tx, payload.Email)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	if user == nil {
		err = errors.New("user not found")
		utils.WriteAndLogError(ctx, schemas.UserNotFound, http.StatusNotFound, err)
		return
	}

	if user.Verified {
		err = errors.New("already verified")
		utils.WriteAndLogError(ctx, schemas.UserAlreadyVerified, http.StatusBadRequest, err)
		return
	}

	token, expired, err := handler.lookupToken(ctx, tx, user.ID, schemas.TokenTypeEmailVerification)
	if err != nil {
		return
	}
	if expired {
		// The stale tokens are already deleted; persist that before failing.
		if err = utils.CommitTransaction(ctx, tx); err != nil {
			return
		}
		utils.WriteAndLogError(ctx, schemas.TokenExpired, http.StatusUnauthorized, errors.New("token expired"))
		return
	}
	if token == nil || token.TokenHash != stores.HashToken(payload.Token) {
		err = errors.New("invalid token")
		utils.WriteAndLogError(ctx, schemas.InvalidToken, http.StatusUnauthorized, err)
		return
	}

	verifiedAt := time.Now()
	if err = handler.users.MarkVerified(ctx, tx, user.ID, verifiedAt); err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	// Consume the token atomically with the user update.
	if _, err = handler.tokens.DeleteByUserAndType(ctx, tx, user.ID, schemas.TokenTypeEmailVerification); err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	user.Verified = true
	user.EmailVerifiedAt = &verifiedAt

	pair, err := handler.jwtManager.GenerateTokenPair(user.ID.String(), user.Email, user.Role, true)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.InternalServerError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(ctx, tx); err != nil {
		return
	}

	handler.setRefreshCookie(ctx, pair.RefreshToken)
	utils.WriteAndLogResponse(ctx, &schemas.AuthResponseDTO{
		User:         *userToDTO(user),
		Token:        pair.Token,
		RefreshToken: pair.RefreshToken,
	}, http.StatusOK)
}

// ResendVerification sends a fresh verification token, guarded by the
// per-user cooldown.
func (handler *AuthHandler) ResendVerification(ctx *gin.Context) {
	payload := ctx.MustGet(utils.SanitizedPayloadKey.String()).(*schemas.ResendVerificationRequest)

	tx := utils.BeginTransaction(ctx, handler.databaseManager.GetPool())
	if tx == nil {
		return
	}
	var err error
	defer func() { utils.RollbackTransaction(ctx, tx, err) }()

	user, err := handler.users.FindByEmail(ctx, tx, payload.Email)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	if user == nil {
		err = errors.New("user not found")
		utils.WriteAndLogError(ctx, schemas.UserNotFound, http.StatusNotFound, err)
		return
	}

	if user.Verified {
		err = errors.New("already verified")
		utils.WriteAndLogError(ctx, schemas.UserAlreadyVerified, http.StatusBadRequest, err)
		return
	}

	if err = handler.resendWithCooldown(ctx, tx, user); err != nil {
		return
	}

	if err = utils.CommitTransaction(ctx, tx); err != nil {
		return
	}

	utils.WriteAndLogResponse(ctx, &schemas.MessageDTO{Message: "A new verification mail was sent."}, http.StatusOK)
}

// Signin checks the credentials and returns a token pair plus the public
// user projection. The refresh token is additionally set as an HTTP-only
// cookie.
func (handler *AuthHandler) Signin(ctx *gin.Context) {
	payload := ctx.MustGet(utils.SanitizedPayloadKey.String()).(*schemas.SigninRequest)

	tx := utils.BeginTransaction(ctx, handler.databaseManager.GetPool())
	if tx == nil {
		return
	}
	var err error
	defer func() { utils.RollbackTransaction(ctx, tx, err) }()

	user, err := handler.users.FindByEmail(ctx, tx, payload.Email)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	if user == nil {
		// Deliberately generic so the response does not confirm whether
		// the address is registered.
		err = errors.New("email not registered")
		utils.WriteAndLogError(ctx, schemas.InvalidCredentials, http.StatusNotFound, err)
		return
	}

	if !user.Verified {
		err = errors.New("user not verified")
		utils.WriteAndLogError(ctx, schemas.UserNotVerified, http.StatusForbidden, err)
		return
	}

	if !checkPasswordHash(payload.Password, user.Password) {
		err = errors.New("password mismatch")
		utils.WriteAndLogError(ctx, schemas.PasswordIncorrect, http.StatusUnauthorized, err)
		return
	}

	pair, err := handler.jwtManager.GenerateTokenPair(user.ID.String(), user.Email, user.Role, user.Verified)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.InternalServerError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(ctx, tx); err != nil {
		return
	}

	handler.setRefreshCookie(ctx, pair.RefreshToken)
	utils.WriteAndLogResponse(ctx, &schemas.AuthResponseDTO{
		User:         *userToDTO(user),
		Token:        pair.Token,
		RefreshToken: pair.RefreshToken,
	}, http.StatusOK)
}

// ForgotPassword issues a password-reset token. The response is the same
// generic acknowledgment whether or not the address is registered.
func (handler *AuthHandler) ForgotPassword(ctx *gin.Context) {
	payload := ctx.MustGet(utils.SanitizedPayloadKey.String()).(*schemas.ForgotPasswordRequest)

	tx := utils.BeginTransaction(ctx, handler.databaseManager.GetPool())
	if tx == nil {
		return
	}
	var err error
	defer func() { utils.RollbackTransaction(ctx, tx, err) }()

	user, err := handler.users.FindByEmail(ctx, tx, payload.Email)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if user != nil {
		if err = handler.issueAndSendToken(ctx, tx, user, schemas.TokenTypePasswordReset); err != nil {
			return
		}
	}

	if err = utils.CommitTransaction(ctx, tx); err != nil {
		return
	}

	utils.WriteAndLogResponse(ctx, &schemas.MessageDTO{
		Message: "If the address is registered, a password reset mail was sent.",
	}, http.StatusOK)
}

// ResetPassword consumes a password-reset token and stores the new
// password hash.
func (handler *AuthHandler) ResetPassword(ctx *gin.Context) {
	payload := ctx.MustGet(utils.SanitizedPayloadKey.String()).(*schemas.ResetPasswordRequest)

	tx := utils.BeginTransaction(ctx, handler.databaseManager.GetPool())
	if tx == nil {
		return
	}
	var err error
	defer func() { utils.RollbackTransaction(ctx, tx, err) }()

	user, err := handler.users.FindByEmail(ctx, tx, payload.Email)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	if user == nil {
		err = errors.New("user not found")
		utils.WriteAndLogError(ctx, schemas.UserNotFound, http.StatusNotFound, err)
		return
	}

	token, expired, err := handler.lookupToken(ctx, tx, user.ID, schemas.TokenTypePasswordReset)
	if err != nil {
		return
	}
	if expired {
		if err = utils.CommitTransaction(ctx, tx); err != nil {
			return
		}
		utils.WriteAndLogError(ctx, schemas.TokenExpired, http.StatusUnauthorized, errors.New("token expired"))
		return
	}
	if token == nil || token.TokenHash != stores.HashToken(payload.Token) {
		err = errors.New("invalid token")
		utils.WriteAndLogError(ctx, schemas.InvalidToken, http.StatusUnauthorized, err)
		return
	}

	hashedPassword, err := hashPassword(payload.NewPassword)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.InternalServerError, http.StatusInternalServerError, err)
		return
	}

	if err = handler.users.UpdatePassword(ctx, tx, user.ID, hashedPassword); err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	count, err := handler.tokens.DeleteByUserAndType(ctx, tx, user.ID, schemas.TokenTypePasswordReset)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	if count != 1 {
		// The token was consumed by a concurrent request between our read
		// and this delete.
		err = errors.New("token already consumed")
		utils.WriteAndLogError(ctx, schemas.InternalServerError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(ctx, tx); err != nil {
		return
	}

	utils.WriteAndLogResponse(ctx, &schemas.MessageDTO{Message: "The password was updated."}, http.StatusOK)
}

// RefreshToken validates the refresh token and mints a brand-new pair with
// the user's current role and verification state. A valid token whose user
// no longer exists is rejected as forbidden.
func (handler *AuthHandler) RefreshToken(ctx *gin.Context) {
	refreshToken, err := ctx.Cookie(RefreshTokenCookie)
	if err != nil || refreshToken == "" {
		// Fall back to the request body for clients that cannot send
		// cookies.
		var payload schemas.RefreshTokenRequest
		if bindErr := ctx.ShouldBindJSON(&payload); bindErr == nil {
			refreshToken = payload.RefreshToken
		}
	}
	if refreshToken == "" {
		utils.WriteAndLogError(ctx, schemas.Unauthorized, http.StatusUnauthorized, errors.New("missing refresh token"))
		return
	}

	claims, err := handler.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.InvalidToken, http.StatusUnauthorized, err)
		return
	}

	subject, _ := claims["sub"].(string)
	userId, err := uuid.Parse(subject)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.InvalidToken, http.StatusUnauthorized, err)
		return
	}

	user, err := handler.users.FindById(ctx, handler.databaseManager.GetPool(), userId)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	if user == nil {
		err = errors.New("user no longer exists")
		utils.WriteAndLogError(ctx, schemas.AccessDenied, http.StatusForbidden, err)
		return
	}

	pair, err := handler.jwtManager.GenerateTokenPair(user.ID.String(), user.Email, user.Role, user.Verified)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.InternalServerError, http.StatusInternalServerError, err)
		return
	}

	handler.setRefreshCookie(ctx, pair.RefreshToken)
	utils.WriteAndLogResponse(ctx, pair, http.StatusOK)
}

// Signout clears the refresh cookie. There is no server-side revocation
// list, so already-issued refresh tokens stay valid until they expire.
func (handler *AuthHandler) Signout(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(RefreshTokenCookie, "", -1, "/api/auth", "", handler.cfg.Environment == "production", true)
	utils.WriteAndLogResponse(ctx, &schemas.MessageDTO{Message: "Signed out."}, http.StatusOK)
}

// resendWithCooldown re-issues a verification token unless the last mail
// went out less than the configured cooldown ago. The rejection carries the
// remaining seconds.
func (handler *AuthHandler) resendWithCooldown(ctx *gin.Context, tx pgx.Tx, user *schemas.User) error {
	if user.VerificationSentAt != nil {
		cooldownEnd := user.VerificationSentAt.Add(handler.cfg.ResendCooldown)
		if remaining := time.Until(cooldownEnd); remaining > 0 {
			seconds := int(remaining.Seconds()) + 1
			err := errors.New("resend cooldown active")
			utils.WriteAndLogError(ctx, schemas.ResendCooldown.WithMessage(
				"A verification mail was sent recently. Please wait %d seconds before requesting another one.", seconds),
				http.StatusBadRequest, err)
			return err
		}
	}

	return handler.issueAndSendToken(ctx, tx, user, schemas.TokenTypeEmailVerification)
}

// issueAndSendToken clears stale tokens for the purpose, persists a fresh
// one and sends it by mail. A failed mail send fails the whole request,
// since an account that cannot be verified is worse than a visible error.
func (handler *AuthHandler) issueAndSendToken(ctx *gin.Context, tx pgx.Tx, user *schemas.User, tokenType string) error {
	tokenValue, err := generateTokenValue()
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.InternalServerError, http.StatusInternalServerError, err)
		return err
	}

	if _, err = handler.tokens.DeleteByUserAndType(ctx, tx, user.ID, tokenType); err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return err
	}

	now := time.Now()
	token := &schemas.VerificationToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: stores.HashToken(tokenValue),
		Type:      tokenType,
		ExpiresAt: now.Add(handler.cfg.VerificationTokenLifetime),
		CreatedAt: now,
	}
	if err = handler.tokens.Create(ctx, tx, token); err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return err
	}

	if tokenType == schemas.TokenTypeEmailVerification {
		if err = handler.users.StampVerificationSent(ctx, tx, user.ID, now); err != nil {
			utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
			return err
		}
		err = handler.mailManager.SendVerificationMail(user.Email, user.Name, tokenValue)
	} else {
		err = handler.mailManager.SendPasswordResetMail(user.Email, user.Name, tokenValue)
	}

	if err != nil {
		utils.WriteAndLogError(ctx, schemas.EmailNotSent, http.StatusInternalServerError, err)
		return err
	}

	return nil
}

// lookupToken fetches the active token for the purpose. When only an
// expired token exists, every token of the user is purged to force a clean
// reissue and expired=true is reported.
func (handler *AuthHandler) lookupToken(ctx *gin.Context, tx pgx.Tx, userId uuid.UUID, tokenType string) (*schemas.VerificationToken, bool, error) {
	token, err := handler.tokens.GetActiveByUserAndType(ctx, tx, userId, tokenType)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return nil, false, err
	}
	if token != nil {
		return token, false, nil
	}

	latest, err := handler.tokens.GetLatestByUserAndType(ctx, tx, userId, tokenType)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return nil, false, err
	}
	if latest == nil {
		return nil, false, nil
	}

	if _, err = handler.tokens.DeleteByUser(ctx, tx, userId); err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return nil, false, err
	}

	return nil, true, nil
}

func (handler *AuthHandler) setRefreshCookie(ctx *gin.Context, refreshToken string) {
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(RefreshTokenCookie, refreshToken, int(handler.cfg.RefreshTokenLifetime.Seconds()),
		"/api/auth", "", handler.cfg.Environment == "production", true)
}

func userToDTO(user *schemas.User) *schemas.UserDTO {
	return &schemas.UserDTO{
		ID:                user.ID,
		Name:              user.Name,
		Email:             user.Email,
		Role:              user.Role,
		Verified:          user.Verified,
		ProfilePictureURL: user.ProfilePictureURL,
	}
}
