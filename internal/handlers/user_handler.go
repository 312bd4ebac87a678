package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/verso-cms/server-verso/internal/managers"
	"github.com/verso-cms/server-verso/internal/schemas"
	"github.com/verso-cms/server-verso/internal/stores"
	"github.com/verso-cms/server-verso/internal/utils"
)

// UserHdl defines the handlers for the profile endpoints.
type UserHdl interface {
	GetMe(c *gin.Context)
	UpdateMe(c *gin.Context)
}

type UserHandler struct {
	databaseManager managers.DatabaseMgr
	users           *stores.UserStore
}

func NewUserHandler(databaseManager managers.DatabaseMgr) UserHdl {
	return &UserHandler{
		databaseManager: databaseManager,
		users:           stores.NewUserStore(),
	}
}

// currentUserId extracts the authenticated user's id from the JWT claims
// stored in the request context.
func currentUserId(ctx *gin.Context) (uuid.UUID, error) {
	claims, ok := ctx.Value(utils.ClaimsKey.String()).(jwt.MapClaims)
	if !ok {
		return uuid.Nil, errors.New("no claims in context")
	}

	subject, _ := claims["sub"].(string)
	return uuid.Parse(subject)
}

// GetMe returns the profile of the authenticated user.
func (handler *UserHandler) GetMe(ctx *gin.Context) {
	userId, err := currentUserId(ctx)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.Unauthorized, http.StatusUnauthorized, err)
		return
	}

	user, err := handler.users.FindById(ctx, handler.databaseManager.GetPool(), userId)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	if user == nil {
		err = errors.New("user not found")
		utils.WriteAndLogError(ctx, schemas.UserNotFound, http.StatusNotFound, err)
		return
	}

	utils.WriteAndLogResponse(ctx, userToDTO(user), http.StatusOK)
}

// UpdateMe changes the display name and profile picture of the
// authenticated user.
func (handler *UserHandler) UpdateMe(ctx *gin.Context) {
	payload := ctx.MustGet(utils.SanitizedPayloadKey.String()).(*schemas.UpdateProfileRequest)

	userId, err := currentUserId(ctx)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.Unauthorized, http.StatusUnauthorized, err)
		return
	}

	tx := utils.BeginTransaction(ctx, handler.databaseManager.GetPool())
	if tx == nil {
		return
	}
	defer func() { utils.RollbackTransaction(ctx, tx, err) }()

	user, err := handler.users.FindById(ctx, tx, userId)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	if user == nil {
		err = errors.New("user not found")
		utils.WriteAndLogError(ctx, schemas.UserNotFound, http.StatusNotFound, err)
		return
	}

	if err = handler.users.UpdateProfile(ctx, tx, userId, payload.Name, payload.ProfilePictureURL); err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(ctx, tx); err != nil {
		return
	}

	user.Name = payload.Name
	user.ProfilePictureURL = payload.ProfilePictureURL
	utils.WriteAndLogResponse(ctx, userToDTO(user), http.StatusOK)
}
