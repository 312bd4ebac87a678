package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/verso-cms/server-verso/internal/managers"
	"github.com/verso-cms/server-verso/internal/schemas"
	"github.com/verso-cms/server-verso/internal/utils"
)

var bearerPrefix = "Bearer "

// CommentHdl defines the handlers for the comment endpoints.
type CommentHdl interface {
	CreateComment(c *gin.Context)
	GetComments(c *gin.Context)
	DeleteComment(c *gin.Context)
	LikeComment(c *gin.Context)
	UnlikeComment(c *gin.Context)
}

type CommentHandler struct {
	databaseManager managers.DatabaseMgr
	jwtManager      managers.JWTMgr
}

func NewCommentHandler(databaseManager managers.DatabaseMgr, jwtManager managers.JWTMgr) CommentHdl {
	return &CommentHandler{
		databaseManager: databaseManager,
		jwtManager:      jwtManager,
	}
}

// CreateComment adds a comment to an article. When ParentID is set the new
// comment becomes a reply and must reference a comment of the same article.
func (handler *CommentHandler) CreateComment(ctx *gin.Context) {
	payload := ctx.MustGet(utils.SanitizedPayloadKey.String()).(*schemas.CreateCommentRequest)
	claims := ctx.Value(utils.ClaimsKey.String()).(jwt.MapClaims)

	articleId, err := uuid.Parse(ctx.Param(utils.ArticleIdKey))
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.BadRequest, http.StatusBadRequest, err)
		return
	}

	tx := utils.BeginTransaction(ctx, handler.databaseManager.GetPool())
	if tx == nil {
		return
	}
	defer func() { utils.RollbackTransaction(ctx, tx, err) }()

	commentId := uuid.New()
	userId := claims["sub"].(string)
	createdAt := time.Now()

	var parentId *uuid.UUID
	if payload.ParentID != "" {
		parsed, parseErr := uuid.Parse(payload.ParentID)
		if parseErr != nil {
			err = parseErr
			utils.WriteAndLogError(ctx, schemas.BadRequest, http.StatusBadRequest, err)
			return
		}

		// The parent must be a comment of the same article.
		var parentArticleId uuid.UUID
		row := tx.QueryRow(ctx, "SELECT article_id FROM verso_schema.comments WHERE comment_id = $1", parsed)
		if err = row.Scan(&parentArticleId); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				utils.WriteAndLogError(ctx, schemas.CommentNotFound, http.StatusNotFound, err)
				return
			}
			utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
			return
		}
		if parentArticleId != articleId {
			err = errors.New("parent comment belongs to another article")
			utils.WriteAndLogError(ctx, schemas.BadRequest, http.StatusBadRequest, err)
			return
		}

		parentId = &parsed
	}

	queryString := "INSERT INTO verso_schema.comments (comment_id, article_id, author_id, parent_id, content, created_at) " +
		"VALUES($1, $2, $3, $4, $5, $6)"
	if _, err = tx.Exec(ctx, queryString, commentId, articleId, userId, parentId, payload.Content, createdAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			utils.WriteAndLogError(ctx, schemas.ArticleNotFound, http.StatusNotFound, errors.New("article not found"))
			return
		}
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	// Get the author
	author := &schemas.AuthorDTO{}
	row := tx.QueryRow(ctx, "SELECT name, profile_picture_url FROM verso_schema.users WHERE user_id = $1", userId)
	if err = row.Scan(&author.Name, &author.ProfilePictureURL); err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(ctx, tx); err != nil {
		return
	}

	comment := &schemas.CommentDTO{
		CommentID:    commentId.String(),
		Content:      payload.Content,
		Author:       *author,
		CreationDate: createdAt.Format(time.RFC3339),
		Replies:      make([]*schemas.CommentDTO, 0),
	}

	utils.WriteAndLogResponse(ctx, comment, http.StatusCreated)
}

// GetComments returns the comments of an article as a thread: top-level
// comments are paginated, replies hang off their parents. Like counts are
// always included; the liked flag reflects the requester when a valid
// access token travels with the request.
func (handler *CommentHandler) GetComments(ctx *gin.Context) {
	slug := ctx.Param(utils.SlugKey)

	offset, limit := utils.ParsePaginationParams(ctx)
	requesterId := handler.optionalRequesterId(ctx)

	pool := handler.databaseManager.GetPool()

	var articleId uuid.UUID
	queryString := "SELECT article_id FROM verso_schema.articles WHERE slug = $1"
	if err := pool.QueryRow(ctx, queryString, slug).Scan(&articleId); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			utils.WriteAndLogError(ctx, schemas.ArticleNotFound, http.StatusNotFound, err)
			return
		}
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	queryString = `
        SELECT c.comment_id, c.parent_id, c.content, c.created_at, u.name, u.profile_picture_url,
            (SELECT COUNT(*) FROM verso_schema.comment_likes cl WHERE cl.comment_id = c.comment_id),
            EXISTS (SELECT 1 FROM verso_schema.comment_likes cl
                WHERE cl.comment_id = c.comment_id AND cl.user_id = $2)
        FROM verso_schema.comments c
        JOIN verso_schema.users u ON c.author_id = u.user_id
        WHERE c.article_id = $1
        ORDER BY c.created_at ASC`

	rows, err := pool.Query(ctx, queryString, articleId, requesterId)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	defer rows.Close()

	byId := make(map[string]*schemas.CommentDTO)
	parents := make(map[string]string)
	ordered := make([]*schemas.CommentDTO, 0)

	for rows.Next() {
		comment := &schemas.CommentDTO{Replies: make([]*schemas.CommentDTO, 0)}
		var parentId pgtype.UUID
		var createdAt time.Time

		if err = rows.Scan(&comment.CommentID, &parentId, &comment.Content, &createdAt,
			&comment.Author.Name, &comment.Author.ProfilePictureURL, &comment.Likes, &comment.Liked); err != nil {
			utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
			return
		}

		comment.CreationDate = createdAt.Format(time.RFC3339)
		byId[comment.CommentID] = comment
		if parentId.Valid {
			parents[comment.CommentID] = uuid.UUID(parentId.Bytes).String()
		}
		ordered = append(ordered, comment)
	}
	if err = rows.Err(); err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	// Thread the flat rows: replies attach to their parent, the rest stay
	// top level. Replies to a deleted parent surface as top level instead
	// of vanishing.
	topLevel := make([]*schemas.CommentDTO, 0)
	for _, comment := range ordered {
		if parentCommentId, ok := parents[comment.CommentID]; ok {
			if parent, found := byId[parentCommentId]; found {
				parent.Replies = append(parent.Replies, comment)
				continue
			}
		}
		topLevel = append(topLevel, comment)
	}

	utils.SendPaginatedResponse(ctx, topLevel, offset, limit, len(topLevel))
}

// DeleteComment removes a comment. Only the comment's author or an admin
// may delete it; replies go with the parent via the cascading foreign key.
func (handler *CommentHandler) DeleteComment(ctx *gin.Context) {
	claims := ctx.Value(utils.ClaimsKey.String()).(jwt.MapClaims)

	commentId, err := uuid.Parse(ctx.Param(utils.CommentIdKey))
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.BadRequest, http.StatusBadRequest, err)
		return
	}

	tx := utils.BeginTransaction(ctx, handler.databaseManager.GetPool())
	if tx == nil {
		return
	}
	defer func() { utils.RollbackTransaction(ctx, tx, err) }()

	var authorId string
	row := tx.QueryRow(ctx, "SELECT author_id FROM verso_schema.comments WHERE comment_id = $1", commentId)
	if err = row.Scan(&authorId); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			utils.WriteAndLogError(ctx, schemas.CommentNotFound, http.StatusNotFound, err)
			return
		}
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if claims["sub"].(string) != authorId && claims["role"] != schemas.RoleAdmin {
		err = errors.New("user is not the author of the comment")
		utils.WriteAndLogError(ctx, schemas.Forbidden, http.StatusForbidden, err)
		return
	}

	if _, err = tx.Exec(ctx, "DELETE FROM verso_schema.comments WHERE comment_id = $1", commentId); err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(ctx, tx); err != nil {
		return
	}

	utils.WriteAndLogResponse(ctx, nil, http.StatusNoContent)
}

// LikeComment records a like of the requester on a comment. Liking the
// same comment twice is rejected.
func (handler *CommentHandler) LikeComment(ctx *gin.Context) {
	claims := ctx.Value(utils.ClaimsKey.String()).(jwt.MapClaims)

	commentId, err := uuid.Parse(ctx.Param(utils.CommentIdKey))
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.BadRequest, http.StatusBadRequest, err)
		return
	}

	tx := utils.BeginTransaction(ctx, handler.databaseManager.GetPool())
	if tx == nil {
		return
	}
	defer func() { utils.RollbackTransaction(ctx, tx, err) }()

	userId := claims["sub"].(string)
	queryString := "INSERT INTO verso_schema.comment_likes (comment_id, user_id, created_at) VALUES($1, $2, $3)"
	if _, err = tx.Exec(ctx, queryString, commentId, userId, time.Now()); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.UniqueViolation:
				utils.WriteAndLogError(ctx, schemas.AlreadyLiked, http.StatusConflict, err)
				return
			case pgerrcode.ForeignKeyViolation:
				utils.WriteAndLogError(ctx, schemas.CommentNotFound, http.StatusNotFound, err)
				return
			}
		}
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(ctx, tx); err != nil {
		return
	}

	utils.WriteAndLogResponse(ctx, nil, http.StatusNoContent)
}

// UnlikeComment removes the requester's like from a comment.
func (handler *CommentHandler) UnlikeComment(ctx *gin.Context) {
	claims := ctx.Value(utils.ClaimsKey.String()).(jwt.MapClaims)

	commentId, err := uuid.Parse(ctx.Param(utils.CommentIdKey))
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.BadRequest, http.StatusBadRequest, err)
		return
	}

	tx := utils.BeginTransaction(ctx, handler.databaseManager.GetPool())
	if tx == nil {
		return
	}
	defer func() { utils.RollbackTransaction(ctx, tx, err) }()

	userId := claims["sub"].(string)
	cmdTag, err := tx.Exec(ctx,
		"DELETE FROM verso_schema.comment_likes WHERE comment_id = $1 AND user_id = $2", commentId, userId)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	if cmdTag.RowsAffected() == 0 {
		err = errors.New("comment not liked")
		utils.WriteAndLogError(ctx, schemas.NotLiked, http.StatusConflict, err)
		return
	}

	if err = utils.CommitTransaction(ctx, tx); err != nil {
		return
	}

	utils.WriteAndLogResponse(ctx, nil, http.StatusNoContent)
}

// optionalRequesterId extracts the user id from a bearer token when one is
// present and valid. Anonymous requests get the nil UUID, which matches no
// like.
func (handler *CommentHandler) optionalRequesterId(ctx *gin.Context) uuid.UUID {
	authHeader := ctx.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, bearerPrefix) || len(authHeader) <= len(bearerPrefix) {
		return uuid.Nil
	}

	claims, err := handler.jwtManager.ValidateAccessToken(authHeader[len(bearerPrefix):])
	if err != nil {
		return uuid.Nil
	}

	subject, _ := claims["sub"].(string)
	requesterId, err := uuid.Parse(subject)
	if err != nil {
		return uuid.Nil
	}

	return requesterId
}
