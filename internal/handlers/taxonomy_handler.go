package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/verso-cms/server-verso/internal/managers"
	"github.com/verso-cms/server-verso/internal/schemas"
	"github.com/verso-cms/server-verso/internal/utils"
)

// TaxonomyHdl defines the handlers for category and tag administration.
type TaxonomyHdl interface {
	CreateCategory(c *gin.Context)
	ListCategories(c *gin.Context)
	UpdateCategory(c *gin.Context)
	DeleteCategory(c *gin.Context)
	CreateTag(c *gin.Context)
	ListTags(c *gin.Context)
	DeleteTag(c *gin.Context)
}

type TaxonomyHandler struct {
	databaseManager managers.DatabaseMgr
}

func NewTaxonomyHandler(databaseManager managers.DatabaseMgr) TaxonomyHdl {
	return &TaxonomyHandler{
		databaseManager: databaseManager,
	}
}

// CreateCategory inserts a new category with a slug derived from its name.
func (handler *TaxonomyHandler) CreateCategory(ctx *gin.Context) {
	payload := ctx.MustGet(utils.SanitizedPayloadKey.String()).(*schemas.CreateCategoryRequest)

	tx := utils.BeginTransaction(ctx, handler.databaseManager.GetPool())
	if tx == nil {
		return
	}
	var err error
	defer func() { utils.RollbackTransaction(ctx, tx, err) }()

	category := &schemas.CategoryDTO{
		CategoryID: uuid.New(),
		Name:       payload.Name,
		Slug:       utils.Slugify(payload.Name),
	}

	queryString := "INSERT INTO verso_schema.categories (category_id, name, slug) VALUES($1, $2, $3)"
	if _, err = tx.Exec(ctx, queryString, category.CategoryID, category.Name, category.Slug); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			utils.WriteAndLogError(ctx, schemas.CategoryNameTaken, http.StatusConflict, err)
			return
		}
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(ctx, tx); err != nil {
		return
	}

	utils.WriteAndLogResponse(ctx, category, http.StatusCreated)
}

// ListCategories returns all categories ordered by name.
func (handler *TaxonomyHandler) ListCategories(ctx *gin.Context) {
	rows, err := handler.databaseManager.GetPool().Query(ctx,
		"SELECT category_id, name, slug FROM verso_schema.categories ORDER BY name")
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	defer rows.Close()

	categories := make([]*schemas.CategoryDTO, 0)
	for rows.Next() {
		category := &schemas.CategoryDTO{}
		if err := rows.Scan(&category.CategoryID, &category.Name, &category.Slug); err != nil {
			utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
			return
		}
		categories = append(categories, category)
	}

	utils.WriteAndLogResponse(ctx, categories, http.StatusOK)
}

// UpdateCategory renames a category. The slug follows the new name.
func (handler *TaxonomyHandler) UpdateCategory(ctx *gin.Context) {
	payload := ctx.MustGet(utils.SanitizedPayloadKey.String()).(*schemas.UpdateCategoryRequest)

	categoryId, err := uuid.Parse(ctx.Param(utils.CategoryIdKey))
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.BadRequest, http.StatusBadRequest, err)
		return
	}

	tx := utils.BeginTransaction(ctx, handler.databaseManager.GetPool())
	if tx == nil {
		return
	}
	defer func() { utils.RollbackTransaction(ctx, tx, err) }()

	category := &schemas.CategoryDTO{
		CategoryID: categoryId,
		Name:       payload.Name,
		Slug:       utils.Slugify(payload.Name),
	}

	cmdTag, err := tx.Exec(ctx,
		"UPDATE verso_schema.categories SET name = $1, slug = $2 WHERE category_id = $3",
		category.Name, category.Slug, category.CategoryID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			utils.WriteAndLogError(ctx, schemas.CategoryNameTaken, http.StatusConflict, err)
			return
		}
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	if cmdTag.RowsAffected() == 0 {
		err = errors.New("category not found")
		utils.WriteAndLogError(ctx, schemas.CategoryNotFound, http.StatusNotFound, err)
		return
	}

	if err = utils.CommitTransaction(ctx, tx); err != nil {
		return
	}

	utils.WriteAndLogResponse(ctx, category, http.StatusOK)
}

// DeleteCategory removes a category. Articles in the category fall back to
// having no category via the foreign key's ON DELETE SET NULL.
func (handler *TaxonomyHandler) DeleteCategory(ctx *gin.Context) {
	categoryId, err := uuid.Parse(ctx.Param(utils.CategoryIdKey))
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.BadRequest, http.StatusBadRequest, err)
		return
	}

	tx := utils.BeginTransaction(ctx, handler.databaseManager.GetPool())
	if tx == nil {
		return
	}
	defer func() { utils.RollbackTransaction(ctx, tx, err) }()

	cmdTag, err := tx.Exec(ctx, "DELETE FROM verso_schema.categories WHERE category_id = $1", categoryId)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	if cmdTag.RowsAffected() == 0 {
		err = errors.New("category not found")
		utils.WriteAndLogError(ctx, schemas.CategoryNotFound, http.StatusNotFound, err)
		return
	}

	if err = utils.CommitTransaction(ctx, tx); err != nil {
		return
	}

	utils.WriteAndLogResponse(ctx, nil, http.StatusNoContent)
}

// CreateTag inserts a new tag. Tags also come into being implicitly when
// articles reference them, so a conflict reports the name as taken.
func (handler *TaxonomyHandler) CreateTag(ctx *gin.Context) {
	payload := ctx.MustGet(utils.SanitizedPayloadKey.String()).(*schemas.CreateTagRequest)

	tx := utils.BeginTransaction(ctx, handler.databaseManager.GetPool())
	if tx == nil {
		return
	}
	var err error
	defer func() { utils.RollbackTransaction(ctx, tx, err) }()

	tagDto := &schemas.TagDTO{
		TagID: uuid.New(),
		Name:  payload.Name,
	}

	if _, err = tx.Exec(ctx, "INSERT INTO verso_schema.tags (tag_id, name) VALUES($1, $2)",
		tagDto.TagID, tagDto.Name); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			utils.WriteAndLogError(ctx, schemas.TagNameTaken, http.StatusConflict, err)
			return
		}
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(ctx, tx); err != nil {
		return
	}

	utils.WriteAndLogResponse(ctx, tagDto, http.StatusCreated)
}

// ListTags returns all tags ordered by name.
func (handler *TaxonomyHandler) ListTags(ctx *gin.Context) {
	rows, err := handler.databaseManager.GetPool().Query(ctx,
		"SELECT tag_id, name FROM verso_schema.tags ORDER BY name")
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	defer rows.Close()

	tags := make([]*schemas.TagDTO, 0)
	for rows.Next() {
		tagDto := &schemas.TagDTO{}
		if err := rows.Scan(&tagDto.TagID, &tagDto.Name); err != nil {
			utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
			return
		}
		tags = append(tags, tagDto)
	}

	utils.WriteAndLogResponse(ctx, tags, http.StatusOK)
}

// DeleteTag removes a tag and its article links.
func (handler *TaxonomyHandler) DeleteTag(ctx *gin.Context) {
	tagId, err := uuid.Parse(ctx.Param(utils.TagIdKey))
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.BadRequest, http.StatusBadRequest, err)
		return
	}

	tx := utils.BeginTransaction(ctx, handler.databaseManager.GetPool())
	if tx == nil {
		return
	}
	defer func() { utils.RollbackTransaction(ctx, tx, err) }()

	if _, err = tx.Exec(ctx, "DELETE FROM verso_schema.article_tags WHERE tag_id = $1", tagId); err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	cmdTag, err := tx.Exec(ctx, "DELETE FROM verso_schema.tags WHERE tag_id = $1", tagId)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	if cmdTag.RowsAffected() == 0 {
		err = errors.New("tag not found")
		utils.WriteAndLogError(ctx, schemas.TagNotFound, http.StatusNotFound, err)
		return
	}

	if err = utils.CommitTransaction(ctx, tx); err != nil {
		return
	}

	utils.WriteAndLogResponse(ctx, nil, http.StatusNoContent)
}
