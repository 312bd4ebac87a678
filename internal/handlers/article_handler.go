package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/verso-cms/server-verso/internal/managers"
	"github.com/verso-cms/server-verso/internal/schemas"
	"github.com/verso-cms/server-verso/internal/utils"
)

// ArticleHdl defines the handlers for the article endpoints.
type ArticleHdl interface {
	CreateArticle(c *gin.Context)
	ListArticles(c *gin.Context)
	GetArticleBySlug(c *gin.Context)
	UpdateArticle(c *gin.Context)
	DeleteArticle(c *gin.Context)
}

type ArticleHandler struct {
	databaseManager managers.DatabaseMgr
	jwtManager      managers.JWTMgr
}

func NewArticleHandler(databaseManager managers.DatabaseMgr, jwtManager managers.JWTMgr) ArticleHdl {
	return &ArticleHandler{
		databaseManager: databaseManager,
		jwtManager:      jwtManager,
	}
}

const articleSelect = "SELECT a.article_id, a.title, a.slug, a.content, a.published, a.created_at, " +
	"u.name, u.profile_picture_url, c.category_id, c.name, c.slug " +
	"FROM verso_schema.articles a " +
	"INNER JOIN verso_schema.users u ON a.author_id = u.user_id " +
	"LEFT JOIN verso_schema.categories c ON a.category_id = c.category_id "

// CreateArticle inserts a new article with a slug derived from the title,
// links its tags and responds with the full article projection.
func (handler *ArticleHandler) CreateArticle(ctx *gin.Context) {
	payload := ctx.MustGet(utils.SanitizedPayloadKey.String()).(*schemas.CreateArticleRequest)
	claims := ctx.Value(utils.ClaimsKey.String()).(jwt.MapClaims)

	tx := utils.BeginTransaction(ctx, handler.databaseManager.GetPool())
	if tx == nil {
		return
	}
	var err error
	defer func() { utils.RollbackTransaction(ctx, tx, err) }()

	authorId := claims["sub"].(string)
	articleId := uuid.New()
	createdAt := time.Now()

	slug, err := ensureUniqueSlug(ctx, tx, payload.Title)
	if err != nil {
		return
	}

	categoryId, category, err := resolveCategory(ctx, tx, payload.CategoryID)
	if err != nil {
		return
	}

	var publishedAt *time.Time
	if payload.Published {
		publishedAt = &createdAt
	}

	queryString := "INSERT INTO verso_schema.articles (article_id, author_id, category_id, title, slug, content, " +
		"published, published_at, created_at, updated_at) VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)"
	_, err = tx.Exec(ctx, queryString, articleId, authorId, categoryId, payload.Title, slug, payload.Content,
		payload.Published, publishedAt, createdAt, createdAt)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = linkTags(ctx, tx, articleId, payload.Tags); err != nil {
		return
	}

	// Get the author
	queryString = "SELECT name, profile_picture_url FROM verso_schema.users WHERE user_id = $1"
	row := tx.QueryRow(ctx, queryString, authorId)

	author := &schemas.AuthorDTO{}
	if err = row.Scan(&author.Name, &author.ProfilePictureURL); err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(ctx, tx); err != nil {
		return
	}

	article := &schemas.ArticleDTO{
		ArticleID:    articleId.String(),
		Title:        payload.Title,
		Slug:         slug,
		Content:      payload.Content,
		Author:       *author,
		Category:     category,
		Tags:         normalizeTags(payload.Tags),
		Published:    payload.Published,
		CreationDate: createdAt.Format(time.RFC3339),
	}

	utils.WriteAndLogResponse(ctx, article, http.StatusCreated)
}

// ListArticles returns the published articles, newest first, optionally
// filtered by category slug or tag name.
func (handler *ArticleHandler) ListArticles(ctx *gin.Context) {
	tx := utils.BeginTransaction(ctx, handler.databaseManager.GetPool())
	if tx == nil {
		return
	}
	var err error
	defer func() { utils.RollbackTransaction(ctx, tx, err) }()

	offset, limit := utils.ParsePaginationParams(ctx)
	categorySlug := ctx.Query(utils.CategoryParamKey)
	tagName := ctx.Query(utils.TagParamKey)

	// Build count and data queries based on the requested filters.
	whereClause := "WHERE a.published = TRUE "
	queryArgs := make([]interface{}, 0)
	argIndex := 1

	if categorySlug != "" {
		whereClause += fmt.Sprintf("AND c.slug = $%d ", argIndex)
		queryArgs = append(queryArgs, categorySlug)
		argIndex++
	}

	if tagName != "" {
		whereClause += fmt.Sprintf("AND EXISTS (SELECT 1 FROM verso_schema.article_tags at "+
			"INNER JOIN verso_schema.tags t ON at.tag_id = t.tag_id "+
			"WHERE at.article_id = a.article_id AND t.name = $%d) ", argIndex)
		queryArgs = append(queryArgs, tagName)
		argIndex++
	}

	countQuery := "SELECT COUNT(*) FROM verso_schema.articles a " +
		"LEFT JOIN verso_schema.categories c ON a.category_id = c.category_id " + whereClause

	var count int
	if err = tx.QueryRow(ctx, countQuery, queryArgs...).Scan(&count); err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	dataQuery := articleSelect + whereClause +
		fmt.Sprintf("ORDER BY a.created_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	queryArgs = append(queryArgs, limit, offset)

	rows, err := tx.Query(ctx, dataQuery, queryArgs...)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	articles := make([]*schemas.ArticleDTO, 0)
	for rows.Next() {
		article, scanErr := scanArticleRow(rows)
		if scanErr != nil {
			rows.Close()
			err = scanErr
			utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
			return
		}
		// The list view carries no content, only the metadata.
		article.Content = ""
		articles = append(articles, article)
	}
	rows.Close()

	for _, article := range articles {
		if err = attachTags(ctx, tx, article); err != nil {
			utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
			return
		}
	}

	if err = utils.CommitTransaction(ctx, tx); err != nil {
		return
	}

	paginatedResponse := &schemas.PaginatedResponse{
		Records: articles,
		Pagination: schemas.Pagination{
			Offset:  offset,
			Limit:   limit,
			Records: count,
		},
	}

	utils.WriteAndLogResponse(ctx, paginatedResponse, http.StatusOK)
}

// GetArticleBySlug returns a single article including its content. Drafts
// are only visible to their author and to admins.
func (handler *ArticleHandler) GetArticleBySlug(ctx *gin.Context) {
	slug := ctx.Param(utils.SlugKey)

	tx := utils.BeginTransaction(ctx, handler.databaseManager.GetPool())
	if tx == nil {
		return
	}
	var err error
	defer func() { utils.RollbackTransaction(ctx, tx, err) }()

	row := tx.QueryRow(ctx, articleSelect+"WHERE a.slug = $1", slug)
	article, err := scanArticleRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			utils.WriteAndLogError(ctx, schemas.ArticleNotFound, http.StatusNotFound, err)
			return
		}
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if !article.Published && !handler.mayViewDraft(ctx, tx, article.ArticleID) {
		// A draft looks like a missing article to everyone else.
		err = errors.New("draft not visible")
		utils.WriteAndLogError(ctx, schemas.ArticleNotFound, http.StatusNotFound, err)
		return
	}

	if err = attachTags(ctx, tx, article); err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(ctx, tx); err != nil {
		return
	}

	utils.WriteAndLogResponse(ctx, article, http.StatusOK)
}

// UpdateArticle replaces the mutable fields of an article. Only the author
// or an admin may update it; the slug stays stable so published URLs keep
// working.
func (handler *ArticleHandler) UpdateArticle(ctx *gin.Context) {
	payload := ctx.MustGet(utils.SanitizedPayloadKey.String()).(*schemas.UpdateArticleRequest)
	claims := ctx.Value(utils.ClaimsKey.String()).(jwt.MapClaims)

	parsedArticleId, err := uuid.Parse(ctx.Param(utils.ArticleIdKey))
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.BadRequest, http.StatusBadRequest, err)
		return
	}
	articleId := parsedArticleId.String()

	tx := utils.BeginTransaction(ctx, handler.databaseManager.GetPool())
	if tx == nil {
		return
	}
	defer func() { utils.RollbackTransaction(ctx, tx, err) }()

	var authorId, slug string
	var published bool
	var publishedAt pgtype.Timestamptz
	var createdAt time.Time
	row := tx.QueryRow(ctx,
		"SELECT author_id, slug, published, published_at, created_at FROM verso_schema.articles WHERE article_id = $1",
		articleId)
	if err = row.Scan(&authorId, &slug, &published, &publishedAt, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			utils.WriteAndLogError(ctx, schemas.ArticleNotFound, http.StatusNotFound, err)
			return
		}
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if claims["sub"].(string) != authorId && claims["role"] != schemas.RoleAdmin {
		err = errors.New("user is not the author of the article")
		utils.WriteAndLogError(ctx, schemas.Forbidden, http.StatusForbidden, err)
		return
	}

	categoryId, category, err := resolveCategory(ctx, tx, payload.CategoryID)
	if err != nil {
		return
	}

	updatedAt := time.Now()
	newPublishedAt := publishedAt
	if payload.Published && !publishedAt.Valid {
		newPublishedAt = pgtype.Timestamptz{Time: updatedAt, Valid: true}
	}

	queryString := "UPDATE verso_schema.articles SET title = $1, content = $2, category_id = $3, " +
		"published = $4, published_at = $5, updated_at = $6 WHERE article_id = $7"
	if _, err = tx.Exec(ctx, queryString, payload.Title, payload.Content, categoryId,
		payload.Published, newPublishedAt, updatedAt, articleId); err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	// Relink the tags from scratch.
	if _, err = tx.Exec(ctx, "DELETE FROM verso_schema.article_tags WHERE article_id = $1", parsedArticleId); err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	if err = linkTags(ctx, tx, parsedArticleId, payload.Tags); err != nil {
		return
	}
	if err = deleteOrphanedTags(ctx, tx); err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	// Get the author
	author := &schemas.AuthorDTO{}
	row = tx.QueryRow(ctx, "SELECT name, profile_picture_url FROM verso_schema.users WHERE user_id = $1", authorId)
	if err = row.Scan(&author.Name, &author.ProfilePictureURL); err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(ctx, tx); err != nil {
		return
	}

	article := &schemas.ArticleDTO{
		ArticleID:    articleId,
		Title:        payload.Title,
		Slug:         slug,
		Content:      payload.Content,
		Author:       *author,
		Category:     category,
		Tags:         normalizeTags(payload.Tags),
		Published:    payload.Published,
		CreationDate: createdAt.Format(time.RFC3339),
	}

	utils.WriteAndLogResponse(ctx, article, http.StatusOK)
}

// DeleteArticle removes an article together with its comments and tag
// links. Only the author or an admin may delete it.
func (handler *ArticleHandler) DeleteArticle(ctx *gin.Context) {
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

	var authorId string
	row := tx.QueryRow(ctx, "SELECT author_id FROM verso_schema.articles WHERE article_id = $1", articleId)
	if err = row.Scan(&authorId); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			utils.WriteAndLogError(ctx, schemas.ArticleNotFound, http.StatusNotFound, err)
			return
		}
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if claims["sub"].(string) != authorId && claims["role"] != schemas.RoleAdmin {
		err = errors.New("user is not the author of the article")
		utils.WriteAndLogError(ctx, schemas.Forbidden, http.StatusForbidden, err)
		return
	}

	// Comments, likes and tag links go with the article via cascading
	// foreign keys.
	if _, err = tx.Exec(ctx, "DELETE FROM verso_schema.articles WHERE article_id = $1", articleId); err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = deleteOrphanedTags(ctx, tx); err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(ctx, tx); err != nil {
		return
	}

	utils.WriteAndLogResponse(ctx, nil, http.StatusNoContent)
}

// mayViewDraft reports whether the requester is the article's author or an
// admin. The route is public, so the bearer token is optional and gets
// validated here instead of in a middleware.
func (handler *ArticleHandler) mayViewDraft(ctx *gin.Context, tx pgx.Tx, articleId string) bool {
	authHeader := ctx.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, bearerPrefix) || len(authHeader) <= len(bearerPrefix) {
		return false
	}

	claims, err := handler.jwtManager.ValidateAccessToken(authHeader[len(bearerPrefix):])
	if err != nil {
		return false
	}
	if claims["role"] == schemas.RoleAdmin {
		return true
	}

	var authorId string
	row := tx.QueryRow(ctx, "SELECT author_id FROM verso_schema.articles WHERE article_id = $1", articleId)
	if err := row.Scan(&authorId); err != nil {
		return false
	}

	return claims["sub"].(string) == authorId
}

// scanArticleRow scans one joined article row into a DTO. The category
// columns come from a left join and may be null.
func scanArticleRow(row pgx.Row) (*schemas.ArticleDTO, error) {
	article := &schemas.ArticleDTO{}
	var createdAt time.Time
	var categoryId pgtype.UUID
	var categoryName, categorySlug pgtype.Text

	err := row.Scan(&article.ArticleID, &article.Title, &article.Slug, &article.Content, &article.Published,
		&createdAt, &article.Author.Name, &article.Author.ProfilePictureURL,
		&categoryId, &categoryName, &categorySlug)
	if err != nil {
		return nil, err
	}

	if categoryId.Valid {
		article.Category = &schemas.CategoryDTO{
			CategoryID: uuid.UUID(categoryId.Bytes),
			Name:       categoryName.String,
			Slug:       categorySlug.String,
		}
	}

	article.CreationDate = createdAt.Format(time.RFC3339)
	return article, nil
}

// attachTags loads the tag names of an article into its DTO.
func attachTags(ctx *gin.Context, tx pgx.Tx, article *schemas.ArticleDTO) error {
	rows, err := tx.Query(ctx,
		"SELECT t.name FROM verso_schema.tags t "+
			"INNER JOIN verso_schema.article_tags at ON t.tag_id = at.tag_id "+
			"WHERE at.article_id = $1 ORDER BY t.name",
		article.ArticleID)
	if err != nil {
		return err
	}
	defer rows.Close()

	article.Tags = make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		article.Tags = append(article.Tags, name)
	}

	return rows.Err()
}

// linkTags upserts the given tag names and links them to the article.
func linkTags(ctx *gin.Context, tx pgx.Tx, articleId uuid.UUID, tags []string) error {
	for _, tag := range normalizeTags(tags) {
		tagId := uuid.New()

		queryString := `INSERT INTO verso_schema.tags (tag_id, name) VALUES($1, $2)
						ON CONFLICT (name) DO UPDATE SET name=verso_schema.tags.name
						RETURNING tag_id`
		if err := tx.QueryRow(ctx, queryString, tagId, tag).Scan(&tagId); err != nil {
			utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
			return err
		}

		queryString = "INSERT INTO verso_schema.article_tags (article_id, tag_id) VALUES($1, $2) ON CONFLICT DO NOTHING"
		if _, err := tx.Exec(ctx, queryString, articleId, tagId); err != nil {
			utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
			return err
		}
	}

	return nil
}

// deleteOrphanedTags removes tags no article references anymore.
func deleteOrphanedTags(ctx *gin.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx,
		"DELETE FROM verso_schema.tags WHERE NOT EXISTS "+
			"(SELECT 1 FROM verso_schema.article_tags WHERE article_tags.tag_id = tags.tag_id)")
	return err
}

// normalizeTags deduplicates the tag list while keeping its order.
func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	normalized := make([]string, 0, len(tags))
	for _, tag := range tags {
		if _, ok := seen[tag]; ok || tag == "" {
			continue
		}
		seen[tag] = struct{}{}
		normalized = append(normalized, tag)
	}
	return normalized
}

// ensureUniqueSlug derives a slug from the title and appends a short random
// suffix when the plain slug is already taken.
func ensureUniqueSlug(ctx *gin.Context, tx pgx.Tx, title string) (string, error) {
	slug := utils.Slugify(title)
	if slug == "" {
		slug = uuid.New().String()[:8]
	}

	var taken bool
	queryString := "SELECT EXISTS (SELECT 1 FROM verso_schema.articles WHERE slug = $1)"
	if err := tx.QueryRow(ctx, queryString, slug).Scan(&taken); err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return "", err
	}

	if taken {
		slug = slug + "-" + uuid.New().String()[:8]
	}

	return slug, nil
}

// resolveCategory validates an optional category id and returns its DTO.
func resolveCategory(ctx *gin.Context, tx pgx.Tx, categoryId string) (*uuid.UUID, *schemas.CategoryDTO, error) {
	if categoryId == "" {
		return nil, nil, nil
	}

	parsed, err := uuid.Parse(categoryId)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.BadRequest, http.StatusBadRequest, err)
		return nil, nil, err
	}

	category := &schemas.CategoryDTO{CategoryID: parsed}
	row := tx.QueryRow(ctx, "SELECT name, slug FROM verso_schema.categories WHERE category_id = $1", parsed)
	if err := row.Scan(&category.Name, &category.Slug); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			utils.WriteAndLogError(ctx, schemas.CategoryNotFound, http.StatusNotFound, err)
			return nil, nil, err
		}
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return nil, nil, err
	}

	return &parsed, category, nil
}
