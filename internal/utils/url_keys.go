package utils

const (
	// ArticleIdKey is the key for article ID used in routing parameters.
	ArticleIdKey = "articleId"

	// SlugKey is the key for article slug used in routing parameters.
	SlugKey = "slug"

	// CategoryIdKey is the key for category ID used in routing parameters.
	CategoryIdKey = "categoryId"

	// TagIdKey is the key for tag ID used in routing parameters.
	TagIdKey = "tagId"

	// CommentIdKey is the key for comment ID used in routing parameters.
	CommentIdKey = "commentId"

	// OffsetParamKey is the key for offset used in pagination query parameters.
	OffsetParamKey = "offset"

	// LimitParamKey is the key for limit used in pagination query parameters.
	LimitParamKey = "limit"

	// CategoryParamKey is the key for category filtering in query parameters.
	CategoryParamKey = "category"

	// TagParamKey is the key for tag filtering in query parameters.
	TagParamKey = "tag"
)
