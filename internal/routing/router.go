// Package routing wires the HTTP routes to their handlers and middleware.
package routing

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/verso-cms/server-verso/internal/config"
	"github.com/verso-cms/server-verso/internal/handlers"
	"github.com/verso-cms/server-verso/internal/managers"
	"github.com/verso-cms/server-verso/internal/middleware"
	"github.com/verso-cms/server-verso/internal/schemas"
	"github.com/verso-cms/server-verso/internal/utils"
)

// InitRouter builds the gin engine with the common middleware stack and all
// API routes.
func InitRouter(cfg *config.Config, databaseMgr managers.DatabaseMgr, mailMgr managers.MailMgr, jwtMgr managers.JWTMgr) *gin.Engine {
	router := gin.New()
	setupCommonMiddleware(router, cfg)
	setupRoutes(router, cfg, databaseMgr, mailMgr, jwtMgr)

	return router
}

func setupCommonMiddleware(router *gin.Engine, cfg *config.Config) {
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.InjectTrace())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "PATCH", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(func(c *gin.Context) {
		c.Header("Content-Type", "application/json")
	})
	router.Use(middleware.SanitizePath())
	router.Use(middleware.LogRequest())
}

func setupRoutes(router *gin.Engine, cfg *config.Config, databaseMgr managers.DatabaseMgr, mailMgr managers.MailMgr, jwtMgr managers.JWTMgr) {
	// Set up version route
	router.GET("/", func(c *gin.Context) {
		apiVersion := os.Getenv("API_VERSION")
		if apiVersion == "" {
			apiVersion = "main:latest"
		}
		metadata := &schemas.MetadataDTO{
			ApiVersion: apiVersion,
			ApiName:    "Verso",
		}
		utils.WriteAndLogResponse(c, metadata, http.StatusOK)
	})

	// Set up health route
	router.GET("/health", func(c *gin.Context) {
		// Ping the database
		conn, err := databaseMgr.GetPool().Acquire(c)
		if err != nil {
			c.String(http.StatusInternalServerError, "Database not responding")
			return
		}
		defer conn.Release()
		c.Status(http.StatusOK)
	})

	// Set up API routes
	apiRouter := router.Group("/api")
	{
		// Set up auth routes
		authRouter := apiRouter.Group("/auth")
		authHdl := handlers.NewAuthHandler(cfg, databaseMgr, jwtMgr, mailMgr)
		authRoutes(authRouter, authHdl)

		// Set up user routes
		userRouter := apiRouter.Group("/users")
		userHdl := handlers.NewUserHandler(databaseMgr)
		userRoutes(userRouter, userHdl, jwtMgr)

		// Set up article routes, including the comment routes scoped to an
		// article
		articleRouter := apiRouter.Group("/articles")
		articleHdl := handlers.NewArticleHandler(databaseMgr, jwtMgr)
		commentHdl := handlers.NewCommentHandler(databaseMgr, jwtMgr)
		articleRoutes(articleRouter, articleHdl, commentHdl, jwtMgr)

		// Set up comment routes addressed by comment id
		commentRouter := apiRouter.Group("/comments")
		commentRoutes(commentRouter, commentHdl, jwtMgr)

		// Set up category and tag routes
		taxonomyHdl := handlers.NewTaxonomyHandler(databaseMgr)
		categoryRouter := apiRouter.Group("/categories")
		tagRouter := apiRouter.Group("/tags")
		taxonomyRoutes(categoryRouter, tagRouter, taxonomyHdl, jwtMgr)
	}
}

func authRoutes(authRouter *gin.RouterGroup, authHdl handlers.AuthHdl) {
	authRouter.POST("/signup", middleware.ValidateAndSanitizeStruct(&schemas.SignupRequest{}), authHdl.Signup)
	authRouter.POST("/verify", middleware.ValidateAndSanitizeStruct(&schemas.VerifyEmailRequest{}), authHdl.VerifyEmail)
	authRouter.POST("/resend-verification", middleware.ValidateAndSanitizeStruct(&schemas.ResendVerificationRequest{}), authHdl.ResendVerification)
	authRouter.POST("/signin", middleware.ValidateAndSanitizeStruct(&schemas.SigninRequest{}), authHdl.Signin)
	authRouter.POST("/forgot-password", middleware.ValidateAndSanitizeStruct(&schemas.ForgotPasswordRequest{}), authHdl.ForgotPassword)
	authRouter.POST("/reset-password", middleware.ValidateAndSanitizeStruct(&schemas.ResetPasswordRequest{}), authHdl.ResetPassword)
	// The refresh token usually travels in the cookie, so the body is bound
	// inside the handler instead of a validation middleware.
	authRouter.POST("/refresh-token", authHdl.RefreshToken)
	authRouter.DELETE("/signout", authHdl.Signout)
}

func userRoutes(userRouter *gin.RouterGroup, userHdl handlers.UserHdl, jwtMgr managers.JWTMgr) {
	userRouter.Use(jwtMgr.JWTMiddleware())
	userRouter.GET("/me", userHdl.GetMe)
	userRouter.PUT("/me", middleware.ValidateAndSanitizeStruct(&schemas.UpdateProfileRequest{}), userHdl.UpdateMe)
}

func articleRoutes(articleRouter *gin.RouterGroup, articleHdl handlers.ArticleHdl,
	commentHdl handlers.CommentHdl, jwtMgr managers.JWTMgr) {
	// Reads are public and addressed by slug; drafts stay hidden unless the
	// optional bearer token identifies the author or an admin.
	articleRouter.GET("", articleHdl.ListArticles)
	articleRouter.GET("/:slug", articleHdl.GetArticleBySlug)
	articleRouter.GET("/:slug/comments", commentHdl.GetComments)

	// Writes require a verified account; creating articles additionally
	// requires the author or admin role.
	authed := articleRouter.Group("")
	authed.Use(jwtMgr.JWTMiddleware(), middleware.RequireVerified())
	authed.POST("", middleware.RequireRole(schemas.RoleAuthor, schemas.RoleAdmin),
		middleware.ValidateAndSanitizeStruct(&schemas.CreateArticleRequest{}), articleHdl.CreateArticle)
	authed.PUT("/:articleId", middleware.ValidateAndSanitizeStruct(&schemas.UpdateArticleRequest{}), articleHdl.UpdateArticle)
	authed.DELETE("/:articleId", articleHdl.DeleteArticle)
	authed.POST("/:articleId/comments", middleware.ValidateAndSanitizeStruct(&schemas.CreateCommentRequest{}), commentHdl.CreateComment)
}

func commentRoutes(commentRouter *gin.RouterGroup, commentHdl handlers.CommentHdl, jwtMgr managers.JWTMgr) {
	commentRouter.Use(jwtMgr.JWTMiddleware(), middleware.RequireVerified())
	commentRouter.DELETE("/:commentId", commentHdl.DeleteComment)
	commentRouter.POST("/:commentId/likes", commentHdl.LikeComment)
	commentRouter.DELETE("/:commentId/likes", commentHdl.UnlikeComment)
}

func taxonomyRoutes(categoryRouter, tagRouter *gin.RouterGroup, taxonomyHdl handlers.TaxonomyHdl, jwtMgr managers.JWTMgr) {
	categoryRouter.GET("", taxonomyHdl.ListCategories)
	tagRouter.GET("", taxonomyHdl.ListTags)

	// Taxonomy administration is admin only.
	adminCategories := categoryRouter.Group("")
	adminCategories.Use(jwtMgr.JWTMiddleware(), middleware.RequireRole(schemas.RoleAdmin))
	adminCategories.POST("", middleware.ValidateAndSanitizeStruct(&schemas.CreateCategoryRequest{}), taxonomyHdl.CreateCategory)
	adminCategories.PUT("/:categoryId", middleware.ValidateAndSanitizeStruct(&schemas.UpdateCategoryRequest{}), taxonomyHdl.UpdateCategory)
	adminCategories.DELETE("/:categoryId", taxonomyHdl.DeleteCategory)

	adminTags := tagRouter.Group("")
	adminTags.Use(jwtMgr.JWTMiddleware(), middleware.RequireRole(schemas.RoleAdmin))
	adminTags.POST("", middleware.ValidateAndSanitizeStruct(&schemas.CreateTagRequest{}), taxonomyHdl.CreateTag)
	adminTags.DELETE("/:tagId", taxonomyHdl.DeleteTag)
}
