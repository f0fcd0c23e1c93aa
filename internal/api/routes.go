package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"resumeingest/internal/api/middleware"
	"resumeingest/internal/auth"
	"resumeingest/internal/config"
	"resumeingest/internal/extract"
	"resumeingest/internal/resume"
	"resumeingest/internal/storage"
	"resumeingest/internal/structurer"
)

// RegisterRoutes 注册 API 路由。
func RegisterRoutes(
	router *gin.Engine,
	cfg *config.Config,
	db *gorm.DB,
	authService *auth.AuthService,
	redisClient *redis.Client,
	asynqClient *asynq.Client,
	storageClient *storage.Client,
	extractor *extract.Extractor,
	structurerSvc *structurer.Service,
	logger *slog.Logger,
) {
	repo := resume.NewRepository(db)

	authHandler := NewAuthHandler(db, authService, redisClient, logger)
	ingestHandler := NewIngestHandler(extractor, structurerSvc, repo, asynqClient, logger, cfg.Upload.MaxBytes, cfg.Clamd.Address)
	uploadHandler := NewUploadHandler(storageClient, logger, cfg.Clamd.Address, cfg.Upload.MaxBytes)
	resumeHandler := NewResumeHandler(repo, storageClient, asynqClient, redisClient, logger)
	wsHandler := NewWsHandler(redisClient, authService, logger)
	authMiddleware := middleware.AuthMiddleware(authService)

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authMiddleware, authHandler.Logout)
		}

		v1.POST("/pdf", authMiddleware, ingestHandler.HandlePDF)

		uploadGroup := v1.Group("/uploads")
		uploadGroup.Use(authMiddleware)
		{
			uploadGroup.POST("", uploadHandler.UploadResume)
			uploadGroup.GET("/view", uploadHandler.GetResumeFileURL)
		}

		resumeGroup := v1.Group("/resumes")
		resumeGroup.Use(authMiddleware)
		{
			resumeGroup.GET("", resumeHandler.ListResumes)
			resumeGroup.GET("/:id", resumeHandler.GetResume)
			resumeGroup.DELETE("/:id", resumeHandler.DeleteResume)
			resumeGroup.POST("/:id/reprocess", resumeHandler.Reprocess)
		}
	}
}
