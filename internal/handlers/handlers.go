package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Daquiver1/veefyed/internal/config"
	"github.com/Daquiver1/veefyed/internal/engine"
	"github.com/Daquiver1/veefyed/internal/middleware"
	"github.com/Daquiver1/veefyed/internal/models"
	"github.com/Daquiver1/veefyed/internal/repository"
	"github.com/Daquiver1/veefyed/internal/service"
	"github.com/Daquiver1/veefyed/internal/storage"
)

type HandlerSet struct {
	log         zerolog.Logger
	cfg         *config.AppConfig
	credentials *service.CredentialService
	uploads     *service.UploadService
	analyses    *service.AnalysisService
	db          *pgxpool.Pool
	cache       *redis.Client
	store       *storage.ObjectStore
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, cache *redis.Client, store *storage.ObjectStore, cfg *config.AppConfig) HandlerSet {
	credentialRepo := repository.NewCredentialRepository(db)
	imageRepo := repository.NewImageRepository(db)
	analysisRepo := repository.NewAnalysisRepository(db)

	credentials := service.NewCredentialService(credentialRepo, log)
	uploads := service.NewUploadService(imageRepo, store, cache, cfg, log)
	analyses := service.NewAnalysisService(analysisRepo, imageRepo, engine.NewMockEngine(), log)

	return HandlerSet{
		log:         log,
		cfg:         cfg,
		credentials: credentials,
		uploads:     uploads,
		analyses:    analyses,
		db:          db,
		cache:       cache,
		store:       store,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	{
		keys := v1.Group("/keys")
		keys.POST("", h.IssueKey)

		current := keys.Group("/current")
		current.Use(middleware.Auth(h.credentials))
		current.GET("", h.CurrentKey)
		current.DELETE("", h.RevokeCurrentKey)

		images := v1.Group("/images")
		images.POST("", middleware.RequireScope(h.credentials, models.ScopeUpload), h.UploadImage)
		images.GET("/:imageId", middleware.RequireScope(h.credentials, models.ScopeUpload), h.GetImage)
		images.POST("/:imageId/analysis", middleware.RequireScope(h.credentials, models.ScopeAnalyze), h.AnalyzeImage)
		images.GET("/:imageId/analysis", middleware.RequireScope(h.credentials, models.ScopeAnalyze), h.GetLatestAnalysis)
	}
}
