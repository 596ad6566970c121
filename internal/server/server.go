package server

import (
	"log"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/healthorb/orb-server/internal/config"
	"github.com/healthorb/orb-server/internal/handler"
	"github.com/healthorb/orb-server/internal/middleware"
	"github.com/healthorb/orb-server/internal/model"
	"github.com/healthorb/orb-server/internal/repository"
	"github.com/healthorb/orb-server/internal/service"
	"github.com/healthorb/orb-server/pkg/storage"
)

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
}

func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Server {
	fileStorage, err := storage.NewCloudinaryStorage()
	if err != nil {
		log.Fatalf("failed to initialize cloudinary storage: %v", err)
	}

	meiliHost := cfg.MeiliSearchHost
	if !strings.HasPrefix(meiliHost, "http") {
		meiliHost = "http://" + meiliHost + ":7700"
	}
	meiliClient := meilisearch.New(meiliHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
	searchSvc := service.NewSearchService(meiliClient)

	resourceRepo := repository.NewResourceRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	tagRepo := repository.NewTagRepository(db)
	trackerRepo := repository.NewTrackerRepository(db)
	ratingRepo := repository.NewRatingRepository(db)
	userRepo := repository.NewUserRepository(db)

	tagSvc := service.NewTagService(categoryRepo, tagRepo)
	trackerSvc := service.NewTrackerService(trackerRepo)
	submissionValidator := service.NewSubmissionValidator(tagSvc, service.UploadPolicy{
		AllowedTypes: cfg.UploadAllowedTypes,
		MaxBytes:     cfg.UploadMaxBytes,
	})
	resourceSvc := service.NewResourceService(resourceRepo, ratingRepo, submissionValidator, tagSvc, trackerSvc, fileStorage)
	moderationSvc := service.NewModerationService(resourceRepo, searchSvc)
	ratingSvc := service.NewRatingService(ratingRepo, resourceRepo)
	userSvc := service.NewUserService(db, userRepo, tagRepo, cfg.JWTSecret, cfg.JWTTTL)

	resourceHandler := handler.NewResourceHandler(resourceSvc, moderationSvc, trackerSvc, redisClient, cfg.RateLimitSubmit)
	taxonomyHandler := handler.NewTaxonomyHandler(tagSvc)
	searchHandler := handler.NewSearchHandler(searchSvc, trackerSvc)
	ratingHandler := handler.NewRatingHandler(ratingSvc)
	authHandler := handler.NewAuthHandler(userSvc)
	profileHandler := handler.NewProfileHandler(userSvc)
	statsHandler := handler.NewStatsHandler(userSvc, trackerSvc)

	router := gin.New()
	setupCORS(router, cfg.AllowedOrigins)
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	authMiddleware := middleware.NewAuthMiddleware(userRepo, cfg.JWTSecret)

	api := router.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	// Public reads. Optional auth so identified hits and API-key
	// clients are attributed in the trackers.
	public := api.Group("")
	public.Use(authMiddleware.OptionalAuth())
	{
		public.GET("/resources", resourceHandler.List)
		public.GET("/resources/:slug", resourceHandler.Get)
		public.GET("/resources/:slug/hits", resourceHandler.Hits)
		public.GET("/resources/:slug/tags", resourceHandler.TagsInCategory)
		public.GET("/search", searchHandler.Search)
		public.GET("/categories", taxonomyHandler.ListCategories)
		public.GET("/categories/:slug/tags", taxonomyHandler.TagsByCategory)
		public.GET("/tags/:slug", taxonomyHandler.GetTag)
		public.GET("/stats/users", statsHandler.Summary)
	}

	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		protected.POST("/resources", resourceHandler.Submit)
		protected.POST("/resources/:slug/files", resourceHandler.AttachFile)
		protected.DELETE("/resources/:slug/files/:id", resourceHandler.RemoveFile)
		protected.POST("/resources/:slug/urls", resourceHandler.AttachURL)
		protected.POST("/resources/:slug/tags", resourceHandler.AddTags)
		protected.POST("/resources/:slug/relationships", resourceHandler.Relate)
		protected.POST("/resources/:slug/rating", ratingHandler.Rate)

		protected.GET("/profile/me", profileHandler.Get)
		protected.PUT("/profile", profileHandler.Update)

		review := protected.Group("")
		review.Use(authMiddleware.RequireRole(model.RoleAdmin, model.RoleReviewer))
		{
			review.GET("/resources/pending", resourceHandler.ListPending)
			review.PUT("/resources/:slug/status", resourceHandler.SetStatus)
		}

		admin := protected.Group("/admin")
		admin.Use(authMiddleware.RequireRole(model.RoleAdmin))
		{
			admin.POST("/categories", taxonomyHandler.CreateCategory)
			admin.POST("/tags", taxonomyHandler.CreateTag)
			admin.GET("/stats/locations", statsHandler.Locations)
		}
	}

	return &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
	}
}

func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	origins := []string{"http://localhost:3000"}
	if allowedOrigins != "" {
		origins = strings.Split(allowedOrigins, ",")
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-API-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
