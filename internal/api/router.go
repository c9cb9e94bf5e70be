package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/gallery/internal/api/handler"
	"github.com/timmy/gallery/internal/api/middleware"
	"github.com/timmy/gallery/internal/config"
	"github.com/timmy/gallery/internal/service"
)

// Version is reported by the root endpoint.
const Version = "0.1.0"

// Services are the application services exposed over HTTP.
type Services struct {
	Photos     *service.PhotoService
	Enrichment *service.EnrichmentService
	Search     *service.SearchService
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(svc Services, cfg *config.ServerConfig) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = handler.MaxUploadBytes

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware("api"))
	r.Use(middleware.CORS(cfg.CORS))

	healthHandler := handler.NewHealthHandler(Version)
	photoHandler := handler.NewPhotoHandler(svc.Photos)
	aiHandler := handler.NewAIHandler(svc.Enrichment, svc.Search)

	r.GET("/", healthHandler.Root)
	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthHandler.Health)

		// Photos
		v1.GET("/photos", photoHandler.ListPhotos)
		v1.POST("/photos", photoHandler.CreatePhoto)
		v1.GET("/photos/:id", photoHandler.GetPhoto)

		// AI analysis and retrieval
		ai := v1.Group("/ai")
		ai.POST("/analyze/image", aiHandler.AnalyzeImage)
		ai.POST("/analyze/photo/:id", aiHandler.AnalyzePhoto)
		ai.POST("/analyze/batch", aiHandler.AnalyzeBatch)
		ai.GET("/analyze/status/:id", aiHandler.AnalysisStatus)
		ai.POST("/search/semantic", aiHandler.SemanticSearch)
		ai.GET("/stats", aiHandler.Stats)
	}

	return r
}
