package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/textbook-backend/internal/http/handlers"
	httpMW "github.com/yungbote/textbook-backend/internal/http/middleware"
	"github.com/yungbote/textbook-backend/internal/observability"
	"github.com/yungbote/textbook-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string
	Metrics     *observability.Metrics

	TextbookHandler *httpH.TextbookHandler
	ActivityHandler *httpH.ActivityHandler
	TrackingHandler *httpH.TrackingHandler
	JobHandler      *httpH.JobHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		// Textbooks
		if cfg.TextbookHandler != nil {
			api.POST("/textbooks", cfg.TextbookHandler.RegisterTextbook)
			api.GET("/textbooks/:id", cfg.TextbookHandler.GetTextbook)
			api.DELETE("/textbooks/:id", cfg.TextbookHandler.DeleteTextbook)
			api.GET("/textbooks/:id/pages/:page", cfg.TextbookHandler.GetPage)
			api.GET("/textbooks/:id/pages/:page/insights", cfg.TextbookHandler.GetInsights)
			api.GET("/textbooks/:id/search", cfg.TextbookHandler.Search)
			api.GET("/classes/:classId/textbooks", cfg.TextbookHandler.ListClassTextbooks)
			api.POST("/classes/:classId/textbooks/upload", cfg.TextbookHandler.UploadTextbook)
		}

		// Activities
		if cfg.ActivityHandler != nil {
			api.POST("/textbooks/:id/activities/generate", cfg.ActivityHandler.Generate)
			api.GET("/textbooks/:id/activities", cfg.ActivityHandler.ListTextbookActivities)
			api.POST("/activities", cfg.ActivityHandler.CreateActivity)
			api.GET("/activities/:id", cfg.ActivityHandler.GetActivity)
			api.PUT("/activities/:id/questions", cfg.ActivityHandler.UpdateQuestions)
			api.POST("/activities/:id/responses", cfg.ActivityHandler.Submit)
			api.GET("/activities/:id/responses/:studentId", cfg.ActivityHandler.GetResponse)
		}

		// Reading tracking
		if cfg.TrackingHandler != nil {
			api.POST("/textbooks/:id/views", cfg.TrackingHandler.RecordView)
			api.GET("/textbooks/:id/views/:studentId", cfg.TrackingHandler.History)
			api.GET("/textbooks/:id/readers", cfg.TrackingHandler.CurrentReaders)
		}

		// Job
		if cfg.JobHandler != nil {
			api.GET("/jobs/:id", cfg.JobHandler.GetJob)
			api.GET("/textbooks/:id/job", cfg.JobHandler.GetTextbookJob)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"message": "route not found", "code": "not_found"}})
	})

	return r
}
