package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	assessmentH *AssessmentHandler,
	careerH *CareerHandler,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Todo lo demas es por tenant.
	api := r.Group("", TenantMiddleware())

	sessions := api.Group("/sessions")
	sessions.POST("", assessmentH.StartSession)
	sessions.GET("/:id", assessmentH.GetSession)
	sessions.GET("/:id/questions", assessmentH.CurrentQuestions)
	sessions.POST("/:id/answers", assessmentH.SubmitAnswer)
	sessions.POST("/:id/finish", assessmentH.FinishAnswers)
	sessions.POST("/:id/cluster-ratings", assessmentH.RateClusters)
	sessions.POST("/:id/tie-breakers", assessmentH.SubmitTieBreaker)
	sessions.POST("/:id/resolve-ties", assessmentH.ResolveTies)
	sessions.POST("/:id/complete", assessmentH.Complete)
	sessions.POST("/:id/rating", assessmentH.RateAssessment)
	sessions.GET("/:id/result", assessmentH.Result)
	sessions.GET("/:id/quality", assessmentH.Quality)
	sessions.GET("/:id/careers", assessmentH.Careers)

	api.GET("/matches/:type", careerH.Matches)
	api.PUT("/matches/:type", careerH.BulkUpdateMatchScores)
	api.PUT("/matches/:type/:career_id", careerH.UpdateMatchScore)
	api.GET("/careers", careerH.Search)
	api.GET("/careers/:id", careerH.GetCareer)
	api.GET("/clusters", careerH.Clusters)
	api.GET("/clusters/:id/careers", careerH.ClusterCareers)
	api.GET("/types/:code", careerH.PersonalityType)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		}
		if tenantID, ok := GetTenantID(c); ok {
			fields = append(fields, zap.String("tenant_id", tenantID))
		}
		logger.Info("request", fields...)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
