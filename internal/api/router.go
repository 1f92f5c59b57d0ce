package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Router struct {
	Engine *gin.Engine
}

func NewRouter(
	authHandler *AuthHandler,
	updatesHandler *UpdatesHandler,
	feedbackHandler *FeedbackHandler,
	jwtSecret string,
) *Router {
	r := gin.Default()
	r.Use(TraceMiddleware(), MetricsMiddleware())

	// Public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/register", authHandler.Register)
	r.POST("/login", authHandler.Login)

	// Protected
	auth := r.Group("/")
	auth.Use(AuthMiddleware(jwtSecret))
	{
		auth.POST("/google/connect", authHandler.ConnectGoogle)
		auth.GET("/updates", updatesHandler.GetUpdates)
		auth.POST("/updates/schedule", updatesHandler.ScheduleScan)
		auth.DELETE("/updates/schedule", updatesHandler.UnscheduleScan)
		auth.POST("/updates/scan_now", updatesHandler.ScanNow)
		auth.POST("/updates/:id/hide", feedbackHandler.HideUpdate)
		auth.POST("/feedback", feedbackHandler.PostFeedback)
	}

	return &Router{Engine: r}
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(port)
}
