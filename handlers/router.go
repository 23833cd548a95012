package handlers

import (
	"context"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/kate8382/error-logger-viewer/capture"
)

// NewRouter builds the HTTP routes for h. An empty origins list allows every origin.
func NewRouter(h *Handler, origins []string) *gin.Engine {
	r := gin.Default()

	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
	}
	if len(origins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
	}
	r.Use(cors.New(corsConfig))
	if h.reporter != nil {
		r.Use(capturePanics(h.reporter))
	}

	errs := r.Group("/errors")
	{
		errs.GET("", h.ListErrors)
		errs.POST("", h.CreateError)
		errs.GET("/:id", h.GetError)
		errs.PUT("/:id", h.UpdateError)
		errs.DELETE("/:id", h.DeleteError)
	}

	api := r.Group("/api")
	{
		api.GET("/health", h.HealthCheck)
		api.GET("/errors/ws", h.StreamChanges)
	}

	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}

	return r
}

// capturePanics records a handler panic, then lets gin's recovery answer 500.
func capturePanics(reporter *capture.Reporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer reporter.Recover(context.WithoutCancel(c.Request.Context()))
		c.Next()
	}
}
