// Package api exposes series resolution over HTTP.
package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter wires the handler into a gin engine with request ID, logging
// and panic recovery.
func NewRouter(h *Handler, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), Logger(logger))

	router.GET("/health", h.Health)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/series", h.GetSeries)
		v1.POST("/series/batch", h.BatchSeries)

		cat := v1.Group("/catalog")
		{
			cat.GET("/countries", h.Countries)
			cat.GET("/indicators", h.Indicators)
		}

		v1.GET("/companies/:symbol", h.Overview)
		v1.GET("/snapshot", h.Snapshot)

		v1.GET("/history", h.History)
	}
	return router
}
