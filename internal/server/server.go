// Package server exposes the placement workflow over HTTP. It is the
// thin I/O layer between browser clients and the session/geometry core.
package server

import (
	"encoding/base64"

	"github.com/gin-gonic/gin"
)

// New builds the gin engine with all routes wired.
func New(h *Handler, version string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger())
	r.Use(CORS())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"version": version,
		})
	})

	r.GET("/version", func(c *gin.Context) {
		c.JSON(200, gin.H{"version": version})
	})

	api := r.Group("/api/v1")
	{
		api.POST("/sessions", h.CreateSession)
		api.GET("/sessions/:id", h.GetSession)
		api.DELETE("/sessions/:id", h.DeleteSession)
		api.POST("/sessions/:id/background", h.UploadBackground)
		api.POST("/sessions/:id/foreground", h.UploadForeground)
		api.POST("/sessions/:id/anchor", h.SetAnchor)
		api.POST("/sessions/:id/scale", h.SetScale)
		api.POST("/sessions/:id/composite", h.Composite)
	}

	return r
}

func base64Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
