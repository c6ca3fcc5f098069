package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Version is reported by the banner route
const Version = "3.0.0"

// NewRouter registers every route on a new gin engine
func NewRouter(h *Handler, banner string) *gin.Engine {
	r := gin.New()
	r.Use(h.RequestLogger(), gin.Recovery())

	// Admin interface - serve static files from embedded FS
	r.StaticFS("/static", h.GetStaticFS())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": banner,
			"version": Version,
		})
	})

	if h.DB != nil {
		r.GET("/admin", h.AdminInterface)
		r.POST("/admin/login", h.Login)

		admin := r.Group("/admin")
		admin.Use(h.AuthMiddleware())
		{
			admin.POST("/keys", h.GenerateKey)
			admin.GET("/keys", h.ListKeys)
			admin.PUT("/keys/:id", h.UpdateKeyLimit)
			admin.DELETE("/keys/:id", h.RevokeKey)
			admin.GET("/usage/:id", h.GetUsage)
			admin.GET("/snapshots", h.ListSnapshots)
		}
	}

	api := r.Group("/api")
	api.Use(h.APIKeyMiddleware())
	{
		api.GET("/initial-data", h.GetInitialData)
		api.PUT("/initial-data", h.PutInitialData)
		api.POST("/generate-shift", h.GenerateShift)
		api.POST("/generate-shift/csv", h.GenerateShiftCSV)
		api.POST("/generate-shift/xlsx", h.GenerateShiftXLSX)
		api.POST("/validate", h.ValidateInput)
		api.GET("/usage", h.GetMyUsage)
	}

	return r
}
