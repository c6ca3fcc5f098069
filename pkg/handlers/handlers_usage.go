package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/shift-roster-api/pkg/database"
	"github.com/arnavshah/shift-roster-api/pkg/models"
)

// GetMyUsage returns usage stats for the authenticated API key
func (h *Handler) GetMyUsage(c *gin.Context) {
	apiKeyRaw, exists := c.Get("apiKey")
	if !exists {
		c.JSON(http.StatusUnauthorized, models.Failure("API key required"))
		return
	}
	apiKey := apiKeyRaw.(*database.APIKey)

	var usage []database.APIUsage
	if err := h.DB.Where("key_id = ?", apiKey.ID).Order("date desc").Limit(30).Find(&usage).Error; err != nil {
		c.JSON(http.StatusInternalServerError, models.Failure("Could not fetch usage details"))
		return
	}

	var totalRequests, totalStaff, totalSlots, totalShortages int64
	for _, u := range usage {
		totalRequests += int64(u.RequestCount)
		totalStaff += int64(u.TotalStaff)
		totalSlots += int64(u.TotalSlots)
		totalShortages += int64(u.TotalShortages)
	}

	c.JSON(http.StatusOK, gin.H{
		"key_name":      apiKey.Name,
		"rate_limit":    apiKey.RateLimit,
		"usage_history": usage,
		"totals": gin.H{
			"requests":  totalRequests,
			"staff":     totalStaff,
			"slots":     totalSlots,
			"shortages": totalShortages,
		},
	})
}
