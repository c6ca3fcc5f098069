package handlers

import (
	"io/fs"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arnavshah/shift-roster-api/pkg/auth"
	"github.com/arnavshah/shift-roster-api/pkg/database"
	"github.com/arnavshah/shift-roster-api/pkg/models"
)

func keyID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.Failure("invalid key id"))
		return 0, false
	}
	return uint(id), true
}

// Login handles admin login
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.Failure(err.Error()))
		return
	}

	var user database.MasterUser
	if err := h.DB.Where("username = ?", req.Username).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, models.Failure("invalid credentials"))
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, models.Failure("invalid credentials"))
		return
	}

	token, err := h.Auth.CreateToken(user.Username)
	if err != nil {
		h.logger().Error("failed to create token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.Failure("could not create token"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

// GenerateKey issues a new HMAC API key for a ward or team
func (h *Handler) GenerateKey(c *gin.Context) {
	var req struct {
		Name      string `json:"name" binding:"required"`
		RateLimit int    `json:"rate_limit" binding:"min=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.Failure(err.Error()))
		return
	}
	if req.RateLimit == 0 {
		req.RateLimit = DefaultRateLimit
	}

	key := h.Auth.GenerateHMACKey(req.Name)
	apiKey := database.APIKey{
		Key:        key,
		Name:       req.Name,
		KeyPreview: auth.KeyPreview(key),
		RateLimit:  req.RateLimit,
	}

	if err := h.DB.Create(&apiKey).Error; err != nil {
		h.logger().Error("failed to create api key", zap.String("name", req.Name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.Failure("could not create key record"))
		return
	}

	h.logger().Info("api key issued", zap.String("name", req.Name), zap.String("by", c.GetString("username")))
	c.JSON(http.StatusOK, gin.H{
		"id":   apiKey.ID,
		"name": req.Name,
		"key":  key,
	})
}

// ListKeys returns all API keys
func (h *Handler) ListKeys(c *gin.Context) {
	var keys []database.APIKey
	if err := h.DB.Order("id").Find(&keys).Error; err != nil {
		c.JSON(http.StatusInternalServerError, models.Failure("could not list keys"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

// RevokeKey deletes an API key
func (h *Handler) RevokeKey(c *gin.Context) {
	id, ok := keyID(c)
	if !ok {
		return
	}
	res := h.DB.Delete(&database.APIKey{}, id)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, models.Failure("could not delete key"))
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, models.Failure("key not found"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.StatusSuccess, "message": "key revoked"})
}

// UpdateKeyLimit updates the daily request limit of a key
func (h *Handler) UpdateKeyLimit(c *gin.Context) {
	id, ok := keyID(c)
	if !ok {
		return
	}
	var req struct {
		RateLimit int `json:"rate_limit" form:"rate_limit"`
	}

	// Try JSON first, then Form/Query
	if err := c.ShouldBindJSON(&req); err != nil {
		if err := c.ShouldBindQuery(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.Failure("rate_limit is required"))
			return
		}
	}

	if req.RateLimit <= 0 {
		c.JSON(http.StatusBadRequest, models.Failure("invalid rate limit"))
		return
	}

	if err := h.DB.Model(&database.APIKey{}).Where("id = ?", id).Update("rate_limit", req.RateLimit).Error; err != nil {
		c.JSON(http.StatusInternalServerError, models.Failure("could not update key limit"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.StatusSuccess, "rate_limit": req.RateLimit})
}

// GetUsage returns the last 30 days of usage for a key
func (h *Handler) GetUsage(c *gin.Context) {
	id, ok := keyID(c)
	if !ok {
		return
	}
	var usage []database.APIUsage
	if err := h.DB.Where("key_id = ?", id).Order("date desc").Limit(30).Find(&usage).Error; err != nil {
		c.JSON(http.StatusInternalServerError, models.Failure("could not fetch usage"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"usage": usage})
}

// ListSnapshots returns the saved rosters, newest first, without their data
func (h *Handler) ListSnapshots(c *gin.Context) {
	var snaps []database.RosterSnapshot
	if err := h.DB.Order("id desc").Limit(50).Find(&snaps).Error; err != nil {
		c.JSON(http.StatusInternalServerError, models.Failure("could not list snapshots"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": snaps})
}

// AdminInterface serves the admin web interface from embedded files
func (h *Handler) AdminInterface(c *gin.Context) {
	data, err := staticEmbed.ReadFile("static/index.html")
	if err != nil {
		c.JSON(http.StatusNotFound, models.Failure("static/index.html not found in embedded FS"))
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", data)
}

// GetStaticFS returns the embedded filesystem for static assets
func (h *Handler) GetStaticFS() http.FileSystem {
	sub, err := fs.Sub(staticEmbed, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}
