package handlers

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arnavshah/shift-roster-api/pkg/auth"
	"github.com/arnavshah/shift-roster-api/pkg/cache"
	"github.com/arnavshah/shift-roster-api/pkg/database"
	"github.com/arnavshah/shift-roster-api/pkg/export"
	"github.com/arnavshah/shift-roster-api/pkg/models"
	"github.com/arnavshah/shift-roster-api/pkg/roster"
	"github.com/arnavshah/shift-roster-api/pkg/scheduler"
	"github.com/arnavshah/shift-roster-api/pkg/store"
)

//go:embed static/*
var staticEmbed embed.FS

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler contains dependencies for the route handlers. DB may be nil when
// neither API keys nor the admin console are used; Cache may be nil to
// disable result caching.
type Handler struct {
	DB            *gorm.DB
	Auth          *auth.Service
	Store         store.Store
	Cache         cache.Cache
	CacheTTL      time.Duration
	Engine        scheduler.Options
	Log           *zap.Logger
	RequireAPIKey bool
}

func (h *Handler) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

// GetInitialData returns the roster the operator starts editing from
func (h *Handler) GetInitialData(c *gin.Context) {
	r, err := h.Store.Load(c.Request.Context())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.Failure("initial data not found"))
			return
		}
		h.logger().Error("failed to load initial data", zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.Failure("could not load initial data"))
		return
	}
	c.JSON(http.StatusOK, r)
}

// PutInitialData saves an operator-edited roster. It must build into a
// problem so the saved data can always be generated.
func (h *Handler) PutInitialData(c *gin.Context) {
	r, ok := h.bindRoster(c)
	if !ok {
		return
	}
	_, warnings, err := roster.Build(r)
	if err != nil {
		h.fail(c, err)
		return
	}

	savedBy := c.GetString("userID")
	if savedBy == "" {
		savedBy = "anonymous"
	}
	if err := h.Store.Save(c.Request.Context(), r, savedBy); err != nil {
		h.logger().Error("failed to save initial data", zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.Failure("could not save initial data"))
		return
	}

	h.logger().Info("initial data saved",
		zap.String("saved_by", savedBy),
		zap.Int("year", r.Year),
		zap.Int("month", r.Month),
		zap.Int("staff", len(r.People)))
	c.JSON(http.StatusOK, gin.H{"status": models.StatusSuccess, "warnings": warnings})
}

// GenerateShift builds the month and returns the generate-shift envelope.
// Identical requests are served from the cache when one is configured.
func (h *Handler) GenerateShift(c *gin.Context) {
	r, ok := h.bindRoster(c)
	if !ok {
		return
	}

	key, err := cache.Key(r, h.Engine)
	if err != nil {
		h.logger().Warn("cache key unavailable", zap.Error(err))
	}
	if key != "" {
		if resp, hit := h.cached(c.Request.Context(), key); hit {
			h.RecordUsage(c, len(r.People), assignedIn(resp), len(resp.Shortages))
			c.JSON(http.StatusOK, resp)
			return
		}
	}

	out, ok := h.run(c, r)
	if !ok {
		return
	}
	resp := out.Response(uuid.NewString())
	// a table cut short by the budget depends on timing, not only on the input
	if key != "" && !out.Result.RepairExhausted {
		h.remember(c.Request.Context(), key, resp)
	}

	h.RecordUsage(c, len(r.People), assignedIn(resp), len(resp.Shortages))
	c.JSON(http.StatusOK, resp)
}

// GenerateShiftCSV returns the assignments as CSV text
func (h *Handler) GenerateShiftCSV(c *gin.Context) {
	r, ok := h.bindRoster(c)
	if !ok {
		return
	}
	out, ok := h.run(c, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.CSV(&buf, out.Problem, out.Result.Table); err != nil {
		h.logger().Error("failed to write csv", zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.Failure("could not export csv"))
		return
	}

	h.RecordUsage(c, len(r.People), countAssigned(out.Result.Table), len(out.Shortages))
	c.JSON(http.StatusOK, gin.H{
		"status":    models.StatusSuccess,
		"csv":       buf.String(),
		"shortages": len(out.Shortages),
	})
}

// GenerateShiftXLSX returns the month as an Excel workbook
func (h *Handler) GenerateShiftXLSX(c *gin.Context) {
	r, ok := h.bindRoster(c)
	if !ok {
		return
	}
	out, ok := h.run(c, r)
	if !ok {
		return
	}

	data, err := export.XLSX(out.Problem, out.Result.Table, out.Shortages)
	if err != nil {
		h.logger().Error("failed to build workbook", zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.Failure("could not export xlsx"))
		return
	}

	h.RecordUsage(c, len(r.People), countAssigned(out.Result.Table), len(out.Shortages))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=shifts-%04d-%02d.xlsx", r.Year, r.Month))
	c.Data(http.StatusOK, xlsxContentType, data)
}

func (h *Handler) bindRoster(c *gin.Context) (*models.Roster, bool) {
	var r models.Roster
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, models.Failure("invalid request body: "+err.Error()))
		return nil, false
	}
	return &r, true
}

func (h *Handler) run(c *gin.Context, r *models.Roster) (*roster.Outcome, bool) {
	start := time.Now()
	out, err := roster.Run(c.Request.Context(), r, h.Engine)
	if err != nil {
		h.fail(c, err)
		return nil, false
	}

	fields := []zap.Field{
		zap.Int("year", r.Year),
		zap.Int("month", r.Month),
		zap.Int("staff", len(out.Problem.Staff)),
		zap.Int("shortages", len(out.Shortages)),
		zap.Int("repair_iterations", out.Result.RepairIterations),
		zap.Duration("elapsed", time.Since(start)),
	}
	if len(out.Warnings) > 0 {
		fields = append(fields, zap.Strings("warnings", out.Warnings))
	}
	if out.Result.RepairExhausted {
		h.logger().Warn("repair budget exhausted", fields...)
	} else {
		h.logger().Info("shifts generated", fields...)
	}
	return out, true
}

// fail writes the failure envelope for an error returned by the roster package
func (h *Handler) fail(c *gin.Context, err error) {
	if roster.IsValidation(err) {
		c.JSON(http.StatusBadRequest, models.Failure(err.Error()))
		return
	}
	h.logger().Error("generation failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, models.Failure("could not generate shifts"))
}

func (h *Handler) cached(ctx context.Context, key string) (*models.GenerateResponse, bool) {
	if h.Cache == nil {
		return nil, false
	}
	data, err := h.Cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			h.logger().Warn("cache read failed", zap.Error(err))
		}
		return nil, false
	}

	var resp models.GenerateResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		h.logger().Warn("discarding unreadable cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if resp.Summary != nil {
		resp.Summary.RequestID = uuid.NewString()
	}
	h.logger().Debug("generation served from cache", zap.String("key", key))
	return &resp, true
}

func (h *Handler) remember(ctx context.Context, key string, resp *models.GenerateResponse) {
	if h.Cache == nil {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		h.logger().Warn("cache encode failed", zap.Error(err))
		return
	}
	if err := h.Cache.Set(ctx, key, data, h.CacheTTL); err != nil {
		h.logger().Warn("cache write failed", zap.Error(err))
	}
}

func assignedIn(resp *models.GenerateResponse) int {
	n := 0
	for _, byCode := range resp.Shifts {
		for _, ids := range byCode {
			n += len(ids)
		}
	}
	return n
}

func countAssigned(table scheduler.Table) int {
	n := 0
	for _, byCode := range table {
		for _, ids := range byCode {
			n += len(ids)
		}
	}
	return n
}

// RecordUsage records API usage in the database using an efficient upsert.
// Requests made without an API key are not recorded.
func (h *Handler) RecordUsage(c *gin.Context, staffCount, slotCount, shortageCount int) {
	apiKeyRaw, exists := c.Get("apiKey")
	if !exists || h.DB == nil {
		return
	}
	apiKey := apiKeyRaw.(*database.APIKey)

	today := time.Now().Format("2006-01-02")

	// Use OnConflict for a single-query upsert (supported by both Postgres and SQLite)
	err := h.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"request_count":   gorm.Expr("request_count + ?", 1),
			"total_staff":     gorm.Expr("total_staff + ?", staffCount),
			"total_slots":     gorm.Expr("total_slots + ?", slotCount),
			"total_shortages": gorm.Expr("total_shortages + ?", shortageCount),
		}),
	}).Create(&database.APIUsage{
		KeyID:          apiKey.ID,
		Date:           today,
		RequestCount:   1,
		TotalStaff:     staffCount,
		TotalSlots:     slotCount,
		TotalShortages: shortageCount,
	}).Error
	if err != nil {
		h.logger().Warn("failed to record usage", zap.Uint("key_id", apiKey.ID), zap.Error(err))
	}
}
