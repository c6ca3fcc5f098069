package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arnavshah/shift-roster-api/internal/app"
	"github.com/arnavshah/shift-roster-api/internal/config"
	"github.com/arnavshah/shift-roster-api/internal/logging"
	"github.com/arnavshah/shift-roster-api/pkg/handlers"
)

var r http.Handler

func init() {
	cfg, err := config.Load()
	if err != nil {
		r = unavailable(err)
		return
	}

	logger, err := logging.NewLogger(cfg.Log.Level, cfg.Log.Format, "shift-roster-api")
	if err != nil {
		logger = zap.NewNop()
	}

	app.SetGinMode(cfg)
	h, _, err := app.Build(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		r = unavailable(err)
		return
	}
	r = handlers.NewRouter(h, "Shift Roster API (Vercel)")
}

func unavailable(err error) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	e := gin.New()
	e.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "message": err.Error()})
	})
	return e
}

// Handler is the entry point for Vercel Go Runtime
func Handler(w http.ResponseWriter, req *http.Request) {
	r.ServeHTTP(w, req)
}
