package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"video-linker/src/application"
)

// RouterConfig зависимости и настройки HTTP API
type RouterConfig struct {
	Service     application.VideoService
	Stats       StatsProvider
	Hub         *ProgressHub
	Logger      *slog.Logger
	Mode        string
	CORSOrigins []string
}

// NewRouter настраивает маршруты HTTP API
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(recoveryMiddleware(logger))
	r.Use(requestIDMiddleware())
	r.Use(corsMiddleware(cfg.CORSOrigins))
	r.Use(loggingMiddleware(logger))

	h := NewHandler(cfg.Service, cfg.Stats, logger)

	r.GET("/health", h.Health)
	r.POST("/transcribe", h.Transcribe)
	r.POST("/match-segment", h.MatchSegment)
	r.POST("/link-summary", h.LinkSummary)

	if cfg.Hub != nil {
		r.GET("/ws/progress", cfg.Hub.ServeWS)
	}

	return r
}
