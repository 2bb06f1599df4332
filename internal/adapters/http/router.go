package http

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/huddlechat/huddle/internal/adapters/channel"
	"github.com/huddlechat/huddle/internal/app"
	"github.com/huddlechat/huddle/internal/config"
)

func SetupRouter(ctx context.Context, cfg *config.Config, coord *app.Coordinator, registry *app.Registry) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	h := NewHandlers(coord)
	ctrl := channel.NewController(cfg, registry)

	api := r.Group("/api")
	api.GET("/create_room", h.CreateRoom)
	api.POST("/join_room", h.JoinRoom)
	api.GET("/ws", func(c *gin.Context) {
		ctrl.Handle(ctx, c)
	})

	return r
}
