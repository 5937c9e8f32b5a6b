package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"parkgate/internal/config"
	"parkgate/internal/repository"
)

// NewRouter builds the dashboard API engine with CORS for the browser
// frontend and the operator auth middleware wired to protected routes.
func NewRouter(ledger repository.LedgerStore, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.HTTP.AllowedOrigins) == 1 && cfg.HTTP.AllowedOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.HTTP.AllowedOrigins
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	r.Use(cors.New(corsConfig))

	handler := NewHandler(ledger, cfg, log)
	handler.Register(r, AuthMiddleware(cfg.HTTP.Auth))
	return r
}
