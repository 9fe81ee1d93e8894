package http

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"roshambo/internal/adapters/gateway"
	"roshambo/internal/config"
	"roshambo/internal/store"
)

// AuthRequired rejects requests without a logged-in session and exposes the
// username to downstream handlers.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)
		username, _ := sess.Get("username").(string)
		if username == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
			return
		}
		c.Set("username", username)
		c.Next()
	}
}

func SetupRouter(cfg *config.Config, users *store.Users, ctl *gateway.Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	cookieStore := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("RoshamboSession", cookieStore))

	if cfg.StaticPath != "" {
		r.Static("/static", cfg.StaticPath)
		r.GET("/", func(c *gin.Context) {
			c.File(cfg.StaticPath + "/index.html")
		})
	}

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	h := &Handlers{Users: users}

	api := r.Group("/api")
	api.POST("/signup", h.Signup)
	api.POST("/login", h.Login)
	api.POST("/logout", h.Logout)
	api.GET("/leaderboard", h.Leaderboard)
	api.GET("/profile/:username", h.Profile)

	authed := api.Group("")
	authed.Use(AuthRequired())
	authed.GET("/me", h.Me)
	authed.POST("/profile/username", h.Rename)
	authed.GET("/ws", ctl.HandleWS)

	return r
}
