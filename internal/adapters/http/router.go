package http

import (
	"context"
	"net/http"

	"github.com/dkeye/Space/internal/adapters/signal"
	"github.com/dkeye/Space/internal/app"
	"github.com/dkeye/Space/internal/config"
	"github.com/dkeye/Space/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// IdentityMiddleware resolves the connecting user: explicit headers win,
// then query params, then a guest identity persisted in the session cookie.
// The engine trusts whatever the fronting auth layer put here.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-Id")
		userName := c.GetHeader("X-User-Name")
		avatar := c.GetHeader("X-Avatar")

		if userID == "" {
			userID = c.Query("user_id")
			userName = c.Query("user_name")
			avatar = c.Query("avatar")
		}
		if userID == "" {
			sess := sessions.Default(c)
			if v, ok := sess.Get("guest_id").(string); ok && v != "" {
				userID = v
			} else {
				userID = uuid.NewString()
				sess.Set("guest_id", userID)
				if err := sess.Save(); err != nil {
					log.Warn().Err(err).Str("module", "adapters.http").Msg("guest session save")
				}
			}
		}
		if userName == "" {
			userName = "guest-" + userID[:min(8, len(userID))]
		}

		c.Set("user_id", userID)
		c.Set("user_name", userName)
		c.Set("avatar", avatar)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, coord *app.Coordinator, ctl *signal.SignalWSController, reg *prometheus.Registry) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("SpaceSessions", store))
	r.Use(IdentityMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": coord.Registry.Count()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	// Read-only introspection; all mutation flows through the socket.
	api.GET("/spaces", func(c *gin.Context) {
		c.JSON(http.StatusOK, coord.Rooms.List())
	})
	api.GET("/spaces/:id", func(c *gin.Context) {
		id := domain.SpaceID(c.Param("id"))
		room, ok := coord.Rooms.Get(id)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "space not active"})
			return
		}
		snap := room.Snapshot()
		c.JSON(http.StatusOK, gin.H{
			"id":                snap.Space.ID,
			"map_id":            snap.Space.MapID,
			"participant_count": len(snap.Users),
			"users":             snap.Users,
		})
	})

	api.GET("/ws/space", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("user", c.GetString("user_id")).Msg("ws space endpoint hit")
		ctl.HandleSpace(ctx, c)
	})

	return r
}
