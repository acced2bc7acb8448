package webserver

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/the80percentbill/pledge-api/src/api/config"
	"github.com/the80percentbill/pledge-api/src/api/pledge"
	"github.com/the80percentbill/pledge-api/src/api/store"
)

func attachRoutes(r *gin.Engine, cfg config.Config, wf *pledge.Workflow, st *store.Store) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "https://the80percentbill.org"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Admin-Token"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	pledgeH := NewPledge(wf, st)

	// Throttle code entry: a 4-digit space is guessable without a cap.
	verifyLimiter := NewRateLimiter(10, time.Minute)

	v1 := r.Group("/v1")
	{
		v1.POST("/pledge/session", pledgeH.Start)
		v1.GET("/pledge/session/:id", pledgeH.State)
		v1.POST("/pledge/search", pledgeH.Search)
		v1.POST("/pledge/confirm", pledgeH.Confirm)
		v1.POST("/pledge/district", pledgeH.EnterDistrict)
		v1.POST("/pledge/sign", pledgeH.Sign)
		v1.POST("/pledge/verify", RateLimitMiddleware(verifyLimiter), pledgeH.Verify)
		v1.POST("/pledge/reset", pledgeH.Reset)

		v1.GET("/stats", pledgeH.Stats)
	}

	admin := v1.Group("/admin")
	admin.Use(AdminMiddleware(cfg.AdminToken))
	{
		adminH := NewAdmin(st)
		admin.POST("/reset", adminH.ResetStore)
	}
}
