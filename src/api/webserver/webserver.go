package webserver

import (
	"github.com/gin-gonic/gin"

	"github.com/the80percentbill/pledge-api/src/api/config"
	"github.com/the80percentbill/pledge-api/src/api/pledge"
	"github.com/the80percentbill/pledge-api/src/api/store"
)

func New(cfg config.Config, wf *pledge.Workflow, st *store.Store) *gin.Engine {
	g := gin.New()
	g.Use(gin.Logger(), gin.Recovery())
	attachRoutes(g, cfg, wf, st)
	return g
}
