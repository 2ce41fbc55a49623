package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Registrar is implemented by each handler to mount its routes on the
// versioned API group.
type Registrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Mount wires the health endpoint and every handler's routes under
// /api/<version> on the engine.
func Mount(engine *gin.Engine, version string, registrars ...Registrar) {
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api/" + version)
	for _, reg := range registrars {
		reg.RegisterRoutes(api)
	}
}
