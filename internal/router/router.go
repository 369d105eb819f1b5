package router

import (
	"runlog/internal/handler"
	"runlog/internal/service"

	"github.com/gin-gonic/gin"
)

func SetupRouter(svc *service.ServiceContext) *gin.Engine {
	r := gin.Default()

	// CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	experimentHandler := handler.NewExperimentHandler(svc.Store)
	runHandler := handler.NewRunHandler(svc.Store)
	ingestHandler := handler.NewIngestHandler(svc.Manager)

	api := r.Group("/api")
	{
		experiments := api.Group("/experiments")
		{
			experiments.GET("", experimentHandler.ListExperiments)
			experiments.GET("/:id/runs", experimentHandler.ListRuns)
		}

		api.GET("/runs/:id", runHandler.GetRun)
		api.POST("/ingest", ingestHandler.Ingest)
	}

	return r
}
