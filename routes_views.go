package main

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func setupViewRoutes(router *gin.RouterGroup, a *app) {
	rg := router.Group("/views")

	rg.GET("/papers-overview", func(c *gin.Context) {
		rows, err := a.store.PapersOverview(c.Request.Context())
		if err != nil {
			respondError(c, a.log, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	})

	rg.GET("/author-productivity", func(c *gin.Context) {
		rows, err := a.store.AuthorProductivity(c.Request.Context())
		if err != nil {
			respondError(c, a.log, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	})

	rg.GET("/method-popularity", func(c *gin.Context) {
		rows, err := a.store.MethodPopularity(c.Request.Context())
		if err != nil {
			respondError(c, a.log, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	})

	router.GET("/analytics/statistics", func(c *gin.Context) {
		st, err := a.store.DatabaseStatistics(c.Request.Context())
		if err != nil {
			respondError(c, a.log, err)
			return
		}
		c.JSON(http.StatusOK, st)
	})
}

type ingestRequest struct {
	Query string `json:"query"`
}

// Ingest und Graph-Sync laufen asynchron, der Abgleich der Zähler synchron.
func setupJobRoutes(router *gin.RouterGroup, a *app) {
	rg := router.Group("/jobs")

	rg.POST("/ingest", func(c *gin.Context) {
		var req ingestRequest
		if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
			return
		}
		go func() {
			var (
				report any
				err    error
			)
			if req.Query != "" {
				report, err = a.ingest.RunQuery(context.Background(), req.Query)
			} else {
				report, err = a.ingest.Run(context.Background())
			}
			if err != nil {
				a.log.Error("Async ingest failed", zap.Error(err))
				return
			}
			a.log.Info("Async ingest completed", zap.Any("report", report))
		}()
		c.JSON(http.StatusAccepted, gin.H{"message": "Ingest triggered."})
	})

	rg.POST("/reconcile", func(c *gin.Context) {
		fixed, err := a.store.ReconcileCitationCounts(c.Request.Context())
		if err != nil {
			respondError(c, a.log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"corrected": fixed})
	})

	rg.POST("/graph-sync", func(c *gin.Context) {
		go func() {
			if err := a.graph.Sync(context.Background()); err != nil {
				a.log.Error("Async graph sync failed", zap.Error(err))
			}
		}()
		c.JSON(http.StatusAccepted, gin.H{"message": "Graph sync triggered."})
	})
}
