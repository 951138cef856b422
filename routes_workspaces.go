package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"scholarlens/models"
	"scholarlens/services"
)

func setupWorkspaceRoutes(router *gin.RouterGroup, a *app) {
	rg := router.Group("/workspaces")

	rg.POST("", func(c *gin.Context) {
		var ws models.UserWorkspace
		if !bindJSON(c, &ws) {
			return
		}
		if err := a.store.CreateWorkspace(c.Request.Context(), &ws); err != nil {
			respondError(c, a.log, err)
			return
		}
		c.JSON(http.StatusCreated, ws)
	})

	rg.PATCH("/:id", func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var u services.WorkspaceUpdate
		if !bindJSON(c, &u) {
			return
		}
		ws, err := a.store.UpdateWorkspace(c.Request.Context(), id, u)
		if err != nil {
			respondError(c, a.log, err)
			return
		}
		c.JSON(http.StatusOK, ws)
	})

	rg.DELETE("/:id", func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		if err := a.store.DeleteWorkspace(c.Request.Context(), id); err != nil {
			respondError(c, a.log, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	rg.POST("/:id/papers", func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var wp models.WorkspacePaper
		if !bindJSON(c, &wp) {
			return
		}
		wp.WorkspaceID = id
		if err := a.store.AddToWorkspace(c.Request.Context(), &wp); err != nil {
			respondError(c, a.log, err)
			return
		}
		c.JSON(http.StatusCreated, wp)
	})

	rg.GET("/:id/papers", func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		entries, err := a.store.ListWorkspacePapers(c.Request.Context(), id)
		if err != nil {
			respondError(c, a.log, err)
			return
		}
		c.JSON(http.StatusOK, entries)
	})

	rg.PATCH("/:id/papers/:paper_id", func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		paperID, ok := paramID(c, "paper_id")
		if !ok {
			return
		}
		var u services.WorkspacePaperUpdate
		if !bindJSON(c, &u) {
			return
		}
		wp, err := a.store.UpdateWorkspacePaper(c.Request.Context(), id, paperID, u)
		if err != nil {
			respondError(c, a.log, err)
			return
		}
		c.JSON(http.StatusOK, wp)
	})
}
