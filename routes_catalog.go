package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"scholarlens/models"
	"scholarlens/services"
)

type affiliationRequest struct {
	InstitutionID uint    `json:"institution_id" binding:"required"`
	StartDate     *string `json:"start_date"`
	EndDate       *string `json:"end_date"`
	Position      *string `json:"position"`
	IsCurrent     bool    `json:"is_current"`
}

type embeddingRequest struct {
	EmbeddingRef string `json:"embedding_ref" binding:"required"`
}

func setupAuthorRoutes(router *gin.RouterGroup, a *app) {
	rg := router.Group("/authors")

	rg.POST("", func(c *gin.Context) {
		var author models.Author
		if !bindJSON(c, &author) {
			return
		}
		if err := a.store.CreateAuthor(c.Request.Context(), &author); err != nil {
			respondError(c, a.log, err)
			return
		}
		c.JSON(http.StatusCreated, author)
	})

	rg.GET("/:id", func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		author, err := a.store.GetAuthor(c.Request.Context(), id)
		if err != nil {
			respondError(c, a.log, err)
			return
		}
		c.JSON(http.StatusOK, author)
	})

	rg.PATCH("/:id", func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var u services.AuthorUpdate
		if !bindJSON(c, &u) {
			return
		}
		author, err := a.store.UpdateAuthor(c.Request.Context(), id, u)
		if err != nil {
			respondError(c, a.log, err)
			return
		}
		c.JSON(http.StatusOK, author)
	})

	rg.GET("/:id/papers", func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		papers, err := a.store.AuthorPapers(c.Request.Context(), id)
		if err != nil {
			respondError(c, a.log, err)
			return
		}
		c.JSON(http.StatusOK, papers)
	})

	rg.POST("/:id/affiliations", func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req affiliationRequest
		if !bindJSON(c, &req) {
			return
		}
		af := models.AuthorInstitution{
			AuthorID:      id,
			InstitutionID: req.InstitutionID,
			Position:      req.Position,
			IsCurrent:     req.IsCurrent,
		}
		if !dateField(c, "start_date", req.StartDate, &af.StartDate) ||
			!dateField(c, "end_date", req.EndDate, &af.EndDate) {
			return
		}
		if err := a.store.AddAffiliation(c.Request.Context(), &af); err != nil {
			respondError(c, a.log, err)
			return
		}
		c.JSON(http.StatusCreated, af)
	})
}

func setupCatalogRoutes(router *gin.RouterGroup, a *app) {
	router.POST("/institutions", func(c *gin.Context) {
		var in models.Institution
		if !bindJSON(c, &in) {
			return
		}
		if err := a.store.CreateInstitution(c.Request.Context(), &in); err != nil {
			respondError(c, a.log, err)
			return
		}
		c.JSON(http.StatusCreated, in)
	})

	router.POST("/methods", func(c *gin.Context) {
		var m models.Method
		if !bindJSON(c, &m) {
			return
		}
		if err := a.store.CreateMethod(c.Request.Context(), &m); err != nil {
			respondError(c, a.log, err)
			return
		}
		c.JSON(http.StatusCreated, m)
	})

	router.POST("/datasets", func(c *gin.Context) {
		var d models.Dataset
		if !bindJSON(c, &d) {
			return
		}
		if err := a.store.CreateDataset(c.Request.Context(), &d); err != nil {
			respondError(c, a.log, err)
			return
		}
		c.JSON(http.StatusCreated, d)
	})

	router.PUT("/chunks/:id/embedding", func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req embeddingRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := a.store.SetEmbeddingRef(c.Request.Context(), id, req.EmbeddingRef); err != nil {
			respondError(c, a.log, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}
