package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"scholarlens/models"
	"scholarlens/services"
)

type paperRequest struct {
	ArxivID         *string              `json:"arxiv_id"`
	PubmedID        *string              `json:"pubmed_id"`
	DOI             *string              `json:"doi"`
	Title           string               `json:"title"`
	Abstract        *string              `json:"abstract"`
	FullText        *string              `json:"full_text"`
	PublishedDate   *string              `json:"published_date"`
	UpdatedDate     *string              `json:"updated_date"`
	PrimaryCategory *string              `json:"primary_category"`
	Categories      []string             `json:"categories"`
	PDFPath         *string              `json:"pdf_path"`
	Authors         []services.AuthorRef `json:"authors"`
}

type paperPatchRequest struct {
	services.PaperUpdate
	PublishedDate *string `json:"published_date"`
	UpdatedDate   *string `json:"updated_date"`
}

type citationRequest struct {
	CitedPaperID   uint    `json:"cited_paper_id" binding:"required"`
	Context        *string `json:"context"`
	CitationIntent *string `json:"citation_intent"`
}

type chunksRequest struct {
	Chunks []models.TextChunk `json:"chunks"`
}

func setupPaperRoutes(router *gin.RouterGroup, a *app) {
	rg := router.Group("/papers")

	rg.POST("", func(c *gin.Context) {
		var req paperRequest
		if !bindJSON(c, &req) {
			return
		}
		p := &models.Paper{
			ArxivID:         req.ArxivID,
			PubmedID:        req.PubmedID,
			DOI:             req.DOI,
			Title:           req.Title,
			Abstract:        req.Abstract,
			FullText:        req.FullText,
			PrimaryCategory: req.PrimaryCategory,
			Categories:      req.Categories,
			PDFPath:         req.PDFPath,
		}
		if !dateField(c, "published_date", req.PublishedDate, &p.PublishedDate) ||
			!dateField(c, "updated_date", req.UpdatedDate, &p.UpdatedDate) {
			return
		}
		var err error
		if len(req.Authors) > 0 {
			err = a.store.CreatePaperWithAuthors(c.Request.Context(), p, req.Authors)
		} else {
			err = a.store.CreatePaper(c.Request.Context(), p)
		}
		if err != nil {
			respondError(c, a.log, err)
			return
		}
		c.JSON(http.StatusCreated, p)
	})

	rg.GET("", func(c *gin.Context) {
		page, ok := queryInt(c, "page", 1)
		if !ok {
			return
		}
		size, ok := queryInt(c, "page_size", a.cfg.DefaultPageSize)
		if !ok {
			return
		}
		year, ok := queryInt(c, "year", 0)
		if !ok {
			return
		}
		result, err := a.store.ListPapers(c.Request.Context(), services.PaperFilter{
			Page:     page,
			PageSize: size,
			Category: c.Query("category"),
			Year:     year,
		})
		if err != nil {
			respondError(c, a.log, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})

	rg.GET("/by-external/:kind/:value", func(c *gin.Context) {
		p, err := a.store.FindPaperByExternalID(c.Request.Context(), c.Param("kind"), c.Param("value"))
		if err != nil {
			respondError(c, a.log, err)
			return
		}
		c.JSON(http.StatusOK, p)
	})

	rg.GET("/:id", func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		d, err := a.store.GetPaper(c.Request.Context(), id)
		if err != nil {
			respondError(c, a.log, err)
			return
		}
		c.JSON(http.StatusOK, d)
	})

	// Nur die gesendeten Felder werden geändert
	rg.PATCH("/:id", func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req paperPatchRequest
		if !bindJSON(c, &req) {
			return
		}
		u := req.PaperUpdate
		if !dateField(c, "published_date", req.PublishedDate, &u.PublishedDate) ||
			!dateField(c, "updated_date", req.UpdatedDate, &u.UpdatedDate) {
			return
		}
		p, err := a.store.UpdatePaper(c.Request.Context(), id, u)
		if err != nil {
			respondError(c, a.log, err)
			return
		}
		c.JSON(http.StatusOK, p)
	})

	rg.DELETE("/:id", func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		if err := a.store.DeletePaper(c.Request.Context(), id); err != nil {
			respondError(c, a.log, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	rg.POST("/:id/authors", func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var link models.PaperAuthor
		if !bindJSON(c, &link) {
			return
		}
		link.PaperID = id
		if err := a.store.LinkPaperAuthor(c.Request.Context(), &link); err != nil {
			respondError(c, a.log, err)
			return
		}
		c.JSON(http.StatusCreated, link)
	})

	rg.POST("/:id/methods", func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var link models.PaperMethod
		if !bindJSON(c, &link) {
			return
		}
		link.PaperID = id
		if err := a.store.LinkPaperMethod(c.Request.Context(), &link); err != nil {
			respondError(c, a.log, err)
			return
		}
		c.JSON(http.StatusCreated, link)
	})

	rg.POST("/:id/datasets", func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var link models.PaperDataset
		if !bindJSON(c, &link) {
			return
		}
		link.PaperID = id
		if err := a.store.LinkPaperDataset(c.Request.Context(), &link); err != nil {
			respondError(c, a.log, err)
			return
		}
		c.JSON(http.StatusCreated, link)
	})

	rg.POST("/:id/citations", func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req citationRequest
		if !bindJSON(c, &req) {
			return
		}
		citation := models.Citation{
			CitingPaperID:  id,
			CitedPaperID:   req.CitedPaperID,
			Context:        req.Context,
			CitationIntent: req.CitationIntent,
		}
		if err := a.store.RecordCitation(c.Request.Context(), &citation); err != nil {
			respondError(c, a.log, err)
			return
		}
		c.JSON(http.StatusCreated, citation)
	})

	counter := func(record func(*gin.Context, uint) error) gin.HandlerFunc {
		return func(c *gin.Context) {
			id, ok := paramID(c, "id")
			if !ok {
				return
			}
			if err := record(c, id); err != nil {
				respondError(c, a.log, err)
				return
			}
			stats, err := a.store.GetStatistics(c.Request.Context(), id)
			if err != nil {
				respondError(c, a.log, err)
				return
			}
			c.JSON(http.StatusOK, stats)
		}
	}
	rg.POST("/:id/views", counter(func(c *gin.Context, id uint) error {
		return a.store.RecordView(c.Request.Context(), id)
	}))
	rg.POST("/:id/downloads", counter(func(c *gin.Context, id uint) error {
		return a.store.RecordDownload(c.Request.Context(), id)
	}))
	rg.GET("/:id/statistics", counter(func(*gin.Context, uint) error { return nil }))

	rg.GET("/:id/references", func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		refs, err := a.store.References(c.Request.Context(), id)
		if err != nil {
			respondError(c, a.log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"references": refs, "bibliography": services.FormatBibliography(refs)})
	})

	// Ohne Body wird der gespeicherte Volltext zerlegt
	rg.POST("/:id/chunks", func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req chunksRequest
		if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
			return
		}
		if len(req.Chunks) == 0 {
			chunks, err := a.store.ChunkPaper(c.Request.Context(), id, a.chunker)
			if err != nil {
				respondError(c, a.log, err)
				return
			}
			c.JSON(http.StatusCreated, gin.H{"chunks": chunks})
			return
		}
		if err := a.store.ReplaceChunks(c.Request.Context(), id, req.Chunks); err != nil {
			respondError(c, a.log, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"chunks": req.Chunks})
	})

	rg.GET("/:id/chunks", func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		chunks, err := a.store.ListChunks(c.Request.Context(), id)
		if err != nil {
			respondError(c, a.log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"chunks": chunks})
	})
}
