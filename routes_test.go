package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"scholarlens/config"
	"scholarlens/models"
	"scholarlens/services"
	"scholarlens/storage"
)

func newTestRouter(t *testing.T, apiKey string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	require.NoError(t, storage.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	cfg := &config.Config{
		APISecretKey:    apiKey,
		AllowedOrigins:  []string{"http://localhost:3000"},
		DefaultPageSize: 20,
		MaxPageSize:     100,
	}
	log := zap.NewNop()
	store := services.NewStore(db, log)
	store.MaxPageSize = cfg.MaxPageSize
	return newRouter(&app{
		cfg:     cfg,
		store:   store,
		chunker: services.NewChunker(log, services.ChunkOptions{ChunkSize: 50, Overlap: 5}),
		ingest:  services.NewIngestService(store, log, nil, nil, 10, 1, nil),
		graph:   services.NewGraphSync(store, nil, log),
		log:     log,
	})
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthAndRequestID(t *testing.T) {
	r := newTestRouter(t, "")
	w := doJSON(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = doJSON(t, r, http.MethodGet, "/health", nil, "X-Request-ID", "abc-123")
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestAPIKeyGuard(t *testing.T) {
	r := newTestRouter(t, "s3cret")

	w := doJSON(t, r, http.MethodGet, "/views/papers-overview", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodGet, "/views/papers-overview", nil, "X-API-KEY", "s3cret")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPaperEndpoints(t *testing.T) {
	r := newTestRouter(t, "")

	w := doJSON(t, r, http.MethodPost, "/papers", map[string]any{
		"arxiv_id":       "1706.03762",
		"title":          "Attention Is All You Need",
		"published_date": "2017-06-12",
		"authors":        []map[string]any{{"name": "Ashish Vaswani"}, {"name": "Noam Shazeer"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	p1 := decode[models.Paper](t, w)

	w = doJSON(t, r, http.MethodPost, "/papers", map[string]any{"arxiv_id": "1706.03762", "title": "Again"})
	assert.Equal(t, http.StatusConflict, w.Code)
	w = doJSON(t, r, http.MethodPost, "/papers", map[string]any{"title": "No identifier"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(t, r, http.MethodPost, "/papers", map[string]any{"doi": "10.1/x", "title": "Bad date", "published_date": "12.06.2017"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/papers", map[string]any{"arxiv_id": "1810.04805", "title": "BERT"})
	require.Equal(t, http.StatusCreated, w.Code)
	p2 := decode[models.Paper](t, w)

	w = doJSON(t, r, http.MethodGet, "/papers/by-external/arxiv/1706.03762", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, p1.ID, decode[models.Paper](t, w).ID)

	w = doJSON(t, r, http.MethodPost, "/papers/"+itoa(p2.ID)+"/citations", map[string]any{"cited_paper_id": p1.ID, "citation_intent": "background"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = doJSON(t, r, http.MethodPost, "/papers/"+itoa(p2.ID)+"/citations", map[string]any{"cited_paper_id": p1.ID})
	assert.Equal(t, http.StatusConflict, w.Code)
	w = doJSON(t, r, http.MethodPost, "/papers/"+itoa(p1.ID)+"/citations", map[string]any{"cited_paper_id": p1.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodGet, "/papers/"+itoa(p1.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[services.PaperDetail](t, w)
	require.Len(t, detail.Authors, 2)
	assert.Equal(t, "Ashish Vaswani", detail.Authors[0].Name)
	assert.Equal(t, 1, detail.Statistics.CitationCount)

	w = doJSON(t, r, http.MethodGet, "/views/papers-overview", nil)
	require.Equal(t, http.StatusOK, w.Code)
	overview := decode[[]models.PaperOverview](t, w)
	require.Len(t, overview, 2)
	assert.Equal(t, int64(2), overview[0].AuthorCount)
	assert.Equal(t, int64(1), overview[0].CitationCount)

	w = doJSON(t, r, http.MethodGet, "/papers/"+itoa(p2.ID)+"/references", nil)
	require.Equal(t, http.StatusOK, w.Code)
	refs := decode[struct {
		Bibliography []string `json:"bibliography"`
	}](t, w)
	assert.Equal(t, []string{"[1] Ashish Vaswani, Noam Shazeer (2017). Attention Is All You Need. arxiv:1706.03762"}, refs.Bibliography)

	w = doJSON(t, r, http.MethodPatch, "/papers/"+itoa(p2.ID), map[string]any{"published_date": "2018-10-11", "primary_category": "cs.CL"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodGet, "/papers?page=1&page_size=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[services.PaperPage](t, w)
	assert.Equal(t, int64(2), page.Total)
	require.Len(t, page.Papers, 1)
	assert.Equal(t, p2.ID, page.Papers[0].PaperID)

	w = doJSON(t, r, http.MethodGet, "/papers?page_size=1000", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(t, r, http.MethodGet, "/papers?page=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/papers/"+itoa(p1.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = doJSON(t, r, http.MethodGet, "/papers/"+itoa(p1.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doJSON(t, r, http.MethodGet, "/papers/zero", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWorkspaceEndpoints(t *testing.T) {
	r := newTestRouter(t, "")

	w := doJSON(t, r, http.MethodPost, "/papers", map[string]any{"doi": "10.1038/nature14539", "title": "Deep learning"})
	require.Equal(t, http.StatusCreated, w.Code)
	p := decode[models.Paper](t, w)

	w = doJSON(t, r, http.MethodPost, "/workspaces", map[string]any{"user_id": "u1", "workspace_name": "Reading"})
	require.Equal(t, http.StatusCreated, w.Code)
	ws := decode[models.UserWorkspace](t, w)

	w = doJSON(t, r, http.MethodPost, "/workspaces/"+itoa(ws.ID)+"/papers", map[string]any{"paper_id": p.ID, "rating": 6})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(t, r, http.MethodPost, "/workspaces/"+itoa(ws.ID)+"/papers", map[string]any{"paper_id": p.ID, "rating": 4, "tags": []string{"dl"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodPatch, "/workspaces/"+itoa(ws.ID)+"/papers/"+itoa(p.ID), map[string]any{"rating": 5})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, *decode[models.WorkspacePaper](t, w).Rating)

	w = doJSON(t, r, http.MethodGet, "/workspaces/"+itoa(ws.ID)+"/papers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.WorkspacePaper](t, w), 1)

	w = doJSON(t, r, http.MethodDelete, "/workspaces/"+itoa(ws.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAuthorAndCatalogEndpoints(t *testing.T) {
	r := newTestRouter(t, "")

	w := doJSON(t, r, http.MethodPost, "/authors", map[string]any{"name": "Fei-Fei Li"})
	require.Equal(t, http.StatusCreated, w.Code)
	author := decode[models.Author](t, w)

	w = doJSON(t, r, http.MethodPost, "/institutions", map[string]any{"name": "Stanford University"})
	require.Equal(t, http.StatusCreated, w.Code)
	inst := decode[models.Institution](t, w)
	w = doJSON(t, r, http.MethodPost, "/institutions", map[string]any{"name": "Stanford University"})
	assert.Equal(t, http.StatusConflict, w.Code)

	path := "/authors/" + itoa(author.ID) + "/affiliations"
	w = doJSON(t, r, http.MethodPost, path, map[string]any{"institution_id": inst.ID, "start_date": "2013-09-01", "end_date": "2012-01-01"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(t, r, http.MethodPost, path, map[string]any{"institution_id": inst.ID, "start_date": "2013-09-01", "end_date": "2013-09-01"})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/methods", map[string]any{"name": "ResNet", "aliases": []string{"residual network"}})
	assert.Equal(t, http.StatusCreated, w.Code)
	w = doJSON(t, r, http.MethodGet, "/views/method-popularity", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.MethodPopularity](t, w), 1)

	w = doJSON(t, r, http.MethodGet, "/analytics/statistics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decode[services.DatabaseStats](t, w).Authors)

	w = doJSON(t, r, http.MethodPost, "/jobs/reconcile", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateIgnoresClientIDsAndTimestamps(t *testing.T) {
	r := newTestRouter(t, "")
	old := "1999-01-01T00:00:00Z"

	w := doJSON(t, r, http.MethodPost, "/authors", map[string]any{"author_id": 4242, "name": "Ashish Vaswani", "created_at": old, "updated_at": old})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	author := decode[models.Author](t, w)
	assert.NotEqual(t, uint(4242), author.ID)
	assert.Greater(t, author.CreatedAt.Year(), 2000)
	assert.Greater(t, author.UpdatedAt.Year(), 2000)

	w = doJSON(t, r, http.MethodPost, "/authors", map[string]any{"name": "Noam Shazeer"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, author.ID+1, decode[models.Author](t, w).ID)

	w = doJSON(t, r, http.MethodPost, "/workspaces", map[string]any{"workspace_id": 777, "user_id": "u1", "workspace_name": "Reading", "updated_at": old})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	ws := decode[models.UserWorkspace](t, w)
	assert.NotEqual(t, uint(777), ws.ID)
	assert.Greater(t, ws.UpdatedAt.Year(), 2000)

	w = doJSON(t, r, http.MethodPost, "/methods", map[string]any{"method_id": 99, "name": "Transformer", "created_at": old})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	m := decode[models.Method](t, w)
	assert.NotEqual(t, uint(99), m.ID)
	assert.Greater(t, m.CreatedAt.Year(), 2000)
}
