package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"scholarlens/models"
)

func TestBuildGraphPayload(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p1 := &models.Paper{ArxivID: ptr("1706.03762"), DOI: ptr("10.48550/arXiv.1706.03762"), Title: "Attention Is All You Need", PublishedDate: day(2017, time.June, 12)}
	require.NoError(t, s.CreatePaperWithAuthors(ctx, p1, []AuthorRef{{Name: "Ashish Vaswani", ORCID: ptr("0000-0000-0000-0001")}}))
	p2 := mustPaper(t, s, "1810.04805", "BERT")
	m := &models.Method{Name: "Transformer"}
	require.NoError(t, s.CreateMethod(ctx, m))
	require.NoError(t, s.LinkPaperMethod(ctx, &models.PaperMethod{PaperID: p1.ID, MethodID: m.ID, IsPrimaryMethod: true}))
	require.NoError(t, s.RecordCitation(ctx, &models.Citation{CitingPaperID: p2.ID, CitedPaperID: p1.ID, CitationIntent: ptr("method")}))

	snap, err := s.LoadGraphSnapshot(ctx)
	require.NoError(t, err)
	g := BuildGraphPayload(snap)

	require.Len(t, g.Papers, 2)
	assert.Equal(t, int64(p1.ID), g.Papers[0]["id"])
	assert.Equal(t, int64(2017), g.Papers[0]["year"])
	assert.Equal(t, "10.48550/arxiv.1706.03762", g.Papers[0]["doi"])
	assert.NotContains(t, g.Papers[1], "year")

	require.Len(t, g.Authors, 1)
	assert.Equal(t, "0000-0000-0000-0001", g.Authors[0]["orcid"])
	require.Len(t, g.Authored, 1)
	assert.Equal(t, int64(1), g.Authored[0]["position"])

	require.Len(t, g.UsesMeth, 1)
	assert.Equal(t, true, g.UsesMeth[0]["primary"])

	require.Len(t, g.Citations, 1)
	assert.Equal(t, map[string]any{"from": int64(p2.ID), "to": int64(p1.ID), "intent": "method"}, g.Citations[0])
}

func TestGraphSyncWithoutClient(t *testing.T) {
	s := newTestStore(t)
	g := NewGraphSync(s, nil, zap.NewNop())
	assert.NoError(t, g.Sync(context.Background()))
}

func TestGraphStatementsCoverPayload(t *testing.T) {
	names := make([]string, len(graphStatements))
	for i, st := range graphStatements {
		names[i] = st.name
		assert.Contains(t, st.cypher, "UNWIND $rows AS row")
	}
	// Knoten vor Kanten, damit MATCH die Knoten findet.
	assert.Equal(t, []string{"papers", "authors", "methods", "authored", "uses_method", "cites"}, names)
}

func TestGraphPrunesKeepOnlySnapshotEntries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p1 := &models.Paper{ArxivID: ptr("1706.03762"), Title: "Attention Is All You Need"}
	require.NoError(t, s.CreatePaperWithAuthors(ctx, p1, []AuthorRef{{Name: "Ashish Vaswani"}}))
	p2 := mustPaper(t, s, "1810.04805", "BERT")
	p3 := mustPaper(t, s, "2005.14165", "GPT-3")
	require.NoError(t, s.RecordCitation(ctx, &models.Citation{CitingPaperID: p2.ID, CitedPaperID: p1.ID}))
	require.NoError(t, s.RecordCitation(ctx, &models.Citation{CitingPaperID: p3.ID, CitedPaperID: p1.ID}))
	require.NoError(t, s.DeletePaper(ctx, p3.ID))

	snap, err := s.LoadGraphSnapshot(ctx)
	require.NoError(t, err)
	g := BuildGraphPayload(snap)

	keys := map[string][]any{}
	for _, pr := range graphPrunes {
		keys[pr.name] = pr.keys(g)
		assert.Contains(t, pr.cypher, "$keys")
		assert.Contains(t, pr.cypher, "DELETE")
	}
	assert.Equal(t, []any{int64(p1.ID), int64(p2.ID)}, keys["papers"])
	assert.Equal(t, []any{[]any{int64(p2.ID), int64(p1.ID)}}, keys["cites"])
	require.Len(t, keys["authored"], 1)
	assert.Empty(t, keys["methods"])
}
