package arxiv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"scholarlens/config"
)

const atomFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:opensearch="http://a9.com/-/spec/opensearch/1.1/" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <title>arXiv Query</title>
  <opensearch:totalResults>1</opensearch:totalResults>
  <entry>
    <id>http://arxiv.org/abs/1706.03762v7</id>
    <updated>2023-08-02T00:41:18Z</updated>
    <published>2017-06-12T17:57:34Z</published>
    <title>Attention Is All
      You Need</title>
    <summary>  The dominant sequence transduction models are based on
complex recurrent networks.</summary>
    <author><name>Ashish Vaswani</name></author>
    <author><name>Noam Shazeer</name></author>
    <arxiv:doi>10.48550/arXiv.1706.03762</arxiv:doi>
    <link href="http://arxiv.org/abs/1706.03762v7" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/1706.03762v7" rel="related" type="application/pdf"/>
    <arxiv:primary_category term="cs.CL" scheme="http://arxiv.org/schemas/atom"/>
    <category term="cs.CL" scheme="http://arxiv.org/schemas/atom"/>
    <category term="cs.LG" scheme="http://arxiv.org/schemas/atom"/>
  </entry>
</feed>`

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "all:transformer", r.URL.Query().Get("search_query"))
		assert.Equal(t, "3", r.URL.Query().Get("max_results"))
		w.Header().Set("Content-Type", "application/atom+xml")
		w.Write([]byte(atomFeed))
	}))
	defer srv.Close()

	f := NewFetcher(&config.Config{ArxivBaseURL: srv.URL}, zap.NewNop())
	records, err := f.Search(context.Background(), "transformer", 3)
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "arxiv", r.Source)
	assert.Equal(t, "1706.03762", r.ArxivID)
	assert.Equal(t, "Attention Is All You Need", r.Title)
	assert.Equal(t, "The dominant sequence transduction models are based on complex recurrent networks.", r.Abstract)
	assert.Equal(t, "10.48550/arXiv.1706.03762", r.DOI)
	assert.Equal(t, "cs.CL", r.PrimaryCategory)
	assert.Equal(t, []string{"cs.CL", "cs.LG"}, r.Categories)
	assert.Equal(t, "https://arxiv.org/pdf/1706.03762v7", r.PDFURL)
	require.Len(t, r.Authors, 2)
	assert.Equal(t, "Ashish Vaswani", r.Authors[0].Name)
	require.NotNil(t, r.Published)
	assert.Equal(t, "2017-06-12", r.Published.Format("2006-01-02"))
	assert.Equal(t, "arxiv:1706.03762", r.Key())
}

func TestSearchKeepsFieldPrefix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "cat:cs.CL", r.URL.Query().Get("search_query"))
		w.Write([]byte(`<feed xmlns="http://www.w3.org/2005/Atom"></feed>`))
	}))
	defer srv.Close()

	f := NewFetcher(&config.Config{ArxivBaseURL: srv.URL}, zap.NewNop())
	records, err := f.Search(context.Background(), "cat:cs.CL", 3)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseID(t *testing.T) {
	assert.Equal(t, "1706.03762", ParseID("http://arxiv.org/abs/1706.03762v5"))
	assert.Equal(t, "hep-th/9901001", ParseID("http://arxiv.org/abs/hep-th/9901001v2"))
	assert.Equal(t, "2401.00001", ParseID("2401.00001"))
}
