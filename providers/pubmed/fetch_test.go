package pubmed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"scholarlens/config"
)

const efetchXML = `<?xml version="1.0"?>
<PubmedArticleSet>
 <PubmedArticle>
  <MedlineCitation>
   <PMID Version="1">31452104</PMID>
   <Article>
    <Journal><JournalIssue><PubDate><Year>2019</Year><Month>Aug</Month><Day>26</Day></PubDate></JournalIssue></Journal>
    <ArticleTitle>Deep learning for protein structure.</ArticleTitle>
    <ELocationID EIdType="doi" ValidYN="Y">10.1038/s41586-019-1923-7</ELocationID>
    <Abstract>
     <AbstractText Label="BACKGROUND">Proteins fold.</AbstractText>
     <AbstractText Label="RESULTS">We predict structures.</AbstractText>
    </Abstract>
    <AuthorList>
     <Author><LastName>Senior</LastName><ForeName>Andrew W</ForeName><Initials>AW</Initials>
      <Identifier Source="ORCID">https://orcid.org/0000-0002-1825-0097</Identifier></Author>
     <Author><CollectiveName>AlphaFold Team</CollectiveName></Author>
    </AuthorList>
   </Article>
   <MeshHeadingList>
    <MeshHeading><DescriptorName UI="D011487">Protein Folding</DescriptorName></MeshHeading>
   </MeshHeadingList>
  </MedlineCitation>
 </PubmedArticle>
</PubmedArticleSet>`

func TestSearch(t *testing.T) {
	var efetchIDs string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/esearch.fcgi"):
			assert.Equal(t, "protein folding", r.URL.Query().Get("term"))
			assert.Equal(t, "pubmed", r.URL.Query().Get("db"))
			assert.Equal(t, "secret", r.URL.Query().Get("api_key"))
			w.Write([]byte(`{"esearchresult":{"count":"1","idlist":["31452104"]}}`))
		case strings.HasSuffix(r.URL.Path, "/efetch.fcgi"):
			efetchIDs = r.URL.Query().Get("id")
			w.Write([]byte(efetchXML))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewFetcher(&config.Config{PubMedBaseURL: srv.URL, PubMedAPIKey: "secret"}, zap.NewNop())
	records, err := f.Search(context.Background(), "protein folding", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "31452104", efetchIDs)

	r := records[0]
	assert.Equal(t, "pubmed", r.Source)
	assert.Equal(t, "31452104", r.PubmedID)
	assert.Equal(t, "10.1038/s41586-019-1923-7", r.DOI)
	assert.Equal(t, "Deep learning for protein structure.", r.Title)
	assert.Equal(t, "BACKGROUND: Proteins fold.\nRESULTS: We predict structures.", r.Abstract)
	require.Len(t, r.Authors, 2)
	assert.Equal(t, "Andrew W Senior", r.Authors[0].Name)
	assert.Equal(t, "0000-0002-1825-0097", r.Authors[0].ORCID)
	assert.Equal(t, "AlphaFold Team", r.Authors[1].Name)
	assert.Equal(t, []string{"Protein Folding"}, r.Categories)
	require.NotNil(t, r.Published)
	assert.Equal(t, time.Date(2019, time.August, 26, 0, 0, 0, 0, time.UTC), *r.Published)
}

func TestSearchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := NewFetcher(&config.Config{PubMedBaseURL: srv.URL}, zap.NewNop())
	_, err := f.Search(context.Background(), "x", 5)
	assert.Error(t, err)
}

func TestParsePubDate(t *testing.T) {
	tests := []struct {
		year, month, day string
		want             string
	}{
		{"2020", "", "", "2020-01-01"},
		{"2020", "3", "", "2020-03-01"},
		{"2020", "Dec", "5", "2020-12-05"},
	}
	for _, tt := range tests {
		got := parsePubDate(tt.year, tt.month, tt.day)
		require.NotNil(t, got)
		assert.Equal(t, tt.want, got.Format("2006-01-02"))
	}
	assert.Nil(t, parsePubDate("", "Jan", "1"))
}
