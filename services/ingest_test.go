package services

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"scholarlens/models"
	"scholarlens/providers"
)

type fakeProvider struct {
	name    string
	records []providers.Record
	err     error
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Search(ctx context.Context, query string, max int) ([]providers.Record, error) {
	return f.records, f.err
}

type fakePutter struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

type fakeResolver struct{ link string }

func (f fakeResolver) GetPDFLink(ctx context.Context, doi string) (string, error) {
	return f.link, nil
}

func TestIngestRunQuery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	existing := &models.Paper{PubmedID: ptr("31000001"), Title: "Already stored"}
	require.NoError(t, s.CreatePaper(ctx, existing))

	published := time.Date(2021, 1, 4, 18, 0, 0, 0, time.UTC)
	transformer := providers.Record{
		Source:     "arxiv",
		ArxivID:    "2101.00001",
		Title:      "A Transformer Study",
		Published:  &published,
		Authors:    []providers.Author{{Name: "Alice Example"}, {Name: "Bob Example", ORCID: "0000-0001-2345-6789"}},
		Categories: []string{"cs.CL"},
	}
	arxiv := &fakeProvider{name: "arxiv", records: []providers.Record{
		transformer,
		{Source: "arxiv", DOI: "10.1000/xyz", Title: "DOI only"},
		{Source: "arxiv", Title: "No identifiers"},
	}}
	pubmed := &fakeProvider{name: "pubmed", records: []providers.Record{
		transformer,
		{Source: "pubmed", PubmedID: "31000001", Title: "Already stored"},
	}}
	broken := &fakeProvider{name: "broken", err: errors.New("upstream down")}

	svc := NewIngestService(s, zap.NewNop(), []providers.Provider{arxiv, pubmed, broken}, []string{"transformer"}, 10, 2, nil)
	rep, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, IngestReport{Fetched: 5, Created: 2, Duplicates: 2, Failed: 1}, rep)

	p, err := s.FindPaperByExternalID(ctx, "arxiv", "2101.00001")
	require.NoError(t, err)
	assert.Equal(t, 2021, time.Time(*p.PublishedDate).Year())

	d, err := s.GetPaper(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, d.Authors, 2)
	assert.Equal(t, "Alice Example", d.Authors[0].Name)
	assert.Equal(t, "0000-0001-2345-6789", *d.Authors[1].ORCID)

	// Zweiter Lauf legt nichts neu an.
	rep, err = svc.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, rep.Created)
	assert.Equal(t, 4, rep.Duplicates)
}

func TestIngestArchivesPDF(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.7 body"))
	}))
	defer srv.Close()

	putter := &fakePutter{}
	archiver := NewPDFArchiver(putter, "https://s3.example.org", "papers", nil, zap.NewNop())
	prov := &fakeProvider{name: "europepmc", records: []providers.Record{
		{Source: "europepmc", PubmedID: "123", Title: "Open access", PDFURL: srv.URL + "/render"},
	}}

	svc := NewIngestService(s, zap.NewNop(), []providers.Provider{prov}, []string{"q"}, 10, 1, archiver)
	rep, err := svc.RunQuery(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Created)
	assert.Equal(t, 1, rep.Archived)

	p, err := s.FindPaperByExternalID(ctx, "pubmed", "123")
	require.NoError(t, err)
	key := fmt.Sprintf("papers/%d.pdf", p.ID)
	assert.Equal(t, "https://s3.example.org/papers/"+key, *p.PDFPath)
	assert.Equal(t, []byte("%PDF-1.7 body"), putter.objects[key])
}

func TestPDFArchiverFallbacks(t *testing.T) {
	ctx := context.Background()

	var tarball bytes.Buffer
	gz := gzip.NewWriter(&tarball)
	tw := tar.NewWriter(gz)
	pdf := []byte("%PDF-1.4 from tar")
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "paper/readme.txt", Mode: 0o644, Size: 2, Typeflag: tar.TypeReg}))
	_, err := tw.Write([]byte("hi"))
	require.NoError(t, err)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "paper/main.PDF", Mode: 0o644, Size: int64(len(pdf)), Typeflag: tar.TypeReg}))
	_, err = tw.Write(pdf)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bundle.tar.gz":
			w.Header().Set("Content-Type", "application/gzip")
			w.Write(tarball.Bytes())
		case "/page.html":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	putter := &fakePutter{}
	a := NewPDFArchiver(putter, "https://s3.example.org", "papers", fakeResolver{link: srv.URL + "/bundle.tar.gz"}, zap.NewNop())

	link, err := a.Archive(ctx, 5, "10.1/x", "")
	require.NoError(t, err)
	assert.Equal(t, "https://s3.example.org/papers/papers/5.pdf", link)
	assert.Equal(t, pdf, putter.objects["papers/5.pdf"])

	_, err = a.Archive(ctx, 6, "", srv.URL+"/page.html")
	assert.ErrorIs(t, err, ErrNoPDF)

	_, err = a.Archive(ctx, 7, "", srv.URL+"/missing.pdf")
	assert.Error(t, err)

	none := NewPDFArchiver(putter, "https://s3.example.org", "papers", fakeResolver{}, zap.NewNop())
	_, err = none.Archive(ctx, 8, "10.1/y", "")
	assert.ErrorIs(t, err, ErrNoPDF)
}
