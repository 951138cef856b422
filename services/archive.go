package services

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"scholarlens/storage"
)

// ErrNoPDF means a resource was downloaded but contained no PDF.
var ErrNoPDF = errors.New("no pdf found")

// LinkResolver finds an open-access PDF link for a DOI. Empty means none.
type LinkResolver interface {
	GetPDFLink(ctx context.Context, doi string) (string, error)
}

// CustomTransport fügt jeder Anfrage einen User-Agent-Header hinzu.
type CustomTransport struct {
	Transport http.RoundTripper
}

func (t *CustomTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", "scholarlens/1.0 (+https://github.com/scholarlens)")
	return t.Transport.RoundTrip(req)
}

var downloadClient = &http.Client{
	Timeout:   60 * time.Second,
	Transport: &CustomTransport{Transport: http.DefaultTransport},
}

// PDFArchiver lädt Open-Access-PDFs herunter und legt sie im Objektspeicher ab.
type PDFArchiver struct {
	S3       storage.ObjectPutter
	Bucket   string
	BaseURL  string
	Resolver LinkResolver
	HTTP     *http.Client
	Logger   *zap.Logger
}

func NewPDFArchiver(s3 storage.ObjectPutter, baseURL, bucket string, resolver LinkResolver, logger *zap.Logger) *PDFArchiver {
	return &PDFArchiver{
		S3:       s3,
		Bucket:   bucket,
		BaseURL:  baseURL,
		Resolver: resolver,
		HTTP:     downloadClient,
		Logger:   logger.With(zap.String("component", "pdf_archiver")),
	}
}

// Archive stores the PDF of a paper under papers/<id>.pdf and returns its link.
// pdfURL is tried first; without it the resolver is asked for the DOI.
func (a *PDFArchiver) Archive(ctx context.Context, paperID uint, doi, pdfURL string) (string, error) {
	log := a.Logger.With(zap.Uint("paper_id", paperID), zap.String("doi", doi))

	if pdfURL == "" && doi != "" && a.Resolver != nil {
		link, err := a.Resolver.GetPDFLink(ctx, doi)
		if err != nil {
			log.Warn("Unpaywall-Fallback fehlgeschlagen", zap.Error(err))
		}
		pdfURL = link
	}
	if pdfURL == "" {
		return "", ErrNoPDF
	}

	log.Info("Starte Download", zap.String("url", pdfURL))
	data, err := a.download(ctx, pdfURL)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("papers/%d.pdf", paperID)
	link, err := storage.UploadFile(ctx, a.S3, a.BaseURL, a.Bucket, key, "application/pdf", data)
	if err != nil {
		return "", err
	}
	log.Info("PDF erfolgreich nach S3 hochgeladen", zap.String("link", link))
	return link, nil
}

// download holt eine direkte PDF oder die erste PDF aus einem tar.gz-Archiv.
func (a *PDFArchiver) download(ctx context.Context, link string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: bad status: %s", link, resp.Status)
	}

	lower := strings.ToLower(link)
	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if strings.Contains(contentType, "pdf") || strings.HasSuffix(lower, ".pdf") || strings.Contains(lower, "arxiv.org/pdf/") {
		return io.ReadAll(resp.Body)
	}

	if strings.HasSuffix(lower, ".tar.gz") || strings.HasSuffix(lower, ".tgz") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()

		tr := tar.NewReader(gz)
		for {
			header, err := tr.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, err
			}
			if header.Typeflag == tar.TypeReg && strings.HasSuffix(strings.ToLower(header.Name), ".pdf") {
				return io.ReadAll(tr)
			}
		}
	}

	a.Logger.Warn("Konnte Ressourcentyp nicht bestimmen oder keine PDF gefunden.", zap.String("content_type", contentType))
	return nil, ErrNoPDF
}
