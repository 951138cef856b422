package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"scholarlens/config"
	"scholarlens/providers"
)

var (
	httpClient = &http.Client{Timeout: 60 * time.Second}
	versionRE  = regexp.MustCompile(`v\d+$`)
)

// Fetcher implementiert das Provider-Interface für arXiv.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
	HTTP   *http.Client
}

// NewFetcher erstellt einen neuen arXiv-Fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger.With(zap.String("provider", "arxiv")), HTTP: httpClient}
}

// Name gibt den Namen des Providers zurück.
func (f *Fetcher) Name() string {
	return "arxiv"
}

// Search fragt die neuesten Einreichungen zu query ab. Ohne Feldpräfix wird "all:" gesucht.
func (f *Fetcher) Search(ctx context.Context, query string, max int) ([]providers.Record, error) {
	if !strings.Contains(query, ":") {
		query = "all:" + query
	}
	q := url.Values{
		"search_query": {query},
		"start":        {"0"},
		"max_results":  {fmt.Sprint(max)},
		"sortBy":       {"submittedDate"},
		"sortOrder":    {"descending"},
	}
	searchURL := f.Config.ArxivBaseURL + "?" + q.Encode()
	f.Logger.Debug("Rufe arXiv API auf", zap.String("url", searchURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv query failed: status %d", resp.StatusCode)
	}

	var feed Feed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decode arxiv feed: %w", err)
	}

	records := make([]providers.Record, 0, len(feed.Entries))
	for i := range feed.Entries {
		r := mapEntry(&feed.Entries[i])
		if r.ArxivID == "" {
			continue
		}
		records = append(records, r)
	}
	f.Logger.Info("arXiv-Suche abgeschlossen", zap.String("query", query), zap.Int("records", len(records)))
	return records, nil
}

// ParseID extrahiert die Kennung ohne Versionssuffix aus einer abs-URL.
func ParseID(entryID string) string {
	id := strings.TrimSpace(entryID)
	if i := strings.Index(id, "/abs/"); i >= 0 {
		id = id[i+len("/abs/"):]
	}
	return versionRE.ReplaceAllString(id, "")
}

func mapEntry(e *Entry) providers.Record {
	r := providers.Record{
		Source:          "arxiv",
		ArxivID:         ParseID(e.ID),
		DOI:             strings.TrimSpace(e.DOI),
		Title:           collapse(e.Title),
		Abstract:        collapse(e.Summary),
		Published:       parseTime(e.Published),
		Updated:         parseTime(e.Updated),
		PrimaryCategory: e.PrimaryCategory.Term,
	}
	for _, a := range e.Authors {
		if name := collapse(a.Name); name != "" {
			r.Authors = append(r.Authors, providers.Author{Name: name})
		}
	}
	for _, c := range e.Categories {
		if c.Term != "" {
			r.Categories = append(r.Categories, c.Term)
		}
	}
	for _, l := range e.Links {
		if l.Title == "pdf" || l.Type == "application/pdf" {
			r.PDFURL = strings.Replace(l.Href, "http://", "https://", 1)
			break
		}
	}
	return r
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func parseTime(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
