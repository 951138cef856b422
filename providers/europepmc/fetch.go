package europepmc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"scholarlens/config"
	"scholarlens/providers"
)

const maxPageSize = 1000

var httpClient = &http.Client{Timeout: 60 * time.Second}

// Fetcher implementiert das Provider-Interface für Europe PMC.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
	HTTP   *http.Client
}

// NewFetcher erstellt einen neuen Europe PMC Fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger.With(zap.String("provider", "europepmc")), HTTP: httpClient}
}

// Name gibt den Namen des Providers zurück.
func (f *Fetcher) Name() string {
	return "europepmc"
}

// Search führt die Suche auf Europe PMC aus.
func (f *Fetcher) Search(ctx context.Context, term string, max int) ([]providers.Record, error) {
	if max > maxPageSize {
		max = maxPageSize
	}
	q := url.Values{
		"query":      {term},
		"format":     {"json"},
		"resultType": {"core"},
		"pageSize":   {fmt.Sprint(max)},
	}
	searchURL := f.Config.EuropePMCBaseURL + "?" + q.Encode()
	f.Logger.Debug("Rufe Europe PMC API auf", zap.String("url", searchURL))

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
		return nil, fmt.Errorf("europepmc search failed: status %d", resp.StatusCode)
	}

	var searchResponse SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResponse); err != nil {
		return nil, err
	}

	records := make([]providers.Record, 0, len(searchResponse.ResultList.Result))
	for i := range searchResponse.ResultList.Result {
		records = append(records, mapArticle(&searchResponse.ResultList.Result[i]))
	}

	f.Logger.Info("Suche auf Europe PMC abgeschlossen", zap.String("term", term), zap.Int("records", len(records)))
	return records, nil
}

// mapArticle konvertiert ein Europe PMC Article-Objekt in einen Record.
func mapArticle(article *Article) providers.Record {
	r := providers.Record{
		Source:     "europepmc",
		PubmedID:   article.PMID,
		DOI:        article.DOI,
		Title:      strings.TrimSpace(article.Title),
		Abstract:   strings.TrimSpace(article.AbstractText),
		Published:  parseEuroDate(article.FirstPublicationDate),
		Categories: article.KeywordList.Keyword,
	}
	for _, pt := range article.PubTypeList.PubType {
		if strings.EqualFold(pt, "preprint") {
			r.PrimaryCategory = "preprint"
			break
		}
	}

	for _, a := range article.AuthorList.Author {
		name := strings.TrimSpace(a.FullName)
		if a.FirstName != "" && a.LastName != "" {
			name = a.FirstName + " " + a.LastName
		}
		if name == "" {
			continue
		}
		author := providers.Author{Name: name}
		if strings.EqualFold(a.AuthorID.Type, "ORCID") {
			author.ORCID = a.AuthorID.Value
		}
		r.Authors = append(r.Authors, author)
	}
	if len(r.Authors) == 0 && article.AuthorString != "" {
		for _, name := range strings.Split(strings.TrimSuffix(article.AuthorString, "."), ", ") {
			if name = strings.TrimSpace(name); name != "" {
				r.Authors = append(r.Authors, providers.Author{Name: name})
			}
		}
	}

	// Finde den besten PDF-Link
	for _, u := range article.FullTextURLList.FullTextURL {
		if u.DocumentStyle == "pdf" && u.AvailabilityCode == "OA" {
			r.PDFURL = u.URL
			break
		}
	}
	return r
}
