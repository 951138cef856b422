package pubmed

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"scholarlens/config"
	"scholarlens/providers"
)

const (
	pageSize  = 100
	batchSize = 100
)

var httpClient = &http.Client{Timeout: 60 * time.Second}

// Fetcher ist eine Struktur, die die Logik zur Interaktion mit PubMed kapselt.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
	HTTP   *http.Client
}

// NewFetcher erstellt eine neue Instanz des PubMed-Fetchers.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger.With(zap.String("provider", "pubmed")), HTTP: httpClient}
}

// Name gibt den Namen des Providers zurück.
func (f *Fetcher) Name() string {
	return "pubmed"
}

// Search holt per ESearch bis zu max PMIDs und lädt deren Metadaten per EFetch in Batches.
func (f *Fetcher) Search(ctx context.Context, term string, max int) ([]providers.Record, error) {
	ids, err := f.searchIDs(ctx, term, max)
	if err != nil {
		return nil, fmt.Errorf("pubmed esearch: %w", err)
	}

	var records []providers.Record
	for start := 0; start < len(ids); start += batchSize {
		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		set, err := f.fetchArticles(ctx, ids[start:end])
		if err != nil {
			return records, fmt.Errorf("pubmed efetch: %w", err)
		}
		for i := range set.PubmedArticle {
			records = append(records, mapArticle(&set.PubmedArticle[i]))
		}
	}
	f.Logger.Info("PubMed-Suche abgeschlossen", zap.String("term", term), zap.Int("records", len(records)))
	return records, nil
}

// searchIDs führt seitenweise ESearch-Abfragen durch, bis max IDs gesammelt sind.
func (f *Fetcher) searchIDs(ctx context.Context, term string, max int) ([]string, error) {
	var all []string
	for offset := 0; len(all) < max; offset += pageSize {
		retmax := pageSize
		if rest := max - len(all); rest < retmax {
			retmax = rest
		}
		body, err := f.get(ctx, f.buildURL("esearch.fcgi", url.Values{
			"term":     {term},
			"retmode":  {"json"},
			"retmax":   {fmt.Sprint(retmax)},
			"retstart": {fmt.Sprint(offset)},
		}))
		if err != nil {
			return nil, err
		}
		var resp ESearchResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decode esearch response: %w", err)
		}
		ids := resp.ESearchResult.IdList
		all = append(all, ids...)
		f.Logger.Debug("ESearch-Seite erhalten", zap.Int("count", len(ids)), zap.Int("offset", offset))
		if len(ids) < retmax {
			break
		}
	}
	return all, nil
}

func (f *Fetcher) fetchArticles(ctx context.Context, ids []string) (*PubmedArticleSet, error) {
	body, err := f.get(ctx, f.buildURL("efetch.fcgi", url.Values{
		"id":      {strings.Join(ids, ",")},
		"retmode": {"xml"},
	}))
	if err != nil {
		return nil, err
	}
	var set PubmedArticleSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("decode efetch response: %w", err)
	}
	return &set, nil
}

func (f *Fetcher) buildURL(endpoint string, q url.Values) string {
	q.Set("db", "pubmed")
	if f.Config.PubMedAPIKey != "" {
		q.Set("api_key", f.Config.PubMedAPIKey)
	}
	if f.Config.PubMedTool != "" {
		q.Set("tool", f.Config.PubMedTool)
	}
	if f.Config.PubMedEmail != "" {
		q.Set("email", f.Config.PubMedEmail)
	}
	return fmt.Sprintf("%s/%s?%s", strings.TrimRight(f.Config.PubMedBaseURL, "/"), endpoint, q.Encode())
}

func (f *Fetcher) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		f.Logger.Error("E-Utilities hat nicht-200-Status zurückgegeben",
			zap.Int("status", resp.StatusCode), zap.String("body", string(body)))
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return body, nil
}

// mapArticle wandelt ein XML-Article-Objekt in einen Record um.
func mapArticle(article *PubmedArticle) providers.Record {
	mc := &article.MedlineCitation
	r := providers.Record{
		Source:     "pubmed",
		PubmedID:   strings.TrimSpace(mc.PMID),
		Title:      strings.TrimSpace(mc.Article.Title),
		Categories: mc.MeshHeadings,
	}

	var parts []string
	for _, t := range mc.Article.Abstract.Text {
		text := strings.TrimSpace(t.Value)
		if text == "" {
			continue
		}
		if t.Label != "" {
			text = t.Label + ": " + text
		}
		parts = append(parts, text)
	}
	r.Abstract = strings.Join(parts, "\n")

	for _, a := range mc.Article.Authors {
		if author, ok := mapAuthor(a); ok {
			r.Authors = append(r.Authors, author)
		}
	}

	for _, id := range mc.Article.ELocationID {
		if id.IDType == "doi" && id.ValidYN != "N" {
			r.DOI = strings.TrimSpace(id.Value)
			break
		}
	}
	if r.DOI == "" {
		for _, id := range article.PubmedData.ArticleIDs {
			if id.IDType == "doi" {
				r.DOI = strings.TrimSpace(id.Value)
				break
			}
		}
	}

	r.Published = parsePubDate(mc.Article.Journal.PubDate.Year, mc.Article.Journal.PubDate.Month, mc.Article.Journal.PubDate.Day)
	return r
}

func mapAuthor(a PubmedAuthor) (providers.Author, bool) {
	var author providers.Author
	switch {
	case a.LastName != "" && a.ForeName != "":
		author.Name = a.ForeName + " " + a.LastName
	case a.LastName != "" && a.Initials != "":
		author.Name = a.Initials + " " + a.LastName
	case a.LastName != "":
		author.Name = a.LastName
	case a.CollectiveName != "":
		author.Name = a.CollectiveName
	default:
		return author, false
	}
	for _, id := range a.Identifier {
		if strings.EqualFold(id.Source, "ORCID") {
			author.ORCID = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(id.Value), "https://orcid.org/"), "http://orcid.org/")
		}
	}
	return author, true
}

// parsePubDate akzeptiert Monate als "Jan" oder "1"; fehlende Teile werden zu 01.
func parsePubDate(year, month, day string) *time.Time {
	if year == "" {
		return nil
	}
	m := time.January
	if month != "" {
		if t, err := time.Parse("Jan", month); err == nil {
			m = t.Month()
		} else if t, err := time.Parse("1", month); err == nil {
			m = t.Month()
		}
	}
	d := 1
	if day != "" {
		fmt.Sscanf(day, "%d", &d)
	}
	y := 0
	if _, err := fmt.Sscanf(year, "%d", &y); err != nil || y == 0 {
		return nil
	}
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}
