package unpaywall

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"scholarlens/config"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// Location ist ein Open-Access-Fundort eines Artikels.
type Location struct {
	URLForPDF string `json:"url_for_pdf"`
	HostType  string `json:"host_type"`
	Version   string `json:"version"`
}

// Response enthält die Felder der Unpaywall-Antwort, die wir auswerten.
type Response struct {
	DOI            string     `json:"doi"`
	IsOA           bool       `json:"is_oa"`
	BestOALocation *Location  `json:"best_oa_location"`
	OALocations    []Location `json:"oa_locations"`
}

// PDFLink liefert den besten PDF-Link: zuerst best_oa_location, danach die
// übrigen Fundorte in API-Reihenfolge.
func (r Response) PDFLink() string {
	if !r.IsOA {
		return ""
	}
	if r.BestOALocation != nil && r.BestOALocation.URLForPDF != "" {
		return r.BestOALocation.URLForPDF
	}
	for _, loc := range r.OALocations {
		if loc.URLForPDF != "" {
			return loc.URLForPDF
		}
	}
	return ""
}

// Resolver löst DOIs über die Unpaywall-API zu Open-Access-PDFs auf.
type Resolver struct {
	BaseURL string
	Email   string
	Logger  *zap.Logger
	HTTP    *http.Client
}

func NewResolver(cfg *config.Config, logger *zap.Logger) *Resolver {
	return &Resolver{
		BaseURL: cfg.UnpaywallBaseURL,
		Email:   cfg.UnpaywallEmail,
		Logger:  logger.With(zap.String("provider", "unpaywall")),
		HTTP:    httpClient,
	}
}

// GetPDFLink fragt Unpaywall nach der DOI. Ein leerer Link ohne Fehler
// bedeutet: kein Open-Access-PDF bekannt.
func (r *Resolver) GetPDFLink(ctx context.Context, doi string) (string, error) {
	if r.Email == "" {
		return "", fmt.Errorf("unpaywall email ist nicht konfiguriert")
	}

	u := fmt.Sprintf("%s/%s?email=%s", r.BaseURL, doi, url.QueryEscape(r.Email))
	log := r.Logger.With(zap.String("doi", doi))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	resp, err := r.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("unpaywall lookup %s: %w", doi, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		log.Debug("DOI bei Unpaywall unbekannt")
		return "", nil
	default:
		return "", fmt.Errorf("unpaywall lookup %s: status %d", doi, resp.StatusCode)
	}

	var ur Response
	if err := json.NewDecoder(resp.Body).Decode(&ur); err != nil {
		return "", fmt.Errorf("unpaywall lookup %s: decode: %w", doi, err)
	}

	link := ur.PDFLink()
	if link == "" {
		log.Debug("kein Open-Access-PDF", zap.Bool("is_oa", ur.IsOA))
		return "", nil
	}
	log.Info("PDF-Link über Unpaywall gefunden", zap.String("url", link))
	return link, nil
}
