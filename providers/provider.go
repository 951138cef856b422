package providers

import (
	"context"
	"time"
)

// Author ist ein Autor, wie ihn ein Provider liefert.
type Author struct {
	Name  string
	ORCID string
}

// Record ist ein standardisiertes Suchergebnis eines Providers.
type Record struct {
	Source          string
	ArxivID         string
	PubmedID        string
	DOI             string
	Title           string
	Abstract        string
	Authors         []Author
	Published       *time.Time
	Updated         *time.Time
	PrimaryCategory string
	Categories      []string
	PDFURL          string
}

// Key liefert den De-Duplizierungsschlüssel (arXiv vor PubMed vor DOI).
func (r Record) Key() string {
	switch {
	case r.ArxivID != "":
		return "arxiv:" + r.ArxivID
	case r.PubmedID != "":
		return "pubmed:" + r.PubmedID
	case r.DOI != "":
		return "doi:" + r.DOI
	}
	return ""
}

// Provider ist das Interface, das jeder Such-Provider (z.B. arXiv, PubMed) implementieren muss.
type Provider interface {
	// Search führt eine Suche durch und liefert höchstens max Records.
	Search(ctx context.Context, query string, max int) ([]Record, error)

	// Name gibt den eindeutigen Namen des Providers zurück (z.B. "pubmed").
	Name() string
}
