package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"scholarlens/models"
)

const maxReferenceAuthors = 6

// Reference is one numbered entry of a paper's reference list.
type Reference struct {
	Number   int      `json:"number"`
	PaperID  uint     `json:"paper_id"`
	Title    string   `json:"title"`
	Year     int      `json:"year,omitempty"`
	Authors  []string `json:"authors"`
	ArxivID  string   `json:"arxiv_id,omitempty"`
	PubmedID string   `json:"pubmed_id,omitempty"`
	DOI      string   `json:"doi,omitempty"`
	Intent   string   `json:"citation_intent,omitempty"`
	Text     string   `json:"text"`
}

// References lists the papers cited by paperID in citation order, numbered from 1.
func (s *Store) References(ctx context.Context, paperID uint) ([]Reference, error) {
	db := s.DB.WithContext(ctx)
	if err := requirePaper(db, paperID); err != nil {
		return nil, err
	}

	var cited []struct {
		models.Paper
		CitationIntent *string
	}
	if err := db.Table("citations").
		Select("papers.*, citations.citation_intent").
		Joins("JOIN papers ON papers.paper_id = citations.cited_paper_id").
		Where("citations.citing_paper_id = ?", paperID).
		Order("citations.citation_id").
		Scan(&cited).Error; err != nil {
		return nil, translateError(err, "references")
	}

	refs := []Reference{}
	if len(cited) == 0 {
		return refs, nil
	}
	ids := make([]uint, len(cited))
	for i, c := range cited {
		ids[i] = c.ID
	}
	names, err := authorNamesByPaper(db, ids)
	if err != nil {
		return nil, err
	}

	for i, c := range cited {
		r := Reference{
			Number:  i + 1,
			PaperID: c.ID,
			Title:   c.Title,
			Authors: append([]string{}, names[c.ID]...),
		}
		if c.PublishedDate != nil {
			r.Year = time.Time(*c.PublishedDate).Year()
		}
		if c.ArxivID != nil {
			r.ArxivID = *c.ArxivID
		}
		if c.PubmedID != nil {
			r.PubmedID = *c.PubmedID
		}
		if c.DOI != nil {
			r.DOI = *c.DOI
		}
		if c.CitationIntent != nil {
			r.Intent = *c.CitationIntent
		}
		r.Text = FormatReference(r)
		refs = append(refs, r)
	}
	return refs, nil
}

// FormatReference renders a reference as "Authors (year). Title. ids".
func FormatReference(r Reference) string {
	authors := r.Authors
	etAl := false
	if len(authors) > maxReferenceAuthors {
		authors = authors[:maxReferenceAuthors]
		etAl = true
	}
	names := strings.Join(authors, ", ")
	if names == "" {
		names = "Unknown Authors"
	} else if etAl {
		names += ", et al."
	}
	year := "n.d."
	if r.Year > 0 {
		year = fmt.Sprintf("%d", r.Year)
	}
	title := r.Title
	if title == "" {
		title = "Untitled"
	}

	var tail []string
	if r.ArxivID != "" {
		tail = append(tail, "arxiv:"+r.ArxivID)
	}
	if r.PubmedID != "" {
		tail = append(tail, "pmid:"+r.PubmedID)
	}
	if r.DOI != "" {
		tail = append(tail, "doi:"+r.DOI)
	}
	tailStr := strings.Join(tail, " ")
	if tailStr != "" {
		tailStr = " " + tailStr
	}
	return fmt.Sprintf("%s (%s). %s.%s", names, year, title, tailStr)
}

// FormatBibliography prefixes each reference with its number, e.g. "[1] …".
func FormatBibliography(refs []Reference) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, fmt.Sprintf("[%d] %s", r.Number, FormatReference(r)))
	}
	return out
}
