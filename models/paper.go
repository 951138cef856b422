package models

import (
	"time"

	"gorm.io/datatypes"
)

// Paper repräsentiert eine wissenschaftliche Publikation und deren Metadaten.
// Mindestens eine externe Kennung (arXiv, PubMed, DOI) muss gesetzt sein.
type Paper struct {
	ID        uint      `json:"paper_id" gorm:"column:paper_id;primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Externe Kennungen; leere Werte werden als NULL gespeichert
	ArxivID  *string `json:"arxiv_id,omitempty" gorm:"column:arxiv_id;size:50;uniqueIndex"`
	PubmedID *string `json:"pubmed_id,omitempty" gorm:"column:pubmed_id;size:50;uniqueIndex"`
	DOI      *string `json:"doi,omitempty" gorm:"column:doi;size:255;index;check:chk_papers_identifier,arxiv_id IS NOT NULL OR pubmed_id IS NOT NULL OR doi IS NOT NULL"`

	Title    string  `json:"title" gorm:"type:text;not null"`
	Abstract *string `json:"abstract,omitempty" gorm:"type:text"`
	FullText *string `json:"full_text,omitempty" gorm:"type:text"`

	PublishedDate *datatypes.Date `json:"published_date,omitempty" gorm:"index"`
	UpdatedDate   *datatypes.Date `json:"updated_date,omitempty"`

	PrimaryCategory *string                     `json:"primary_category,omitempty" gorm:"size:100;index"`
	Categories      datatypes.JSONSlice[string] `json:"categories"`

	// Archiv & Textextraktion
	PDFPath        *string    `json:"pdf_path,omitempty" gorm:"column:pdf_path;type:text"`
	TextExtracted  bool       `json:"text_extracted"`
	ExtractionDate *time.Time `json:"extraction_date,omitempty"`
}

// TableName gibt explizit den Tabellennamen an.
func (Paper) TableName() string { return "papers" }

// Identifiers liefert die gesetzten externen Kennungen als "arxiv:…", "pubmed:…", "doi:…".
func (p Paper) Identifiers() []string {
	var ids []string
	if p.ArxivID != nil {
		ids = append(ids, "arxiv:"+*p.ArxivID)
	}
	if p.PubmedID != nil {
		ids = append(ids, "pubmed:"+*p.PubmedID)
	}
	if p.DOI != nil {
		ids = append(ids, "doi:"+*p.DOI)
	}
	return ids
}
