package models

import (
	"gorm.io/datatypes"
)

// PaperOverview ist eine Zeile der Papers-Übersicht.
type PaperOverview struct {
	PaperID       uint   `json:"paper_id"`
	Title         string `json:"title"`
	AuthorCount   int64  `json:"author_count"`
	CitationCount int64  `json:"citation_count"`
	ViewCount     int64  `json:"view_count"`
}

// AuthorProductivity fasst die Publikationen eines Autors zusammen.
type AuthorProductivity struct {
	AuthorID          uint            `json:"author_id"`
	Name              string          `json:"name"`
	PaperCount        int             `json:"paper_count"`
	FirstPublication  *datatypes.Date `json:"first_publication,omitempty"`
	LatestPublication *datatypes.Date `json:"latest_publication,omitempty"`
}

// MethodPopularity zählt, in wie vielen Papers eine Methode vorkommt.
type MethodPopularity struct {
	MethodID   uint    `json:"method_id"`
	Name       string  `json:"name"`
	Category   *string `json:"category,omitempty"`
	UsageCount int64   `json:"usage_count"`
}
