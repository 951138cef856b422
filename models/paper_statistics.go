package models

import (
	"time"

	"gorm.io/datatypes"
)

// PaperStatistics hält abgeleitete Zähler je Paper. CitationCount entspricht
// der Anzahl eingehender Citation-Kanten.
type PaperStatistics struct {
	ID        uint      `json:"-" gorm:"column:stat_id;primaryKey"`
	UpdatedAt time.Time `json:"updated_at"`

	PaperID       uint            `json:"paper_id" gorm:"not null;uniqueIndex"`
	CitationCount int             `json:"citation_count" gorm:"not null"`
	ViewCount     int             `json:"view_count" gorm:"not null"`
	DownloadCount int             `json:"download_count" gorm:"not null"`
	LastCitedDate *datatypes.Date `json:"last_cited_date,omitempty"`

	Paper *Paper `json:"-" gorm:"foreignKey:PaperID;references:ID;constraint:OnDelete:CASCADE"`
}

func (PaperStatistics) TableName() string { return "paper_statistics" }
