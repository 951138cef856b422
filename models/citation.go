package models

import (
	"time"
)

// Citation modelliert eine gerichtete Kante: CitingPaper zitiert CitedPaper.
type Citation struct {
	ID        uint      `json:"citation_id" gorm:"column:citation_id;primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	CitingPaperID  uint    `json:"citing_paper_id" gorm:"not null;uniqueIndex:uq_citations_pair;index;check:chk_citations_no_self,citing_paper_id <> cited_paper_id"`
	CitedPaperID   uint    `json:"cited_paper_id" gorm:"not null;uniqueIndex:uq_citations_pair;index"`
	Context        *string `json:"context,omitempty" gorm:"type:text"`
	CitationIntent *string `json:"citation_intent,omitempty" gorm:"size:50"`

	CitingPaper *Paper `json:"-" gorm:"foreignKey:CitingPaperID;references:ID;constraint:OnDelete:CASCADE"`
	CitedPaper  *Paper `json:"-" gorm:"foreignKey:CitedPaperID;references:ID;constraint:OnDelete:CASCADE"`
}

func (Citation) TableName() string { return "citations" }
