package models

import (
	"time"

	"gorm.io/datatypes"
)

// AffiliationRecord ist ein Eintrag der frei gepflegten Affiliations-Historie eines Autors.
type AffiliationRecord struct {
	Institution string `json:"institution"`
	Position    string `json:"position,omitempty"`
	StartYear   int    `json:"start_year,omitempty"`
	EndYear     int    `json:"end_year,omitempty"`
}

// Author ist eine Person mit optionaler ORCID. (name, orcid) ist eindeutig,
// Autoren ohne ORCID dürfen mehrfach denselben Namen tragen.
type Author struct {
	ID        uint      `json:"author_id" gorm:"column:author_id;primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name   string  `json:"name" gorm:"size:255;not null;uniqueIndex:uq_authors_name_orcid"`
	Email  *string `json:"email,omitempty" gorm:"size:255"`
	ORCID  *string `json:"orcid,omitempty" gorm:"column:orcid;size:50;uniqueIndex:uq_authors_name_orcid"`
	HIndex *int    `json:"h_index,omitempty" gorm:"column:h_index"`

	AffiliationHistory datatypes.JSONSlice[AffiliationRecord] `json:"affiliation_history"`
}

func (Author) TableName() string { return "authors" }
