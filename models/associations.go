package models

import (
	"time"

	"gorm.io/datatypes"
)

// PaperAuthor verknüpft Paper und Autor inklusive Autorenposition.
type PaperAuthor struct {
	ID        uint      `json:"paper_author_id" gorm:"column:paper_author_id;primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	PaperID          uint    `json:"paper_id" gorm:"not null;uniqueIndex:uq_paper_authors_pair;index"`
	AuthorID         uint    `json:"author_id" gorm:"not null;uniqueIndex:uq_paper_authors_pair;index"`
	AuthorPosition   *int    `json:"author_position,omitempty"`
	IsCorresponding  bool    `json:"is_corresponding"`
	ContributionRole *string `json:"contribution_role,omitempty" gorm:"size:100"`

	Paper  *Paper  `json:"-" gorm:"foreignKey:PaperID;references:ID;constraint:OnDelete:CASCADE"`
	Author *Author `json:"-" gorm:"foreignKey:AuthorID;references:ID;constraint:OnDelete:CASCADE"`
}

func (PaperAuthor) TableName() string { return "paper_authors" }

// AuthorInstitution ist eine datierte Zugehörigkeit eines Autors zu einer Einrichtung.
type AuthorInstitution struct {
	ID        uint      `json:"affiliation_id" gorm:"column:affiliation_id;primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	AuthorID      uint            `json:"author_id" gorm:"not null;index"`
	InstitutionID uint            `json:"institution_id" gorm:"not null;index"`
	StartDate     *datatypes.Date `json:"start_date,omitempty"`
	EndDate       *datatypes.Date `json:"end_date,omitempty" gorm:"check:chk_author_institutions_dates,end_date IS NULL OR start_date IS NULL OR end_date >= start_date"`
	Position      *string         `json:"position,omitempty" gorm:"size:100"`
	IsCurrent     bool            `json:"is_current"`

	Author      *Author      `json:"-" gorm:"foreignKey:AuthorID;references:ID;constraint:OnDelete:CASCADE"`
	Institution *Institution `json:"-" gorm:"foreignKey:InstitutionID;references:ID;constraint:OnDelete:CASCADE"`
}

func (AuthorInstitution) TableName() string { return "author_institutions" }

// PaperMethod verknüpft Paper und Methode. MentionCount ist mindestens 1.
type PaperMethod struct {
	ID        uint      `json:"paper_method_id" gorm:"column:paper_method_id;primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	PaperID         uint    `json:"paper_id" gorm:"not null;uniqueIndex:uq_paper_methods_pair;index"`
	MethodID        uint    `json:"method_id" gorm:"not null;uniqueIndex:uq_paper_methods_pair;index"`
	MentionCount    int     `json:"mention_count" gorm:"not null"`
	Context         *string `json:"context,omitempty" gorm:"type:text"`
	IsPrimaryMethod bool    `json:"is_primary_method"`

	Paper  *Paper  `json:"-" gorm:"foreignKey:PaperID;references:ID;constraint:OnDelete:CASCADE"`
	Method *Method `json:"-" gorm:"foreignKey:MethodID;references:ID;constraint:OnDelete:CASCADE"`
}

func (PaperMethod) TableName() string { return "paper_methods" }

// PaperDataset verknüpft Paper und Datensatz je Nutzungsart.
// Ein leerer UsageType steht für "nicht angegeben" und ist Teil des Schlüssels.
type PaperDataset struct {
	ID        uint      `json:"paper_dataset_id" gorm:"column:paper_dataset_id;primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	PaperID           uint     `json:"paper_id" gorm:"not null;uniqueIndex:uq_paper_datasets_usage;index"`
	DatasetID         uint     `json:"dataset_id" gorm:"not null;uniqueIndex:uq_paper_datasets_usage;index"`
	UsageType         string   `json:"usage_type,omitempty" gorm:"size:50;not null;default:'';uniqueIndex:uq_paper_datasets_usage"`
	PerformanceMetric *string  `json:"performance_metric,omitempty" gorm:"size:100"`
	PerformanceValue  *float64 `json:"performance_value,omitempty" gorm:"type:decimal(10,4)"`

	Paper   *Paper   `json:"-" gorm:"foreignKey:PaperID;references:ID;constraint:OnDelete:CASCADE"`
	Dataset *Dataset `json:"-" gorm:"foreignKey:DatasetID;references:ID;constraint:OnDelete:CASCADE"`
}

func (PaperDataset) TableName() string { return "paper_datasets" }
