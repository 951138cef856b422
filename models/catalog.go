package models

import (
	"time"

	"gorm.io/datatypes"
)

// Institution ist eine Forschungseinrichtung (Universität, Labor, Firma).
type Institution struct {
	ID        uint      `json:"institution_id" gorm:"column:institution_id;primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	Name            string  `json:"name" gorm:"size:255;not null;uniqueIndex"`
	Country         *string `json:"country,omitempty" gorm:"size:100"`
	City            *string `json:"city,omitempty" gorm:"size:100"`
	InstitutionType *string `json:"institution_type,omitempty" gorm:"size:50"`
	Website         *string `json:"website,omitempty" gorm:"type:text"`
}

func (Institution) TableName() string { return "institutions" }

// Method ist ein Verfahren oder Modell, das in Papers erwähnt wird.
type Method struct {
	ID        uint      `json:"method_id" gorm:"column:method_id;primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	Name        string                      `json:"name" gorm:"size:255;not null;uniqueIndex"`
	Description *string                     `json:"description,omitempty" gorm:"type:text"`
	Category    *string                     `json:"category,omitempty" gorm:"size:100;index"`
	Aliases     datatypes.JSONSlice[string] `json:"aliases"`
}

func (Method) TableName() string { return "methods" }

// Dataset ist ein Datensatz, der für Training oder Evaluation genutzt wird.
type Dataset struct {
	ID        uint      `json:"dataset_id" gorm:"column:dataset_id;primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	Name        string  `json:"name" gorm:"size:255;not null;uniqueIndex"`
	Description *string `json:"description,omitempty" gorm:"type:text"`
	Domain      *string `json:"domain,omitempty" gorm:"size:100"`
	URL         *string `json:"url,omitempty" gorm:"column:url;type:text"`
	SizeInfo    *string `json:"size_info,omitempty" gorm:"type:text"`
	License     *string `json:"license,omitempty" gorm:"size:100"`
}

func (Dataset) TableName() string { return "datasets" }
