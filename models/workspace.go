package models

import (
	"time"

	"gorm.io/datatypes"
)

// UserWorkspace ist eine benannte Paper-Sammlung eines Nutzers.
type UserWorkspace struct {
	ID        uint      `json:"workspace_id" gorm:"column:workspace_id;primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID        string  `json:"user_id" gorm:"size:100;not null;uniqueIndex:uq_user_workspaces_name"`
	WorkspaceName string  `json:"workspace_name" gorm:"size:255;not null;uniqueIndex:uq_user_workspaces_name"`
	Description   *string `json:"description,omitempty" gorm:"type:text"`
	IsPublic      bool    `json:"is_public"`
}

func (UserWorkspace) TableName() string { return "user_workspaces" }

// WorkspacePaper ist ein Paper in einem Workspace mit Notizen, Tags und Bewertung (1..5).
type WorkspacePaper struct {
	ID      uint      `json:"workspace_paper_id" gorm:"column:workspace_paper_id;primaryKey"`
	AddedAt time.Time `json:"added_at" gorm:"autoCreateTime"`

	WorkspaceID uint                        `json:"workspace_id" gorm:"not null;uniqueIndex:uq_workspace_papers_pair"`
	PaperID     uint                        `json:"paper_id" gorm:"not null;uniqueIndex:uq_workspace_papers_pair;index"`
	Notes       *string                     `json:"notes,omitempty" gorm:"type:text"`
	Tags        datatypes.JSONSlice[string] `json:"tags"`
	Rating      *int                        `json:"rating,omitempty" gorm:"check:chk_workspace_papers_rating,rating IS NULL OR (rating >= 1 AND rating <= 5)"`

	Workspace *UserWorkspace `json:"-" gorm:"foreignKey:WorkspaceID;references:ID;constraint:OnDelete:CASCADE"`
	Paper     *Paper         `json:"-" gorm:"foreignKey:PaperID;references:ID;constraint:OnDelete:CASCADE"`
}

func (WorkspacePaper) TableName() string { return "workspace_papers" }
