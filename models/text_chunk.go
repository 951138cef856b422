package models

import (
	"time"
)

// TextChunk ist ein Abschnitt des normalisierten Volltexts. StartChar/EndChar
// sind Rune-Offsets (EndChar exklusiv), EmbeddingRef verweist in den externen Vektorindex.
type TextChunk struct {
	ID        uint      `json:"chunk_id" gorm:"column:chunk_id;primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	PaperID      uint    `json:"paper_id" gorm:"not null;uniqueIndex:uq_text_chunks_position"`
	ChunkIndex   int     `json:"chunk_index" gorm:"not null;uniqueIndex:uq_text_chunks_position"`
	ChunkText    string  `json:"chunk_text" gorm:"type:text;not null"`
	StartChar    *int    `json:"start_char,omitempty"`
	EndChar      *int    `json:"end_char,omitempty"`
	Section      *string `json:"section,omitempty" gorm:"size:100"`
	NumTokens    *int    `json:"num_tokens,omitempty"`
	EmbeddingRef *string `json:"embedding_ref,omitempty" gorm:"size:255"`

	Paper *Paper `json:"-" gorm:"foreignKey:PaperID;references:ID;constraint:OnDelete:CASCADE"`
}

func (TextChunk) TableName() string { return "text_chunks" }
