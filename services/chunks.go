package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"scholarlens/models"
)

func validateChunks(chunks []models.TextChunk) error {
	seen := make(map[int]bool, len(chunks))
	for _, c := range chunks {
		if c.ChunkIndex < 0 {
			return invalid("chunk_index", "must not be negative")
		}
		if seen[c.ChunkIndex] {
			return invalid("chunk_index", fmt.Sprintf("duplicate index %d", c.ChunkIndex))
		}
		seen[c.ChunkIndex] = true
		if trimSpace(c.ChunkText) == "" {
			return invalid("chunk_text", "required")
		}
		if c.StartChar != nil && c.EndChar != nil && *c.EndChar < *c.StartChar {
			return invalid("end_char", "before start_char")
		}
	}
	return nil
}

// ReplaceChunks swaps all chunks of a paper and marks its text as extracted.
func (s *Store) ReplaceChunks(ctx context.Context, paperID uint, chunks []models.TextChunk) error {
	if err := validateChunks(chunks); err != nil {
		return s.reject("replace_chunks", err)
	}
	for i := range chunks {
		chunks[i].ID = 0
		chunks[i].PaperID = paperID
	}

	err := s.tx(ctx, "replace_chunks", func(tx *gorm.DB) error {
		if err := requirePaper(tx, paperID); err != nil {
			return err
		}
		if err := tx.Where("paper_id = ?", paperID).Delete(&models.TextChunk{}).Error; err != nil {
			return translateError(err, "text chunks")
		}
		if len(chunks) > 0 {
			if err := tx.CreateInBatches(chunks, 200).Error; err != nil {
				return translateError(err, "text chunks")
			}
		}
		now := s.now()
		return translateError(tx.Model(&models.Paper{}).Where("paper_id = ?", paperID).
			Updates(map[string]any{"text_extracted": true, "extraction_date": now, "updated_at": now}).Error, "paper")
	})
	if err != nil {
		return err
	}
	s.Logger.Info("chunks replaced", zap.Uint("paper_id", paperID), zap.Int("chunks", len(chunks)))
	return nil
}

// ChunkPaper splits the paper's full text with c and stores the result.
func (s *Store) ChunkPaper(ctx context.Context, paperID uint, c *Chunker) ([]models.TextChunk, error) {
	var p models.Paper
	if err := s.DB.WithContext(ctx).Select("paper_id, full_text").First(&p, "paper_id = ?", paperID).Error; err != nil {
		return nil, translateError(err, fmt.Sprintf("paper %d", paperID))
	}
	if p.FullText == nil || trimSpace(*p.FullText) == "" {
		return nil, s.reject("chunk_paper", invalid("full_text", "paper has no full text"))
	}
	chunks := c.Split(*p.FullText)
	if err := s.ReplaceChunks(ctx, paperID, chunks); err != nil {
		return nil, err
	}
	return chunks, nil
}

// ListChunks returns a paper's chunks by index.
func (s *Store) ListChunks(ctx context.Context, paperID uint) ([]models.TextChunk, error) {
	db := s.DB.WithContext(ctx)
	if err := requirePaper(db, paperID); err != nil {
		return nil, err
	}
	out := []models.TextChunk{}
	err := db.Where("paper_id = ?", paperID).Order("chunk_index").Find(&out).Error
	return out, translateError(err, "text chunks")
}

// SetEmbeddingRef stores the vector index reference of a chunk.
func (s *Store) SetEmbeddingRef(ctx context.Context, chunkID uint, ref string) error {
	ref = trimSpace(ref)
	if ref == "" {
		return s.reject("set_embedding_ref", invalid("embedding_ref", "required"))
	}
	return s.tx(ctx, "set_embedding_ref", func(tx *gorm.DB) error {
		res := tx.Model(&models.TextChunk{}).Where("chunk_id = ?", chunkID).Update("embedding_ref", ref)
		if res.Error != nil {
			return translateError(res.Error, "text chunk")
		}
		if res.RowsAffected == 0 {
			return notFoundf("text chunk %d", chunkID)
		}
		return nil
	})
}
