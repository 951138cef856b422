package services

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"scholarlens/models"
)

// RecordCitation stores the edge citing → cited and, in the same transaction,
// increments the cited paper's citation_count and sets last_cited_date to today.
func (s *Store) RecordCitation(ctx context.Context, c *models.Citation) error {
	if c.CitingPaperID == c.CitedPaperID {
		return s.reject("record_citation", invalid("cited_paper_id", "a paper cannot cite itself"))
	}
	c.Context = trimPtr(c.Context)
	c.CitationIntent = trimPtr(c.CitationIntent)

	c.ID = 0
	c.CreatedAt = s.now()

	err := s.tx(ctx, "record_citation", func(tx *gorm.DB) error {
		if err := requirePaper(tx, c.CitingPaperID); err != nil {
			return err
		}
		if err := requirePaper(tx, c.CitedPaperID); err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&models.Citation{}).
			Where("citing_paper_id = ? AND cited_paper_id = ?", c.CitingPaperID, c.CitedPaperID).
			Count(&n).Error; err != nil {
			return translateError(err, "citation")
		}
		if n > 0 {
			return conflictf("paper %d already cites paper %d", c.CitingPaperID, c.CitedPaperID)
		}
		if err := tx.Create(c).Error; err != nil {
			return translateError(err, "citation")
		}
		return s.bumpStatistics(tx, c.CitedPaperID, counterCitations)
	})
	if err != nil {
		return err
	}
	citationsRecorded.Inc()
	s.Logger.Info("citation recorded", zap.Uint("citing_paper_id", c.CitingPaperID), zap.Uint("cited_paper_id", c.CitedPaperID))
	return nil
}
