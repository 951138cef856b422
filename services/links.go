package services

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"scholarlens/models"
)

// Association writes reject a repeated unique key with ErrConflict and never update.

// LinkPaperAuthor links an author to a paper.
func (s *Store) LinkPaperAuthor(ctx context.Context, l *models.PaperAuthor) error {
	if l.AuthorPosition != nil && *l.AuthorPosition < 1 {
		return s.reject("link_paper_author", invalid("author_position", "must be at least 1"))
	}
	l.ContributionRole = trimPtr(l.ContributionRole)

	l.ID = 0
	l.CreatedAt = s.now()

	err := s.tx(ctx, "link_paper_author", func(tx *gorm.DB) error {
		if err := requirePaper(tx, l.PaperID); err != nil {
			return err
		}
		if err := requireAuthor(tx, l.AuthorID); err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&models.PaperAuthor{}).
			Where("paper_id = ? AND author_id = ?", l.PaperID, l.AuthorID).Count(&n).Error; err != nil {
			return translateError(err, "paper author link")
		}
		if n > 0 {
			return conflictf("author %d is already linked to paper %d", l.AuthorID, l.PaperID)
		}
		return translateError(tx.Create(l).Error, "paper author link")
	})
	if err != nil {
		return err
	}
	s.Logger.Info("author linked", zap.Uint("paper_id", l.PaperID), zap.Uint("author_id", l.AuthorID))
	return nil
}

// LinkPaperMethod records that a paper uses a method. A zero mention count means 1.
func (s *Store) LinkPaperMethod(ctx context.Context, l *models.PaperMethod) error {
	if l.MentionCount < 0 {
		return s.reject("link_paper_method", invalid("mention_count", "must not be negative"))
	}
	if l.MentionCount == 0 {
		l.MentionCount = 1
	}
	l.Context = trimPtr(l.Context)

	l.ID = 0
	l.CreatedAt = s.now()

	err := s.tx(ctx, "link_paper_method", func(tx *gorm.DB) error {
		if err := requirePaper(tx, l.PaperID); err != nil {
			return err
		}
		if err := requireRow(tx, &models.Method{}, "method_id", l.MethodID, "method"); err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&models.PaperMethod{}).
			Where("paper_id = ? AND method_id = ?", l.PaperID, l.MethodID).Count(&n).Error; err != nil {
			return translateError(err, "paper method link")
		}
		if n > 0 {
			return conflictf("method %d is already linked to paper %d", l.MethodID, l.PaperID)
		}
		return translateError(tx.Create(l).Error, "paper method link")
	})
	if err != nil {
		return err
	}
	s.Logger.Info("method linked", zap.Uint("paper_id", l.PaperID), zap.Uint("method_id", l.MethodID))
	return nil
}

// LinkPaperDataset records a dataset usage. The key is (paper, dataset, usage type).
func (s *Store) LinkPaperDataset(ctx context.Context, l *models.PaperDataset) error {
	l.UsageType = trimSpace(l.UsageType)
	l.PerformanceMetric = trimPtr(l.PerformanceMetric)

	l.ID = 0
	l.CreatedAt = s.now()

	err := s.tx(ctx, "link_paper_dataset", func(tx *gorm.DB) error {
		if err := requirePaper(tx, l.PaperID); err != nil {
			return err
		}
		if err := requireRow(tx, &models.Dataset{}, "dataset_id", l.DatasetID, "dataset"); err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&models.PaperDataset{}).
			Where("paper_id = ? AND dataset_id = ? AND usage_type = ?", l.PaperID, l.DatasetID, l.UsageType).
			Count(&n).Error; err != nil {
			return translateError(err, "paper dataset link")
		}
		if n > 0 {
			return conflictf("dataset %d is already linked to paper %d as %q", l.DatasetID, l.PaperID, l.UsageType)
		}
		return translateError(tx.Create(l).Error, "paper dataset link")
	})
	if err != nil {
		return err
	}
	s.Logger.Info("dataset linked", zap.Uint("paper_id", l.PaperID), zap.Uint("dataset_id", l.DatasetID))
	return nil
}
