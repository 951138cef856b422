package services

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"scholarlens/models"
)

type counter int

const (
	counterCitations counter = iota
	counterViews
	counterDownloads
)

// bumpStatistics increments one counter of paperID's statistics row with a
// single INSERT … ON CONFLICT (paper_id) DO UPDATE, creating the row at 1.
func (s *Store) bumpStatistics(tx *gorm.DB, paperID uint, c counter) error {
	now := s.now()
	row := models.PaperStatistics{PaperID: paperID, UpdatedAt: now}
	set := map[string]any{"updated_at": now}

	switch c {
	case counterCitations:
		today := s.today()
		row.CitationCount = 1
		row.LastCitedDate = &today
		set["citation_count"] = gorm.Expr("paper_statistics.citation_count + ?", 1)
		set["last_cited_date"] = today
	case counterViews:
		row.ViewCount = 1
		set["view_count"] = gorm.Expr("paper_statistics.view_count + ?", 1)
	case counterDownloads:
		row.DownloadCount = 1
		set["download_count"] = gorm.Expr("paper_statistics.download_count + ?", 1)
	}

	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "paper_id"}},
		DoUpdates: clause.Assignments(set),
	}).Create(&row).Error
	return translateError(err, "paper statistics")
}

func (s *Store) recordCounter(ctx context.Context, op string, paperID uint, c counter) error {
	err := s.tx(ctx, op, func(tx *gorm.DB) error {
		if err := requirePaper(tx, paperID); err != nil {
			return err
		}
		return s.bumpStatistics(tx, paperID, c)
	})
	if err != nil {
		return err
	}
	s.Logger.Debug("statistics counter bumped", zap.String("op", op), zap.Uint("paper_id", paperID))
	return nil
}

// RecordView counts one view of a paper.
func (s *Store) RecordView(ctx context.Context, paperID uint) error {
	return s.recordCounter(ctx, "record_view", paperID, counterViews)
}

// RecordDownload counts one download of a paper.
func (s *Store) RecordDownload(ctx context.Context, paperID uint) error {
	return s.recordCounter(ctx, "record_download", paperID, counterDownloads)
}

func (s *Store) statisticsFor(db *gorm.DB, paperID uint) (models.PaperStatistics, error) {
	var st models.PaperStatistics
	err := db.Where("paper_id = ?", paperID).First(&st).Error
	if isNotFound(err) {
		return models.PaperStatistics{PaperID: paperID}, nil
	}
	return st, translateError(err, "paper statistics")
}

// GetStatistics returns a paper's counters; all zero when nothing was recorded yet.
func (s *Store) GetStatistics(ctx context.Context, paperID uint) (models.PaperStatistics, error) {
	db := s.DB.WithContext(ctx)
	if err := requirePaper(db, paperID); err != nil {
		return models.PaperStatistics{}, err
	}
	return s.statisticsFor(db, paperID)
}

// ReconcileCitationCounts recomputes citation_count from the citation edges and
// corrects rows that drifted. It returns the number of corrected papers.
func (s *Store) ReconcileCitationCounts(ctx context.Context) (int, error) {
	fixed := 0
	err := s.tx(ctx, "reconcile_citations", func(tx *gorm.DB) error {
		var edges []struct {
			CitedPaperID uint
			N            int
		}
		if err := tx.Model(&models.Citation{}).Select("cited_paper_id, COUNT(*) AS n").
			Group("cited_paper_id").Scan(&edges).Error; err != nil {
			return translateError(err, "citations")
		}
		want := make(map[uint]int, len(edges))
		for _, e := range edges {
			want[e.CitedPaperID] = e.N
		}

		var rows []models.PaperStatistics
		if err := tx.Find(&rows).Error; err != nil {
			return translateError(err, "paper statistics")
		}
		have := make(map[uint]int, len(rows))
		for _, r := range rows {
			have[r.PaperID] = r.CitationCount
		}

		now := s.now()
		for _, r := range rows {
			if w := want[r.PaperID]; w != r.CitationCount {
				if err := tx.Model(&models.PaperStatistics{}).Where("paper_id = ?", r.PaperID).
					Updates(map[string]any{"citation_count": w, "updated_at": now}).Error; err != nil {
					return translateError(err, "paper statistics")
				}
				fixed++
			}
		}
		for paperID, w := range want {
			if _, ok := have[paperID]; ok {
				continue
			}
			row := models.PaperStatistics{PaperID: paperID, CitationCount: w, UpdatedAt: now}
			if err := tx.Create(&row).Error; err != nil {
				return translateError(err, "paper statistics")
			}
			fixed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.Logger.Info("citation counts reconciled", zap.Int("corrected", fixed))
	return fixed, nil
}
