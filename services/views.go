package services

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"gorm.io/datatypes"

	"scholarlens/models"
)

// Read models are computed on every call and never cached.

// PapersOverview reports per paper its distinct author count and its citation
// and view counters (0 without a statistics row), ordered by paper_id.
func (s *Store) PapersOverview(ctx context.Context) ([]models.PaperOverview, error) {
	rows := []models.PaperOverview{}
	err := s.DB.WithContext(ctx).Table("papers").
		Select(`papers.paper_id, papers.title,
COUNT(DISTINCT paper_authors.author_id) AS author_count,
COALESCE(MAX(paper_statistics.citation_count), 0) AS citation_count,
COALESCE(MAX(paper_statistics.view_count), 0) AS view_count`).
		Joins("LEFT JOIN paper_authors ON paper_authors.paper_id = papers.paper_id").
		Joins("LEFT JOIN paper_statistics ON paper_statistics.paper_id = papers.paper_id").
		Group("papers.paper_id, papers.title").
		Order("papers.paper_id").
		Scan(&rows).Error
	return rows, translateError(err, "papers overview")
}

// AuthorProductivity reports per author the number of linked papers and the
// earliest and latest publication date among them. Ordered by paper count
// desc, then name, then author_id.
func (s *Store) AuthorProductivity(ctx context.Context) ([]models.AuthorProductivity, error) {
	var rows []struct {
		AuthorID      uint
		Name          string
		PaperID       sql.NullInt64
		PublishedDate sql.NullTime
	}
	if err := s.DB.WithContext(ctx).Table("authors").
		Select("authors.author_id, authors.name, paper_authors.paper_id, papers.published_date").
		Joins("LEFT JOIN paper_authors ON paper_authors.author_id = authors.author_id").
		Joins("LEFT JOIN papers ON papers.paper_id = paper_authors.paper_id").
		Order("authors.author_id").
		Scan(&rows).Error; err != nil {
		return nil, translateError(err, "author productivity")
	}

	out := []models.AuthorProductivity{}
	index := map[uint]int{}
	for _, r := range rows {
		i, ok := index[r.AuthorID]
		if !ok {
			i = len(out)
			index[r.AuthorID] = i
			out = append(out, models.AuthorProductivity{AuthorID: r.AuthorID, Name: r.Name})
		}
		if !r.PaperID.Valid {
			continue
		}
		ap := &out[i]
		ap.PaperCount++
		if !r.PublishedDate.Valid {
			continue
		}
		d := dateOf(r.PublishedDate.Time)
		if ap.FirstPublication == nil || time.Time(d).Before(time.Time(*ap.FirstPublication)) {
			first := d
			ap.FirstPublication = &first
		}
		if ap.LatestPublication == nil || time.Time(d).After(time.Time(*ap.LatestPublication)) {
			latest := d
			ap.LatestPublication = &latest
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PaperCount != out[j].PaperCount {
			return out[i].PaperCount > out[j].PaperCount
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].AuthorID < out[j].AuthorID
	})
	return out, nil
}

// MethodPopularity counts the papers per method, ordered by usage desc then name.
func (s *Store) MethodPopularity(ctx context.Context) ([]models.MethodPopularity, error) {
	rows := []models.MethodPopularity{}
	err := s.DB.WithContext(ctx).Table("methods").
		Select("methods.method_id, methods.name, methods.category, COUNT(paper_methods.paper_id) AS usage_count").
		Joins("LEFT JOIN paper_methods ON paper_methods.method_id = methods.method_id").
		Group("methods.method_id, methods.name, methods.category").
		Order("usage_count DESC, methods.name ASC").
		Scan(&rows).Error
	return rows, translateError(err, "method popularity")
}

func dateOf(t time.Time) datatypes.Date {
	y, m, d := t.UTC().Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}
