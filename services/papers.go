package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"scholarlens/models"
)

const abstractPreviewRunes = 500

// AuthorRef names an author by name and optional ORCID, resolved with FindOrCreateAuthor.
type AuthorRef struct {
	Name  string  `json:"name"`
	ORCID *string `json:"orcid,omitempty"`
}

// PaperUpdate carries the fields to change. Nil means unchanged; an empty
// identifier string clears that identifier.
type PaperUpdate struct {
	ArxivID         *string         `json:"arxiv_id"`
	PubmedID        *string         `json:"pubmed_id"`
	DOI             *string         `json:"doi"`
	Title           *string         `json:"title"`
	Abstract        *string         `json:"abstract"`
	FullText        *string         `json:"full_text"`
	PublishedDate   *datatypes.Date `json:"published_date"`
	UpdatedDate     *datatypes.Date `json:"updated_date"`
	PrimaryCategory *string         `json:"primary_category"`
	Categories      *[]string       `json:"categories"`
	PDFPath         *string         `json:"pdf_path"`
}

type PaperAuthorEntry struct {
	AuthorID         uint    `json:"author_id"`
	Name             string  `json:"name"`
	ORCID            *string `json:"orcid,omitempty" gorm:"column:orcid"`
	AuthorPosition   *int    `json:"author_position,omitempty"`
	IsCorresponding  bool    `json:"is_corresponding"`
	ContributionRole *string `json:"contribution_role,omitempty"`
}

type PaperMethodEntry struct {
	MethodID        uint    `json:"method_id"`
	Name            string  `json:"name"`
	Category        *string `json:"category,omitempty"`
	MentionCount    int     `json:"mention_count"`
	IsPrimaryMethod bool    `json:"is_primary_method"`
}

type PaperDatasetEntry struct {
	DatasetID         uint     `json:"dataset_id"`
	Name              string   `json:"name"`
	UsageType         string   `json:"usage_type,omitempty"`
	PerformanceMetric *string  `json:"performance_metric,omitempty"`
	PerformanceValue  *float64 `json:"performance_value,omitempty"`
}

// PaperDetail is a paper with its associations and statistics.
type PaperDetail struct {
	models.Paper
	Authors    []PaperAuthorEntry     `json:"authors"`
	Methods    []PaperMethodEntry     `json:"methods"`
	Datasets   []PaperDatasetEntry    `json:"datasets"`
	Statistics models.PaperStatistics `json:"statistics"`
}

// PaperFilter selects a page of papers. Zero Category/Year means no filter.
type PaperFilter struct {
	Page     int
	PageSize int
	Category string
	Year     int
}

type PaperSummary struct {
	PaperID         uint            `json:"paper_id"`
	ArxivID         *string         `json:"arxiv_id,omitempty"`
	PubmedID        *string         `json:"pubmed_id,omitempty"`
	DOI             *string         `json:"doi,omitempty"`
	Title           string          `json:"title"`
	Abstract        *string         `json:"abstract,omitempty"`
	Authors         []string        `json:"authors"`
	PublishedDate   *datatypes.Date `json:"published_date,omitempty"`
	PrimaryCategory *string         `json:"primary_category,omitempty"`
	CitationCount   int             `json:"citation_count"`
}

type PaperPage struct {
	Papers     []PaperSummary `json:"papers"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
}

// DatabaseStats holds row totals per entity.
type DatabaseStats struct {
	Papers       int64 `json:"papers"`
	Authors      int64 `json:"authors"`
	Institutions int64 `json:"institutions"`
	Methods      int64 `json:"methods"`
	Datasets     int64 `json:"datasets"`
	Citations    int64 `json:"citations"`
	TextChunks   int64 `json:"text_chunks"`
	Workspaces   int64 `json:"workspaces"`
}

func utcDate(d *datatypes.Date) *datatypes.Date {
	if d == nil {
		return nil
	}
	y, m, day := time.Time(*d).Date()
	out := datatypes.Date(time.Date(y, m, day, 0, 0, 0, 0, time.UTC))
	return &out
}

func nullable[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

func hasIdentifier(p *models.Paper) bool {
	return p.ArxivID != nil || p.PubmedID != nil || p.DOI != nil
}

// normalizePaper cleans identifiers and text fields and checks the paper invariants.
func normalizePaper(p *models.Paper) error {
	p.ArxivID = normalizeIDPtr(p.ArxivID, NormalizeArxivID)
	p.PubmedID = normalizeIDPtr(p.PubmedID, NormalizePubmedID)
	p.DOI = normalizeIDPtr(p.DOI, NormalizeDOI)
	if !hasIdentifier(p) {
		return invalid("identifier", "one of arxiv_id, pubmed_id or doi is required")
	}
	p.Title = trimSpace(p.Title)
	if p.Title == "" {
		return invalid("title", "required")
	}
	p.Abstract = trimPtr(p.Abstract)
	p.PrimaryCategory = trimPtr(p.PrimaryCategory)
	p.Categories = uniqueStrings(p.Categories)
	p.PublishedDate = utcDate(p.PublishedDate)
	p.UpdatedDate = utcDate(p.UpdatedDate)
	return nil
}

func createPaperTx(tx *gorm.DB, p *models.Paper) error {
	for _, col := range []struct {
		name  string
		value *string
	}{{"arxiv_id", p.ArxivID}, {"pubmed_id", p.PubmedID}} {
		if col.value == nil {
			continue
		}
		var n int64
		if err := tx.Model(&models.Paper{}).Where(col.name+" = ?", *col.value).Count(&n).Error; err != nil {
			return translateError(err, "paper")
		}
		if n > 0 {
			return conflictf("paper with %s %q already exists", col.name, *col.value)
		}
	}
	return translateError(tx.Create(p).Error, "paper")
}

// CreatePaper validates and inserts p. p.ID is set on success.
func (s *Store) CreatePaper(ctx context.Context, p *models.Paper) error {
	if err := normalizePaper(p); err != nil {
		return s.reject("create_paper", err)
	}
	p.ID = 0
	p.CreatedAt = s.now()
	p.UpdatedAt = p.CreatedAt

	err := s.tx(ctx, "create_paper", func(tx *gorm.DB) error {
		return createPaperTx(tx, p)
	})
	if err != nil {
		return err
	}
	s.Logger.Info("paper created", zap.Uint("paper_id", p.ID), zap.Strings("identifiers", p.Identifiers()))
	return nil
}

// CreatePaperWithAuthors inserts p and links the given authors in list order
// (position 1..n), creating missing authors, all in one transaction.
func (s *Store) CreatePaperWithAuthors(ctx context.Context, p *models.Paper, authors []AuthorRef) error {
	if err := normalizePaper(p); err != nil {
		return s.reject("create_paper", err)
	}
	refs := make([]AuthorRef, 0, len(authors))
	for _, a := range authors {
		a.Name = trimSpace(a.Name)
		a.ORCID = trimPtr(a.ORCID)
		if a.Name != "" {
			refs = append(refs, a)
		}
	}

	p.ID = 0
	p.CreatedAt = s.now()
	p.UpdatedAt = p.CreatedAt

	err := s.tx(ctx, "create_paper", func(tx *gorm.DB) error {
		if err := createPaperTx(tx, p); err != nil {
			return err
		}
		linked := make(map[uint]bool, len(refs))
		pos := 0
		for _, ref := range refs {
			author, err := findOrCreateAuthorTx(tx, ref.Name, ref.ORCID)
			if err != nil {
				return err
			}
			if linked[author.ID] {
				continue
			}
			linked[author.ID] = true
			pos++
			position := pos
			link := models.PaperAuthor{PaperID: p.ID, AuthorID: author.ID, AuthorPosition: &position}
			if err := tx.Create(&link).Error; err != nil {
				return translateError(err, "paper author link")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.Logger.Info("paper created", zap.Uint("paper_id", p.ID), zap.Strings("identifiers", p.Identifiers()), zap.Int("authors", len(refs)))
	return nil
}

// UpdatePaper applies u to paper id and stamps updated_at.
func (s *Store) UpdatePaper(ctx context.Context, id uint, u PaperUpdate) (*models.Paper, error) {
	var p models.Paper
	err := s.tx(ctx, "update_paper", func(tx *gorm.DB) error {
		if err := tx.First(&p, "paper_id = ?", id).Error; err != nil {
			return translateError(err, fmt.Sprintf("paper %d", id))
		}

		changes := map[string]any{}
		if u.ArxivID != nil {
			p.ArxivID = normalizeIDPtr(u.ArxivID, NormalizeArxivID)
			changes["arxiv_id"] = nullable(p.ArxivID)
		}
		if u.PubmedID != nil {
			p.PubmedID = normalizeIDPtr(u.PubmedID, NormalizePubmedID)
			changes["pubmed_id"] = nullable(p.PubmedID)
		}
		if u.DOI != nil {
			p.DOI = normalizeIDPtr(u.DOI, NormalizeDOI)
			changes["doi"] = nullable(p.DOI)
		}
		if !hasIdentifier(&p) {
			return invalid("identifier", "one of arxiv_id, pubmed_id or doi is required")
		}
		if u.Title != nil {
			title := trimSpace(*u.Title)
			if title == "" {
				return invalid("title", "required")
			}
			p.Title = title
			changes["title"] = title
		}
		if u.Abstract != nil {
			p.Abstract = trimPtr(u.Abstract)
			changes["abstract"] = nullable(p.Abstract)
		}
		if u.FullText != nil {
			p.FullText = strPtr(*u.FullText)
			changes["full_text"] = nullable(p.FullText)
		}
		if u.PublishedDate != nil {
			p.PublishedDate = utcDate(u.PublishedDate)
			changes["published_date"] = *p.PublishedDate
		}
		if u.UpdatedDate != nil {
			p.UpdatedDate = utcDate(u.UpdatedDate)
			changes["updated_date"] = *p.UpdatedDate
		}
		if u.PrimaryCategory != nil {
			p.PrimaryCategory = trimPtr(u.PrimaryCategory)
			changes["primary_category"] = nullable(p.PrimaryCategory)
		}
		if u.Categories != nil {
			p.Categories = uniqueStrings(*u.Categories)
			changes["categories"] = p.Categories
		}
		if u.PDFPath != nil {
			p.PDFPath = trimPtr(u.PDFPath)
			changes["pdf_path"] = nullable(p.PDFPath)
		}
		p.UpdatedAt = s.now()
		changes["updated_at"] = p.UpdatedAt

		res := tx.Model(&models.Paper{}).Where("paper_id = ?", id).Updates(changes)
		return translateError(res.Error, "paper")
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("paper updated", zap.Uint("paper_id", id))
	return &p, nil
}

// GetPaper loads a paper with authors (by position), methods, datasets and statistics.
func (s *Store) GetPaper(ctx context.Context, id uint) (*PaperDetail, error) {
	db := s.DB.WithContext(ctx)
	var d PaperDetail
	if err := db.First(&d.Paper, "paper_id = ?", id).Error; err != nil {
		return nil, translateError(err, fmt.Sprintf("paper %d", id))
	}

	d.Authors = []PaperAuthorEntry{}
	if err := db.Table("paper_authors").
		Select("authors.author_id, authors.name, authors.orcid, paper_authors.author_position, paper_authors.is_corresponding, paper_authors.contribution_role").
		Joins("JOIN authors ON authors.author_id = paper_authors.author_id").
		Where("paper_authors.paper_id = ?", id).
		Order("COALESCE(paper_authors.author_position, 2147483647), authors.author_id").
		Scan(&d.Authors).Error; err != nil {
		return nil, translateError(err, "paper authors")
	}

	d.Methods = []PaperMethodEntry{}
	if err := db.Table("paper_methods").
		Select("methods.method_id, methods.name, methods.category, paper_methods.mention_count, paper_methods.is_primary_method").
		Joins("JOIN methods ON methods.method_id = paper_methods.method_id").
		Where("paper_methods.paper_id = ?", id).
		Order("paper_methods.is_primary_method DESC, methods.name").
		Scan(&d.Methods).Error; err != nil {
		return nil, translateError(err, "paper methods")
	}

	d.Datasets = []PaperDatasetEntry{}
	if err := db.Table("paper_datasets").
		Select("datasets.dataset_id, datasets.name, paper_datasets.usage_type, paper_datasets.performance_metric, paper_datasets.performance_value").
		Joins("JOIN datasets ON datasets.dataset_id = paper_datasets.dataset_id").
		Where("paper_datasets.paper_id = ?", id).
		Order("datasets.name, paper_datasets.usage_type").
		Scan(&d.Datasets).Error; err != nil {
		return nil, translateError(err, "paper datasets")
	}

	stats, err := s.statisticsFor(db, id)
	if err != nil {
		return nil, err
	}
	d.Statistics = stats
	return &d, nil
}

// FindPaperByExternalID looks a paper up by kind ("arxiv", "pubmed", "doi") and value.
func (s *Store) FindPaperByExternalID(ctx context.Context, kind, value string) (*models.Paper, error) {
	column, norm, ok := externalIDColumn(kind)
	if !ok {
		return nil, invalid("kind", fmt.Sprintf("unknown identifier kind %q", kind))
	}
	value = norm(value)
	if value == "" {
		return nil, invalid(column, "empty")
	}
	var p models.Paper
	if err := s.DB.WithContext(ctx).Where(column+" = ?", value).First(&p).Error; err != nil {
		return nil, translateError(err, fmt.Sprintf("paper with %s %q", column, value))
	}
	return &p, nil
}

// ListPapers returns one page of papers, newest publication first.
func (s *Store) ListPapers(ctx context.Context, f PaperFilter) (*PaperPage, error) {
	maxSize := s.MaxPageSize
	if maxSize <= 0 {
		maxSize = defaultMaxPageSize
	}
	if f.Page < 1 {
		return nil, invalid("page", "must be at least 1")
	}
	if f.PageSize < 1 || f.PageSize > maxSize {
		return nil, invalid("page_size", fmt.Sprintf("must be between 1 and %d", maxSize))
	}

	db := s.DB.WithContext(ctx)
	filtered := func() *gorm.DB {
		q := db.Model(&models.Paper{})
		if f.Category != "" {
			q = q.Where("primary_category = ?", f.Category)
		}
		if f.Year > 0 {
			from := time.Date(f.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
			q = q.Where("published_date >= ? AND published_date < ?", from, from.AddDate(1, 0, 0))
		}
		return q
	}

	page := &PaperPage{Page: f.Page, PageSize: f.PageSize, Papers: []PaperSummary{}}
	if err := filtered().Count(&page.Total).Error; err != nil {
		return nil, translateError(err, "papers")
	}
	page.TotalPages = int(math.Ceil(float64(page.Total) / float64(f.PageSize)))

	var papers []models.Paper
	if err := filtered().Order("CASE WHEN published_date IS NULL THEN 1 ELSE 0 END, published_date DESC, paper_id DESC").
		Offset((f.Page - 1) * f.PageSize).Limit(f.PageSize).
		Find(&papers).Error; err != nil {
		return nil, translateError(err, "papers")
	}
	if len(papers) == 0 {
		return page, nil
	}

	ids := make([]uint, len(papers))
	for i, p := range papers {
		ids[i] = p.ID
	}
	names, err := authorNamesByPaper(db, ids)
	if err != nil {
		return nil, err
	}
	var counts []struct {
		PaperID       uint
		CitationCount int
	}
	if err := db.Model(&models.PaperStatistics{}).Select("paper_id, citation_count").
		Where("paper_id IN ?", ids).Scan(&counts).Error; err != nil {
		return nil, translateError(err, "paper statistics")
	}
	citations := make(map[uint]int, len(counts))
	for _, c := range counts {
		citations[c.PaperID] = c.CitationCount
	}

	for _, p := range papers {
		page.Papers = append(page.Papers, PaperSummary{
			PaperID:         p.ID,
			ArxivID:         p.ArxivID,
			PubmedID:        p.PubmedID,
			DOI:             p.DOI,
			Title:           p.Title,
			Abstract:        previewAbstract(p.Abstract),
			Authors:         append([]string{}, names[p.ID]...),
			PublishedDate:   p.PublishedDate,
			PrimaryCategory: p.PrimaryCategory,
			CitationCount:   citations[p.ID],
		})
	}
	return page, nil
}

func previewAbstract(a *string) *string {
	if a == nil {
		return nil
	}
	r := []rune(*a)
	if len(r) <= abstractPreviewRunes {
		return a
	}
	out := string(r[:abstractPreviewRunes]) + "..."
	return &out
}

// authorNamesByPaper returns author names per paper in author position order.
func authorNamesByPaper(db *gorm.DB, paperIDs []uint) (map[uint][]string, error) {
	var rows []struct {
		PaperID uint
		Name    string
	}
	if err := db.Table("paper_authors").
		Select("paper_authors.paper_id, authors.name").
		Joins("JOIN authors ON authors.author_id = paper_authors.author_id").
		Where("paper_authors.paper_id IN ?", paperIDs).
		Order("paper_authors.paper_id, COALESCE(paper_authors.author_position, 2147483647), authors.author_id").
		Scan(&rows).Error; err != nil {
		return nil, translateError(err, "paper authors")
	}
	out := make(map[uint][]string, len(paperIDs))
	for _, r := range rows {
		out[r.PaperID] = append(out[r.PaperID], r.Name)
	}
	return out, nil
}

// DeletePaper removes a paper and, by cascade, every row that references it.
// Statistics of papers it cited are decremented in the same transaction.
func (s *Store) DeletePaper(ctx context.Context, id uint) error {
	err := s.tx(ctx, "delete_paper", func(tx *gorm.DB) error {
		if err := requirePaper(tx, id); err != nil {
			return err
		}
		if err := tx.Exec(`UPDATE paper_statistics SET citation_count = citation_count - 1, updated_at = ?
WHERE citation_count > 0 AND paper_id IN (SELECT cited_paper_id FROM citations WHERE citing_paper_id = ?)`,
			s.now(), id).Error; err != nil {
			return translateError(err, "paper statistics")
		}
		return translateError(tx.Delete(&models.Paper{}, "paper_id = ?", id).Error, "paper")
	})
	if err != nil {
		return err
	}
	s.Logger.Info("paper deleted", zap.Uint("paper_id", id))
	return nil
}

// AuthorPapers lists the papers of an author, newest first.
func (s *Store) AuthorPapers(ctx context.Context, authorID uint) ([]models.Paper, error) {
	db := s.DB.WithContext(ctx)
	if err := requireAuthor(db, authorID); err != nil {
		return nil, err
	}
	papers := []models.Paper{}
	err := db.Joins("JOIN paper_authors ON paper_authors.paper_id = papers.paper_id").
		Where("paper_authors.author_id = ?", authorID).
		Order("CASE WHEN papers.published_date IS NULL THEN 1 ELSE 0 END, papers.published_date DESC, papers.paper_id").
		Find(&papers).Error
	return papers, translateError(err, "author papers")
}

// DatabaseStatistics counts the rows of the main entities.
func (s *Store) DatabaseStatistics(ctx context.Context) (*DatabaseStats, error) {
	db := s.DB.WithContext(ctx)
	var st DatabaseStats
	for _, c := range []struct {
		model any
		dst   *int64
	}{
		{&models.Paper{}, &st.Papers},
		{&models.Author{}, &st.Authors},
		{&models.Institution{}, &st.Institutions},
		{&models.Method{}, &st.Methods},
		{&models.Dataset{}, &st.Datasets},
		{&models.Citation{}, &st.Citations},
		{&models.TextChunk{}, &st.TextChunks},
		{&models.UserWorkspace{}, &st.Workspaces},
	} {
		if err := db.Model(c.model).Count(c.dst).Error; err != nil {
			return nil, translateError(err, "statistics")
		}
	}
	return &st, nil
}

// reject logs and counts a write refused before any SQL ran.
func (s *Store) reject(op string, err error) error {
	storeRejections.WithLabelValues(ErrorKind(err)).Inc()
	s.Logger.Warn("store write rejected", zap.String("op", op), zap.String("kind", ErrorKind(err)), zap.Error(err))
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
