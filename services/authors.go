package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"scholarlens/models"
)

// AuthorUpdate carries the author fields to change. Nil means unchanged.
type AuthorUpdate struct {
	Name               *string                     `json:"name"`
	Email              *string                     `json:"email"`
	ORCID              *string                     `json:"orcid"`
	HIndex             *int                        `json:"h_index"`
	AffiliationHistory *[]models.AffiliationRecord `json:"affiliation_history"`
}

func normalizeHistory(in []models.AffiliationRecord) ([]models.AffiliationRecord, error) {
	out := make([]models.AffiliationRecord, 0, len(in))
	for _, r := range in {
		r.Institution = trimSpace(r.Institution)
		r.Position = trimSpace(r.Position)
		if r.Institution == "" {
			return nil, invalid("affiliation_history", "institution is required")
		}
		if r.StartYear > 0 && r.EndYear > 0 && r.EndYear < r.StartYear {
			return nil, invalid("affiliation_history", "end_year before start_year")
		}
		out = append(out, r)
	}
	return out, nil
}

func normalizeAuthor(a *models.Author) error {
	a.Name = trimSpace(a.Name)
	if a.Name == "" {
		return invalid("name", "required")
	}
	a.Email = trimPtr(a.Email)
	a.ORCID = trimPtr(a.ORCID)
	if a.HIndex != nil && *a.HIndex < 0 {
		return invalid("h_index", "must not be negative")
	}
	history, err := normalizeHistory(a.AffiliationHistory)
	if err != nil {
		return err
	}
	a.AffiliationHistory = history
	return nil
}

func checkAuthorUnique(tx *gorm.DB, name string, orcid *string, exceptID uint) error {
	if orcid == nil {
		return nil
	}
	var n int64
	q := tx.Model(&models.Author{}).Where("name = ? AND orcid = ?", name, *orcid)
	if exceptID != 0 {
		q = q.Where("author_id <> ?", exceptID)
	}
	if err := q.Count(&n).Error; err != nil {
		return translateError(err, "author")
	}
	if n > 0 {
		return conflictf("author %q with orcid %s already exists", name, *orcid)
	}
	return nil
}

// CreateAuthor inserts a. Authors without ORCID never conflict.
func (s *Store) CreateAuthor(ctx context.Context, a *models.Author) error {
	if err := normalizeAuthor(a); err != nil {
		return s.reject("create_author", err)
	}
	a.ID = 0
	a.CreatedAt = s.now()
	a.UpdatedAt = a.CreatedAt

	err := s.tx(ctx, "create_author", func(tx *gorm.DB) error {
		if err := checkAuthorUnique(tx, a.Name, a.ORCID, 0); err != nil {
			return err
		}
		return translateError(tx.Create(a).Error, "author")
	})
	if err != nil {
		return err
	}
	s.Logger.Info("author created", zap.Uint("author_id", a.ID), zap.String("name", a.Name))
	return nil
}

func findOrCreateAuthorTx(tx *gorm.DB, name string, orcid *string) (*models.Author, error) {
	var a models.Author
	q := tx.Where("name = ?", name)
	if orcid != nil {
		q = q.Where("orcid = ?", *orcid)
	}
	err := q.Order("author_id").First(&a).Error
	if err == nil {
		return &a, nil
	}
	if !isNotFound(err) {
		return nil, translateError(err, "author")
	}
	a = models.Author{Name: name, ORCID: orcid, AffiliationHistory: []models.AffiliationRecord{}}
	if err := tx.Create(&a).Error; err != nil {
		return nil, translateError(err, "author")
	}
	return &a, nil
}

// FindOrCreateAuthor returns the author with this name (and ORCID, when given),
// creating it if missing. Without ORCID the oldest author of that name is reused.
func (s *Store) FindOrCreateAuthor(ctx context.Context, name string, orcid *string) (*models.Author, error) {
	name = trimSpace(name)
	if name == "" {
		return nil, s.reject("find_or_create_author", invalid("name", "required"))
	}
	orcid = trimPtr(orcid)
	var a *models.Author
	err := s.tx(ctx, "find_or_create_author", func(tx *gorm.DB) error {
		var err error
		a, err = findOrCreateAuthorTx(tx, name, orcid)
		return err
	})
	return a, err
}

// GetAuthor loads one author.
func (s *Store) GetAuthor(ctx context.Context, id uint) (*models.Author, error) {
	var a models.Author
	if err := s.DB.WithContext(ctx).First(&a, "author_id = ?", id).Error; err != nil {
		return nil, translateError(err, fmt.Sprintf("author %d", id))
	}
	return &a, nil
}

// UpdateAuthor applies u and stamps updated_at.
func (s *Store) UpdateAuthor(ctx context.Context, id uint, u AuthorUpdate) (*models.Author, error) {
	var a models.Author
	err := s.tx(ctx, "update_author", func(tx *gorm.DB) error {
		if err := tx.First(&a, "author_id = ?", id).Error; err != nil {
			return translateError(err, fmt.Sprintf("author %d", id))
		}
		changes := map[string]any{}
		if u.Name != nil {
			name := trimSpace(*u.Name)
			if name == "" {
				return invalid("name", "required")
			}
			a.Name = name
			changes["name"] = name
		}
		if u.Email != nil {
			a.Email = trimPtr(u.Email)
			changes["email"] = nullable(a.Email)
		}
		if u.ORCID != nil {
			a.ORCID = trimPtr(u.ORCID)
			changes["orcid"] = nullable(a.ORCID)
		}
		if u.HIndex != nil {
			if *u.HIndex < 0 {
				return invalid("h_index", "must not be negative")
			}
			a.HIndex = u.HIndex
			changes["h_index"] = *u.HIndex
		}
		if u.AffiliationHistory != nil {
			history, err := normalizeHistory(*u.AffiliationHistory)
			if err != nil {
				return err
			}
			a.AffiliationHistory = history
			changes["affiliation_history"] = a.AffiliationHistory
		}
		if u.Name != nil || u.ORCID != nil {
			if err := checkAuthorUnique(tx, a.Name, a.ORCID, id); err != nil {
				return err
			}
		}
		a.UpdatedAt = s.now()
		changes["updated_at"] = a.UpdatedAt
		return translateError(tx.Model(&models.Author{}).Where("author_id = ?", id).Updates(changes).Error, "author")
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("author updated", zap.Uint("author_id", id))
	return &a, nil
}

// AddAffiliation records a dated author–institution membership.
// An end date equal to the start date is accepted.
func (s *Store) AddAffiliation(ctx context.Context, af *models.AuthorInstitution) error {
	af.StartDate = utcDate(af.StartDate)
	af.EndDate = utcDate(af.EndDate)
	if af.StartDate != nil && af.EndDate != nil && time.Time(*af.EndDate).Before(time.Time(*af.StartDate)) {
		return s.reject("add_affiliation", invalid("end_date", "before start_date"))
	}
	af.Position = trimPtr(af.Position)

	af.ID = 0
	af.CreatedAt = s.now()

	err := s.tx(ctx, "add_affiliation", func(tx *gorm.DB) error {
		if err := requireAuthor(tx, af.AuthorID); err != nil {
			return err
		}
		if err := requireRow(tx, &models.Institution{}, "institution_id", af.InstitutionID, "institution"); err != nil {
			return err
		}
		return translateError(tx.Create(af).Error, "affiliation")
	})
	if err != nil {
		return err
	}
	s.Logger.Info("affiliation added", zap.Uint("author_id", af.AuthorID), zap.Uint("institution_id", af.InstitutionID))
	return nil
}
