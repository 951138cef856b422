package services

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"scholarlens/models"
)

func checkNameFree(tx *gorm.DB, model any, what, name string) error {
	var n int64
	if err := tx.Model(model).Where("name = ?", name).Count(&n).Error; err != nil {
		return translateError(err, what)
	}
	if n > 0 {
		return conflictf("%s %q already exists", what, name)
	}
	return nil
}

// CreateInstitution inserts an institution with a unique name.
func (s *Store) CreateInstitution(ctx context.Context, in *models.Institution) error {
	in.Name = trimSpace(in.Name)
	if in.Name == "" {
		return s.reject("create_institution", invalid("name", "required"))
	}
	in.Country = trimPtr(in.Country)
	in.City = trimPtr(in.City)
	in.InstitutionType = trimPtr(in.InstitutionType)
	in.Website = trimPtr(in.Website)

	in.ID = 0
	in.CreatedAt = s.now()

	err := s.tx(ctx, "create_institution", func(tx *gorm.DB) error {
		if err := checkNameFree(tx, &models.Institution{}, "institution", in.Name); err != nil {
			return err
		}
		return translateError(tx.Create(in).Error, "institution")
	})
	if err != nil {
		return err
	}
	s.Logger.Info("institution created", zap.Uint("institution_id", in.ID), zap.String("name", in.Name))
	return nil
}

// CreateMethod inserts a method with a unique name. Aliases are de-duplicated.
func (s *Store) CreateMethod(ctx context.Context, m *models.Method) error {
	m.Name = trimSpace(m.Name)
	if m.Name == "" {
		return s.reject("create_method", invalid("name", "required"))
	}
	m.Description = trimPtr(m.Description)
	m.Category = trimPtr(m.Category)
	m.Aliases = uniqueStrings(m.Aliases)

	m.ID = 0
	m.CreatedAt = s.now()

	err := s.tx(ctx, "create_method", func(tx *gorm.DB) error {
		if err := checkNameFree(tx, &models.Method{}, "method", m.Name); err != nil {
			return err
		}
		return translateError(tx.Create(m).Error, "method")
	})
	if err != nil {
		return err
	}
	s.Logger.Info("method created", zap.Uint("method_id", m.ID), zap.String("name", m.Name))
	return nil
}

// CreateDataset inserts a dataset with a unique name.
func (s *Store) CreateDataset(ctx context.Context, d *models.Dataset) error {
	d.Name = trimSpace(d.Name)
	if d.Name == "" {
		return s.reject("create_dataset", invalid("name", "required"))
	}
	d.Description = trimPtr(d.Description)
	d.Domain = trimPtr(d.Domain)
	d.URL = trimPtr(d.URL)
	d.SizeInfo = trimPtr(d.SizeInfo)
	d.License = trimPtr(d.License)

	d.ID = 0
	d.CreatedAt = s.now()

	err := s.tx(ctx, "create_dataset", func(tx *gorm.DB) error {
		if err := checkNameFree(tx, &models.Dataset{}, "dataset", d.Name); err != nil {
			return err
		}
		return translateError(tx.Create(d).Error, "dataset")
	})
	if err != nil {
		return err
	}
	s.Logger.Info("dataset created", zap.Uint("dataset_id", d.ID), zap.String("name", d.Name))
	return nil
}
