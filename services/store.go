package services

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"scholarlens/models"
)

const defaultMaxPageSize = 100

// Store is the transactional paper metadata store. Every exported write runs
// in exactly one database transaction.
type Store struct {
	DB          *gorm.DB
	Logger      *zap.Logger
	MaxPageSize int

	// Now is the store clock. Nil means time.Now.
	Now func() time.Time
}

// NewStore creates a Store on an already migrated database.
func NewStore(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{
		DB:          db,
		Logger:      logger.With(zap.String("component", "store")),
		MaxPageSize: defaultMaxPageSize,
	}
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Store) today() datatypes.Date {
	n := s.now()
	return datatypes.Date(time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC))
}

// tx runs fn in one transaction bound to ctx. Rejections are logged and counted.
func (s *Store) tx(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	err := s.DB.WithContext(ctx).Transaction(fn)
	if err != nil {
		kind := ErrorKind(err)
		storeRejections.WithLabelValues(kind).Inc()
		if kind == "internal" {
			s.Logger.Error("store write failed", zap.String("op", op), zap.Error(err))
		} else {
			s.Logger.Warn("store write rejected", zap.String("op", op), zap.String("kind", kind), zap.Error(err))
		}
	}
	return err
}

func requireRow(tx *gorm.DB, model any, column string, id uint, what string) error {
	var n int64
	if err := tx.Model(model).Where(column+" = ?", id).Count(&n).Error; err != nil {
		return translateError(err, what)
	}
	if n == 0 {
		return notFoundf("%s %d", what, id)
	}
	return nil
}

func requirePaper(tx *gorm.DB, id uint) error {
	return requireRow(tx, &models.Paper{}, "paper_id", id, "paper")
}

func requireAuthor(tx *gorm.DB, id uint) error {
	return requireRow(tx, &models.Author{}, "author_id", id, "author")
}

func trimPtr(v *string) *string {
	if v == nil {
		return nil
	}
	t := trimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// uniqueStrings trims entries and drops blanks and duplicates, keeping first-seen order.
func uniqueStrings(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, v := range in {
		v = trimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
