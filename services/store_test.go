package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"scholarlens/models"
	"scholarlens/storage"
)

var testClock = time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)

// newTestStore opens a migrated SQLite database in a per-test directory.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "scholarlens.db"))
	require.NoError(t, err)
	require.NoError(t, storage.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	s := NewStore(db, zap.NewNop())
	s.Now = func() time.Time { return testClock }
	return s
}

func ptr[T any](v T) *T { return &v }

func day(y int, m time.Month, d int) *datatypes.Date {
	v := datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
	return &v
}

func mustPaper(t *testing.T, s *Store, arxivID, title string) *models.Paper {
	t.Helper()
	p := &models.Paper{ArxivID: ptr(arxivID), Title: title}
	require.NoError(t, s.CreatePaper(context.Background(), p))
	require.NotZero(t, p.ID)
	return p
}

func mustAuthor(t *testing.T, s *Store, name string) *models.Author {
	t.Helper()
	a := &models.Author{Name: name}
	require.NoError(t, s.CreateAuthor(context.Background(), a))
	return a
}

func countRows(t *testing.T, s *Store, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.DB.Model(model).Where(where, args...).Count(&n).Error)
	return n
}
