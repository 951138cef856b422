package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scholarlens/models"
)

func TestRecordCitationRejectsSelfCitation(t *testing.T) {
	s := newTestStore(t)
	p := mustPaper(t, s, "1706.03762", "Attention Is All You Need")

	err := s.RecordCitation(context.Background(), &models.Citation{CitingPaperID: p.ID, CitedPaperID: p.ID})
	require.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, countRows(t, s, &models.Citation{}, "1 = 1"))
	assert.Zero(t, countRows(t, s, &models.PaperStatistics{}, "1 = 1"))
}

func TestRecordCitationUpdatesStatistics(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	cited := mustPaper(t, s, "1706.03762", "Attention Is All You Need")
	citing := mustPaper(t, s, "1810.04805", "BERT")

	require.NoError(t, s.RecordCitation(ctx, &models.Citation{
		CitingPaperID:  citing.ID,
		CitedPaperID:   cited.ID,
		CitationIntent: ptr("method"),
	}))

	st, err := s.GetStatistics(ctx, cited.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.CitationCount)
	require.NotNil(t, st.LastCitedDate)
	assert.Equal(t, "2024-03-15", time.Time(*st.LastCitedDate).Format("2006-01-02"))
}

func TestRecordCitationDuplicateKeepsCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	cited := mustPaper(t, s, "1706.03762", "Attention Is All You Need")
	citing := mustPaper(t, s, "1810.04805", "BERT")

	require.NoError(t, s.RecordCitation(ctx, &models.Citation{CitingPaperID: citing.ID, CitedPaperID: cited.ID}))
	err := s.RecordCitation(ctx, &models.Citation{CitingPaperID: citing.ID, CitedPaperID: cited.ID})
	require.ErrorIs(t, err, ErrConflict)

	st, err := s.GetStatistics(ctx, cited.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.CitationCount)
}

func TestRecordCitationMissingPaper(t *testing.T) {
	s := newTestStore(t)
	p := mustPaper(t, s, "1706.03762", "Attention Is All You Need")

	err := s.RecordCitation(context.Background(), &models.Citation{CitingPaperID: p.ID, CitedPaperID: 999})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentCitationsDoNotLoseUpdates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	x := mustPaper(t, s, "1706.03762", "Attention Is All You Need")
	citers := []*models.Paper{
		mustPaper(t, s, "1810.04805", "BERT"),
		mustPaper(t, s, "1910.10683", "T5"),
		mustPaper(t, s, "2005.14165", "GPT-3"),
		mustPaper(t, s, "1907.11692", "RoBERTa"),
	}

	var wg sync.WaitGroup
	errs := make([]error, len(citers))
	for i, c := range citers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = s.RecordCitation(ctx, &models.Citation{CitingPaperID: c.ID, CitedPaperID: x.ID})
		}()
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	st, err := s.GetStatistics(ctx, x.ID)
	require.NoError(t, err)
	assert.Equal(t, len(citers), st.CitationCount)
}

func TestViewAndDownloadCounters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := mustPaper(t, s, "1706.03762", "Attention Is All You Need")

	st, err := s.GetStatistics(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, st.ViewCount)

	for range 3 {
		require.NoError(t, s.RecordView(ctx, p.ID))
	}
	require.NoError(t, s.RecordDownload(ctx, p.ID))

	st, err = s.GetStatistics(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, st.ViewCount)
	assert.Equal(t, 1, st.DownloadCount)
	assert.Zero(t, st.CitationCount)
	assert.Nil(t, st.LastCitedDate)

	assert.ErrorIs(t, s.RecordView(ctx, 777), ErrNotFound)
	_, err = s.GetStatistics(ctx, 777)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReconcileCitationCounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := mustPaper(t, s, "1706.03762", "Attention Is All You Need")
	b := mustPaper(t, s, "1810.04805", "BERT")
	c := mustPaper(t, s, "1910.10683", "T5")

	require.NoError(t, s.RecordCitation(ctx, &models.Citation{CitingPaperID: b.ID, CitedPaperID: a.ID}))
	require.NoError(t, s.RecordCitation(ctx, &models.Citation{CitingPaperID: c.ID, CitedPaperID: a.ID}))

	// Drift simulieren: Zähler falsch, Statistikzeile für b fehlt.
	require.NoError(t, s.DB.Model(&models.PaperStatistics{}).Where("paper_id = ?", a.ID).Update("citation_count", 7).Error)
	require.NoError(t, s.DB.Create(&models.Citation{CitingPaperID: c.ID, CitedPaperID: b.ID}).Error)

	fixed, err := s.ReconcileCitationCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, fixed)

	st, err := s.GetStatistics(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, st.CitationCount)
	st, err = s.GetStatistics(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.CitationCount)

	fixed, err = s.ReconcileCitationCounts(ctx)
	require.NoError(t, err)
	assert.Zero(t, fixed)
}
