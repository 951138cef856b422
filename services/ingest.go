package services

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"scholarlens/models"
	"scholarlens/providers"
)

// IngestReport summarises one ingestion run.
type IngestReport struct {
	Fetched    int `json:"fetched"`
	Created    int `json:"created"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
	Archived   int `json:"archived"`
}

func (r *IngestReport) add(o IngestReport) {
	r.Fetched += o.Fetched
	r.Created += o.Created
	r.Duplicates += o.Duplicates
	r.Failed += o.Failed
	r.Archived += o.Archived
}

// IngestService kümmert sich um die Orchestrierung des gesamten Ingest-Prozesses.
type IngestService struct {
	Store      *Store
	Logger     *zap.Logger
	Providers  []providers.Provider
	Queries    []string
	MaxResults int
	Workers    int

	// Archiver ist nil, wenn kein Objektspeicher konfiguriert ist.
	Archiver *PDFArchiver
}

func NewIngestService(store *Store, logger *zap.Logger, provs []providers.Provider, queries []string, maxResults, workers int, archiver *PDFArchiver) *IngestService {
	if workers < 1 {
		workers = 1
	}
	return &IngestService{
		Store:      store,
		Logger:     logger.With(zap.String("component", "ingest")),
		Providers:  provs,
		Queries:    queries,
		MaxResults: maxResults,
		Workers:    workers,
		Archiver:   archiver,
	}
}

// Run ingests every configured query.
func (s *IngestService) Run(ctx context.Context) (IngestReport, error) {
	var total IngestReport
	for _, q := range s.Queries {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		rep, err := s.RunQuery(ctx, q)
		if err != nil {
			s.Logger.Error("Fehler beim Verarbeiten der Query", zap.String("query", q), zap.Error(err))
			continue
		}
		total.add(rep)
	}
	s.Logger.Info("Ingest abgeschlossen", zap.Int("created", total.Created), zap.Int("duplicates", total.Duplicates), zap.Int("failed", total.Failed))
	return total, nil
}

// RunQuery searches all providers, de-duplicates by external id and stores new papers.
// Papers already present are skipped and counted as duplicates.
func (s *IngestService) RunQuery(ctx context.Context, query string) (IngestReport, error) {
	log := s.Logger.With(zap.String("query", query))
	var rep IngestReport

	unique := map[string]providers.Record{}
	var order []string
	for _, p := range s.Providers {
		records, err := p.Search(ctx, query, s.MaxResults)
		if err != nil {
			log.Error("Provider-Suche fehlgeschlagen", zap.String("provider", p.Name()), zap.Error(err))
			continue
		}
		log.Info("Provider hat Ergebnisse geliefert", zap.String("provider", p.Name()), zap.Int("count", len(records)))
		rep.Fetched += len(records)
		for _, r := range records {
			key := r.Key()
			if key == "" || r.Title == "" {
				rep.Failed++
				continue
			}
			if _, ok := unique[key]; ok {
				rep.Duplicates++
				continue
			}
			unique[key] = r
			order = append(order, key)
		}
	}

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sem = make(chan struct{}, s.Workers)
	)
	for _, key := range order {
		rec := unique[key]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			outcome := s.ingestRecord(ctx, rec)
			mu.Lock()
			rep.add(outcome)
			mu.Unlock()
		}()
	}
	wg.Wait()

	log.Info("Verarbeitung der Query abgeschlossen", zap.Int("created", rep.Created), zap.Int("duplicates", rep.Duplicates))
	return rep, nil
}

func (s *IngestService) exists(ctx context.Context, rec providers.Record) (bool, error) {
	for _, id := range []struct{ kind, value string }{
		{"arxiv", rec.ArxivID}, {"pubmed", rec.PubmedID}, {"doi", rec.DOI},
	} {
		if id.value == "" {
			continue
		}
		_, err := s.Store.FindPaperByExternalID(ctx, id.kind, id.value)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrValidation) {
			return false, err
		}
	}
	return false, nil
}

func (s *IngestService) ingestRecord(ctx context.Context, rec providers.Record) IngestReport {
	log := s.Logger.With(zap.String("key", rec.Key()), zap.String("source", rec.Source))

	found, err := s.exists(ctx, rec)
	if err != nil {
		log.Error("Duplikatsprüfung fehlgeschlagen", zap.Error(err))
		return IngestReport{Failed: 1}
	}
	if found {
		log.Debug("Paper bereits vorhanden, wird übersprungen.")
		return IngestReport{Duplicates: 1}
	}

	paper := RecordToPaper(rec)
	authors := make([]AuthorRef, 0, len(rec.Authors))
	for _, a := range rec.Authors {
		authors = append(authors, AuthorRef{Name: a.Name, ORCID: strPtr(a.ORCID)})
	}
	if err := s.Store.CreatePaperWithAuthors(ctx, paper, authors); err != nil {
		if errors.Is(err, ErrConflict) {
			return IngestReport{Duplicates: 1}
		}
		log.Warn("Paper konnte nicht gespeichert werden", zap.Error(err))
		return IngestReport{Failed: 1}
	}
	papersIngested.Inc()
	out := IngestReport{Created: 1}

	if s.Archiver != nil && (rec.PDFURL != "" || rec.DOI != "") {
		link, err := s.Archiver.Archive(ctx, paper.ID, rec.DOI, rec.PDFURL)
		switch {
		case errors.Is(err, ErrNoPDF):
			log.Debug("Kein PDF verfügbar")
		case err != nil:
			log.Warn("PDF-Archivierung fehlgeschlagen", zap.Error(err))
		default:
			if _, err := s.Store.UpdatePaper(ctx, paper.ID, PaperUpdate{PDFPath: &link}); err != nil {
				log.Warn("PDF-Pfad konnte nicht gespeichert werden", zap.Error(err))
			} else {
				out.Archived = 1
			}
		}
	}
	return out
}

// RecordToPaper maps a provider record onto a paper model.
func RecordToPaper(rec providers.Record) *models.Paper {
	p := &models.Paper{
		ArxivID:         strPtr(rec.ArxivID),
		PubmedID:        strPtr(rec.PubmedID),
		DOI:             strPtr(rec.DOI),
		Title:           rec.Title,
		Abstract:        strPtr(rec.Abstract),
		PrimaryCategory: strPtr(rec.PrimaryCategory),
		Categories:      rec.Categories,
	}
	if rec.Published != nil {
		d := dateOf(*rec.Published)
		p.PublishedDate = &d
	}
	if rec.Updated != nil {
		d := dateOf(*rec.Updated)
		p.UpdatedDate = &d
	}
	return p
}
