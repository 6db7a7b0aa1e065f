package feed

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"go-mlapi/db"
	"go-mlapi/geocode"
	"go-mlapi/mlapi"
	"go-mlapi/types"
)

type Source interface {
	Fetch(ctx context.Context, uri string, limit int) (types.FeedResponse, error)
}

// Analyzer is the set of analyze-text operations a run uses.
type Analyzer interface {
	LanguageDetection(ctx context.Context, documents []mlapi.Document) mlapi.Outcome[mlapi.DetectedLanguage]
	SentimentAnalysis(ctx context.Context, documents []mlapi.Document) mlapi.Outcome[string]
	EntityRecognition(ctx context.Context, documents []mlapi.Document) mlapi.Outcome[[]mlapi.Entity]
	DetectEntities(ctx context.Context, documents []mlapi.Document) mlapi.Outcome[[]mlapi.PiiEntity]
	RedactDocuments(ctx context.Context, documents []mlapi.Document) mlapi.Outcome[string]
}

type Store interface {
	Exists(ctx context.Context, id string) (bool, error)
	SaveAnalysis(ctx context.Context, a types.Analysis) error
	SaveRun(ctx context.Context, r types.RunReport) error
}

type Geocoder interface {
	Geocode(ctx context.Context, address string) (geocode.Place, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, texts []string) (string, error)
}

// Processor fetches a feed page, analyzes the posts it has not seen and stores the results.
type Processor struct {
	source     Source
	analyzer   Analyzer
	store      Store
	geocoder   Geocoder
	summarizer Summarizer
	now        func() time.Time
}

type Option func(*Processor)

func WithGeocoder(g Geocoder) Option {
	return func(p *Processor) { p.geocoder = g }
}

func WithSummarizer(s Summarizer) Option {
	return func(p *Processor) { p.summarizer = s }
}

func NewProcessor(source Source, analyzer Analyzer, store Store, opts ...Option) *Processor {
	p := &Processor{
		source:   source,
		analyzer: analyzer,
		store:    store,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes one page of the feed at uri.
func (p *Processor) Run(ctx context.Context, uri string, limit int) (types.RunReport, error) {
	report := types.RunReport{
		ID:        uuid.NewString(),
		FeedURI:   uri,
		StartedAt: p.now(),
	}

	out, err := p.source.Fetch(ctx, uri, limit)
	if err != nil {
		return report, err
	}

	posts := make(map[string]types.Post)
	var docs []mlapi.Document
	for _, entry := range out.Feed {
		post := entry.Post
		if post.URI == "" || strings.TrimSpace(post.Record.Text) == "" {
			continue
		}
		report.Fetched++

		id := db.HashString(post.URI)
		if _, dup := posts[id]; dup {
			continue
		}

		exists, err := p.store.Exists(ctx, id)
		if err != nil {
			log.Printf("Error checking post %s: %v", post.URI, err)
			report.Failures = append(report.Failures, fmt.Sprintf("exists %s: %v", id, err))
			continue
		}
		if exists {
			report.Skipped++
			continue
		}

		posts[id] = post
		doc := mlapi.Document{ID: id, Text: post.Record.Text}
		if len(post.Record.Langs) > 0 {
			doc.Language = post.Record.Langs[0]
		}
		docs = append(docs, doc)
	}

	if len(docs) > 0 {
		analyses := p.analyze(ctx, docs, posts, report.ID, &report)
		p.geocodeEntities(ctx, analyses)

		texts := make([]string, 0, len(analyses))
		for _, a := range analyses {
			if err := p.store.SaveAnalysis(ctx, a); err != nil {
				log.Printf("Error saving analysis %s: %v", a.ID, err)
				report.Failures = append(report.Failures, fmt.Sprintf("save %s: %v", a.ID, err))
				continue
			}
			report.Saved++
			texts = append(texts, a.RedactedContent)
		}

		if p.summarizer != nil && len(texts) > 0 {
			summary, err := p.summarizer.Summarize(ctx, texts)
			if err != nil {
				log.Printf("Error summarizing run %s: %v", report.ID, err)
				report.Failures = append(report.Failures, fmt.Sprintf("summary: %v", err))
			} else {
				report.Summary = summary
			}
		}
	}

	report.FinishedAt = p.now()
	if err := p.store.SaveRun(ctx, report); err != nil {
		log.Printf("Error saving run %s: %v", report.ID, err)
	}

	log.Printf("Feed run %s: fetched=%d skipped=%d saved=%d failures=%d", report.ID, report.Fetched, report.Skipped, report.Saved, len(report.Failures))
	return report, nil
}

// analyze runs every operation over docs concurrently and merges the outcomes by document id.
func (p *Processor) analyze(ctx context.Context, docs []mlapi.Document, posts map[string]types.Post, runID string, report *types.RunReport) []types.Analysis {
	// Language detection takes no language hint.
	plain := make([]mlapi.Document, len(docs))
	for i, d := range docs {
		plain[i] = mlapi.Document{ID: d.ID, Text: d.Text}
	}

	var (
		languages []batch[mlapi.DetectedLanguage]
		sentiment []batch[string]
		entities  []batch[[]mlapi.Entity]
		pii       []batch[[]mlapi.PiiEntity]
		redacted  []batch[string]
	)
	var wg sync.WaitGroup
	wg.Add(5)
	go func() {
		defer wg.Done()
		languages = inBatches(ctx, plain, languageBatchSize, p.analyzer.LanguageDetection)
	}()
	go func() {
		defer wg.Done()
		sentiment = inBatches(ctx, docs, sentimentBatchSize, p.analyzer.SentimentAnalysis)
	}()
	go func() {
		defer wg.Done()
		entities = inBatches(ctx, docs, entityBatchSize, p.analyzer.EntityRecognition)
	}()
	go func() {
		defer wg.Done()
		pii = inBatches(ctx, docs, piiBatchSize, p.analyzer.DetectEntities)
	}()
	go func() {
		defer wg.Done()
		redacted = inBatches(ctx, docs, piiBatchSize, p.analyzer.RedactDocuments)
	}()
	wg.Wait()

	analyses := make([]types.Analysis, len(docs))
	byID := make(map[string]*types.Analysis, len(docs))
	for i, d := range docs {
		post := posts[d.ID]
		analyses[i] = types.Analysis{
			ID:          d.ID,
			URI:         post.URI,
			Handle:      post.Author.Handle,
			DisplayName: post.Author.DisplayName,
			Avatar:      post.Author.Avatar,
			Timestamp:   post.Record.CreatedAt,
			Entities:    []types.EntityLocation{},
			RunID:       runID,
			AnalyzedAt:  p.now(),
		}
		byID[d.ID] = &analyses[i]
	}

	mergeAll(mlapi.OpLanguageDetection, languages, byID, report, func(a *types.Analysis, v mlapi.DetectedLanguage) {
		a.LanguageName = v.Name
		a.LanguageCode = v.ISO6391Name
	})
	mergeAll(mlapi.OpSentimentAnalysis, sentiment, byID, report, func(a *types.Analysis, v string) {
		a.Sentiment = v
	})
	mergeAll(mlapi.OpEntityRecognition, entities, byID, report, func(a *types.Analysis, v []mlapi.Entity) {
		for _, e := range v {
			a.Entities = append(a.Entities, types.EntityLocation{
				Text:            e.Text,
				Category:        e.Category,
				Subcategory:     e.Subcategory,
				Offset:          e.Offset,
				Length:          e.Length,
				ConfidenceScore: e.ConfidenceScore,
			})
		}
	})
	mergeAll(mlapi.OpDetectEntities, pii, byID, report, func(a *types.Analysis, v []mlapi.PiiEntity) {
		a.PiiCount = len(v)
	})
	mergeAll(mlapi.OpRedactDocuments, redacted, byID, report, func(a *types.Analysis, v string) {
		a.RedactedContent = v
	})

	return analyses
}

// Per-request document limits of the analyze-text service.
const (
	piiBatchSize       = 5
	entityBatchSize    = 5
	sentimentBatchSize = 10
	languageBatchSize  = 1000
)

// batch is one request's documents and the outcome the service returned for them.
type batch[T any] struct {
	docs []mlapi.Document
	out  mlapi.Outcome[T]
}

// inBatches calls op once per run of at most size documents, in order.
func inBatches[T any](ctx context.Context, docs []mlapi.Document, size int, op func(context.Context, []mlapi.Document) mlapi.Outcome[T]) []batch[T] {
	var batches []batch[T]
	for start := 0; start < len(docs); start += size {
		end := min(start+size, len(docs))
		chunk := docs[start:end]
		batches = append(batches, batch[T]{docs: chunk, out: op(ctx, chunk)})
	}
	return batches
}

func mergeAll[T any](op mlapi.Operation, batches []batch[T], byID map[string]*types.Analysis, report *types.RunReport, apply func(*types.Analysis, T)) {
	for _, b := range batches {
		merge(op, b, byID, report, apply)
	}
}

// merge applies one batch. A transport error fails only the documents of that batch.
func merge[T any](op mlapi.Operation, b batch[T], byID map[string]*types.Analysis, report *types.RunReport, apply func(*types.Analysis, T)) {
	out := b.out
	switch out.Status {
	case mlapi.StatusOK:
		for _, r := range out.Results {
			if a, ok := byID[r.ID]; ok {
				apply(a, r.Value)
			}
		}
	case mlapi.StatusServiceErrors:
		for _, e := range out.Errors {
			log.Printf("Error from %s for %s: %s: %s", op.Name, e.ID, e.Error.Code, e.Error.Message)
			report.Failures = append(report.Failures, fmt.Sprintf("%s %s: %s", op.Name, e.ID, e.Error.Message))
			if a, ok := byID[e.ID]; ok {
				a.Failed = append(a.Failed, op.Name)
			}
		}
	case mlapi.StatusTransportError:
		log.Printf("Error calling %s: %v", op.Name, out.Err)
		report.Failures = append(report.Failures, fmt.Sprintf("%s: %s", op.Name, out.Message()))
		for _, d := range b.docs {
			if a, ok := byID[d.ID]; ok {
				a.Failed = append(a.Failed, op.Name)
			}
		}
	}
}

func isPlace(category string) bool {
	return category == "Location" || category == "Address"
}

// geocodeEntities resolves each distinct place name once per run.
func (p *Processor) geocodeEntities(ctx context.Context, analyses []types.Analysis) {
	if p.geocoder == nil {
		return
	}

	places := make(map[string]*geocode.Place)
	for i := range analyses {
		for j := range analyses[i].Entities {
			e := &analyses[i].Entities[j]
			if !isPlace(e.Category) {
				continue
			}

			place, seen := places[e.Text]
			if !seen {
				found, err := p.geocoder.Geocode(ctx, e.Text)
				if err != nil {
					log.Printf("Error geocoding %q: %v", e.Text, err)
				} else {
					place = &found
				}
				places[e.Text] = place
			}
			if place == nil {
				continue
			}
			e.FormattedAddress = place.FormattedAddress
			e.Lat = place.Lat
			e.Long = place.Long
		}
	}
}
