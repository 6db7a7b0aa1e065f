package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-mlapi/db"
	"go-mlapi/geocode"
	"go-mlapi/mlapi"
	"go-mlapi/types"
)

type fakeSource struct {
	resp types.FeedResponse
	err  error
}

func (f *fakeSource) Fetch(context.Context, string, int) (types.FeedResponse, error) {
	return f.resp, f.err
}

type fakeAnalyzer struct {
	languages func(docs []mlapi.Document) mlapi.Outcome[mlapi.DetectedLanguage]
	sentiment func(docs []mlapi.Document) mlapi.Outcome[string]
	entities  func(docs []mlapi.Document) mlapi.Outcome[[]mlapi.Entity]
	pii       func(docs []mlapi.Document) mlapi.Outcome[[]mlapi.PiiEntity]
	redacted  func(docs []mlapi.Document) mlapi.Outcome[string]
}

func (f *fakeAnalyzer) LanguageDetection(_ context.Context, docs []mlapi.Document) mlapi.Outcome[mlapi.DetectedLanguage] {
	return f.languages(docs)
}

func (f *fakeAnalyzer) SentimentAnalysis(_ context.Context, docs []mlapi.Document) mlapi.Outcome[string] {
	return f.sentiment(docs)
}

func (f *fakeAnalyzer) EntityRecognition(_ context.Context, docs []mlapi.Document) mlapi.Outcome[[]mlapi.Entity] {
	return f.entities(docs)
}

func (f *fakeAnalyzer) DetectEntities(_ context.Context, docs []mlapi.Document) mlapi.Outcome[[]mlapi.PiiEntity] {
	return f.pii(docs)
}

func (f *fakeAnalyzer) RedactDocuments(_ context.Context, docs []mlapi.Document) mlapi.Outcome[string] {
	return f.redacted(docs)
}

type fakeStore struct {
	existing map[string]bool
	saved    []types.Analysis
	runs     []types.RunReport
}

func (f *fakeStore) Exists(_ context.Context, id string) (bool, error) {
	return f.existing[id], nil
}

func (f *fakeStore) SaveAnalysis(_ context.Context, a types.Analysis) error {
	f.saved = append(f.saved, a)
	return nil
}

func (f *fakeStore) SaveRun(_ context.Context, r types.RunReport) error {
	f.runs = append(f.runs, r)
	return nil
}

type fakeGeocoder struct {
	calls map[string]int
}

func (f *fakeGeocoder) Geocode(_ context.Context, address string) (geocode.Place, error) {
	f.calls[address]++
	if address == "Seattle" {
		return geocode.Place{FormattedAddress: "Seattle, WA, USA", Lat: 47.6, Long: -122.3}, nil
	}
	return geocode.Place{}, geocode.ErrNoResults
}

type fakeSummarizer struct {
	texts []string
}

func (f *fakeSummarizer) Summarize(_ context.Context, texts []string) (string, error) {
	f.texts = texts
	return "digest", nil
}

func entry(uri, text string, langs ...string) types.FeedEntry {
	return types.FeedEntry{Post: types.Post{
		URI:    uri,
		Author: types.Author{Handle: "alice.bsky.social", DisplayName: "Alice"},
		Record: types.Record{Text: text, Langs: langs, CreatedAt: "2025-01-01T00:00:00Z"},
	}}
}

func okResults[T any](field string, docs []mlapi.Document, value func(mlapi.Document) T) mlapi.Outcome[T] {
	out := mlapi.Outcome[T]{Status: mlapi.StatusOK}
	for _, d := range docs {
		out.Results = append(out.Results, mlapi.Result[T]{ID: d.ID, Field: field, Value: value(d)})
	}
	return out
}

func happyAnalyzer() *fakeAnalyzer {
	return &fakeAnalyzer{
		languages: func(docs []mlapi.Document) mlapi.Outcome[mlapi.DetectedLanguage] {
			return okResults("detectedLanguage", docs, func(d mlapi.Document) mlapi.DetectedLanguage {
				return mlapi.DetectedLanguage{Name: "English", ISO6391Name: "en", ConfidenceScore: 1}
			})
		},
		sentiment: func(docs []mlapi.Document) mlapi.Outcome[string] {
			return okResults("sentiment", docs, func(mlapi.Document) string { return "positive" })
		},
		entities: func(docs []mlapi.Document) mlapi.Outcome[[]mlapi.Entity] {
			return okResults("entities", docs, func(mlapi.Document) []mlapi.Entity {
				return []mlapi.Entity{
					{Text: "Seattle", Category: "Location", Offset: 26, Length: 7},
					{Text: "last week", Category: "DateTime", Offset: 34, Length: 9},
				}
			})
		},
		pii: func(docs []mlapi.Document) mlapi.Outcome[[]mlapi.PiiEntity] {
			return okResults("entities", docs, func(mlapi.Document) []mlapi.PiiEntity {
				return []mlapi.PiiEntity{{Text: "312-555-1234", Category: "PhoneNumber"}}
			})
		},
		redacted: func(docs []mlapi.Document) mlapi.Outcome[string] {
			return okResults("redactedText", docs, func(d mlapi.Document) string { return "redacted:" + d.Text })
		},
	}
}

func fixedNow() time.Time {
	return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestProcessor_Run(t *testing.T) {
	uri1 := "at://did:plc:a/app.bsky.feed.post/1"
	uri2 := "at://did:plc:a/app.bsky.feed.post/2"
	uriOld := "at://did:plc:a/app.bsky.feed.post/0"
	source := &fakeSource{resp: types.FeedResponse{Feed: []types.FeedEntry{
		entry(uri1, "I had a wonderful trip to Seattle last week.", "en"),
		entry(uri2, "Call me at 312-555-1234"),
		entry(uriOld, "already stored"),
		entry("", "no uri"),
		entry("at://did:plc:a/app.bsky.feed.post/3", "   "),
	}}}
	store := &fakeStore{existing: map[string]bool{db.HashString(uriOld): true}}
	geo := &fakeGeocoder{calls: map[string]int{}}
	sum := &fakeSummarizer{}

	var sentimentDocs, languageDocs []mlapi.Document
	analyzer := happyAnalyzer()
	sentiment := analyzer.sentiment
	analyzer.sentiment = func(docs []mlapi.Document) mlapi.Outcome[string] {
		sentimentDocs = docs
		return sentiment(docs)
	}
	languages := analyzer.languages
	analyzer.languages = func(docs []mlapi.Document) mlapi.Outcome[mlapi.DetectedLanguage] {
		languageDocs = docs
		return languages(docs)
	}

	p := NewProcessor(source, analyzer, store, WithGeocoder(geo), WithSummarizer(sum))
	p.now = fixedNow

	report, err := p.Run(context.Background(), "at://feed", 10)

	require.NoError(t, err)
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, 3, report.Fetched)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 2, report.Saved)
	assert.Empty(t, report.Failures)
	assert.Equal(t, "digest", report.Summary)

	require.Len(t, sentimentDocs, 2)
	assert.Equal(t, db.HashString(uri1), sentimentDocs[0].ID)
	assert.Equal(t, "en", sentimentDocs[0].Language)
	assert.Empty(t, languageDocs[0].Language)

	require.Len(t, store.saved, 2)
	a := store.saved[0]
	assert.Equal(t, uri1, a.URI)
	assert.Equal(t, "alice.bsky.social", a.Handle)
	assert.Equal(t, "positive", a.Sentiment)
	assert.Equal(t, "en", a.LanguageCode)
	assert.Equal(t, 1, a.PiiCount)
	assert.Equal(t, "redacted:I had a wonderful trip to Seattle last week.", a.RedactedContent)
	assert.Equal(t, report.ID, a.RunID)
	assert.Equal(t, fixedNow(), a.AnalyzedAt)
	require.Len(t, a.Entities, 2)
	assert.Equal(t, "Seattle, WA, USA", a.Entities[0].FormattedAddress)
	assert.Empty(t, a.Entities[1].FormattedAddress)
	assert.Empty(t, a.Failed)

	// Each distinct place is geocoded once per run; non-places never are.
	assert.Equal(t, 1, geo.calls["Seattle"])
	assert.Zero(t, geo.calls["last week"])

	assert.Len(t, sum.texts, 2)
	require.Len(t, store.runs, 1)
	assert.Equal(t, report.ID, store.runs[0].ID)
}

func TestProcessor_Run_ServiceAndTransportErrors(t *testing.T) {
	uri1 := "at://did:plc:a/app.bsky.feed.post/1"
	uri2 := "at://did:plc:a/app.bsky.feed.post/2"
	source := &fakeSource{resp: types.FeedResponse{Feed: []types.FeedEntry{
		entry(uri1, "first"),
		entry(uri2, "second"),
	}}}
	store := &fakeStore{existing: map[string]bool{}}

	analyzer := happyAnalyzer()
	analyzer.sentiment = func(docs []mlapi.Document) mlapi.Outcome[string] {
		return mlapi.Outcome[string]{
			Status: mlapi.StatusServiceErrors,
			Errors: []mlapi.ServiceError{{ID: docs[1].ID, Error: mlapi.ErrorDetail{Code: "InvalidArgument", Message: "Invalid Language Code."}}},
		}
	}
	analyzer.entities = func(docs []mlapi.Document) mlapi.Outcome[[]mlapi.Entity] {
		return mlapi.Outcome[[]mlapi.Entity]{Status: mlapi.StatusTransportError, Err: mlapi.ErrDecode}
	}

	p := NewProcessor(source, analyzer, store)
	report, err := p.Run(context.Background(), "at://feed", 10)

	require.NoError(t, err)
	assert.Equal(t, 2, report.Saved)
	assert.Len(t, report.Failures, 2)

	first, second := store.saved[0], store.saved[1]
	assert.Equal(t, []string{"entityRecognition"}, first.Failed)
	assert.ElementsMatch(t, []string{"sentimentAnalysis", "entityRecognition"}, second.Failed)
	assert.Empty(t, first.Sentiment)
	assert.Empty(t, first.Entities)
	assert.Equal(t, "en", second.LanguageCode)
}

func TestProcessor_Run_BatchesPerOperationLimit(t *testing.T) {
	var feed []types.FeedEntry
	for i := 0; i < 12; i++ {
		feed = append(feed, entry(fmt.Sprintf("at://did:plc:a/app.bsky.feed.post/%d", i), fmt.Sprintf("post %d in Seattle", i)))
	}
	source := &fakeSource{resp: types.FeedResponse{Feed: feed}}
	store := &fakeStore{existing: map[string]bool{}}

	// The service rejects the whole request when a batch is over its limit.
	tooLarge := func(limit int, docs []mlapi.Document) bool { return len(docs) > limit }
	var mu sync.Mutex
	calls := map[string][]int{}
	record := func(op string, docs []mlapi.Document) {
		mu.Lock()
		defer mu.Unlock()
		calls[op] = append(calls[op], len(docs))
	}

	analyzer := happyAnalyzer()
	entities, pii, redacted, sentiment := analyzer.entities, analyzer.pii, analyzer.redacted, analyzer.sentiment
	analyzer.entities = func(docs []mlapi.Document) mlapi.Outcome[[]mlapi.Entity] {
		record("entities", docs)
		if tooLarge(5, docs) {
			return mlapi.Outcome[[]mlapi.Entity]{Status: mlapi.StatusTransportError, Err: mlapi.ErrStatus}
		}
		return entities(docs)
	}
	analyzer.pii = func(docs []mlapi.Document) mlapi.Outcome[[]mlapi.PiiEntity] {
		record("pii", docs)
		if tooLarge(5, docs) {
			return mlapi.Outcome[[]mlapi.PiiEntity]{Status: mlapi.StatusTransportError, Err: mlapi.ErrStatus}
		}
		return pii(docs)
	}
	analyzer.redacted = func(docs []mlapi.Document) mlapi.Outcome[string] {
		record("redacted", docs)
		if tooLarge(5, docs) {
			return mlapi.Outcome[string]{Status: mlapi.StatusTransportError, Err: mlapi.ErrStatus}
		}
		return redacted(docs)
	}
	analyzer.sentiment = func(docs []mlapi.Document) mlapi.Outcome[string] {
		record("sentiment", docs)
		if tooLarge(10, docs) {
			return mlapi.Outcome[string]{Status: mlapi.StatusTransportError, Err: mlapi.ErrStatus}
		}
		return sentiment(docs)
	}

	report, err := NewProcessor(source, analyzer, store).Run(context.Background(), "at://feed", 12)

	require.NoError(t, err)
	assert.Empty(t, report.Failures)
	assert.Equal(t, 12, report.Saved)
	assert.Equal(t, []int{5, 5, 2}, calls["entities"])
	assert.Equal(t, []int{5, 5, 2}, calls["pii"])
	assert.Equal(t, []int{5, 5, 2}, calls["redacted"])
	assert.Equal(t, []int{10, 2}, calls["sentiment"])

	require.Len(t, store.saved, 12)
	for i, a := range store.saved {
		assert.Empty(t, a.Failed, "post %d", i)
		assert.Len(t, a.Entities, 2, "post %d", i)
		assert.Equal(t, "positive", a.Sentiment, "post %d", i)
		assert.Equal(t, fmt.Sprintf("redacted:post %d in Seattle", i), a.RedactedContent)
	}
}

func TestProcessor_Run_TransportErrorFailsOnlyItsBatch(t *testing.T) {
	var feed []types.FeedEntry
	for i := 0; i < 7; i++ {
		feed = append(feed, entry(fmt.Sprintf("at://did:plc:a/app.bsky.feed.post/%d", i), fmt.Sprintf("post %d", i)))
	}
	source := &fakeSource{resp: types.FeedResponse{Feed: feed}}
	store := &fakeStore{existing: map[string]bool{}}

	analyzer := happyAnalyzer()
	entities := analyzer.entities
	analyzer.entities = func(docs []mlapi.Document) mlapi.Outcome[[]mlapi.Entity] {
		if len(docs) < 5 {
			return mlapi.Outcome[[]mlapi.Entity]{Status: mlapi.StatusTransportError, Err: mlapi.ErrDecode}
		}
		return entities(docs)
	}

	report, err := NewProcessor(source, analyzer, store).Run(context.Background(), "at://feed", 7)

	require.NoError(t, err)
	assert.Len(t, report.Failures, 1)
	require.Len(t, store.saved, 7)
	for _, a := range store.saved[:5] {
		assert.Empty(t, a.Failed)
	}
	for _, a := range store.saved[5:] {
		assert.Equal(t, []string{"entityRecognition"}, a.Failed)
	}
}

func TestProcessor_Run_NothingNew(t *testing.T) {
	uri := "at://did:plc:a/app.bsky.feed.post/1"
	source := &fakeSource{resp: types.FeedResponse{Feed: []types.FeedEntry{entry(uri, "seen")}}}
	store := &fakeStore{existing: map[string]bool{db.HashString(uri): true}}
	analyzer := &fakeAnalyzer{}

	report, err := NewProcessor(source, analyzer, store).Run(context.Background(), "at://feed", 10)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Zero(t, report.Saved)
	assert.Len(t, store.runs, 1)
}

func TestProcessor_Run_FetchError(t *testing.T) {
	source := &fakeSource{err: errors.New("feed not found")}
	store := &fakeStore{}

	_, err := NewProcessor(source, &fakeAnalyzer{}, store).Run(context.Background(), "at://feed", 10)

	assert.ErrorContains(t, err, "feed not found")
	assert.Empty(t, store.runs)
}
