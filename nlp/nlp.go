package nlp

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf16"

	language "cloud.google.com/go/language/apiv2"
	"cloud.google.com/go/language/apiv2/languagepb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"

	"go-mlapi/mlapi"
)

// Score bounds used to turn a document score into a label.
const (
	positiveScore  float32 = 0.25
	negativeScore  float32 = -0.25
	mixedMagnitude float32 = 1.0
)

// languageAPI is the subset of the Natural Language client used here.
type languageAPI interface {
	AnalyzeEntities(ctx context.Context, req *languagepb.AnalyzeEntitiesRequest, opts ...gax.CallOption) (*languagepb.AnalyzeEntitiesResponse, error)
	AnalyzeSentiment(ctx context.Context, req *languagepb.AnalyzeSentimentRequest, opts ...gax.CallOption) (*languagepb.AnalyzeSentimentResponse, error)
}

// Client answers entity recognition and sentiment requests with the
// Google Cloud Natural Language API, shaped like the analyze-text results.
type Client struct {
	api    languageAPI
	closer func() error
}

// NewClient creates a Natural Language client from decoded service account JSON.
func NewClient(ctx context.Context, creds []byte) (*Client, error) {
	lc, err := language.NewClient(ctx, option.WithCredentialsJSON(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to create natural language client: %w", err)
	}
	return &Client{api: lc, closer: lc.Close}, nil
}

func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

func document(doc mlapi.Document) *languagepb.Document {
	return &languagepb.Document{
		Source: &languagepb.Document_Content{
			Content: doc.Text,
		},
		Type:         languagepb.Document_PLAIN_TEXT,
		LanguageCode: doc.Language,
	}
}

// EntityRecognition analyzes each document in turn. Offsets are UTF-16 code units.
func (c *Client) EntityRecognition(ctx context.Context, documents []mlapi.Document) mlapi.Outcome[[]mlapi.Entity] {
	results := make([]mlapi.Result[[]mlapi.Entity], 0, len(documents))
	for _, doc := range documents {
		resp, err := c.api.AnalyzeEntities(ctx, &languagepb.AnalyzeEntitiesRequest{
			Document:     document(doc),
			EncodingType: languagepb.EncodingType_UTF16,
		})
		if err != nil {
			return mlapi.Outcome[[]mlapi.Entity]{
				Status: mlapi.StatusTransportError,
				Err:    fmt.Errorf("%w: AnalyzeEntities %s: %w", mlapi.ErrRequest, doc.ID, err),
			}
		}

		entities := []mlapi.Entity{}
		for _, e := range resp.GetEntities() {
			entities = append(entities, toEntity(e))
		}
		results = append(results, mlapi.Result[[]mlapi.Entity]{
			ID:    doc.ID,
			Field: mlapi.OpEntityRecognition.DataField,
			Value: entities,
		})
	}
	return mlapi.Outcome[[]mlapi.Entity]{Status: mlapi.StatusOK, Results: results}
}

// SentimentAnalysis labels each document positive, negative, neutral or mixed.
func (c *Client) SentimentAnalysis(ctx context.Context, documents []mlapi.Document) mlapi.Outcome[string] {
	results := make([]mlapi.Result[string], 0, len(documents))
	for _, doc := range documents {
		resp, err := c.api.AnalyzeSentiment(ctx, &languagepb.AnalyzeSentimentRequest{
			Document:     document(doc),
			EncodingType: languagepb.EncodingType_UTF16,
		})
		if err != nil {
			return mlapi.Outcome[string]{
				Status: mlapi.StatusTransportError,
				Err:    fmt.Errorf("%w: AnalyzeSentiment %s: %w", mlapi.ErrRequest, doc.ID, err),
			}
		}

		s := resp.GetDocumentSentiment()
		results = append(results, mlapi.Result[string]{
			ID:    doc.ID,
			Field: mlapi.OpSentimentAnalysis.DataField,
			Value: SentimentLabel(s.GetScore(), s.GetMagnitude()),
		})
	}
	return mlapi.Outcome[string]{Status: mlapi.StatusOK, Results: results}
}

// SentimentLabel maps a score in [-1, 1] and its magnitude to a label.
func SentimentLabel(score, magnitude float32) string {
	switch {
	case score >= positiveScore:
		return "positive"
	case score <= negativeScore:
		return "negative"
	case magnitude >= mixedMagnitude:
		return "mixed"
	default:
		return "neutral"
	}
}

func toEntity(e *languagepb.Entity) mlapi.Entity {
	out := mlapi.Entity{
		Text:     e.GetName(),
		Category: category(e.GetType()),
	}
	if mentions := e.GetMentions(); len(mentions) > 0 {
		m := mentions[0]
		out.Text = m.GetText().GetContent()
		out.Offset = int(m.GetText().GetBeginOffset())
		out.ConfidenceScore = float64(m.GetProbability())
	}
	out.Length = len(utf16.Encode([]rune(out.Text)))
	return out
}

// category turns PHONE_NUMBER into PhoneNumber.
func category(t languagepb.Entity_Type) string {
	var b strings.Builder
	for _, part := range strings.Split(t.String(), "_") {
		if part == "" {
			continue
		}
		b.WriteString(part[:1])
		b.WriteString(strings.ToLower(part[1:]))
	}
	return b.String()
}
