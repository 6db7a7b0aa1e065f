package mlapi

import (
	"context"
	"encoding/json"
)

// Operation is a fixed (kind, dataField) pair over Invoke.
type Operation struct {
	Name      string `json:"name"`
	Kind      Kind   `json:"kind"`
	DataField string `json:"dataField"`
}

var (
	OpDetectEntities    = Operation{"detectEntities", KindPiiEntityRecognition, "entities"}
	OpRedactDocuments   = Operation{"redactDocuments", KindPiiEntityRecognition, "redactedText"}
	OpKeywordExtraction = Operation{"keywordExtraction", KindKeyPhraseExtraction, "keyPhrases"}
	OpEntityLinking     = Operation{"entityLinking", KindEntityLinking, "entities"}
	OpEntityRecognition = Operation{"entityRecognition", KindEntityRecognition, "entities"}
	OpSentimentAnalysis = Operation{"sentimentAnalysis", KindSentimentAnalysis, "sentiment"}
	OpLanguageDetection = Operation{"languageDetection", KindLanguageDetection, "detectedLanguage"}
)

// Operations lists every named operation in a stable order.
var Operations = []Operation{
	OpDetectEntities,
	OpRedactDocuments,
	OpKeywordExtraction,
	OpEntityLinking,
	OpEntityRecognition,
	OpSentimentAnalysis,
	OpLanguageDetection,
}

// LookupOperation finds an operation by name.
func LookupOperation(name string) (Operation, bool) {
	for _, op := range Operations {
		if op.Name == name {
			return op, true
		}
	}
	return Operation{}, false
}

func run[T any](ctx context.Context, c *Client, op Operation, documents []Document) Outcome[T] {
	return Invoke[T](ctx, c, c.URL(), BuildPayload(op.Kind, documents), op.DataField)
}

// Run executes op without interpreting the extracted field.
func (c *Client) Run(ctx context.Context, op Operation, documents []Document) Outcome[json.RawMessage] {
	return run[json.RawMessage](ctx, c, op, documents)
}

// DetectEntities finds personal information in each document.
func (c *Client) DetectEntities(ctx context.Context, documents []Document) Outcome[[]PiiEntity] {
	return run[[]PiiEntity](ctx, c, OpDetectEntities, documents)
}

// RedactDocuments returns each document's text with personal information masked.
func (c *Client) RedactDocuments(ctx context.Context, documents []Document) Outcome[string] {
	return run[string](ctx, c, OpRedactDocuments, documents)
}

func (c *Client) KeywordExtraction(ctx context.Context, documents []Document) Outcome[[]string] {
	return run[[]string](ctx, c, OpKeywordExtraction, documents)
}

func (c *Client) EntityLinking(ctx context.Context, documents []Document) Outcome[[]LinkedEntity] {
	return run[[]LinkedEntity](ctx, c, OpEntityLinking, documents)
}

func (c *Client) EntityRecognition(ctx context.Context, documents []Document) Outcome[[]Entity] {
	return run[[]Entity](ctx, c, OpEntityRecognition, documents)
}

// SentimentAnalysis returns the document-level label: positive, negative, neutral or mixed.
func (c *Client) SentimentAnalysis(ctx context.Context, documents []Document) Outcome[string] {
	return run[string](ctx, c, OpSentimentAnalysis, documents)
}

func (c *Client) LanguageDetection(ctx context.Context, documents []Document) Outcome[DetectedLanguage] {
	return run[DetectedLanguage](ctx, c, OpLanguageDetection, documents)
}
