package types

import "time"

// Analysis is the stored result of running every analysis over one post.
type Analysis struct {
	ID          string `firestore:"id" json:"id"`
	URI         string `firestore:"uri" json:"uri"`
	Handle      string `firestore:"handle" json:"handle"`
	DisplayName string `firestore:"displayName" json:"displayName"`
	Avatar      string `firestore:"avatar" json:"avatar"`
	Timestamp   string `firestore:"timestamp" json:"timestamp"`

	// Only the redacted text is stored.
	RedactedContent string `firestore:"redactedContent" json:"redactedContent"`
	PiiCount        int    `firestore:"piiCount" json:"piiCount"`

	LanguageName string `firestore:"languageName" json:"languageName"`
	LanguageCode string `firestore:"languageCode" json:"languageCode"`

	Sentiment string           `firestore:"sentiment" json:"sentiment"`
	Entities  []EntityLocation `firestore:"entities" json:"entities"`

	// Operations that reported an error for this post.
	Failed []string `firestore:"failed" json:"failed,omitempty"`

	RunID      string    `firestore:"runId" json:"runId"`
	AnalyzedAt time.Time `firestore:"analyzedAt" json:"analyzedAt"`
}

// EntityLocation is a recognized entity, geocoded when it names a place.
type EntityLocation struct {
	Text             string  `firestore:"text" json:"text"`
	Category         string  `firestore:"category" json:"category"`
	Subcategory      string  `firestore:"subcategory" json:"subcategory,omitempty"`
	Offset           int     `firestore:"offset" json:"offset"`
	Length           int     `firestore:"length" json:"length"`
	ConfidenceScore  float64 `firestore:"confidenceScore" json:"confidenceScore"`
	FormattedAddress string  `firestore:"formattedAddress" json:"formattedAddress,omitempty"`
	Lat              float64 `firestore:"lat" json:"lat,omitempty"`
	Long             float64 `firestore:"long" json:"long,omitempty"`
}

// RunReport summarizes one pass over a feed.
type RunReport struct {
	ID         string    `firestore:"id" json:"id"`
	FeedURI    string    `firestore:"feedUri" json:"feedUri"`
	StartedAt  time.Time `firestore:"startedAt" json:"startedAt"`
	FinishedAt time.Time `firestore:"finishedAt" json:"finishedAt"`
	Fetched    int       `firestore:"fetched" json:"fetched"`
	Skipped    int       `firestore:"skipped" json:"skipped"`
	Saved      int       `firestore:"saved" json:"saved"`
	Failures   []string  `firestore:"failures" json:"failures,omitempty"`
	Summary    string    `firestore:"summary" json:"summary,omitempty"`
}
