package mlapi

// Kind selects the analysis the service runs over a payload.
type Kind string

const (
	KindPiiEntityRecognition Kind = "PiiEntityRecognition"
	KindKeyPhraseExtraction  Kind = "KeyPhraseExtraction"
	KindEntityLinking        Kind = "EntityLinking"
	KindEntityRecognition    Kind = "EntityRecognition"
	KindSentimentAnalysis    Kind = "SentimentAnalysis"
	KindLanguageDetection    Kind = "LanguageDetection"
)

// Document is one unit of input text.
type Document struct {
	ID       string `json:"id"`
	Language string `json:"language,omitempty"`
	Text     string `json:"text"`
}

type Parameters struct {
	ModelVersion string `json:"modelVersion"`
}

type AnalysisInput struct {
	Documents []Document `json:"documents"`
}

// Payload is the request body of an analyze-text call.
type Payload struct {
	Kind          Kind          `json:"kind"`
	Parameters    Parameters    `json:"parameters"`
	AnalysisInput AnalysisInput `json:"analysisInput"`
}

// BuildPayload wraps documents in the analyze-text envelope for kind.
func BuildPayload(kind Kind, documents []Document) Payload {
	return Payload{
		Kind: kind,
		Parameters: Parameters{
			ModelVersion: "latest",
		},
		AnalysisInput: AnalysisInput{
			Documents: documents,
		},
	}
}
