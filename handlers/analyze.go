package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-mlapi/mlapi"
)

// Analyzer runs a named analyze-text operation.
type Analyzer interface {
	Run(ctx context.Context, op mlapi.Operation, documents []mlapi.Document) mlapi.Outcome[json.RawMessage]
}

// GoogleAnalyzer is the Natural Language provider for the operations it supports.
type GoogleAnalyzer interface {
	EntityRecognition(ctx context.Context, documents []mlapi.Document) mlapi.Outcome[[]mlapi.Entity]
	SentimentAnalysis(ctx context.Context, documents []mlapi.Document) mlapi.Outcome[string]
}

type analyzeRequest struct {
	Documents []mlapi.Document `json:"documents" binding:"required,min=1"`
}

// respond writes an outcome: 200 with results, 422 with the service's errors
// as received, or 502 with the transport failure message.
func respond[T any](c *gin.Context, out mlapi.Outcome[T]) {
	switch out.Status {
	case mlapi.StatusOK:
		results := out.Results
		if results == nil {
			results = []mlapi.Result[T]{}
		}
		c.JSON(http.StatusOK, gin.H{"results": results})
	case mlapi.StatusServiceErrors:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": out.Errors})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": out.Message()})
	}
}

func bindDocuments(c *gin.Context) ([]mlapi.Document, bool) {
	var request analyzeRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return request.Documents, true
}

// ListOperations returns the operation table.
func ListOperations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"operations": mlapi.Operations})
}

// Analyze runs the operation named in the path over the posted documents.
func Analyze(c *gin.Context, analyzer Analyzer) {
	op, ok := mlapi.LookupOperation(c.Param("operation"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown operation: " + c.Param("operation")})
		return
	}

	docs, ok := bindDocuments(c)
	if !ok {
		return
	}

	respond(c, analyzer.Run(c.Request.Context(), op, docs))
}

// AnalyzeGoogle runs entity recognition or sentiment analysis with the Natural Language provider.
func AnalyzeGoogle(c *gin.Context, google GoogleAnalyzer) {
	name := c.Param("operation")
	if name != mlapi.OpEntityRecognition.Name && name != mlapi.OpSentimentAnalysis.Name {
		c.JSON(http.StatusNotFound, gin.H{"error": "operation not supported by google provider: " + name})
		return
	}
	if google == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "google natural language provider is not configured"})
		return
	}

	docs, ok := bindDocuments(c)
	if !ok {
		return
	}

	if name == mlapi.OpEntityRecognition.Name {
		respond(c, google.EntityRecognition(c.Request.Context(), docs))
		return
	}
	respond(c, google.SentimentAnalysis(c.Request.Context(), docs))
}
