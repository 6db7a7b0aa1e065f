package mlapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	// DefaultVersion is the api-version sent when none is configured.
	DefaultVersion = "2023-04-01"

	subscriptionKeyHeader = "Ocp-Apim-Subscription-Key"
	analyzeTextPath       = "/language/:analyze-text"
)

// Client calls the analyze-text endpoint of a language resource.
// It holds no mutable state and is safe for concurrent use.
type Client struct {
	endpoint   string
	key        string
	version    string
	httpClient *http.Client
}

type Option func(*Client)

// WithVersion overrides the api-version query parameter.
func WithVersion(version string) Option {
	return func(c *Client) {
		if version != "" {
			c.version = version
		}
	}
}

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func New(endpoint, key string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		key:        key,
		version:    DefaultVersion,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Version() string {
	return c.version
}

// URL is the analyze-text address all operations post to.
func (c *Client) URL() string {
	return strings.TrimRight(c.endpoint, "/") + analyzeTextPath + "?api-version=" + c.version
}

// analyzeResponse keeps errors and documents raw so that a service error list is
// returned whatever shape the documents have.
type analyzeResponse struct {
	Results *struct {
		Errors    json.RawMessage `json:"errors"`
		Documents json.RawMessage `json:"documents"`
	} `json:"results"`
}

type errorResponse struct {
	Error *ErrorDetail `json:"error"`
}

// Invoke posts payload to url and extracts dataField from every returned document.
// It never returns an error directly: failures are reported through the Outcome.
func Invoke[T any](ctx context.Context, c *Client, url string, payload Payload, dataField string) Outcome[T] {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return transportError[T](fmt.Errorf("%w: encode payload: %w", ErrRequest, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payloadBytes))
	if err != nil {
		return transportError[T](fmt.Errorf("%w: %w", ErrRequest, err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(subscriptionKeyHeader, c.key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError[T](fmt.Errorf("%w: %w", ErrRequest, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError[T](fmt.Errorf("%w: read body: %w", ErrRequest, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return transportError[T](statusError(resp.Status, body))
	}

	return parseResponse[T](body, dataField)
}

func statusError(status string, body []byte) error {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error != nil && er.Error.Code != "" {
		return fmt.Errorf("%w: %s: %s: %s", ErrStatus, status, er.Error.Code, er.Error.Message)
	}
	return fmt.Errorf("%w: %s", ErrStatus, status)
}

func parseResponse[T any](body []byte, dataField string) Outcome[T] {
	if !json.Valid(body) {
		return transportError[T](ErrDecode)
	}

	var ar analyzeResponse
	if err := json.Unmarshal(body, &ar); err != nil {
		return transportError[T](fmt.Errorf("%w: %w", ErrMalformed, err))
	}
	if ar.Results == nil {
		return transportError[T](fmt.Errorf("%w: missing results", ErrMalformed))
	}
	if isAbsent(ar.Results.Errors) {
		return transportError[T](fmt.Errorf("%w: missing results.errors", ErrMalformed))
	}
	var rawErrors []json.RawMessage
	if err := json.Unmarshal(ar.Results.Errors, &rawErrors); err != nil {
		return transportError[T](fmt.Errorf("%w: results.errors: %w", ErrMalformed, err))
	}
	if len(rawErrors) != 0 {
		errs := make([]ServiceError, len(rawErrors))
		for i, raw := range rawErrors {
			errs[i] = newServiceError(raw)
		}
		return serviceErrors[T](errs)
	}

	if isAbsent(ar.Results.Documents) {
		return transportError[T](fmt.Errorf("%w: missing results.documents", ErrMalformed))
	}
	var documents []map[string]json.RawMessage
	if err := json.Unmarshal(ar.Results.Documents, &documents); err != nil {
		return transportError[T](fmt.Errorf("%w: results.documents: %w", ErrMalformed, err))
	}

	results := make([]Result[T], 0, len(documents))
	for i, doc := range documents {
		var id string
		rawID, ok := doc["id"]
		if !ok {
			return transportError[T](fmt.Errorf("%w: document %d has no id", ErrMalformed, i))
		}
		if err := json.Unmarshal(rawID, &id); err != nil {
			return transportError[T](fmt.Errorf("%w: document %d id: %w", ErrMalformed, i, err))
		}

		rawValue, ok := doc[dataField]
		if !ok {
			return transportError[T](fmt.Errorf("%w: document %q has no %q", ErrMalformed, id, dataField))
		}
		var value T
		if err := json.Unmarshal(rawValue, &value); err != nil {
			return transportError[T](fmt.Errorf("%w: document %q %s: %w", ErrMalformed, id, dataField, err))
		}

		results = append(results, Result[T]{ID: id, Field: dataField, Value: value})
	}

	return okOutcome(results)
}

// isAbsent reports a missing or null JSON value.
func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
