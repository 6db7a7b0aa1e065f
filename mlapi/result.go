package mlapi

import (
	"encoding/json"
	"errors"
)

// Status tags which branch of an Outcome is populated.
type Status int

const (
	StatusOK Status = iota
	StatusServiceErrors
	StatusTransportError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusServiceErrors:
		return "service_errors"
	case StatusTransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

var (
	// ErrRequest means the request could not be built or sent.
	ErrRequest = errors.New("request failed")
	// ErrStatus means the service answered with a non-2xx status.
	ErrStatus = errors.New("unexpected status")
	// ErrDecode means the response body was not JSON.
	ErrDecode = errors.New("response is not valid JSON")
	// ErrMalformed means the response was JSON but not the expected shape.
	ErrMalformed = errors.New("malformed response")
)

// Result is one analyzed document: its id and the extracted field.
type Result[T any] struct {
	ID    string
	Field string
	Value T
}

// MarshalJSON renders the result as {"id": ..., "<field>": ...}.
func (r Result[T]) MarshalJSON() ([]byte, error) {
	value, err := json.Marshal(r.Value)
	if err != nil {
		return nil, err
	}
	field := r.Field
	if field == "" {
		field = "value"
	}
	return json.Marshal(map[string]json.RawMessage{
		"id":  mustMarshal(r.ID),
		field: value,
	})
}

func mustMarshal(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

// ErrorDetail is the service's error object.
type ErrorDetail struct {
	Code       string       `json:"code"`
	Message    string       `json:"message"`
	Target     string       `json:"target,omitempty"`
	InnerError *ErrorDetail `json:"innererror,omitempty"`
}

// ServiceError is one element of results.errors. Raw holds the element as received.
type ServiceError struct {
	ID    string
	Error ErrorDetail
	Raw   json.RawMessage
}

func (e *ServiceError) UnmarshalJSON(data []byte) error {
	*e = newServiceError(data)
	return nil
}

// newServiceError keeps raw as received. ID and Error are filled in only when
// they have the expected shape.
func newServiceError(raw json.RawMessage) ServiceError {
	e := ServiceError{Raw: append(json.RawMessage(nil), raw...)}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return e
	}
	if id, ok := fields["id"]; ok {
		_ = json.Unmarshal(id, &e.ID)
	}
	if detail, ok := fields["error"]; ok {
		_ = json.Unmarshal(detail, &e.Error)
	}
	return e
}

// MarshalJSON returns the element exactly as the service sent it.
func (e ServiceError) MarshalJSON() ([]byte, error) {
	if len(e.Raw) > 0 {
		return e.Raw, nil
	}
	return json.Marshal(struct {
		ID    string      `json:"id"`
		Error ErrorDetail `json:"error"`
	}{e.ID, e.Error})
}

// Outcome is the result of one call. Status says which of Results, Errors or Err is set.
type Outcome[T any] struct {
	Status  Status
	Results []Result[T]
	Errors  []ServiceError
	Err     error
}

// OK reports whether the call produced results.
func (o Outcome[T]) OK() bool {
	return o.Status == StatusOK
}

// Message describes a transport failure. It is empty for other statuses.
func (o Outcome[T]) Message() string {
	if o.Status != StatusTransportError || o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

func okOutcome[T any](results []Result[T]) Outcome[T] {
	return Outcome[T]{Status: StatusOK, Results: results}
}

func serviceErrors[T any](errs []ServiceError) Outcome[T] {
	return Outcome[T]{Status: StatusServiceErrors, Errors: errs}
}

func transportError[T any](err error) Outcome[T] {
	return Outcome[T]{Status: StatusTransportError, Err: err}
}

// PiiEntity is a piece of personal information found in a document.
type PiiEntity struct {
	Text            string  `json:"text"`
	Category        string  `json:"category"`
	Subcategory     string  `json:"subcategory,omitempty"`
	Offset          int     `json:"offset"`
	Length          int     `json:"length"`
	ConfidenceScore float64 `json:"confidenceScore"`
}

// Entity is a recognized named entity.
type Entity struct {
	Text            string  `json:"text"`
	Category        string  `json:"category"`
	Subcategory     string  `json:"subcategory,omitempty"`
	Offset          int     `json:"offset"`
	Length          int     `json:"length"`
	ConfidenceScore float64 `json:"confidenceScore"`
}

// Match is one occurrence of a linked entity in the text.
type Match struct {
	Text            string  `json:"text"`
	Offset          int     `json:"offset"`
	Length          int     `json:"length"`
	ConfidenceScore float64 `json:"confidenceScore"`
}

// LinkedEntity is an entity resolved against a knowledge base.
type LinkedEntity struct {
	Name       string  `json:"name"`
	Matches    []Match `json:"matches"`
	Language   string  `json:"language"`
	ID         string  `json:"id,omitempty"`
	URL        string  `json:"url"`
	DataSource string  `json:"dataSource"`
	BingID     string  `json:"bingId,omitempty"`
}

type DetectedLanguage struct {
	Name            string  `json:"name"`
	ISO6391Name     string  `json:"iso6391Name"`
	ConfidenceScore float64 `json:"confidenceScore"`
}
