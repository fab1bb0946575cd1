package fault

import (
	"errors"
	"fmt"
	"time"
)

type Kind string

const (
	KindNetwork    Kind = "network"
	KindParsing    Kind = "parsing"
	KindEnrichment Kind = "enrichment"
	KindValidation Kind = "validation"
	KindPipeline   Kind = "pipeline"
)

// Retryable reports whether failures of this kind are worth another attempt.
func (k Kind) Retryable() bool {
	return k == KindNetwork || k == KindEnrichment
}

// Error is a classified pipeline failure. It is recorded, never thrown past
// the orchestrator.
type Error struct {
	Kind      Kind              `json:"kind"`
	Message   string            `json:"message"`
	URL       string            `json:"url,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Retryable bool              `json:"retryable"`
	Context   map[string]string `json:"context,omitempty"`
	Err       error             `json:"-"`
}

func New(kind Kind, url string, err error, message string) *Error {
	return &Error{
		Kind:      kind,
		Message:   message,
		URL:       url,
		Timestamp: time.Now(),
		Retryable: kind.Retryable(),
		Err:       err,
	}
}

func Network(url string, err error, message string) *Error {
	return New(KindNetwork, url, err, message)
}

func Parsing(url string, err error, message string) *Error {
	return New(KindParsing, url, err, message)
}

func Enrichment(url string, err error, message string) *Error {
	return New(KindEnrichment, url, err, message)
}

func Validation(url string, message string) *Error {
	return New(KindValidation, url, nil, message)
}

func Pipeline(err error, message string) *Error {
	return New(KindPipeline, "", err, message)
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.URL != "" {
		msg += " (" + e.URL + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// With attaches a context attribute and returns the error for chaining.
func (e *Error) With(key, value string) *Error {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// As extracts a *Error from err, classifying unknown errors with fallback.
func As(err error, fallback Kind, url string) *Error {
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}
	return New(fallback, url, err, "unclassified failure")
}
