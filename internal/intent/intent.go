// Package intent defines the boundary to the external intent extraction service.
package intent

import (
	"context"
	"errors"

	"github.com/ashureev/influencer-desk/internal/domain"
)

var (
	// ErrUnavailable reports that the extractor could not be reached or timed out.
	ErrUnavailable = errors.New("intent extractor unavailable")
	// ErrMalformed reports a response that is not a well-formed object.
	ErrMalformed = errors.New("intent extractor returned malformed output")
)

// Request is the context handed to an extractor for one turn.
type Request struct {
	Fields domain.Fields
	Stage  domain.Stage
	Step   domain.Step
	Text   string
	Kind   domain.EventKind
}

// Result is the structured output of an extractor.
type Result struct {
	Updates           map[domain.Slot]domain.Value
	IsQuestion        bool
	SuggestedNextStep string
}

// Extractor turns a raw user turn into slot updates.
type Extractor interface {
	Extract(ctx context.Context, req Request) (Result, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, req Request) (Result, error)

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}
