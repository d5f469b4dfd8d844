package providers

import (
	"context"
)

// Request describes one call against the vision model.
type Request struct {
	Model       string
	Temperature float64
	Prompt      string
	Image       []byte
	MIMEType    string
	// ForceJSON asks the provider to emit raw JSON matching the
	// schema described in the prompt, without prose or markdown.
	// Cannot be combined with WebSearch.
	ForceJSON bool
	// WebSearch grounds the call in live web results instead of the
	// model's training data. Responses may arrive fenced in markdown.
	WebSearch bool
}

// Provider defines the interface for a vision-capable LLM provider.
type Provider interface {
	Generate(ctx context.Context, req Request) (string, error)
}
