package advisor

import (
	"context"

	"agri-sentinel/internal/agri"
)

// Static is the offline advisor. With no text it always reports ErrNoAdvice,
// which makes WithFallback return the caller's local answer.
type Static struct {
	text string
}

func NewStatic(text string) *Static {
	return &Static{text: text}
}

func (s *Static) Advise(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.text == "" {
		return "", ErrNoAdvice
	}
	return s.text, nil
}

func (s *Static) Name() string { return "static" }

var _ agri.Advisor = (*Static)(nil)
