package generate

import (
	"context"
	"fmt"
	"log"
	"strings"
)

const (
	BackendGemini = "gemini"
	BackendMock   = "mock"
)

// New creates the Generator named by backend. The returned close function
// releases backend resources and is never nil.
func New(ctx context.Context, backend, apiKey, model, systemPrompt string) (Generator, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendMock:
		log.Println("generator backend is mock, using scripted offline responses")
		return NewMock(), noop, nil
	case BackendGemini, "":
		g, err := NewGemini(ctx, apiKey, model, systemPrompt)
		if err != nil {
			return nil, noop, err
		}
		return g, g.Close, nil
	default:
		return nil, noop, fmt.Errorf("unsupported generator backend %q", backend)
	}
}
