// Package generate wraps the generative backend behind a single call that
// never fails past its boundary.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Mode hints what kind of response is being requested.
type Mode string

const (
	ModeOpening Mode = "opening"
	ModeTurn    Mode = "turn"
)

// Generator is a backend able to answer a prompt with structured text.
type Generator interface {
	Generate(ctx context.Context, prompt string, mode Mode) (string, error)
}

// DefaultTimeout bounds one backend call when no timeout is configured.
const DefaultTimeout = 20 * time.Second

var errEmpty = errors.New("backend returned no content")

// Adapter makes exactly one bounded attempt per call and reports failure as
// ok=false instead of an error.
type Adapter struct {
	gen     Generator
	timeout time.Duration
	logger  *log.Logger
}

func NewAdapter(gen Generator, timeout time.Duration, logger *log.Logger) *Adapter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Adapter{gen: gen, timeout: timeout, logger: logger}
}

type result struct {
	text string
	err  error
}

// Generate returns the raw backend text, or ok=false on timeout, transport
// error, empty output or a panic inside the backend client.
func (a *Adapter) Generate(ctx context.Context, prompt string, mode Mode) (text string, ok bool) {
	ctx, span := otel.Tracer("github.com/tatianab/questforge/internal/generate").Start(ctx, "generate.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("generate.mode", string(mode)))

	if a == nil || a.gen == nil {
		span.SetStatus(codes.Error, "no generator configured")
		return "", false
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("generator panic: %v", r)}
			}
		}()
		text, err := a.gen.Generate(ctx, prompt, mode)
		done <- result{text: text, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		res = result{err: ctx.Err()}
	}
	if res.err == nil && res.text == "" {
		res.err = errEmpty
	}
	if res.err != nil {
		a.logger.Printf("WARN: %s generation failed after %s: %v", mode, time.Since(start).Round(time.Millisecond), res.err)
		span.RecordError(res.err)
		span.SetStatus(codes.Error, "generation failed")
		return "", false
	}
	return res.text, true
}
