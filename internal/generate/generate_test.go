package generate

import (
	"bytes"
	"context"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatianab/questforge/internal/contract"
)

type funcGenerator func(ctx context.Context, prompt string, mode Mode) (string, error)

func (f funcGenerator) Generate(ctx context.Context, prompt string, mode Mode) (string, error) {
	return f(ctx, prompt, mode)
}

func newTestAdapter(t *testing.T, gen Generator, timeout time.Duration) (*Adapter, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return NewAdapter(gen, timeout, log.New(&buf, "", 0)), &buf
}

func TestAdapterReturnsBackendText(t *testing.T) {
	a, _ := newTestAdapter(t, funcGenerator(func(_ context.Context, prompt string, mode Mode) (string, error) {
		assert.Equal(t, "hello", prompt)
		assert.Equal(t, ModeTurn, mode)
		return `{"narrative":"hi"}`, nil
	}), time.Second)

	text, ok := a.Generate(context.Background(), "hello", ModeTurn)
	require.True(t, ok)
	assert.Equal(t, `{"narrative":"hi"}`, text)
}

func TestAdapterAbsorbsFailures(t *testing.T) {
	cases := map[string]Generator{
		"error": funcGenerator(func(context.Context, string, Mode) (string, error) {
			return "", errors.New("quota exceeded")
		}),
		"empty": funcGenerator(func(context.Context, string, Mode) (string, error) {
			return "", nil
		}),
		"panic": funcGenerator(func(context.Context, string, Mode) (string, error) {
			panic("boom")
		}),
	}
	for name, gen := range cases {
		t.Run(name, func(t *testing.T) {
			a, logs := newTestAdapter(t, gen, time.Second)
			text, ok := a.Generate(context.Background(), "p", ModeTurn)
			assert.False(t, ok)
			assert.Empty(t, text)
			assert.Contains(t, logs.String(), "WARN")
		})
	}
}

func TestAdapterBoundsLatency(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	// Ignores ctx on purpose: the adapter must not wait for it.
	a, _ := newTestAdapter(t, funcGenerator(func(context.Context, string, Mode) (string, error) {
		<-release
		return `{"narrative":"late"}`, nil
	}), 20*time.Millisecond)

	start := time.Now()
	_, ok := a.Generate(context.Background(), "p", ModeTurn)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second)
}

func TestAdapterWithoutGenerator(t *testing.T) {
	a, _ := newTestAdapter(t, nil, time.Second)
	_, ok := a.Generate(context.Background(), "p", ModeOpening)
	assert.False(t, ok)

	var nilAdapter *Adapter
	_, ok = nilAdapter.Generate(context.Background(), "p", ModeOpening)
	assert.False(t, ok)
}

func TestMockIsDeterministicAndValid(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	first, err := m.Generate(ctx, "turn prompt", ModeTurn)
	require.NoError(t, err)
	second, err := m.Generate(ctx, "turn prompt", ModeTurn)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	d := contract.ValidateTurn(first)
	assert.Equal(t, contract.Validated, d.Kind)
	require.NotNil(t, d.Location)

	opening, err := m.Generate(ctx, "opening prompt", ModeOpening)
	require.NoError(t, err)
	d = contract.ValidateTurn(opening)
	assert.Len(t, d.Gained, 1)
	assert.Zero(t, d.VitalityDelta)
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	_, closeFn, err := New(context.Background(), "carrier-pigeon", "", "", "")
	assert.Error(t, err)
	assert.NoError(t, closeFn())

	gen, closeFn, err := New(context.Background(), "MOCK", "", "", "")
	require.NoError(t, err)
	assert.IsType(t, &Mock{}, gen)
	assert.NoError(t, closeFn())
}
