package media

import (
	"bytes"
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNarrator struct {
	calls atomic.Int32
}

func (f *fakeNarrator) Narrate(_ context.Context, text, language string) ([]byte, error) {
	f.calls.Add(1)
	return []byte(language + "|" + text), nil
}

type fakeTranslator struct {
	calls atomic.Int32
	err   error
}

func (f *fakeTranslator) Translate(_ context.Context, text, target string) (Translation, error) {
	f.calls.Add(1)
	if f.err != nil {
		return Translation{}, f.err
	}
	return Translation{Text: "[" + target + "] " + text, Source: "en"}, nil
}

type illustratorFunc func(ctx context.Context, prompt string) ([]byte, error)

func (f illustratorFunc) Illustrate(ctx context.Context, prompt string) ([]byte, error) {
	return f(ctx, prompt)
}

func TestDisabledCapabilities(t *testing.T) {
	s := NewService(2)
	ctx := context.Background()

	assert.Equal(t, Features{}, s.Features())
	_, err := s.Narrate(ctx, "hi", "en")
	assert.ErrorIs(t, err, ErrDisabled)
	_, err = s.Translate(ctx, "hi", "es")
	assert.ErrorIs(t, err, ErrDisabled)
	_, err = s.Illustrate(ctx, "a castle")
	assert.ErrorIs(t, err, ErrDisabled)

	var nilService *Service
	assert.Equal(t, Features{}, nilService.Features())
	_, err = nilService.Narrate(ctx, "hi", "en")
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestNarrateIsCached(t *testing.T) {
	n := &fakeNarrator{}
	s := NewService(2, WithNarrator(n))
	ctx := context.Background()

	audio, err := s.Narrate(ctx, "hello", "en")
	require.NoError(t, err)
	assert.Equal(t, []byte("en|hello"), audio)
	_, err = s.Narrate(ctx, "hello", "en")
	require.NoError(t, err)
	_, err = s.Narrate(ctx, "hello", "fr")
	require.NoError(t, err)

	assert.EqualValues(t, 2, n.calls.Load())
	assert.True(t, s.Features().TTS)
}

func TestTranslateFailureReturnsOriginal(t *testing.T) {
	tr := &fakeTranslator{err: errors.New("quota")}
	var logs bytes.Buffer
	s := NewService(1, WithTranslator(tr), WithLogger(log.New(&logs, "", 0)))

	got, err := s.Translate(context.Background(), "Hello there", "de")
	require.NoError(t, err)
	assert.Equal(t, "Hello there", got.Text)
	assert.Empty(t, got.Source)
	assert.Contains(t, logs.String(), "WARN")

	// failures are not cached
	tr.err = nil
	got, err = s.Translate(context.Background(), "Hello there", "de")
	require.NoError(t, err)
	assert.Equal(t, "[de] Hello there", got.Text)
	assert.Equal(t, "en", got.Source)
	_, _ = s.Translate(context.Background(), "Hello there", "de")
	assert.EqualValues(t, 2, tr.calls.Load())
}

func TestIllustrateErrors(t *testing.T) {
	s := NewService(1, WithIllustrator(illustratorFunc(func(context.Context, string) ([]byte, error) {
		return nil, errors.New("blocked")
	})))
	_, err := s.Illustrate(context.Background(), "a dragon")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrDisabled)
}

func TestPoolBoundsConcurrency(t *testing.T) {
	var current, peak atomic.Int32
	s := NewService(2, WithIllustrator(illustratorFunc(func(context.Context, string) ([]byte, error) {
		n := current.Add(1)
		defer current.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return []byte("png"), nil
	})))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Illustrate(context.Background(), "scene")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestPoolRecoversPanicsAndHonoursContext(t *testing.T) {
	p := NewPool(1)
	err := p.Do(context.Background(), func(context.Context) error { panic("boom") })
	assert.ErrorContains(t, err, "boom")

	release := make(chan struct{})
	go p.Do(context.Background(), func(context.Context) error {
		<-release
		return nil
	})
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err = p.Do(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(release)
}
