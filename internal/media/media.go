// Package media provides the optional auxiliary transforms: narration,
// translation and illustration. Each capability is present only when its
// collaborator was configured.
package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"

	"github.com/tatianab/questforge/internal/cache"
)

var ErrDisabled = errors.New("capability not enabled")

const (
	speechCacheSize      = 50
	translationCacheSize = 100
)

// Narrator turns text into MP3 audio.
type Narrator interface {
	Narrate(ctx context.Context, text, language string) ([]byte, error)
}

// Translation is translated text plus the detected source language.
type Translation struct {
	Text   string `json:"translated_text"`
	Source string `json:"source_language"`
}

type Translator interface {
	Translate(ctx context.Context, text, target string) (Translation, error)
}

// Illustrator renders a PNG image for a prompt.
type Illustrator interface {
	Illustrate(ctx context.Context, prompt string) ([]byte, error)
}

// Features reports which capabilities are enabled.
type Features struct {
	TTS       bool `json:"tts"`
	Translate bool `json:"translate"`
	Imagen    bool `json:"imagen"`
}

// Service runs the configured collaborators on a bounded pool and caches
// narration and translation results.
type Service struct {
	narrator     Narrator
	translator   Translator
	illustrator  Illustrator
	pool         *Pool
	speech       *cache.Bounded[string, []byte]
	translations *cache.Bounded[string, Translation]
	logger       *log.Logger
}

type Option func(*Service)

func WithNarrator(n Narrator) Option {
	return func(s *Service) { s.narrator = n }
}

func WithTranslator(t Translator) Option {
	return func(s *Service) { s.translator = t }
}

func WithIllustrator(i Illustrator) Option {
	return func(s *Service) { s.illustrator = i }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewService(concurrency int, opts ...Option) *Service {
	s := &Service{
		pool:         NewPool(concurrency),
		speech:       cache.New[string, []byte](speechCacheSize, cache.LeastRecentlyUsed),
		translations: cache.New[string, Translation](translationCacheSize, cache.LeastRecentlyUsed),
		logger:       log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Features() Features {
	if s == nil {
		return Features{}
	}
	return Features{
		TTS:       s.narrator != nil,
		Translate: s.translator != nil,
		Imagen:    s.illustrator != nil,
	}
}

func cacheKey(language, text string) string {
	sum := sha256.Sum256([]byte(language + ":" + text))
	return hex.EncodeToString(sum[:])
}

// Narrate returns MP3 audio for text spoken in language.
func (s *Service) Narrate(ctx context.Context, text, language string) ([]byte, error) {
	if s == nil || s.narrator == nil {
		return nil, ErrDisabled
	}
	key := cacheKey(language, text)
	if audio, ok := s.speech.Get(key); ok {
		return audio, nil
	}

	var audio []byte
	err := s.pool.Do(ctx, func(ctx context.Context) error {
		var err error
		audio, err = s.narrator.Narrate(ctx, text, language)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("narrate: %w", err)
	}
	s.speech.Put(key, audio)
	return audio, nil
}

// Translate translates text into target. A backend failure returns the
// original text with an empty source language.
func (s *Service) Translate(ctx context.Context, text, target string) (Translation, error) {
	if s == nil || s.translator == nil {
		return Translation{}, ErrDisabled
	}
	key := cacheKey(target, text)
	if tr, ok := s.translations.Get(key); ok {
		return tr, nil
	}

	var tr Translation
	err := s.pool.Do(ctx, func(ctx context.Context) error {
		var err error
		tr, err = s.translator.Translate(ctx, text, target)
		return err
	})
	if err != nil {
		s.logger.Printf("WARN: translation to %s failed: %v", target, err)
		return Translation{Text: text}, nil
	}
	s.translations.Put(key, tr)
	return tr, nil
}

// Illustrate returns a PNG image for prompt. Images are not cached.
func (s *Service) Illustrate(ctx context.Context, prompt string) ([]byte, error) {
	if s == nil || s.illustrator == nil {
		return nil, ErrDisabled
	}
	var img []byte
	err := s.pool.Do(ctx, func(ctx context.Context) error {
		var err error
		img, err = s.illustrator.Illustrate(ctx, prompt)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("illustrate: %w", err)
	}
	return img, nil
}
