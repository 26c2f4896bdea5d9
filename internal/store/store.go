// Package store keeps active sessions in a bounded in-memory cache with an
// optional durable write-through backend.
package store

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/tatianab/questforge/internal/cache"
	"github.com/tatianab/questforge/internal/models"
)

// DefaultCapacity is the in-memory session ceiling.
const DefaultCapacity = 5000

// DefaultTimeout bounds a single durable call.
const DefaultTimeout = 5 * time.Second

var ErrNotFound = errors.New("not found")

// Durable is a key-value document store for sessions. Load returns
// ErrNotFound when no record exists.
type Durable interface {
	Load(ctx context.Context, id string) (*models.Session, error)
	Save(ctx context.Context, s *models.Session) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// Store is the session state store. The in-memory copy is authoritative;
// durable faults are logged and never returned to callers.
type Store struct {
	sessions *cache.Bounded[string, *models.Session]
	durable  Durable
	timeout  time.Duration
	logger   *log.Logger
}

type Option func(*Store)

// WithDurable enables write-through to d.
func WithDurable(d Durable) Option {
	return func(s *Store) {
		s.durable = d
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(capacity int, opts ...Option) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	s := &Store{
		sessions: cache.New[string, *models.Session](capacity, cache.InsertionOrder),
		timeout:  DefaultTimeout,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns a copy of the session. On a cache miss it falls back to the
// durable backend and repopulates the cache.
func (s *Store) Get(ctx context.Context, id string) (*models.Session, bool) {
	if sess, ok := s.sessions.Get(id); ok {
		return sess.Clone(), true
	}
	if s.durable == nil {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	sess, err := s.durable.Load(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Printf("WARN: durable load failed for %s: %v", id, err)
		}
		return nil, false
	}
	if sess == nil || sess.ID != id {
		return nil, false
	}
	s.sessions.Put(id, sess.Clone())
	return sess, true
}

// Put caches a copy of sess and writes it through to the durable backend.
func (s *Store) Put(ctx context.Context, sess *models.Session) {
	s.sessions.Put(sess.ID, sess.Clone())
	if s.durable == nil {
		return
	}

	// The write outlives a cancelled request so a disconnecting client does
	// not leave the durable copy behind the cache.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	if err := s.durable.Save(ctx, sess); err != nil {
		s.logger.Printf("WARN: durable save failed for %s: %v", sess.ID, err)
	}
}

// Len reports the number of cached sessions.
func (s *Store) Len() int {
	return s.sessions.Len()
}

func (s *Store) HasDurable() bool {
	return s.durable != nil
}

func (s *Store) Close() error {
	if s.durable == nil {
		return nil
	}
	return s.durable.Close()
}
