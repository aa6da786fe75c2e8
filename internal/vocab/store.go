package vocab

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// Store holds the active vocabulary and swaps it atomically on reload.
// Readers never observe a partially loaded vocabulary.
type Store struct {
	path    string
	current atomic.Pointer[Vocabulary]
	version atomic.Uint64
	logger  *zap.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets a logger for reload events.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// NewStore loads path, or the built-in vocabulary when path is empty.
func NewStore(path string, opts ...StoreOption) (*Store, error) {
	s := &Store{path: path, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	v, err := s.read()
	if err != nil {
		return nil, err
	}
	s.current.Store(v)
	s.version.Add(1)
	return s, nil
}

// NewStaticStore wraps an already validated vocabulary.
func NewStaticStore(v *Vocabulary) *Store {
	s := &Store{logger: zap.NewNop()}
	s.current.Store(v)
	s.version.Add(1)
	return s
}

func (s *Store) read() (*Vocabulary, error) {
	if s.path == "" {
		return Default()
	}
	return Load(s.path)
}

// Get returns the active vocabulary.
func (s *Store) Get() *Vocabulary {
	return s.current.Load()
}

// Version increases by one on every successful load.
func (s *Store) Version() uint64 {
	return s.version.Load()
}

// Path returns the backing file, or "" for the built-in vocabulary.
func (s *Store) Path() string {
	return s.path
}

// Reload re-reads the backing file. On error the previous vocabulary stays active.
func (s *Store) Reload() error {
	v, err := s.read()
	if err != nil {
		s.logger.Warn("vocabulary reload rejected", zap.String("path", s.path), zap.Error(err))
		return err
	}
	s.current.Store(v)
	s.version.Add(1)
	s.logger.Info("vocabulary reloaded",
		zap.String("path", s.path),
		zap.Int("arabic_expansions", len(v.Arabic.Expansions)),
		zap.Int("english_expansions", len(v.English.Expansions)),
	)
	return nil
}
