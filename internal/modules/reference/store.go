package reference

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Store publishes the current reference table. Readers take a snapshot
// with Current and use it for a whole request; Reload swaps in a new
// version without affecting snapshots already handed out.
type Store struct {
	path    string
	current atomic.Pointer[Table]
	group   singleflight.Group
	log     zerolog.Logger
}

// NewStore loads the table from path, or the embedded default when path is
// empty.
func NewStore(path string, log zerolog.Logger) (*Store, error) {
	s := &Store{
		path: path,
		log:  log.With().Str("component", "reference_store").Logger(),
	}

	t, err := s.load()
	if err != nil {
		return nil, err
	}
	s.current.Store(t)

	s.log.Info().
		Str("version", t.Version()).
		Int("assets", len(t.keys)).
		Int("scenarios", len(t.scenarioOrder)).
		Msg("Reference data loaded")

	return s, nil
}

// NewStaticStore wraps an already built table; Reload re-publishes it.
func NewStaticStore(t *Table) *Store {
	s := &Store{log: zerolog.Nop()}
	s.current.Store(t)
	return s
}

// Current returns the table in effect
func (s *Store) Current() *Table {
	return s.current.Load()
}

// Path returns the override file, empty when the embedded table is used
func (s *Store) Path() string {
	return s.path
}

// Reload re-reads the reference file. Concurrent callers share one read.
// On failure the previous table stays in effect.
func (s *Store) Reload(ctx context.Context) (*Table, error) {
	ch := s.group.DoChan("reload", func() (interface{}, error) {
		t, err := s.load()
		if err != nil {
			return nil, err
		}
		previous := s.current.Swap(t)

		ev := s.log.Info().Str("version", t.Version())
		if previous != nil {
			ev = ev.Str("previous_version", previous.Version())
		}
		ev.Msg("Reference data reloaded")
		return t, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			s.log.Error().Err(res.Err).Msg("Reference data reload failed, keeping current table")
			return nil, res.Err
		}
		return res.Val.(*Table), nil
	}
}

func (s *Store) load() (*Table, error) {
	if s.path == "" {
		if t := s.current.Load(); t != nil {
			return t, nil
		}
		return Default(), nil
	}
	t, err := LoadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to load reference data: %w", err)
	}
	return t, nil
}
