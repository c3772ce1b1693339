// Package places holds the process-wide list of persisted places.
//
// The list has exactly three writers: Load (initial full load), Append
// (a place returned by a successful create) and AppendImage (an image
// returned by a successful upload). Reads hand out copies.
package places

import (
	"context"
	"sync"

	"github.com/bwise1/forest_places/internal/model"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	ErrDraft        = errors.New("draft places cannot be stored")
	ErrUnknownPlace = errors.New("place is not in the list")
)

// Observer is notified after every mutation with the new version.
type Observer func(version uint64)

// Lister fetches the full list from the remote service.
type Lister interface {
	ListPlaces(ctx context.Context) ([]model.Place, error)
}

type Store struct {
	mu        sync.RWMutex
	places    []model.Place
	index     map[int64]int
	version   uint64
	observers []Observer
}

func NewStore() *Store {
	return &Store{index: make(map[int64]int)}
}

// Refresh replaces the list with the remote one.
func (s *Store) Refresh(ctx context.Context, l Lister) error {
	list, err := l.ListPlaces(ctx)
	if err != nil {
		return errors.Wrap(err, "list places")
	}
	s.Load(list)
	log.Info().Int("count", s.Len()).Msg("place list loaded")
	return nil
}

// Load replaces the whole list. Entries without an id are dropped.
func (s *Store) Load(list []model.Place) {
	s.mu.Lock()
	s.places = s.places[:0]
	s.index = make(map[int64]int, len(list))
	for _, p := range list {
		if p.IsDraft() {
			continue
		}
		if i, ok := s.index[p.ID]; ok {
			s.places[i] = p.Clone()
			continue
		}
		s.index[p.ID] = len(s.places)
		s.places = append(s.places, p.Clone())
	}
	v := s.bumpLocked()
	s.mu.Unlock()

	s.notify(v)
}

// Append merges a newly persisted place. A place already present is
// replaced.
func (s *Store) Append(p model.Place) error {
	if p.IsDraft() {
		return ErrDraft
	}

	s.mu.Lock()
	if i, ok := s.index[p.ID]; ok {
		s.places[i] = p.Clone()
	} else {
		s.index[p.ID] = len(s.places)
		s.places = append(s.places, p.Clone())
	}
	v := s.bumpLocked()
	s.mu.Unlock()

	s.notify(v)
	return nil
}

// AppendImage adds img to the images of the owning place.
func (s *Store) AppendImage(placeID int64, img model.PlaceImage) error {
	s.mu.Lock()
	i, ok := s.index[placeID]
	if !ok {
		s.mu.Unlock()
		return ErrUnknownPlace
	}
	s.places[i].Images = append(s.places[i].Images, img)
	v := s.bumpLocked()
	s.mu.Unlock()

	s.notify(v)
	return nil
}

func (s *Store) List() []model.Place {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Place, len(s.places))
	for i, p := range s.places {
		out[i] = p.Clone()
	}
	return out
}

func (s *Store) Get(id int64) (model.Place, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return model.Place{}, false
	}
	return s.places[i].Clone(), true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.places)
}

// Version increases with every mutation.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Snapshot returns the list together with the version it belongs to.
func (s *Store) Snapshot() ([]model.Place, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Place, len(s.places))
	for i, p := range s.places {
		out[i] = p.Clone()
	}
	return out, s.version
}

func (s *Store) Subscribe(fn Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *Store) bumpLocked() uint64 {
	s.version++
	return s.version
}

func (s *Store) notify(v uint64) {
	s.mu.RLock()
	observers := append([]Observer(nil), s.observers...)
	s.mu.RUnlock()
	for _, fn := range observers {
		fn(v)
	}
}
