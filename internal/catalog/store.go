package catalog

import "sync"

// Store serializes access to a Catalog so that any number of fetchers can
// hand stories over while merges are applied one at a time.
type Store struct {
	mu  sync.Mutex
	cat *Catalog

	merges   int
	created  int
	chapters int
}

func NewStore(c *Catalog) *Store {
	if c == nil {
		c = &Catalog{index: map[string]int{}}
	}

	return &Store{cat: c}
}

func (s *Store) Merge(fetched Story) (MergeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.cat.Merge(fetched)
	if err != nil {
		return res, err
	}

	s.merges++
	if res.Created {
		s.created++
	}
	s.chapters += res.Added

	return res, nil
}

// Known returns the chapter names already stored for id; ok is false when the
// story has never been merged.
func (s *Store) Known(id string) (names map[string]bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names = s.cat.ChapterNames(id)
	return names, names != nil
}

func (s *Store) Get(id string) (Story, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cat.Get(id)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cat.Len()
}

// Snapshot returns an independent catalog holding the current state, safe to
// persist while merges continue.
func (s *Store) Snapshot() *Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &Catalog{
		stories: s.cat.Stories(),
		index:   make(map[string]int, len(s.cat.index)),
	}
	for id, pos := range s.cat.index {
		snap.index[id] = pos
	}

	return snap
}

type StoreStats struct {
	Merges   int
	Created  int
	Chapters int
}

func (s *Store) Stats() StoreStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return StoreStats{Merges: s.merges, Created: s.created, Chapters: s.chapters}
}
