// Package trackpref persists track choices per season (or per movie) so later
// sessions in the same context start with the same audio and subtitle tracks.
package trackpref

import (
	"sync"

	"github.com/metafates/gache"
	"github.com/vesper-player/vesper/filesystem"
)

// Preference is a stored choice. Nil fields were never chosen.
type Preference struct {
	Audio      *int     `json:"audio,omitempty"`
	Subtitle   *int     `json:"subtitle,omitempty"`
	AudioDelay *float64 `json:"audio_delay,omitempty"`
}

// ContextKey picks the key a session's preferences are stored under.
// Episodes share their season's preference; anything else is keyed by item.
func ContextKey(seasonID, itemID string) string {
	if seasonID != "" {
		return "season:" + seasonID
	}
	if itemID != "" {
		return "item:" + itemID
	}
	return ""
}

// Store is a disk-backed registry of preferences. Safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	cacher *gache.Cache[map[string]*Preference]
}

// New opens (lazily) the registry stored at path.
func New(path string) *Store {
	return &Store{
		cacher: filesystem.NewCache[map[string]*Preference](path, 0),
	}
}

func (s *Store) all() (map[string]*Preference, error) {
	cached, expired, err := s.cacher.Get()
	if err != nil {
		return nil, err
	}
	if expired || cached == nil {
		return make(map[string]*Preference), nil
	}
	return cached, nil
}

// Get returns the preference stored for key.
func (s *Store) Get(key string) (Preference, bool) {
	if key == "" {
		return Preference{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	saved, err := s.all()
	if err != nil {
		return Preference{}, false
	}

	p, ok := saved[key]
	if !ok || p == nil {
		return Preference{}, false
	}
	return *p, true
}

// Update applies fn to the preference stored for key and persists the result.
func (s *Store) Update(key string, fn func(p *Preference)) error {
	if key == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	saved, err := s.all()
	if err != nil {
		return err
	}

	p, ok := saved[key]
	if !ok || p == nil {
		p = &Preference{}
		saved[key] = p
	}
	fn(p)

	return s.cacher.Set(saved)
}

// Clear forgets every stored preference.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cacher.Set(make(map[string]*Preference))
}
