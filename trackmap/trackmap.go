// Package trackmap translates between the library's logical stream indices and
// the engine's per-type track ids.
//
// The library numbers every stream of a media source in one sequence (video,
// audio and subtitle streams share it). The engine numbers audio and subtitle
// tracks separately, starting at 1. External subtitles are added to the engine
// after the embedded ones, so they follow them in engine order.
package trackmap

import (
	"sort"
	"strings"
)

// None is the logical index and engine id meaning "auto" for audio and "off" for subtitles.
const None = -1

// Keep is the engine id meaning "do not touch the engine's own choice".
const Keep = 0

// Kind selects the per-type numbering a lookup uses.
type Kind int

const (
	Audio Kind = iota
	Subtitle
)

func (k Kind) String() string {
	switch k {
	case Audio:
		return "audio"
	case Subtitle:
		return "subtitle"
	default:
		return "unknown"
	}
}

// Stream describes one stream of a library media source.
type Stream struct {
	Index    int
	Type     string
	External bool
}

// Map holds logical index to engine id entries for both track kinds.
type Map struct {
	Audio    map[int]int
	Subtitle map[int]int
}

// NewMap returns an empty map ready for entries.
func NewMap() Map {
	return Map{Audio: map[int]int{}, Subtitle: map[int]int{}}
}

func (m Map) table(kind Kind) map[int]int {
	if kind == Subtitle {
		return m.Subtitle
	}
	return m.Audio
}

// FromStreams derives the canonical map the engine will expose for streams.
func FromStreams(streams []Stream) Map {
	sorted := make([]Stream, len(streams))
	copy(sorted, streams)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	m := NewMap()

	var external []Stream
	for _, s := range sorted {
		switch strings.ToLower(s.Type) {
		case "audio":
			m.Audio[s.Index] = len(m.Audio) + 1
		case "subtitle":
			if s.External {
				external = append(external, s)
				continue
			}
			m.Subtitle[s.Index] = len(m.Subtitle) + 1
		}
	}

	for _, s := range external {
		m.Subtitle[s.Index] = len(m.Subtitle) + 1
	}

	return m
}

// Mapper resolves selections against the most recently supplied map.
// The zero value has no map and resolves everything to None.
type Mapper struct {
	current  Map
	supplied bool
}

// Supply replaces the active map.
func (m *Mapper) Supply(mp Map) {
	m.current = mp
	m.supplied = true
}

// Reset forgets the active map.
func (m *Mapper) Reset() {
	m.current = Map{}
	m.supplied = false
}

// Supplied reports whether a canonical map is active.
func (m *Mapper) Supplied() bool {
	return m.supplied
}

// Resolve returns the engine id for a logical index, or None without an entry.
func (m *Mapper) Resolve(logical int, kind Kind) int {
	if logical < 0 || !m.supplied {
		return None
	}

	if id, ok := m.current.table(kind)[logical]; ok {
		return id
	}
	return None
}

// Logical is the reverse of Resolve. An engine id of None maps to None.
func (m *Mapper) Logical(engineID int, kind Kind) (int, bool) {
	if engineID == None {
		return None, true
	}

	for logical, id := range m.current.table(kind) {
		if id == engineID {
			return logical, true
		}
	}
	return 0, false
}
