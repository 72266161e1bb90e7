package playback

import (
	"errors"
	"fmt"
	"sort"

	"github.com/vesper-player/vesper/constant"
	"github.com/vesper-player/vesper/trackmap"
	"github.com/vesper-player/vesper/trickplay"
)

// ErrInvalidRequest is returned by Play for a request that cannot start.
var ErrInvalidRequest = errors.New("invalid playback request")

// Request is the intent of one playback attempt.
type Request struct {
	URL string

	// Identifiers in the remote library. Empty when not applicable.
	ItemID        string
	SeriesID      string
	SeasonID      string
	LibraryID     string
	MediaSourceID string

	StartSeconds float64

	// Selection holds explicitly requested logical track indices.
	Selection trackmap.Selection

	// TrackMap, when set, is the canonical logical-to-engine track map.
	TrackMap *trackmap.Map

	Segments  []Segment
	Trickplay *trickplay.Info

	Framerate float64
	HDR       bool
}

func (r Request) validate() error {
	if r.URL == "" {
		return fmt.Errorf("%w: empty url", ErrInvalidRequest)
	}

	if r.StartSeconds < 0 {
		return fmt.Errorf("%w: negative start position", ErrInvalidRequest)
	}

	for _, s := range r.Segments {
		if s.EndTicks <= s.StartTicks {
			return fmt.Errorf("%w: empty %s segment", ErrInvalidRequest, s.Kind)
		}
	}

	return nil
}

// SegmentKind classifies a skippable segment.
type SegmentKind int

const (
	Intro SegmentKind = iota
	Outro
)

func (k SegmentKind) String() string {
	if k == Outro {
		return "outro"
	}
	return "intro"
}

// Segment is a skippable range in ticks.
type Segment struct {
	Kind       SegmentKind
	StartTicks int64
	EndTicks   int64
}

func (s Segment) Start() float64 { return ticksToSeconds(s.StartTicks) }
func (s Segment) End() float64   { return ticksToSeconds(s.EndTicks) }

func (s Segment) contains(seconds float64) bool {
	return seconds >= s.Start() && seconds < s.End()
}

func sortedSegments(segments []Segment) []Segment {
	out := append([]Segment(nil), segments...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTicks < out[j].StartTicks })
	return out
}

func ticksToSeconds(ticks int64) float64 {
	return float64(ticks) / constant.TicksPerSecond
}

func secondsToTicks(seconds float64) int64 {
	return int64(seconds * constant.TicksPerSecond)
}
