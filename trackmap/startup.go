package trackmap

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/samber/mo"
)

// Selection is a pair of logical indices. An absent value means the caller
// expressed no choice; a present None means auto (audio) or off (subtitle).
type Selection struct {
	Audio    mo.Option[int]
	Subtitle mo.Option[int]
}

// Source records which input decided the startup tracks.
type Source int

const (
	SourceDefault Source = iota
	SourceURL
	SourceMap
)

func (s Source) String() string {
	switch s {
	case SourceURL:
		return "url"
	case SourceMap:
		return "map"
	default:
		return "default"
	}
}

// Startup is the outcome of the startup selection policy.
type Startup struct {
	Source Source

	// Logical indices kept in the session and reported to the library.
	Audio    int
	Subtitle int

	// Engine ids applied once buffering starts. Keep leaves the engine alone.
	EngineAudio    int
	EngineSubtitle int
}

// URLSelection extracts the stream indices pinned in a stream URL's query.
func URLSelection(rawURL string) Selection {
	var sel Selection

	u, err := url.Parse(rawURL)
	if err != nil {
		return sel
	}

	for name, values := range u.Query() {
		if len(values) == 0 {
			continue
		}

		n, err := strconv.Atoi(values[0])
		if err != nil {
			continue
		}

		switch strings.ToLower(name) {
		case "audiostreamindex":
			sel.Audio = mo.Some(n)
		case "subtitlestreamindex":
			sel.Subtitle = mo.Some(n)
		}
	}

	return sel
}

// Startup decides the tracks applied when playback of rawURL begins.
//
// An explicit canonical map wins: it is supplied to the mapper and the
// requested selection (falling back to the URL's pinned indices) is resolved
// through it. Without a map, a selection pinned in the URL is honored verbatim,
// since the server already delivers those streams, and the engine is left alone.
func (m *Mapper) Startup(rawURL string, requested Selection, explicit *Map) Startup {
	pinned := URLSelection(rawURL)

	pick := func(req, pin mo.Option[int]) int {
		if v, ok := req.Get(); ok {
			return v
		}
		return pin.OrElse(None)
	}

	if explicit != nil {
		m.Supply(*explicit)

		audio := pick(requested.Audio, pinned.Audio)
		subtitle := pick(requested.Subtitle, pinned.Subtitle)

		return Startup{
			Source:         SourceMap,
			Audio:          audio,
			Subtitle:       subtitle,
			EngineAudio:    m.Resolve(audio, Audio),
			EngineSubtitle: m.Resolve(subtitle, Subtitle),
		}
	}

	m.Reset()

	source := SourceDefault
	if pinned.Audio.IsPresent() || pinned.Subtitle.IsPresent() {
		source = SourceURL
	}

	return Startup{
		Source:         source,
		Audio:          pick(pinned.Audio, requested.Audio),
		Subtitle:       pick(pinned.Subtitle, requested.Subtitle),
		EngineAudio:    Keep,
		EngineSubtitle: Keep,
	}
}
