package playback

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"
	"github.com/vesper-player/vesper/log"
	"github.com/vesper-player/vesper/trackmap"
	"github.com/vesper-player/vesper/trackpref"
	"github.com/vesper-player/vesper/trickplay"
)

// TrackMode tells whether engine track notifications are authoritative.
type TrackMode int

const (
	// ApplyingStartupSelection ignores engine track changes: they echo the
	// startup selection being applied.
	ApplyingStartupSelection TrackMode = iota

	// UserControlled follows engine track changes.
	UserControlled
)

func (t TrackMode) String() string {
	if t == UserControlled {
		return "user-controlled"
	}
	return "applying-startup-selection"
}

// session is the state of one playback attempt. Only the control loop
// touches it.
type session struct {
	req Request
	id  string

	position float64
	duration float64

	waitingFirstPosition bool
	bufferingSince       time.Time
	bufferingFrom        float64
	bufferingProgress    int

	audio          int
	subtitle       int
	engineAudio    int
	engineSubtitle int
	trackMode      TrackMode

	audioDelay  float64
	pendingSeek mo.Option[float64]

	segments     []Segment
	segment      int
	chaptersSent bool

	trickplayReady bool
	trickplayPath  string
	trickplayInfo  trickplay.Info

	volume float64
	muted  bool

	startReported    bool
	played           bool
	autoplayEligible bool
	message          string
}

func newSession() session {
	return session{
		audio:          trackmap.None,
		subtitle:       trackmap.None,
		engineAudio:    trackmap.None,
		engineSubtitle: trackmap.None,
		segment:        -1,
		pendingSeek:    mo.None[float64](),
	}
}

// Snapshot is a read-only copy of the session.
type Snapshot struct {
	State     State
	SessionID string
	URL       string

	ItemID        string
	SeriesID      string
	SeasonID      string
	LibraryID     string
	MediaSourceID string

	Position float64
	Duration float64

	AudioTrack          int
	SubtitleTrack       int
	EngineAudioTrack    int
	EngineSubtitleTrack int
	TrackMode           TrackMode

	AudioDelay        float64
	PendingSeek       mo.Option[float64]
	BufferingProgress int

	TrickplayReady bool
	TrickplayPath  string

	Volume float64
	Muted  bool

	Played           bool
	AutoplayEligible bool
	Error            string
}

func (m *Machine) snapshot() Snapshot {
	s := m.s
	return Snapshot{
		State:               m.state,
		SessionID:           s.id,
		URL:                 s.req.URL,
		ItemID:              s.req.ItemID,
		SeriesID:            s.req.SeriesID,
		SeasonID:            s.req.SeasonID,
		LibraryID:           s.req.LibraryID,
		MediaSourceID:       s.req.MediaSourceID,
		Position:            s.position,
		Duration:            s.duration,
		AudioTrack:          s.audio,
		SubtitleTrack:       s.subtitle,
		EngineAudioTrack:    s.engineAudio,
		EngineSubtitleTrack: s.engineSubtitle,
		TrackMode:           s.trackMode,
		AudioDelay:          s.audioDelay,
		PendingSeek:         s.pendingSeek,
		BufferingProgress:   s.bufferingProgress,
		TrickplayReady:      s.trickplayReady,
		TrickplayPath:       s.trickplayPath,
		Volume:              s.volume,
		Muted:               s.muted,
		Played:              s.played,
		AutoplayEligible:    s.autoplayEligible,
		Error:               s.message,
	}
}

// begin replaces the session with the intent of req and resolves the
// startup tracks. A stored preference fills in what req leaves unselected.
// pref is loaded by the caller before posting, off the control loop.
func (m *Machine) begin(req Request, pref mo.Option[trackpref.Preference]) {
	m.s = newSession()
	m.s.req = req
	m.s.id = uuid.NewString()
	m.s.segments = sortedSegments(req.Segments)
	m.s.audioDelay = m.opts.AudioDelay

	selection := req.Selection
	if pref, ok := pref.Get(); ok {
		if pref.Audio != nil && selection.Audio.IsAbsent() {
			selection.Audio = mo.Some(*pref.Audio)
		}
		if pref.Subtitle != nil && selection.Subtitle.IsAbsent() {
			selection.Subtitle = mo.Some(*pref.Subtitle)
		}
		if pref.AudioDelay != nil {
			m.s.audioDelay = *pref.AudioDelay
		}
	}

	startup := m.mapper.Startup(req.URL, selection, req.TrackMap)
	m.s.audio = startup.Audio
	m.s.subtitle = startup.Subtitle
	m.s.engineAudio = startup.EngineAudio
	m.s.engineSubtitle = startup.EngineSubtitle
	m.s.trackMode = ApplyingStartupSelection

	log.WithFields(log.Fields{
		"item":     req.ItemID,
		"session":  m.s.id,
		"source":   startup.Source,
		"audio":    startup.Audio,
		"subtitle": startup.Subtitle,
	}).Info("playback requested")
}

func preferenceKey(req Request) string {
	return trackpref.ContextKey(req.SeasonID, req.ItemID)
}

// loadPreference reads the stored choice for req. It may touch the disk, so
// it must not run on the control loop.
func (m *Machine) loadPreference(req Request) mo.Option[trackpref.Preference] {
	key := preferenceKey(req)
	if m.prefs == nil || key == "" {
		return mo.None[trackpref.Preference]()
	}

	pref, ok := m.prefs.Get(key)
	if !ok {
		return mo.None[trackpref.Preference]()
	}
	return mo.Some(pref)
}

// remember persists a run-time choice off the loop.
func (m *Machine) remember(update func(p *trackpref.Preference)) {
	key := preferenceKey(m.s.req)
	if m.prefs == nil || key == "" {
		return
	}

	prefs := m.prefs
	m.worker.submit("save track preference", func(context.Context) error {
		return prefs.Update(key, update)
	})
}
