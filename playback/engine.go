package playback

import (
	"fmt"

	"github.com/vesper-player/vesper/log"
	"github.com/vesper-player/vesper/player"
	"github.com/vesper-player/vesper/trackmap"
	"github.com/vesper-player/vesper/trackpref"
	"github.com/vesper-player/vesper/util"
)

// bufferAdvance is how far the position must move past where buffering
// began for playback to count as flowing again.
const bufferAdvance = 0.5

// Client messages understood from engine scripts.
const (
	messageSkipSegment      = "skip-segment"
	messageTrickplayPreview = "trickplay-preview"
	messageTrickplayHide    = "trickplay-hide"
)

func (m *Machine) handle(n player.Notification) {
	switch n.Kind {
	case player.KindPropertyChange:
		m.property(n.Name, n.Value)
	case player.KindEndOfFile:
		m.endOfFile(n)
	case player.KindClientMessage:
		m.clientMessage(n.Name, n.Args)
	case player.KindStateChanged:
		m.engineState(n)
	}
}

func (m *Machine) property(name string, value any) {
	if value == nil {
		return
	}

	switch name {
	case player.PropTimePos:
		if v, ok := value.(float64); ok {
			m.position(v)
		}
	case player.PropDuration:
		if v, ok := value.(float64); ok {
			m.s.duration = v
			m.notify(Progress{Position: m.s.position, Duration: v})
		}
	case player.PropPause:
		paused, ok := value.(bool)
		switch {
		case !ok:
		case paused && (m.state == Playing || m.state == Buffering):
			m.fire(Pause)
		case !paused && m.state == Paused:
			m.fire(Resume)
		}
	case player.PropPausedForCache:
		stalled, ok := value.(bool)
		switch {
		case !ok:
		case stalled && m.state == Playing:
			m.fire(BufferStart)
		case !stalled && m.state == Buffering:
			m.fire(BufferComplete)
		}
	case player.PropAudioTrack:
		if idx, ok := value.(int); ok {
			m.engineTrack(trackmap.Audio, idx)
		}
	case player.PropSubtitleTrack:
		if idx, ok := value.(int); ok {
			m.engineTrack(trackmap.Subtitle, idx)
		}
	case player.PropVolume:
		if v, ok := value.(float64); ok {
			m.s.volume = v
			m.notify(VolumeChanged{Volume: v, Muted: m.s.muted})
		}
	case player.PropMute:
		if v, ok := value.(bool); ok {
			m.s.muted = v
			m.notify(VolumeChanged{Volume: m.s.volume, Muted: v})
		}
	}
}

func (m *Machine) position(seconds float64) {
	if !m.state.Active() {
		return
	}

	m.s.position = seconds

	switch m.state {
	case Loading:
		if m.s.waitingFirstPosition {
			m.s.waitingFirstPosition = false
			m.fire(LoadComplete)
		}
	case Buffering:
		// Measured from where buffering began, not from the previous update:
		// the engine reports positions per frame, and frame-sized steps never
		// exceed bufferAdvance on their own.
		if seconds-m.s.bufferingFrom > bufferAdvance {
			m.fire(BufferComplete)
			break
		}

		m.armBuffering()
		m.updateBufferingProgress()
	case Playing:
		m.checkSegments(seconds)
	}

	m.notify(Progress{Position: seconds, Duration: m.s.duration})
}

func (m *Machine) updateBufferingProgress() {
	elapsed := m.clock.Now().Sub(m.s.bufferingSince)
	percent := util.Clamp(int(elapsed*100/m.opts.BufferingTimeout), 0, 99)

	if percent != m.s.bufferingProgress {
		m.s.bufferingProgress = percent
		m.notify(BufferingProgress{Percent: percent})
	}
}

func (m *Machine) endOfFile(n player.Notification) {
	if !m.state.Active() {
		return
	}

	switch n.Reason {
	case "error":
		msg := n.Error
		if msg == "" {
			msg = "engine failed to play the media"
		}
		m.fail(msg)
	case "eof", "":
		m.finish(true)
		if m.state == Playing {
			m.fire(PlaybackEnd)
		} else {
			m.fire(Stop)
		}
	default:
		log.Debugf("end of file: %s", n.Reason)
	}
}

// engineState reacts to the engine coming and going. A clean exit is an
// implicit stop; anything else is a failure.
func (m *Machine) engineState(n player.Notification) {
	if n.Running || !m.state.Active() {
		return
	}

	if n.Clean() {
		log.Info("engine exited, stopping playback")
		m.finish(false)
		m.fire(Stop)
		return
	}

	msg := n.Reason
	if msg == "" {
		msg = fmt.Sprintf("engine exited unexpectedly with code %d", n.ExitCode)
	}
	m.fail(msg)
}

func (m *Machine) clientMessage(name string, args []string) {
	switch name {
	case messageSkipSegment:
		m.skipSegment()
	case messageTrickplayPreview:
		m.preview(args)
	case messageTrickplayHide:
		m.send("overlay-remove", overlayID)
	default:
		log.Debugf("unhandled client message %s %v", name, args)
	}
}

// sendChapters marks the segments on the engine's timeline.
func (m *Machine) sendChapters() {
	if len(m.s.segments) == 0 {
		return
	}

	chapters := []map[string]any{{"title": "Episode", "time": 0.0}}
	for _, seg := range m.s.segments {
		chapters = append(chapters,
			map[string]any{"title": util.Capitalize(seg.Kind.String()), "time": seg.Start()},
			map[string]any{"title": "Episode", "time": seg.End()},
		)
	}

	m.send("set_property", "chapter-list", chapters)
}

func (m *Machine) checkSegments(seconds float64) {
	current := -1
	for i, seg := range m.s.segments {
		if seg.contains(seconds) {
			current = i
			break
		}
	}

	if current == m.s.segment {
		return
	}

	m.s.segment = current
	if current < 0 {
		return
	}

	seg := m.s.segments[current]
	skip := (seg.Kind == Intro && m.opts.SkipIntro) || (seg.Kind == Outro && m.opts.SkipOutro)

	m.notify(SegmentEntered{Segment: seg, Skipped: skip})

	if skip {
		log.Infof("skipping %s: %.2f -> %.2f", seg.Kind, seconds, seg.End())
		m.send("seek", seg.End(), "absolute")
	}
}

func (m *Machine) skipSegment() bool {
	if m.state != Playing && m.state != Paused {
		return false
	}

	if m.s.segment < 0 || m.s.segment >= len(m.s.segments) {
		return false
	}

	seg := m.s.segments[m.s.segment]
	log.Infof("skipping %s on request", seg.Kind)
	m.send("seek", seg.End(), "absolute")
	return true
}

// engineTrack follows a track change made in the engine. Ignored while the
// startup selection is being applied.
func (m *Machine) engineTrack(kind trackmap.Kind, index int) {
	if m.s.trackMode == ApplyingStartupSelection {
		log.Debugf("ignoring engine %s track %d during startup", kind, index)
		return
	}

	engineID := trackmap.None
	if index >= 0 {
		engineID = index + 1
	}

	logical, ok := m.mapper.Logical(engineID, kind)
	if !ok {
		return
	}

	m.assignTrack(kind, logical)
	m.notify(TracksChanged{Audio: m.s.audio, Subtitle: m.s.subtitle})
}

// assignTrack sets a logical selection and its derived engine id.
func (m *Machine) assignTrack(kind trackmap.Kind, logical int) int {
	if logical < 0 {
		logical = trackmap.None
	}

	id := m.mapper.Resolve(logical, kind)

	if kind == trackmap.Audio {
		m.s.audio, m.s.engineAudio = logical, id
	} else {
		m.s.subtitle, m.s.engineSubtitle = logical, id
	}

	return id
}

// selectTrack is a user-initiated change: resolved, applied and remembered.
func (m *Machine) selectTrack(kind trackmap.Kind, logical int) bool {
	if !m.state.Active() {
		return false
	}

	id := m.assignTrack(kind, logical)
	chosen := m.s.audio
	if kind == trackmap.Subtitle {
		chosen = m.s.subtitle
	}

	// startup tracks are applied on entering buffering
	if m.state != Loading {
		switch {
		case kind == trackmap.Audio && id > 0:
			m.send("set_property", "aid", id)
		case kind == trackmap.Audio:
			m.send("set_property", "aid", "auto")
		case id > 0:
			m.send("set_property", "sid", id)
		default:
			m.send("set_property", "sid", "no")
		}
	}

	m.remember(func(p *trackpref.Preference) {
		if kind == trackmap.Audio {
			p.Audio = &chosen
		} else {
			p.Subtitle = &chosen
		}
	})

	m.notify(TracksChanged{Audio: m.s.audio, Subtitle: m.s.subtitle})
	return true
}

func (m *Machine) setAudioDelay(seconds float64) bool {
	if !m.state.Active() {
		return false
	}

	m.s.audioDelay = seconds
	if m.state != Loading {
		m.send("set_property", "audio-delay", seconds)
	}

	m.remember(func(p *trackpref.Preference) {
		p.AudioDelay = &seconds
	})
	return true
}
