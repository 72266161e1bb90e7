package cmd

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"
	"github.com/vesper-player/vesper/icon"
	"github.com/vesper-player/vesper/playback"
	"github.com/vesper-player/vesper/util"
)

// statusLine renders session notices as a single rewritten terminal line.
// Off a terminal every change is written as its own line instead.
type statusLine struct {
	mu     sync.Mutex
	out    io.Writer
	width  func() int
	inline bool

	state    playback.State
	position float64
	duration float64
	extra    string
	last     int
	printed  string
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func newStatusLine(out io.Writer, inline bool) *statusLine {
	return &statusLine{
		out:    out,
		inline: inline,
		state:  playback.Idle,
		width: func() int {
			w, _, err := util.TerminalSize()
			if err != nil || w <= 0 {
				return 80
			}
			return w
		},
	}
}

func (s *statusLine) update(n playback.Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch n := n.(type) {
	case playback.Transitioned:
		s.state = n.To
		s.extra = ""
	case playback.Progress:
		s.position, s.duration = n.Position, n.Duration
	case playback.BufferingProgress:
		s.extra = fmt.Sprintf("%d%%", n.Percent)
	case playback.TracksChanged:
		s.extra = fmt.Sprintf("audio %s subtitle %s", playTrackIndex(n.Audio), playTrackIndex(n.Subtitle))
	case playback.VolumeChanged:
		if n.Muted {
			s.extra = "muted"
		} else {
			s.extra = fmt.Sprintf("volume %.0f", n.Volume)
		}
	case playback.SegmentEntered:
		if n.Skipped {
			s.extra = "skipped " + n.Segment.Kind.String()
		} else {
			s.extra = n.Segment.Kind.String()
		}
	case playback.TrickplayReady:
		s.extra = "previews ready"
	case playback.AutoplayReady:
		s.extra = "up next " + n.ItemID
	case playback.Failed:
		s.extra = n.Message
	default:
		return
	}

	s.render()
}

func (s *statusLine) render() {
	if !s.inline {
		if text := s.text(false); text != s.printed {
			s.printed = text
			_, _ = fmt.Fprintln(s.out, text)
		}
		return
	}

	text := truncate.String(s.text(true), uint(util.Max(s.width()-1, 0)))
	width := ansi.PrintableRuneWidth(text)

	pad := util.Max(s.last-width, 0)
	s.last = width
	_, _ = fmt.Fprintf(s.out, "\r%s%s", text, strings.Repeat(" ", pad))
}

func (s *statusLine) text(withClock bool) string {
	var b strings.Builder

	b.WriteString(icon.Get(stateIcon(s.state)))
	b.WriteString(" ")
	b.WriteString(util.Capitalize(s.state.String()))

	if withClock && s.duration > 0 {
		fmt.Fprintf(&b, " %s / %s", clockTime(s.position), clockTime(s.duration))
	}

	if s.extra != "" {
		b.WriteString(" · ")
		b.WriteString(s.extra)
	}

	return b.String()
}

// done moves the cursor past the status line.
func (s *statusLine) done() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inline && s.last > 0 {
		_, _ = fmt.Fprintln(s.out)
		s.last = 0
	}
}

func stateIcon(state playback.State) icon.Icon {
	switch state {
	case playback.Loading:
		return icon.Progress
	case playback.Buffering:
		return icon.Buffer
	case playback.Playing:
		return icon.Play
	case playback.Paused:
		return icon.Pause
	case playback.Error:
		return icon.Fail
	default:
		return icon.Stop
	}
}

// clockTime formats seconds as H:MM:SS, or M:SS under an hour.
func clockTime(seconds float64) string {
	total := int(seconds)
	h, m, sec := total/3600, total/60%60, total%60

	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}
