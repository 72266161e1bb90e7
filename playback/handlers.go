package playback

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/vesper-player/vesper/log"
	"github.com/vesper-player/vesper/trackmap"
)

func (m *Machine) enterLoading(State) {
	m.arm(&m.loading, m.opts.LoadingTimeout, func() {
		m.fail(fmt.Sprintf("timed out after %s waiting for playback to start", m.opts.LoadingTimeout))
	})

	m.s.waitingFirstPosition = true
	m.prepareDisplay()

	args := slices.Clone(m.opts.Args)
	if start := m.s.req.StartSeconds; start > 0 {
		args = append(args, "--start="+strconv.FormatFloat(start, 'f', -1, 64))
	}

	if err := m.engine.Start(m.opts.Binary, args, m.s.req.URL); err != nil {
		log.Errorf("engine start: %s", err)
		m.later(func() { m.fail(err.Error()) })
		return
	}

	m.startTrickplay()
}

func (m *Machine) exitLoading(State) {
	m.disarm(&m.loading)
}

func (m *Machine) enterBuffering(from State) {
	m.armBuffering()
	m.s.bufferingSince = m.clock.Now()
	m.s.bufferingFrom = m.s.position
	m.s.bufferingProgress = 0

	if m.s.trackMode == ApplyingStartupSelection {
		m.applyStartupTracks()
	}

	if !m.s.chaptersSent {
		m.sendChapters()
		m.s.chaptersSent = true
	}

	if from == Loading {
		m.flushSeek()
		m.send("set_property", "audio-delay", m.s.audioDelay)
	}
}

func (m *Machine) armBuffering() {
	m.arm(&m.buffering, m.opts.BufferingTimeout, func() {
		m.fail(fmt.Sprintf("timed out after %s while buffering", m.opts.BufferingTimeout))
	})
}

func (m *Machine) exitBuffering(to State) {
	m.disarm(&m.buffering)

	// Paused takes live seeks, so a queued one must not outlive buffering.
	if to == Paused {
		m.flushSeek()
	}
}

func (m *Machine) enterPlaying(from State) {
	m.s.trackMode = UserControlled

	switch {
	case !m.s.startReported:
		m.s.startReported = true
		m.report("report start", Reporter.ReportPlaybackStart)
	case from == Paused:
		m.report("report resumed", Reporter.ReportPlaybackResumed)
	}

	m.armProgress()

	if from == Buffering {
		m.flushSeek()
	}
}

func (m *Machine) armProgress() {
	m.arm(&m.progress, m.opts.ProgressInterval, func() {
		m.report("report progress", Reporter.ReportPlaybackProgress)
		m.armProgress()
	})
}

func (m *Machine) exitPlaying(State) {
	m.disarm(&m.progress)
}

func (m *Machine) enterPaused(State) {
	m.report("report paused", Reporter.ReportPlaybackPaused)
}

func (m *Machine) enterError(State) {
	m.disarmAll()
	m.engine.Stop()
	m.restoreDisplay()

	log.WithFields(log.Fields{"item": m.s.req.ItemID, "error": m.s.message}).Error("playback failed")
	m.notify(Failed{ItemID: m.s.req.ItemID, Message: m.s.message})
}

func (m *Machine) enterIdle(State) {
	m.disarmAll()

	stopped := Stopped{ItemID: m.s.req.ItemID, Position: m.s.position, Played: m.s.played}

	if m.pipeline != nil {
		m.pipeline.Clear()
	}

	if m.engine.IsRunning() {
		m.send("overlay-remove", overlayID)
	}

	m.restoreDisplay()
	m.mapper.Reset()
	m.s = newSession()

	m.notify(stopped)
}

func (m *Machine) disarmAll() {
	m.disarm(&m.loading)
	m.disarm(&m.buffering)
	m.disarm(&m.progress)
}

// fail routes msg through ErrorOccurred when the current state allows it.
func (m *Machine) fail(msg string) {
	if _, ok := Next(m.state, ErrorOccurred); !ok {
		log.Debugf("ignoring failure in %s: %s", m.state, msg)
		return
	}

	m.s.message = msg
	m.fire(ErrorOccurred)
}

// finish closes the reporting of an active session: stopped report, then
// completion.
func (m *Machine) finish(natural bool) {
	if m.s.startReported {
		m.report("report stopped", Reporter.ReportPlaybackStopped)
	}

	m.evaluateCompletion(natural)
}

// evaluateCompletion marks the item played once the completion threshold
// is reached and, for episodes, looks up what to play next.
func (m *Machine) evaluateCompletion(natural bool) {
	s := &m.s
	if s.played || s.req.ItemID == "" {
		return
	}

	percent := 0.0
	switch {
	case natural:
		percent = 100
	case s.duration > 0:
		percent = s.position / s.duration * 100
	}

	if percent < m.opts.CompletionPercentage {
		return
	}

	s.played = true
	itemID := s.req.ItemID
	m.worker.submit("mark played", func(ctx context.Context) error {
		return m.reporter.MarkItemPlayed(ctx, itemID)
	})

	if s.req.SeriesID == "" {
		return
	}

	s.autoplayEligible = true
	if m.opts.Autoplay && m.library != nil {
		m.prefetchNext(s.req.SeriesID)
	}
}

func (m *Machine) prefetchNext(seriesID string) {
	library := m.library

	m.worker.submit("next episode", func(ctx context.Context) error {
		next, err := library.NextUnplayedEpisode(ctx, seriesID)
		if err != nil {
			return err
		}

		if next == "" {
			log.WithField("series", seriesID).Info("no unplayed episode left")
			return nil
		}

		m.post(func() { m.notify(AutoplayReady{SeriesID: seriesID, ItemID: next}) })
		return nil
	})
}

// report submits a snapshot of the session to the reporter.
func (m *Machine) report(name string, fn func(Reporter, context.Context, Report) error) {
	if m.s.req.ItemID == "" {
		return
	}

	r := Report{
		ItemID:        m.s.req.ItemID,
		PositionTicks: secondsToTicks(m.s.position),
		MediaSourceID: m.s.req.MediaSourceID,
		AudioIndex:    m.s.audio,
		SubtitleIndex: m.s.subtitle,
		SessionID:     m.s.id,
	}

	reporter := m.reporter
	m.worker.submit(name, func(ctx context.Context) error {
		return fn(reporter, ctx, r)
	})
}

func (m *Machine) prepareDisplay() {
	if m.display == nil {
		return
	}

	display := m.display
	req := m.s.req

	if m.opts.MatchRefreshRate && req.Framerate > 0 {
		m.displayChanged = true
		m.worker.submit("match refresh rate", func(ctx context.Context) error {
			return display.MatchRefreshRate(ctx, req.Framerate)
		})
	}

	if m.opts.ToggleHDR && req.HDR {
		m.displayChanged = true
		m.worker.submit("enable hdr", func(ctx context.Context) error {
			return display.SetHDR(ctx, true)
		})
	}
}

func (m *Machine) restoreDisplay() {
	if !m.displayChanged {
		return
	}

	m.displayChanged = false
	display := m.display
	m.worker.submit("restore display", func(ctx context.Context) error {
		return display.Restore(ctx)
	})
}

// applyStartupTracks pushes the resolved startup ids. Keep leaves a track
// to the engine; only subtitles can be switched off explicitly.
func (m *Machine) applyStartupTracks() {
	if id := m.s.engineAudio; id > 0 {
		m.send("set_property", "aid", id)
	}

	switch id := m.s.engineSubtitle; {
	case id > 0:
		m.send("set_property", "sid", id)
	case id == trackmap.None:
		m.send("set_property", "sid", "no")
	}
}
