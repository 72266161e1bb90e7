// Package playback implements the state machine governing a single playback
// attempt. It owns the session, drives the engine and turns engine
// notifications, timers and trickplay results into transitions.
//
// All session state is touched only by the control loop started with Run.
// Public methods post onto that loop and wait for it, so they must not be
// called from an OnNotice callback.
package playback

import (
	"context"
	"errors"

	"github.com/samber/mo"
	"github.com/vesper-player/vesper/filesystem"
	"github.com/vesper-player/vesper/log"
	"github.com/vesper-player/vesper/player"
	"github.com/vesper-player/vesper/trackmap"
	"github.com/vesper-player/vesper/trackpref"
	"github.com/vesper-player/vesper/trickplay"
	"github.com/vesper-player/vesper/where"
)

const loopQueue = 256

// Machine is the playback state machine.
type Machine struct {
	opts     Options
	engine   player.Engine
	reporter Reporter
	library  Library
	display  Display
	prefs    *trackpref.Store
	pipeline *trickplay.Pipeline
	clock    Clock
	worker   *worker

	tasks    chan func()
	done     chan struct{}
	deferred []func()

	state State
	enter map[State]func(from State)
	exit  map[State]func(to State)

	s      session
	mapper trackmap.Mapper

	loading   deadline
	buffering deadline
	progress  deadline
	tokens    uint64

	displayChanged bool
}

// New wires a Machine. Call Run before using it.
func New(deps Deps, opts Options) (*Machine, error) {
	if deps.Engine == nil {
		return nil, errors.New("playback: engine is required")
	}

	opts.normalize()

	m := &Machine{
		opts:     opts,
		engine:   deps.Engine,
		reporter: deps.Reporter,
		library:  deps.Library,
		display:  deps.Display,
		prefs:    deps.Preferences,
		clock:    deps.Clock,
		worker:   newWorker(),
		tasks:    make(chan func(), loopQueue),
		done:     make(chan struct{}),
		state:    Idle,
		s:        newSession(),
	}

	if m.reporter == nil {
		m.reporter = LogReporter{}
	}

	if m.clock == nil {
		m.clock = systemClock{}
	}

	if deps.Fetcher != nil && opts.Trickplay {
		fs := deps.Fs
		if fs == nil {
			fs = filesystem.API()
		}

		dir := opts.TrickplayDir
		if dir == "" {
			dir = where.Trickplay()
		}

		m.pipeline = trickplay.New(dir, deps.Fetcher,
			trickplay.WithFs(fs),
			trickplay.OnComplete(func(r trickplay.Result) {
				m.post(func() { m.trickplayDone(r) })
			}),
		)
	}

	m.enter = map[State]func(State){
		Idle:      m.enterIdle,
		Loading:   m.enterLoading,
		Buffering: m.enterBuffering,
		Playing:   m.enterPlaying,
		Paused:    m.enterPaused,
		Error:     m.enterError,
	}

	m.exit = map[State]func(State){
		Loading:   m.exitLoading,
		Buffering: m.exitBuffering,
		Playing:   m.exitPlaying,
	}

	deps.Engine.SetListener(func(n player.Notification) {
		m.post(func() { m.handle(n) })
	})

	return m, nil
}

// Run executes the control loop until ctx is done.
func (m *Machine) Run(ctx context.Context) error {
	defer close(m.done)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case task := <-m.tasks:
			m.exec(task)
		}
	}
}

func (m *Machine) exec(task func()) {
	task()

	for len(m.deferred) > 0 {
		next := m.deferred[0]
		m.deferred = m.deferred[1:]
		next()
	}
}

// post enqueues task on the control loop.
func (m *Machine) post(task func()) {
	select {
	case m.tasks <- task:
	case <-m.done:
	}
}

// call runs task on the control loop and waits for it. It reports false if
// the loop has stopped.
func (m *Machine) call(task func()) bool {
	finished := make(chan struct{})

	m.post(func() {
		task()
		close(finished)
	})

	select {
	case <-finished:
		return true
	case <-m.done:
		return false
	}
}

// later runs task on the loop after the current task, outside any handler.
func (m *Machine) later(task func()) {
	m.deferred = append(m.deferred, task)
}

// fire applies a transition: exit handler of the old state, state change,
// enter handler of the new one. Absent transitions change nothing.
func (m *Machine) fire(e Event) bool {
	from := m.state

	to, ok := Next(from, e)
	if !ok {
		log.WithFields(log.Fields{"state": from, "event": e}).Warn("rejected transition")
		return false
	}

	if fn := m.exit[from]; fn != nil {
		fn(to)
	}

	m.state = to
	log.WithFields(log.Fields{"from": from, "to": to, "event": e}).Debug("transition")
	m.notify(Transitioned{From: from, To: to, Event: e})

	if fn := m.enter[to]; fn != nil {
		fn(from)
	}

	return true
}

func (m *Machine) notify(n Notice) {
	if m.opts.OnNotice != nil {
		m.opts.OnNotice(n)
	}
}

// send issues an engine command, logging delivery failures.
func (m *Machine) send(args ...any) {
	if err := m.engine.SendCommand(args...); err != nil {
		log.Debugf("engine command %v: %s", args, err)
	}
}

// ProcessEvent feeds e through the transition table directly.
func (m *Machine) ProcessEvent(e Event) bool {
	var ok bool
	m.call(func() { ok = m.fire(e) })
	return ok
}

// State returns the current state.
func (m *Machine) State() State {
	var s State
	m.call(func() { s = m.state })
	return s
}

// Snapshot returns a copy of the session.
func (m *Machine) Snapshot() Snapshot {
	var snap Snapshot
	m.call(func() { snap = m.snapshot() })
	return snap
}

// Play starts req, stopping an active session first.
func (m *Machine) Play(req Request) error {
	if err := req.validate(); err != nil {
		return err
	}

	pref := m.loadPreference(req)

	var ok bool
	m.call(func() {
		if m.state.Active() {
			m.stop()
		}

		m.begin(req, pref)
		ok = m.fire(Play)
	})

	if !ok {
		return errors.New("playback: machine is not running")
	}
	return nil
}

// Retry re-attempts the failed session from its last position.
func (m *Machine) Retry() bool {
	var (
		last   Request
		failed bool
	)
	m.call(func() {
		last, failed = m.s.req, m.state == Error
	})

	if !failed {
		return false
	}

	pref := m.loadPreference(last)

	var ok bool
	m.call(func() {
		if m.state != Error {
			return
		}

		req := m.s.req
		if m.s.position > 0 {
			req.StartSeconds = m.s.position
		}

		m.begin(req, pref)
		ok = m.fire(Play)
	})
	return ok
}

// ClearError returns a failed session to Idle without retrying.
func (m *Machine) ClearError() bool {
	var ok bool
	m.call(func() { ok = m.fire(Recover) })
	return ok
}

// Stop ends the session and stops the engine.
func (m *Machine) Stop() bool {
	var ok bool
	m.call(func() {
		switch {
		case m.state.Active():
			ok = m.stop()
		case m.state == Error:
			ok = m.fire(Stop)
		}
	})
	return ok
}

func (m *Machine) Pause() bool {
	var ok bool
	m.call(func() {
		if m.state != Playing && m.state != Buffering {
			return
		}

		m.send("set_property", "pause", player.YesNo(true))
		ok = m.fire(Pause)
	})
	return ok
}

func (m *Machine) Resume() bool {
	var ok bool
	m.call(func() {
		if m.state != Paused {
			return
		}

		m.send("set_property", "pause", player.YesNo(false))
		ok = m.fire(Resume)
	})
	return ok
}

// Seek moves to an absolute position. While loading or buffering the seek is
// queued and only the latest target is kept.
func (m *Machine) Seek(seconds float64) bool {
	var ok bool
	m.call(func() { ok = m.seek(seconds) })
	return ok
}

func (m *Machine) SetAudioTrack(logical int) bool {
	var ok bool
	m.call(func() { ok = m.selectTrack(trackmap.Audio, logical) })
	return ok
}

func (m *Machine) SetSubtitleTrack(logical int) bool {
	var ok bool
	m.call(func() { ok = m.selectTrack(trackmap.Subtitle, logical) })
	return ok
}

// SetAudioDelay changes and remembers the audio offset in seconds.
func (m *Machine) SetAudioDelay(seconds float64) bool {
	var ok bool
	m.call(func() { ok = m.setAudioDelay(seconds) })
	return ok
}

func (m *Machine) SetVolume(volume float64) bool {
	var ok bool
	m.call(func() {
		if !m.state.Active() {
			return
		}

		m.send("set_property", "volume", volume)
		ok = true
	})
	return ok
}

func (m *Machine) SetMuted(muted bool) bool {
	var ok bool
	m.call(func() {
		if !m.state.Active() {
			return
		}

		m.send("set_property", "mute", player.YesNo(muted))
		ok = true
	})
	return ok
}

// SkipSegment seeks past the segment being played.
func (m *Machine) SkipSegment() bool {
	var ok bool
	m.call(func() { ok = m.skipSegment() })
	return ok
}

// Shutdown ends any session and releases the engine, the trickplay pipeline
// and the reporting worker. The returned channel closes once the engine is
// gone and every pending report has been delivered. The loop keeps running
// until its context is canceled.
func (m *Machine) Shutdown() <-chan struct{} {
	m.call(func() {
		switch {
		case m.state.Active():
			m.stop()
		case m.state == Error:
			m.fire(Stop)
		}
	})

	engineDone := m.engine.Stop()
	if m.pipeline != nil {
		m.pipeline.Close()
	}
	workerDone := m.worker.close()

	done := make(chan struct{})
	go func() {
		<-engineDone
		<-workerDone
		close(done)
	}()

	return done
}

// stop ends an active session on request.
func (m *Machine) stop() bool {
	m.finish(false)
	m.engine.Stop()
	return m.fire(Stop)
}

func (m *Machine) seek(seconds float64) bool {
	if seconds < 0 {
		seconds = 0
	}

	switch m.state {
	case Loading, Buffering:
		m.s.pendingSeek = mo.Some(seconds)
		log.Debugf("queued seek to %.2f while %s", seconds, m.state)
		return true
	case Playing, Paused:
		m.s.pendingSeek = mo.None[float64]()
		m.send("seek", seconds, "absolute")
		return true
	default:
		return false
	}
}

// flushSeek transmits a queued seek exactly once.
func (m *Machine) flushSeek() {
	target, ok := m.s.pendingSeek.Get()
	if !ok {
		return
	}

	m.s.pendingSeek = mo.None[float64]()
	m.send("seek", target, "absolute")
}
