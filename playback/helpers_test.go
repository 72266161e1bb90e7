package playback

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sort"
	"sync"
	"time"

	"github.com/spf13/afero"
	"github.com/vesper-player/vesper/filesystem"
	"github.com/vesper-player/vesper/player"
	"github.com/vesper-player/vesper/trackpref"
	"github.com/vesper-player/vesper/trickplay"
)

func init() {
	filesystem.SetMemMapFs()
}

const patience = 2 * time.Second

type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	clock *manualClock
	at    time.Time
	fn    func()
	done  bool
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &manualTimer{clock: c, at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	pending := !t.done
	t.done = true
	return pending
}

// Advance moves the clock and fires every timer that became due.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)

	var due, rest []*manualTimer
	for _, t := range c.timers {
		switch {
		case t.done:
		case !t.at.After(c.now):
			t.done = true
			due = append(due, t)
		default:
			rest = append(rest, t)
		}
	}
	c.timers = rest
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.fn()
	}
}

type startCall struct {
	Binary string
	Args   []string
	URL    string
}

type fakeEngine struct {
	mu       sync.Mutex
	running  bool
	starts   []startCall
	commands [][]any
	stops    int
	startErr error
	listener func(player.Notification)
}

func (e *fakeEngine) Start(binary string, args []string, mediaURL string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.starts = append(e.starts, startCall{Binary: binary, Args: args, URL: mediaURL})
	if e.startErr != nil {
		return e.startErr
	}

	e.running = true
	return nil
}

func (e *fakeEngine) Stop() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stops++
	e.running = false

	done := make(chan struct{})
	close(done)
	return done
}

func (e *fakeEngine) SendCommand(args ...any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return player.ErrNotRunning
	}

	e.commands = append(e.commands, args)
	return nil
}

func (e *fakeEngine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

func (e *fakeEngine) SetListener(fn func(player.Notification)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = fn
}

func (e *fakeEngine) emit(n player.Notification) {
	e.mu.Lock()
	fn := e.listener
	e.mu.Unlock()

	fn(n)
}

// sent returns the commands whose first arguments equal prefix.
func (e *fakeEngine) sent(prefix ...any) [][]any {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out [][]any
	for _, cmd := range e.commands {
		if len(cmd) < len(prefix) {
			continue
		}

		match := true
		for i, p := range prefix {
			if cmd[i] != p {
				match = false
				break
			}
		}

		if match {
			out = append(out, cmd)
		}
	}
	return out
}

func (e *fakeEngine) lastStart() startCall {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.starts) == 0 {
		return startCall{}
	}
	return e.starts[len(e.starts)-1]
}

func (e *fakeEngine) stopCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stops
}

type call struct {
	Name   string
	Report Report
}

type fakeReporter struct {
	mu     sync.Mutex
	calls  []call
	played []string
}

func (r *fakeReporter) record(name string, rep Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{Name: name, Report: rep})
	return nil
}

func (r *fakeReporter) ReportPlaybackStart(_ context.Context, rep Report) error {
	return r.record("start", rep)
}

func (r *fakeReporter) ReportPlaybackProgress(_ context.Context, rep Report) error {
	return r.record("progress", rep)
}

func (r *fakeReporter) ReportPlaybackPaused(_ context.Context, rep Report) error {
	return r.record("paused", rep)
}

func (r *fakeReporter) ReportPlaybackResumed(_ context.Context, rep Report) error {
	return r.record("resumed", rep)
}

func (r *fakeReporter) ReportPlaybackStopped(_ context.Context, rep Report) error {
	return r.record("stopped", rep)
}

func (r *fakeReporter) MarkItemPlayed(_ context.Context, itemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.played = append(r.played, itemID)
	return nil
}

func (r *fakeReporter) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.calls))
	for _, c := range r.calls {
		names = append(names, c.Name)
	}
	return names
}

func (r *fakeReporter) last(name string) (Report, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.calls) - 1; i >= 0; i-- {
		if r.calls[i].Name == name {
			return r.calls[i].Report, true
		}
	}
	return Report{}, false
}

func (r *fakeReporter) playedItems() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.played...)
}

type fakeLibrary struct {
	next map[string]string
}

func (l *fakeLibrary) NextUnplayedEpisode(_ context.Context, seriesID string) (string, error) {
	return l.next[seriesID], nil
}

func (l *fakeLibrary) TrickplayTileURL(itemID string, width, index int) string {
	return ""
}

type fakeDisplay struct {
	mu    sync.Mutex
	calls []string
}

func (d *fakeDisplay) add(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, name)
	return nil
}

func (d *fakeDisplay) MatchRefreshRate(context.Context, float64) error { return d.add("refresh") }
func (d *fakeDisplay) SetHDR(context.Context, bool) error              { return d.add("hdr") }
func (d *fakeDisplay) Restore(context.Context) error                   { return d.add("restore") }

func (d *fakeDisplay) list() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

// sheetFetcher serves solid-color sprite sheets.
type sheetFetcher struct{}

func (sheetFetcher) Fetch(_ context.Context, _ string, info trickplay.Info, index int) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, info.Width*info.TileWidth, info.Height*info.TileHeight))
	for i := range img.Pix {
		img.Pix[i] = uint8(index + 1)
	}
	img.Set(0, 0, color.RGBA{R: 255, A: 255})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// rig is a running Machine wired to fakes.
type rig struct {
	m        *Machine
	clock    *manualClock
	engine   *fakeEngine
	reporter *fakeReporter
	library  *fakeLibrary
	display  *fakeDisplay
	prefs    *trackpref.Store
	fs       afero.Fs
	cancel   context.CancelFunc

	mu      sync.Mutex
	notices []Notice
}

func newRig(configure func(o *Options, d *Deps)) *rig {
	r := &rig{
		clock:    newManualClock(),
		engine:   &fakeEngine{},
		reporter: &fakeReporter{},
		library:  &fakeLibrary{next: map[string]string{}},
		display:  &fakeDisplay{},
		prefs:    trackpref.New("/prefs/tracks.json"),
		fs:       afero.NewMemMapFs(),
	}
	_ = r.prefs.Clear()

	opts := DefaultOptions()
	opts.Args = []string{"--idle=yes"}
	opts.TrickplayDir = "/trickplay"
	opts.OnNotice = func(n Notice) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.notices = append(r.notices, n)
	}

	deps := Deps{
		Engine:      r.engine,
		Reporter:    r.reporter,
		Library:     r.library,
		Display:     r.display,
		Preferences: r.prefs,
		Fs:          r.fs,
		Clock:       r.clock,
	}

	if configure != nil {
		configure(&opts, &deps)
	}

	m, err := New(deps, opts)
	if err != nil {
		panic(err)
	}
	r.m = m

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	go func() { _ = m.Run(ctx) }()

	return r
}

func (r *rig) close() {
	r.cancel()
}

// sync waits until the loop and the worker are idle.
func (r *rig) sync() {
	r.m.State()
	r.m.worker.flush()
	r.m.State()
}

func (r *rig) emit(n player.Notification) {
	r.engine.emit(n)
	r.sync()
}

func (r *rig) property(name string, value any) {
	r.emit(player.Notification{Kind: player.KindPropertyChange, Name: name, Value: value})
}

func (r *rig) position(seconds float64) {
	r.property(player.PropTimePos, seconds)
}

func (r *rig) advance(d time.Duration) {
	r.clock.Advance(d)
	r.sync()
}

// toPlaying plays req and drives it through loading and buffering.
func (r *rig) toPlaying(req Request) {
	if err := r.m.Play(req); err != nil {
		panic(err)
	}
	r.position(0.1)
	r.position(1.2)
}

func (r *rig) noticesOf(match func(Notice) bool) []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Notice
	for _, n := range r.notices {
		if match(n) {
			out = append(out, n)
		}
	}
	return out
}

// awaitNotice polls until a notice satisfying match has been delivered.
func (r *rig) awaitNotice(match func(Notice) bool) bool {
	deadline := time.Now().Add(patience)
	for time.Now().Before(deadline) {
		r.sync()
		if len(r.noticesOf(match)) > 0 {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func episode() Request {
	return Request{
		URL:           "https://media.example/Videos/ep1/stream?static=true",
		ItemID:        "ep1",
		SeriesID:      "series",
		SeasonID:      "season1",
		MediaSourceID: "source1",
	}
}
