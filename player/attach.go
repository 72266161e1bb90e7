package player

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/vesper-player/vesper/log"
)

// Attached drives an engine that was started elsewhere and already serves
// IPC on a known endpoint. It never owns a process: Start loads media into
// the engine and Stop only stops playback.
type Attached struct {
	endpoint string
	dial     func(endpoint string) (io.ReadWriteCloser, error)

	mu       sync.Mutex
	link     *link
	listener func(Notification)
}

func NewAttached(endpoint string) *Attached {
	return &Attached{endpoint: endpoint, dial: dialEndpoint}
}

func (a *Attached) SetListener(fn func(Notification)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listener = fn
}

func (a *Attached) emitFor(l *link, n Notification) {
	a.mu.Lock()
	fn := a.listener
	current := a.link == l
	a.mu.Unlock()

	if current && fn != nil {
		fn(n)
	}
}

// Start connects on first use and loads mediaURL, passing key=value
// arguments as per-file options.
func (a *Attached) Start(_ string, args []string, mediaURL string) error {
	target, err := sanitizeMediaTarget(mediaURL)
	if err != nil {
		return fmt.Errorf("invalid media target: %w", err)
	}

	l, err := a.connection()
	if err != nil {
		return err
	}

	return l.send([]any{"loadfile", target, "replace", -1, fileOptions(args)})
}

func (a *Attached) connection() (*link, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.link != nil && a.link.isOpen() {
		return a.link, nil
	}

	conn, err := a.dial(a.endpoint)
	if err != nil {
		return nil, fmt.Errorf("attach to %s: %w", a.endpoint, err)
	}

	var l *link
	l = newLink(func(n Notification) { a.emitFor(l, n) })
	a.link = l

	if err := l.attach(conn, func(err error) { a.lost(l, err) }); err != nil {
		a.link = nil
		return nil, err
	}

	log.Infof("ipc: attached to %s", a.endpoint)
	go a.emitFor(l, Notification{Kind: KindStateChanged, Running: true})

	return l, nil
}

// lost reports a vanished engine as an unclean stop.
func (a *Attached) lost(l *link, err error) {
	reason := "engine connection closed"
	if err != nil {
		reason = fmt.Sprintf("%s: %s", reason, err)
	}

	a.emitFor(l, Notification{Kind: KindStateChanged, ExitCode: -1, Reason: reason})
	l.close()

	a.mu.Lock()
	if a.link == l {
		a.link = nil
	}
	a.mu.Unlock()
}

func (a *Attached) Stop() <-chan struct{} {
	a.mu.Lock()
	l := a.link
	a.link = nil
	a.mu.Unlock()

	if l != nil {
		_ = l.send([]any{"stop"})
		l.close()
	}

	done := make(chan struct{})
	close(done)
	return done
}

func (a *Attached) SendCommand(args ...any) error {
	a.mu.Lock()
	l := a.link
	a.mu.Unlock()

	if l == nil {
		return ErrNotRunning
	}

	return l.send(args)
}

func (a *Attached) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.link != nil
}

// fileOptions renders --key=value arguments as a loadfile option list.
// Flags without a value are skipped.
func fileOptions(args []string) string {
	var options []string

	for _, arg := range args {
		name, value, found := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if !found || name == "" || name == "input-ipc-server" {
			continue
		}

		options = append(options, name+"="+unquote(value))
	}

	return strings.Join(options, ",")
}
