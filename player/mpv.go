package player

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/vesper-player/vesper/log"
)

const (
	defaultConnectInterval = 500 * time.Millisecond
	defaultConnectAttempts = 60
	quitGrace              = time.Second
)

// errDetached marks a failed launch of a session that was already replaced.
var errDetached = errors.New("session detached")

// process is the handle of a spawned engine.
type process interface {
	// Wait blocks until the process exits and returns its exit code.
	Wait() int
	Kill() error
}

// MPV is the process backend: it spawns mpv with a fresh IPC endpoint, dials
// it on a bounded retry schedule and tears the process down on Stop.
type MPV struct {
	settings Settings

	mu       sync.Mutex
	session  *session
	listener func(Notification)

	spawn    func(binary string, args []string) (process, error)
	dial     func(endpoint string) (io.ReadWriteCloser, error)
	endpoint func() (string, error)
	grace    time.Duration
}

// session is one engine lifetime: one process, one endpoint, one link.
type session struct {
	link     *link
	endpoint string
	proc     process
	exited   chan struct{}
	attempts int
	reason   string
}

// NewMPV creates the process backend. Zero settings select the defaults.
func NewMPV(settings Settings) *MPV {
	if settings.ConnectInterval <= 0 {
		settings.ConnectInterval = defaultConnectInterval
	}
	if settings.ConnectAttempts <= 0 {
		settings.ConnectAttempts = defaultConnectAttempts
	}

	return &MPV{
		settings: settings,
		spawn:    spawnProcess,
		dial:     dialEndpoint,
		endpoint: newEndpoint,
		grace:    quitGrace,
	}
}

func (m *MPV) SetListener(fn func(Notification)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listener = fn
}

func (m *MPV) emit(n Notification) {
	m.mu.Lock()
	fn := m.listener
	m.mu.Unlock()

	if fn != nil {
		fn(n)
	}
}

// emitFor delivers n only while s is still the current session.
func (m *MPV) emitFor(s *session, n Notification) {
	if m.current(s) {
		m.emit(n)
	}
}

func (m *MPV) current(s *session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session == s
}

// Start spawns the engine for mediaURL. A running session is replaced: it is
// detached at once and shut down in the background before the new process
// is launched.
func (m *MPV) Start(binary string, args []string, mediaURL string) error {
	target, err := sanitizeMediaTarget(mediaURL)
	if err != nil {
		return fmt.Errorf("invalid media target: %w", err)
	}

	endpoint, err := m.endpoint()
	if err != nil {
		return fmt.Errorf("allocate ipc endpoint: %w", err)
	}

	s := &session{endpoint: endpoint, exited: make(chan struct{})}
	s.link = newLink(func(n Notification) { m.emitFor(s, n) })
	argv := buildArgs(args, endpoint, target)

	m.mu.Lock()
	previous := m.session
	m.session = s
	m.mu.Unlock()

	if previous == nil {
		return m.launch(s, binary, argv)
	}

	go func() {
		<-m.shutdown(previous)
		if err := m.launch(s, binary, argv); err != nil {
			log.Errorf("engine restart: %s", err)
			if errors.Is(err, errDetached) {
				return
			}
			m.emit(Notification{Kind: KindStateChanged, ExitCode: -1, Reason: err.Error()})
		}
	}()

	return nil
}

func (m *MPV) launch(s *session, binary string, argv []string) error {
	log.WithFields(log.Fields{"binary": binary, "endpoint": s.endpoint}).Info("starting engine")

	proc, err := m.spawn(binary, argv)
	if err != nil {
		s.link.close()
		close(s.exited)
		if !m.detach(s) {
			return errDetached
		}
		return fmt.Errorf("start %s: %w", binary, err)
	}

	m.mu.Lock()
	s.proc = proc
	stale := m.session != s
	m.mu.Unlock()

	go m.wait(s)

	if stale {
		_ = proc.Kill()
		return nil
	}

	time.AfterFunc(m.settings.ConnectInterval, func() { m.connect(s) })
	return nil
}

// detach clears s as the current session, reporting whether it was current.
func (m *MPV) detach(s *session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != s {
		return false
	}

	m.session = nil
	return true
}

func (m *MPV) connect(s *session) {
	select {
	case <-s.exited:
		return
	default:
	}

	if !m.current(s) {
		return
	}

	conn, err := m.dial(s.endpoint)
	if err != nil {
		s.attempts++
		if s.attempts >= m.settings.ConnectAttempts {
			log.Errorf("ipc: giving up on %s after %d attempts", s.endpoint, s.attempts)
			m.mu.Lock()
			s.reason = fmt.Sprintf("ipc endpoint unreachable after %d attempts", s.attempts)
			m.mu.Unlock()
			_ = s.proc.Kill()
			return
		}

		time.AfterFunc(m.settings.ConnectInterval, func() { m.connect(s) })
		return
	}

	if err := s.link.attach(conn, func(err error) {
		log.Debugf("ipc: connection to %s closed: %v", s.endpoint, err)
	}); err != nil {
		log.Warnf("ipc: attach %s: %s", s.endpoint, err)
		return
	}

	log.Infof("ipc: connected to %s", s.endpoint)
	m.emitFor(s, Notification{Kind: KindStateChanged, Running: true})
}

func (m *MPV) wait(s *session) {
	code := s.proc.Wait()
	s.link.close()
	close(s.exited)
	removeEndpoint(s.endpoint)

	m.mu.Lock()
	reason := s.reason
	m.mu.Unlock()

	if !m.detach(s) {
		return
	}

	log.WithFields(log.Fields{"code": code, "reason": reason}).Info("engine exited")
	m.emit(Notification{Kind: KindStateChanged, ExitCode: code, Reason: reason})
}

// shutdown asks s to quit, force-kills it after the grace period and returns
// a channel closed once the process is gone.
func (m *MPV) shutdown(s *session) <-chan struct{} {
	done := make(chan struct{})

	m.mu.Lock()
	proc := s.proc
	m.mu.Unlock()

	s.link.quit()

	if proc == nil {
		close(done)
		return done
	}

	go func() {
		defer close(done)

		select {
		case <-s.exited:
		case <-time.After(m.grace):
			log.Warnf("engine ignored quit, killing it")
			_ = proc.Kill()
			<-s.exited
		}
	}()

	return done
}

func (m *MPV) Stop() <-chan struct{} {
	m.mu.Lock()
	s := m.session
	m.session = nil
	m.mu.Unlock()

	if s == nil {
		done := make(chan struct{})
		close(done)
		return done
	}

	return m.shutdown(s)
}

func (m *MPV) SendCommand(args ...any) error {
	m.mu.Lock()
	s := m.session
	m.mu.Unlock()

	if s == nil {
		log.Debugf("ipc: dropping %v, no session", args)
		return ErrNotRunning
	}

	return s.link.send(args)
}

func (m *MPV) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil
}

// Endpoint returns the IPC endpoint of the current session.
func (m *MPV) Endpoint() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return ""
	}
	return m.session.endpoint
}

// buildArgs strips one layer of matching quotes from key=value arguments and
// appends the IPC endpoint and the media target. A caller supplied ipc
// server argument is dropped.
func buildArgs(args []string, endpoint, target string) []string {
	argv := make([]string, 0, len(args)+2)

	for _, arg := range args {
		name, value, found := strings.Cut(arg, "=")
		if name == "--input-ipc-server" {
			continue
		}

		if found {
			arg = name + "=" + unquote(value)
		}

		argv = append(argv, arg)
	}

	return append(argv, "--input-ipc-server="+endpoint, target)
}

func unquote(value string) string {
	if len(value) < 2 {
		return value
	}

	first, last := value[0], value[len(value)-1]
	if first == last && (first == '"' || first == '\'') {
		return value[1 : len(value)-1]
	}

	return value
}

// sanitizeMediaTarget validates that a target is safe to pass to the engine.
func sanitizeMediaTarget(link string) (string, error) {
	l := strings.TrimSpace(link)
	if l == "" {
		return "", errors.New("empty URL")
	}

	if strings.ContainsAny(l, "\x00\n\r") {
		return "", errors.New("invalid control characters in URL")
	}

	// a leading dash would be read as an option
	if strings.HasPrefix(l, "-") {
		return "", errors.New("url must not start with '-'")
	}

	if strings.Contains(l, "://") {
		u, err := url.Parse(l)
		if err != nil {
			return "", fmt.Errorf("invalid URL: %w", err)
		}

		switch strings.ToLower(u.Scheme) {
		case "http", "https", "file":
			return l, nil
		default:
			return "", fmt.Errorf("unsupported URL scheme: %s", u.Scheme)
		}
	}

	return filepath.Clean(l), nil
}

type execProcess struct {
	cmd *exec.Cmd
}

func spawnProcess(binary string, args []string) (process, error) {
	cmd := exec.Command(binary, args...)
	cmd.SysProcAttr = sysProcAttr()

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	return &execProcess{cmd: cmd}, nil
}

func (p *execProcess) Wait() int {
	err := p.cmd.Wait()
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}

	return -1
}

func (p *execProcess) Kill() error {
	return killProcess(p.cmd)
}
