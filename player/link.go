package player

import (
	"fmt"
	"io"
	"sync"

	"github.com/vesper-player/vesper/log"
	"github.com/vesper-player/vesper/util"
)

// link is the control connection of one engine session. Commands sent before
// the connection exists are queued and flushed in order right after the
// property observers are registered.
type link struct {
	mu        sync.Mutex
	conn      io.ReadWriteCloser
	connected bool
	closed    bool
	pending   util.Queue[[]any]
	deliver   func(Notification)
}

func newLink(deliver func(Notification)) *link {
	return &link{deliver: deliver}
}

func (l *link) send(args []any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrNotRunning
	}

	if !l.connected {
		l.pending.Push(args)
		return nil
	}

	return l.writeLocked(args)
}

func (l *link) writeLocked(args []any) error {
	line, err := encodeCommand(args)
	if err != nil {
		return err
	}

	if _, err := l.conn.Write(line); err != nil {
		return fmt.Errorf("ipc write: %w", err)
	}

	return nil
}

// attach binds conn, registers the observers, flushes the queue and starts
// reading. onClose runs when the connection fails while the link is open.
func (l *link) attach(conn io.ReadWriteCloser, onClose func(error)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		_ = conn.Close()
		return ErrNotRunning
	}

	l.conn = conn

	for i, name := range observedProperties {
		if err := l.writeLocked([]any{"observe_property", i + 1, name}); err != nil {
			return err
		}
	}

	for _, args := range l.pending.Drain() {
		if err := l.writeLocked(args); err != nil {
			log.Warnf("ipc: dropping queued command %v: %s", args, err)
		}
	}

	l.connected = true

	go func() {
		err := readLoop(conn, l.deliver)
		if l.isOpen() && onClose != nil {
			onClose(err)
		}
	}()

	return nil
}

func (l *link) isOpen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.closed
}

func (l *link) isConnected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}

// quit sends quit if connected and closes the link.
func (l *link) quit() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.connected && !l.closed {
		_ = l.writeLocked([]any{"quit"})
	}

	l.closeLocked()
}

func (l *link) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closeLocked()
}

func (l *link) closeLocked() {
	if l.closed {
		return
	}

	l.closed = true
	l.connected = false
	l.pending.Clear()

	if l.conn != nil {
		_ = l.conn.Close()
	}
}
