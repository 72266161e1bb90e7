package player

import (
	"bufio"
	"bytes"
	"io"

	"github.com/vesper-player/vesper/log"
)

// Kind discriminates Notification payloads.
type Kind int

const (
	KindPropertyChange Kind = iota + 1
	KindEndOfFile
	KindClientMessage
	KindStateChanged
)

func (k Kind) String() string {
	switch k {
	case KindPropertyChange:
		return "property-change"
	case KindEndOfFile:
		return "end-file"
	case KindClientMessage:
		return "client-message"
	case KindStateChanged:
		return "state-changed"
	default:
		return "unknown"
	}
}

// Notification is one asynchronous message from the engine or its process.
//
// Track properties (aid, sid) carry an int index, 0-based with -1 for none.
// A nil Value means the engine does not know the property yet.
type Notification struct {
	Kind Kind

	// Name is the property name or the client message name.
	Name  string
	Value any
	Args  []string

	// Reason is the end-file reason or, for a stop, why the session ended.
	Reason string
	Error  string

	Running  bool
	ExitCode int
}

// Clean reports whether a state change is an orderly exit rather than a crash.
func (n Notification) Clean() bool {
	return n.Kind == KindStateChanged && !n.Running && n.ExitCode == 0 && n.Reason == ""
}

const maxLineSize = 1 << 20

// readLoop demultiplexes newline-delimited events from r until it fails.
func readLoop(r io.Reader, deliver func(Notification)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		n, ok := parseLine(line)
		if !ok {
			log.Debugf("ipc: ignoring line %s", line)
			continue
		}

		deliver(n)
	}

	return scanner.Err()
}
