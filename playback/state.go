package playback

import "fmt"

// State is a phase of a playback attempt.
type State int

const (
	Idle State = iota
	Loading
	Buffering
	Playing
	Paused
	Error
)

var states = []State{Idle, Loading, Buffering, Playing, Paused, Error}

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Buffering:
		return "buffering"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Active reports whether a session is in flight.
func (s State) Active() bool {
	return s != Idle && s != Error
}

// Event drives a State transition.
type Event int

const (
	Play Event = iota
	LoadComplete
	BufferComplete
	BufferStart
	Pause
	Resume
	Stop
	PlaybackEnd
	ErrorOccurred
	Recover
)

var events = []Event{Play, LoadComplete, BufferComplete, BufferStart, Pause, Resume, Stop, PlaybackEnd, ErrorOccurred, Recover}

func (e Event) String() string {
	switch e {
	case Play:
		return "play"
	case LoadComplete:
		return "load-complete"
	case BufferComplete:
		return "buffer-complete"
	case BufferStart:
		return "buffer-start"
	case Pause:
		return "pause"
	case Resume:
		return "resume"
	case Stop:
		return "stop"
	case PlaybackEnd:
		return "playback-end"
	case ErrorOccurred:
		return "error-occurred"
	case Recover:
		return "recover"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

type edge struct {
	from State
	on   Event
}

var table = map[edge]State{
	{Idle, Play}: Loading,

	{Loading, LoadComplete}:  Buffering,
	{Loading, ErrorOccurred}: Error,
	{Loading, Stop}:          Idle,

	{Buffering, BufferComplete}: Playing,
	{Buffering, ErrorOccurred}:  Error,
	{Buffering, Stop}:           Idle,
	{Buffering, Pause}:          Paused,

	{Playing, Pause}:         Paused,
	{Playing, BufferStart}:   Buffering,
	{Playing, ErrorOccurred}: Error,
	{Playing, Stop}:          Idle,
	{Playing, PlaybackEnd}:   Idle,

	{Paused, Resume}:        Playing,
	{Paused, Play}:          Loading,
	{Paused, ErrorOccurred}: Error,
	{Paused, Stop}:          Idle,

	{Error, Recover}: Idle,
	{Error, Play}:    Loading,
	{Error, Stop}:    Idle,
}

// Next looks up the transition for (from, on).
func Next(from State, on Event) (State, bool) {
	to, ok := table[edge{from, on}]
	return to, ok
}

// Table returns a copy of the transition table.
func Table() map[State]map[Event]State {
	out := make(map[State]map[Event]State, len(states))
	for e, to := range table {
		if out[e.from] == nil {
			out[e.from] = make(map[Event]State)
		}
		out[e.from][e.on] = to
	}
	return out
}
