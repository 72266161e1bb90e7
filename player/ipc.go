package player

import (
	"encoding/json"
	"fmt"
)

// Properties observed on every connection, bound to observer id index+1.
const (
	PropTimePos        = "time-pos"
	PropDuration       = "duration"
	PropPause          = "pause"
	PropAudioTrack     = "aid"
	PropSubtitleTrack  = "sid"
	PropPausedForCache = "paused-for-cache"
	PropVolume         = "volume"
	PropMute           = "mute"
)

var observedProperties = []string{
	PropTimePos,
	PropDuration,
	PropPause,
	PropAudioTrack,
	PropSubtitleTrack,
	PropPausedForCache,
	PropVolume,
	PropMute,
}

// ipcCommand is the JSON structure sent to the engine.
type ipcCommand struct {
	Command []any `json:"command"`
}

// ipcMessage is every shape the engine sends back: command replies and events.
type ipcMessage struct {
	Event     string          `json:"event"`
	Name      string          `json:"name"`
	Data      json.RawMessage `json:"data"`
	Args      []string        `json:"args"`
	Reason    string          `json:"reason"`
	FileError string          `json:"file_error"`
	Error     string          `json:"error"`
}

// YesNo is a flag the engine expects as the strings "yes" and "no".
type YesNo bool

func (y YesNo) MarshalJSON() ([]byte, error) {
	if y {
		return []byte(`"yes"`), nil
	}
	return []byte(`"no"`), nil
}

// encodeCommand frames one command as a newline-terminated JSON line.
func encodeCommand(args []any) ([]byte, error) {
	payload, err := json.Marshal(ipcCommand{Command: args})
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	return append(payload, '\n'), nil
}

// parseLine decodes one inbound line. It reports false for replies, unknown
// events and anything unparseable.
func parseLine(line []byte) (Notification, bool) {
	var msg ipcMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		return Notification{}, false
	}

	switch msg.Event {
	case "property-change":
		if msg.Name == "" {
			return Notification{}, false
		}

		var value any
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &value); err != nil {
				return Notification{}, false
			}
		}

		if value != nil && (msg.Name == PropAudioTrack || msg.Name == PropSubtitleTrack) {
			value = trackIndex(value)
		}

		return Notification{Kind: KindPropertyChange, Name: msg.Name, Value: value}, true
	case "end-file":
		return Notification{Kind: KindEndOfFile, Reason: msg.Reason, Error: msg.FileError}, true
	case "client-message":
		if len(msg.Args) == 0 {
			return Notification{}, false
		}
		return Notification{Kind: KindClientMessage, Name: msg.Args[0], Args: msg.Args[1:]}, true
	default:
		return Notification{}, false
	}
}

// trackIndex converts a wire track id (1-based, false/"no"/0 for none) into
// a 0-based index with -1 for none.
func trackIndex(value any) int {
	switch v := value.(type) {
	case float64:
		if v >= 1 {
			return int(v) - 1
		}
	case string:
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n >= 1 {
			return n - 1
		}
	}
	return -1
}
