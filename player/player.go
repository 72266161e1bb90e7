// Package player controls the external media engine over its JSON IPC channel.
//
// Two backends implement Engine: the process backend spawns and owns the
// engine, the attach backend drives an engine someone else started.
package player

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
	"github.com/vesper-player/vesper/key"
)

// ErrNotRunning is returned for commands issued while no engine session exists.
var ErrNotRunning = errors.New("engine is not running")

// Engine is the capability the playback state machine depends on.
type Engine interface {
	// Start launches (or loads into) the engine for mediaURL. If a session
	// is running it is stopped first.
	Start(binary string, args []string, mediaURL string) error

	// Stop ends the session. The engine is detached before Stop returns;
	// the returned channel closes once it is fully torn down.
	Stop() <-chan struct{}

	// SendCommand transmits a command, queuing it while the channel connects.
	SendCommand(args ...any) error

	// IsRunning reports whether a session exists.
	IsRunning() bool

	// SetListener registers the receiver of every Notification. It must be
	// set before Start.
	SetListener(fn func(Notification))
}

// Backend names an Engine implementation.
type Backend string

const (
	BackendProcess Backend = "process"
	BackendAttach  Backend = "attach"
)

// Settings parameterize the backends.
type Settings struct {
	ConnectInterval time.Duration
	ConnectAttempts int
	AttachEndpoint  string
}

// SettingsFromConfig reads Settings from the global configuration.
func SettingsFromConfig() Settings {
	return Settings{
		ConnectInterval: time.Duration(viper.GetInt(key.EngineConnectIntervalMs)) * time.Millisecond,
		ConnectAttempts: viper.GetInt(key.EngineConnectAttempts),
		AttachEndpoint:  viper.GetString(key.EngineAttachEndpoint),
	}
}

// New returns the Engine implementation for backend.
func New(backend Backend, settings Settings) (Engine, error) {
	switch backend {
	case BackendProcess, "":
		return NewMPV(settings), nil
	case BackendAttach:
		if settings.AttachEndpoint == "" {
			return nil, fmt.Errorf("backend %q requires %s", backend, key.EngineAttachEndpoint)
		}
		return NewAttached(settings.AttachEndpoint), nil
	default:
		return nil, fmt.Errorf("unknown engine backend %q", backend)
	}
}

// FromConfig builds the Engine selected by engine.backend.
func FromConfig() (Engine, error) {
	return New(Backend(viper.GetString(key.EngineBackend)), SettingsFromConfig())
}
