// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// Engine Process - these keys select and parameterize the external media engine.
const (
	EngineBinary            = "engine.binary"
	EngineBackend           = "engine.backend"
	EngineAttachEndpoint    = "engine.attach_endpoint"
	EngineArgs              = "engine.args"
	EngineConnectIntervalMs = "engine.connect_interval_ms"
	EngineConnectAttempts   = "engine.connect_attempts"
)

// Playback Lifecycle - these keys tune the state machine's timers.
const (
	PlaybackLoadingTimeout   = "playback.loading_timeout"
	PlaybackBufferingTimeout = "playback.buffering_timeout"
	PlaybackProgressInterval = "playback.progress_interval"
)

// Media Playback - these keys maintain completion, autoplay and segment behavior.
const (
	PlayerCompletionPercentage = "player.completion_percentage"
	PlayerAutoplay             = "player.autoplay"
	PlayerSkipIntro            = "player.skip_intro"
	PlayerSkipOutro            = "player.skip_outro"
	PlayerAudioDelay           = "player.audio_delay"
)

// Trickplay - seek preview generation.
const (
	TrickplayEnable            = "trickplay.enable"
	TrickplayRequestsPerSecond = "trickplay.requests_per_second"
)

// Display - refresh rate and HDR switching around engine start.
const (
	DisplayMatchRefreshRate = "display.match_refresh_rate"
	DisplayToggleHDR        = "display.toggle_hdr"
)

// Iconography - these keys manage the visual rendering of CLI symbols.
const (
	IconsVariant = "icons.variant"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics and auditing system.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Execution Environment - these flags and settings govern the non-playback application behavior.
const (
	CliColored      = "cli.colored"
	CliVersionCheck = "cli.version_check"
)
