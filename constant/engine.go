package constant

// Engine defaults. The IPC protocol spoken by the transport is mpv's JSON IPC.
const (
	// EngineBinary is the executable looked up in PATH when engine.binary is unset.
	EngineBinary = "mpv"

	// TicksPerSecond converts seconds into the 100ns ticks used by the library API.
	TicksPerSecond = 10_000_000
)

// EngineInstallHints maps runtime.GOOS to a command that installs EngineBinary.
var EngineInstallHints = map[string]string{
	"darwin":  "brew install mpv",
	"linux":   "sudo apt install mpv",
	"windows": "scoop install mpv",
	"freebsd": "pkg install mpv",
}
