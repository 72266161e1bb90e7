// Package config provides centralized management for application settings, defaults, and the Viper-based configuration engine.
package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"text/template"

	"github.com/samber/lo"
	"github.com/spf13/viper"
	"github.com/vesper-player/vesper/color"
	"github.com/vesper-player/vesper/constant"
	"github.com/vesper-player/vesper/key"
	"github.com/vesper-player/vesper/style"
)

// Field represents a configuration field definition.
type Field struct {
	Key         string
	Value       any
	Description string
}

// Pretty returns a colored string representation of the field for display.
func (f *Field) Pretty() string {
	var b strings.Builder
	lo.Must0(prettyTemplate.Execute(&b, f))
	return b.String()
}

// Env returns the environment variable name for this field.
func (f *Field) Env() string {
	env := strings.ToUpper(EnvKeyReplacer.Replace(f.Key))
	prefix := strings.ToUpper(constant.App + "_")
	if strings.HasPrefix(env, prefix) {
		return env
	}
	return prefix + env
}

// MarshalJSON customizes JSON output to include current and default values.
func (f *Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key         string `json:"key"`
		Value       any    `json:"value"`
		Default     any    `json:"default"`
		Description string `json:"description"`
		Type        string `json:"type"`
	}{
		Key:         f.Key,
		Value:       viper.Get(f.Key),
		Default:     f.Value,
		Description: f.Description,
		Type:        f.typeName(),
	})
}

// typeName returns the string representation of the field's underlying value type.
func (f *Field) typeName() string {
	switch f.Value.(type) {
	case string:
		return "string"
	case int:
		return "int"
	case bool:
		return "bool"
	case []string:
		return "[]string"
	case []int:
		return "[]int"
	case float64:
		return "float64"
	default:
		return "unknown"
	}
}

// Default holds the map of all configuration fields.
var Default = make(map[string]Field)

// EnvExposed holds keys that are bound to environment variables.
var EnvExposed []string

func init() {
	register := func(k string, v any, desc string) {
		if _, exists := Default[k]; exists {
			panic("Duplicate config key: " + k)
		}
		f := Field{Key: k, Value: v, Description: desc}
		Default[k] = f
		EnvExposed = append(EnvExposed, k)
	}

	register(key.EngineBinary, constant.EngineBinary, "Engine executable, looked up in PATH when not absolute")
	register(key.EngineBackend, "process", "Engine backend.\nAvailable options are: process (spawn and own the engine), attach (connect to a running engine)")
	register(key.EngineAttachEndpoint, "", "IPC endpoint of an already running engine, used by the attach backend")
	register(key.EngineArgs, []string{"--no-terminal", "--force-window=yes", "--idle=yes", "--keep-open=no"}, "Extra arguments passed to the engine on every start")
	register(key.EngineConnectIntervalMs, 500, "Milliseconds between IPC connection attempts while the engine starts")
	register(key.EngineConnectAttempts, 60, "IPC connection attempts before the engine is considered unreachable")
	register(key.PlaybackLoadingTimeout, 30, "Seconds to wait for the first position update before failing")
	register(key.PlaybackBufferingTimeout, 60, "Seconds of buffering without progress before failing")
	register(key.PlaybackProgressInterval, 10, "Seconds between progress reports while playing")
	register(key.PlayerCompletionPercentage, 90, "Percentage required to mark an item as played (1-100)")
	register(key.PlayerAutoplay, true, "Look up the next unplayed episode once an episode is completed")
	register(key.PlayerSkipIntro, false, "Skip intro segments automatically")
	register(key.PlayerSkipOutro, false, "Skip outro segments automatically")
	register(key.PlayerAudioDelay, 0.0, "Default audio delay in seconds when no preference is stored")
	register(key.TrickplayEnable, true, "Download and pack seek preview thumbnails")
	register(key.TrickplayRequestsPerSecond, 0, "Maximum tile requests per second, 0 for no limit")
	register(key.DisplayMatchRefreshRate, false, "Switch the display refresh rate to match the content framerate")
	register(key.DisplayToggleHDR, false, "Enable HDR output for HDR content")
	register(key.IconsVariant, "plain", "Icons variant.\nAvailable options are: emoji, kaomoji, plain, squares, nerd (nerd-font required)")
	register(key.LogsWrite, false, "Write logs")
	register(key.LogsLevel, "info", "Available options are: (from less to most verbose)\npanic, fatal, error, warn, info, debug, trace")
	register(key.LogsJson, false, "Use json format for logs")
	register(key.CliColored, true, "Enable colored CLI output")
	register(key.CliVersionCheck, false, "Enable automatic version check")
}

var prettyTemplate = lo.Must(template.New("pretty").Funcs(template.FuncMap{
	"faint":    style.Faint,
	"bold":     style.Bold,
	"purple":   style.Fg(color.Purple),
	"blue":     style.Fg(color.Blue),
	"cyan":     style.Fg(color.Cyan),
	"value":    func(k string) any { return viper.Get(k) },
	"typename": func(v any) string { return reflect.TypeOf(v).String() },
	"hl": func(v any) string {
		switch value := v.(type) {
		case bool:
			b := strconv.FormatBool(value)
			if value {
				return style.Fg(color.Green)(b)
			}
			return style.Fg(color.Red)(b)
		case string:
			return style.Fg(color.Yellow)(value)
		default:
			return fmt.Sprint(value)
		}
	},
}).Parse(`{{ faint .Description }}
{{ blue "Key:" }}     {{ purple .Key }}
{{ blue "Env:" }}     {{ .Env }}
{{ blue "Value:" }}   {{ hl (value .Key) }}
{{ blue "Default:" }} {{ hl (.Value) }}
{{ blue "Type:" }}    {{ typename .Value }}`))
