package playback

import (
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/vesper-player/vesper/constant"
	"github.com/vesper-player/vesper/key"
	"github.com/vesper-player/vesper/player"
	"github.com/vesper-player/vesper/trackpref"
	"github.com/vesper-player/vesper/trickplay"
	"github.com/vesper-player/vesper/where"
)

// Options tune a Machine.
type Options struct {
	Binary string
	Args   []string

	LoadingTimeout   time.Duration
	BufferingTimeout time.Duration
	ProgressInterval time.Duration

	// CompletionPercentage marks an item played once reached (1-100).
	CompletionPercentage float64
	Autoplay             bool
	SkipIntro            bool
	SkipOutro            bool
	AudioDelay           float64

	Trickplay    bool
	TrickplayDir string

	MatchRefreshRate bool
	ToggleHDR        bool

	// OnNotice receives every Notice on the control loop. It must not block.
	OnNotice func(Notice)
}

// DefaultOptions returns the built-in tuning.
func DefaultOptions() Options {
	return Options{
		Binary:               constant.EngineBinary,
		LoadingTimeout:       30 * time.Second,
		BufferingTimeout:     60 * time.Second,
		ProgressInterval:     10 * time.Second,
		CompletionPercentage: 90,
		Autoplay:             true,
		Trickplay:            true,
	}
}

// OptionsFromConfig reads Options from the global configuration.
func OptionsFromConfig() Options {
	seconds := func(k string) time.Duration {
		return time.Duration(viper.GetFloat64(k) * float64(time.Second))
	}

	return Options{
		Binary:               viper.GetString(key.EngineBinary),
		Args:                 viper.GetStringSlice(key.EngineArgs),
		LoadingTimeout:       seconds(key.PlaybackLoadingTimeout),
		BufferingTimeout:     seconds(key.PlaybackBufferingTimeout),
		ProgressInterval:     seconds(key.PlaybackProgressInterval),
		CompletionPercentage: viper.GetFloat64(key.PlayerCompletionPercentage),
		Autoplay:             viper.GetBool(key.PlayerAutoplay),
		SkipIntro:            viper.GetBool(key.PlayerSkipIntro),
		SkipOutro:            viper.GetBool(key.PlayerSkipOutro),
		AudioDelay:           viper.GetFloat64(key.PlayerAudioDelay),
		Trickplay:            viper.GetBool(key.TrickplayEnable),
		TrickplayDir:         where.Trickplay(),
		MatchRefreshRate:     viper.GetBool(key.DisplayMatchRefreshRate),
		ToggleHDR:            viper.GetBool(key.DisplayToggleHDR),
	}
}

func (o *Options) normalize() {
	defaults := DefaultOptions()

	if o.Binary == "" {
		o.Binary = defaults.Binary
	}
	if o.LoadingTimeout <= 0 {
		o.LoadingTimeout = defaults.LoadingTimeout
	}
	if o.BufferingTimeout <= 0 {
		o.BufferingTimeout = defaults.BufferingTimeout
	}
	if o.ProgressInterval <= 0 {
		o.ProgressInterval = defaults.ProgressInterval
	}
	if o.CompletionPercentage <= 0 || o.CompletionPercentage > 100 {
		o.CompletionPercentage = defaults.CompletionPercentage
	}
}

// Deps are the handles a Machine drives. Engine is required.
type Deps struct {
	Engine      player.Engine
	Reporter    Reporter
	Library     Library
	Display     Display
	Preferences *trackpref.Store

	// Fetcher downloads trickplay tiles. Without one, previews are off.
	Fetcher trickplay.Fetcher
	Fs      afero.Fs

	Clock Clock
}
