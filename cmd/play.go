package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vesper-player/vesper/constant"
	"github.com/vesper-player/vesper/icon"
	"github.com/vesper-player/vesper/key"
	"github.com/vesper-player/vesper/log"
	"github.com/vesper-player/vesper/playback"
	"github.com/vesper-player/vesper/player"
	"github.com/vesper-player/vesper/trackmap"
	"github.com/vesper-player/vesper/trackpref"
	"github.com/vesper-player/vesper/trickplay"
	"github.com/vesper-player/vesper/where"
)

func init() {
	rootCmd.AddCommand(playCmd)

	f := playCmd.Flags()
	f.String("item", "", "Library item id of the media")
	f.String("series", "", "Library series id, enables autoplay lookup")
	f.String("season", "", "Library season id, keys stored track preferences")
	f.String("library", "", "Library id the item belongs to")
	f.String("media-source", "", "Media source id reported back to the library")
	f.Float64("start", 0, "Start position in seconds")
	f.Int("aid", 0, "Logical audio stream index (-1 for auto)")
	f.Int("sid", 0, "Logical subtitle stream index (-1 for off)")
	f.String("intro", "", "Intro segment as START-END seconds")
	f.String("outro", "", "Outro segment as START-END seconds")
	f.Float64("framerate", 0, "Content framerate, used for refresh rate matching")
	f.Bool("hdr", false, "Content is HDR")
	f.String("next", "", "Item id to announce once this episode completes")

	f.String("tiles", "", "Trickplay tile URL template with {item}, {width} and {index} placeholders")
	f.Int("tile-columns", 10, "Thumbnails per tile row")
	f.Int("tile-rows", 10, "Thumbnails per tile column")
	f.Int("thumb-width", 320, "Thumbnail width in pixels")
	f.Int("thumb-height", 180, "Thumbnail height in pixels")
	f.Int("interval", 10000, "Milliseconds between thumbnails")
	f.Int("thumbnails", 0, "Total thumbnail count")
}

var playCmd = &cobra.Command{
	Use:     "play <url>",
	Short:   "Play a stream through the engine",
	Args:    cobra.ExactArgs(1),
	Example: fmt.Sprintf("  %s play https://media.example/Videos/42/stream?AudioStreamIndex=1 --item 42 --start 95", constant.App),
	Run: func(cmd *cobra.Command, args []string) {
		CheckDependencies()

		req, err := playRequest(cmd, args[0])
		handleErr(err)

		handleErr(runSession(req, playLibrary(cmd)))
	},
}

// playRequest assembles a playback request from the command line.
func playRequest(cmd *cobra.Command, url string) (playback.Request, error) {
	flags := cmd.Flags()

	req := playback.Request{
		URL:           url,
		ItemID:        lo.Must(flags.GetString("item")),
		SeriesID:      lo.Must(flags.GetString("series")),
		SeasonID:      lo.Must(flags.GetString("season")),
		LibraryID:     lo.Must(flags.GetString("library")),
		MediaSourceID: lo.Must(flags.GetString("media-source")),
		StartSeconds:  lo.Must(flags.GetFloat64("start")),
		Framerate:     lo.Must(flags.GetFloat64("framerate")),
		HDR:           lo.Must(flags.GetBool("hdr")),
	}

	if flags.Changed("aid") {
		req.Selection.Audio = mo.Some(lo.Must(flags.GetInt("aid")))
	}

	if flags.Changed("sid") {
		req.Selection.Subtitle = mo.Some(lo.Must(flags.GetInt("sid")))
	}

	for _, kind := range []playback.SegmentKind{playback.Intro, playback.Outro} {
		raw := lo.Must(flags.GetString(kind.String()))
		if raw == "" {
			continue
		}

		segment, err := parseSegment(kind, raw)
		if err != nil {
			return req, err
		}

		req.Segments = append(req.Segments, segment)
	}

	if lo.Must(flags.GetString("tiles")) != "" {
		info := trickplay.Info{
			TileWidth:      lo.Must(flags.GetInt("tile-columns")),
			TileHeight:     lo.Must(flags.GetInt("tile-rows")),
			Width:          lo.Must(flags.GetInt("thumb-width")),
			Height:         lo.Must(flags.GetInt("thumb-height")),
			IntervalMs:     lo.Must(flags.GetInt("interval")),
			ThumbnailCount: lo.Must(flags.GetInt("thumbnails")),
		}

		if err := info.Validate(); err != nil {
			return req, err
		}

		req.Trickplay = &info
	}

	return req, nil
}

// parseSegment reads a START-END pair of seconds.
func parseSegment(kind playback.SegmentKind, raw string) (playback.Segment, error) {
	var start, end float64
	if _, err := fmt.Sscanf(raw, "%f-%f", &start, &end); err != nil {
		return playback.Segment{}, fmt.Errorf("invalid %s segment %q: %w", kind, raw, err)
	}

	if end <= start {
		return playback.Segment{}, fmt.Errorf("invalid %s segment %q: end must follow start", kind, raw)
	}

	return playback.Segment{
		Kind:       kind,
		StartTicks: int64(start * constant.TicksPerSecond),
		EndTicks:   int64(end * constant.TicksPerSecond),
	}, nil
}

// templateLibrary stands in for a library client on the command line.
type templateLibrary struct {
	tiles string
	next  string
}

func playLibrary(cmd *cobra.Command) templateLibrary {
	return templateLibrary{
		tiles: lo.Must(cmd.Flags().GetString("tiles")),
		next:  lo.Must(cmd.Flags().GetString("next")),
	}
}

func (l templateLibrary) NextUnplayedEpisode(context.Context, string) (string, error) {
	return l.next, nil
}

func (l templateLibrary) TrickplayTileURL(itemID string, width, index int) string {
	return strings.NewReplacer(
		"{item}", itemID,
		"{width}", fmt.Sprint(width),
		"{index}", fmt.Sprint(index),
	).Replace(l.tiles)
}

// runSession plays req until it stops, fails or the process is interrupted.
func runSession(req playback.Request, library templateLibrary) error {
	engine, err := player.FromConfig()
	if err != nil {
		return err
	}

	var (
		line     = newStatusLine(os.Stdout, isTerminal(os.Stdout.Fd()))
		finished = make(chan playback.Notice, 1)
	)

	opts := playback.OptionsFromConfig()
	opts.OnNotice = func(n playback.Notice) {
		line.update(n)

		switch n.(type) {
		case playback.Stopped, playback.Failed:
			select {
			case finished <- n:
			default:
			}
		}
	}

	deps := playback.Deps{
		Engine:      engine,
		Reporter:    playback.LogReporter{},
		Library:     library,
		Preferences: trackpref.New(where.TrackPreferences()),
	}

	if library.tiles != "" {
		deps.Fetcher = &trickplay.HTTPFetcher{
			URL:     library.TrickplayTileURL,
			Limiter: trickplay.NewLimiter(viper.GetInt(key.TrickplayRequestsPerSecond)),
		}
	}

	machine, err := playback.New(deps, opts)
	if err != nil {
		return err
	}

	loop, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = machine.Run(loop)
	}()

	interrupt, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	if err := machine.Play(req); err != nil {
		return err
	}

	log.Infof("playing %s", req.URL)

	var result playback.Notice
	select {
	case result = <-finished:
	case <-interrupt.Done():
		machine.Stop()
		result = <-finished
	}

	<-machine.Shutdown()
	line.done()

	if failed, ok := result.(playback.Failed); ok {
		return fmt.Errorf("%s", failed.Message)
	}

	if stopped, ok := result.(playback.Stopped); ok && stopped.Played {
		fmt.Printf("%s Marked as played\n", icon.Get(icon.Success))
	}

	return nil
}

// playTrackIndex renders a logical track index for the status line.
func playTrackIndex(logical int) string {
	if logical == trackmap.None {
		return "-"
	}
	return fmt.Sprint(logical)
}
