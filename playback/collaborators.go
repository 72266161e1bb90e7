package playback

import (
	"context"

	"github.com/vesper-player/vesper/log"
)

// Report is the payload of every playback report.
type Report struct {
	ItemID        string
	PositionTicks int64
	MediaSourceID string
	AudioIndex    int
	SubtitleIndex int
	SessionID     string
}

// Reporter receives the playback lifecycle of the remote library.
type Reporter interface {
	ReportPlaybackStart(ctx context.Context, r Report) error
	ReportPlaybackProgress(ctx context.Context, r Report) error
	ReportPlaybackPaused(ctx context.Context, r Report) error
	ReportPlaybackResumed(ctx context.Context, r Report) error
	ReportPlaybackStopped(ctx context.Context, r Report) error
	MarkItemPlayed(ctx context.Context, itemID string) error
}

// Library answers questions about the remote media library.
type Library interface {
	// NextUnplayedEpisode returns the next episode to play in a series, or
	// an empty id when there is none.
	NextUnplayedEpisode(ctx context.Context, seriesID string) (string, error)

	// TrickplayTileURL locates one sprite sheet of an item.
	TrickplayTileURL(itemID string, width, index int) string
}

// Display switches output modes around engine start.
type Display interface {
	MatchRefreshRate(ctx context.Context, framerate float64) error
	SetHDR(ctx context.Context, enabled bool) error
	Restore(ctx context.Context) error
}

// LogReporter is a Reporter that only writes the reports to the log.
type LogReporter struct{}

func (LogReporter) ReportPlaybackStart(_ context.Context, r Report) error {
	log.WithFields(r.fields()).Info("playback started")
	return nil
}

func (LogReporter) ReportPlaybackProgress(_ context.Context, r Report) error {
	log.WithFields(r.fields()).Debug("playback progress")
	return nil
}

func (LogReporter) ReportPlaybackPaused(_ context.Context, r Report) error {
	log.WithFields(r.fields()).Info("playback paused")
	return nil
}

func (LogReporter) ReportPlaybackResumed(_ context.Context, r Report) error {
	log.WithFields(r.fields()).Info("playback resumed")
	return nil
}

func (LogReporter) ReportPlaybackStopped(_ context.Context, r Report) error {
	log.WithFields(r.fields()).Info("playback stopped")
	return nil
}

func (LogReporter) MarkItemPlayed(_ context.Context, itemID string) error {
	log.WithField("item", itemID).Info("item played")
	return nil
}

func (r Report) fields() log.Fields {
	return log.Fields{
		"item":     r.ItemID,
		"ticks":    r.PositionTicks,
		"source":   r.MediaSourceID,
		"audio":    r.AudioIndex,
		"subtitle": r.SubtitleIndex,
		"session":  r.SessionID,
	}
}
