package playback

import (
	"strconv"

	"github.com/vesper-player/vesper/log"
	"github.com/vesper-player/vesper/trickplay"
)

// overlayID is the engine overlay slot used for seek previews.
const overlayID = 0

func (m *Machine) startTrickplay() {
	info := m.s.req.Trickplay
	if m.pipeline == nil || info == nil || m.s.req.ItemID == "" {
		return
	}

	itemID := m.s.req.ItemID
	if err := m.pipeline.StartProcessing(itemID, *info); err != nil {
		log.Warnf("trickplay: %s", err)
		return
	}

	// A store finished by an earlier attempt at this item produces no new
	// result, so announce it again.
	if path, ok := m.pipeline.Ready(itemID); ok {
		m.trickplayDone(trickplay.Result{ItemID: itemID, Path: path, Info: *info})
	}
}

func (m *Machine) trickplayDone(r trickplay.Result) {
	if r.ItemID != m.s.req.ItemID {
		log.Debugf("trickplay: discarding result for %s", r.ItemID)
		return
	}

	if r.Err != nil {
		log.WithField("item", r.ItemID).Warnf("trickplay unavailable: %s", r.Err)
		return
	}

	if path, ok := m.pipeline.OutputPath(r.ItemID); !ok || path != r.Path {
		log.Debugf("trickplay: discarding superseded store %s", r.Path)
		return
	}

	m.s.trickplayReady = true
	m.s.trickplayPath = r.Path
	m.s.trickplayInfo = r.Info

	m.send("script-message", "trickplay-ready",
		r.Path,
		strconv.Itoa(r.Info.ThumbnailCount),
		strconv.Itoa(r.Info.Width),
		strconv.Itoa(r.Info.Height),
		strconv.Itoa(r.Info.IntervalMs),
	)

	m.notify(TrickplayReady{ItemID: r.ItemID, Path: r.Path})
}

// preview answers an engine request for the frame at a position, given as
// seconds, x and y.
func (m *Machine) preview(args []string) {
	if !m.s.trickplayReady || len(args) < 3 {
		return
	}

	seconds, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return
	}

	x, errX := strconv.Atoi(args[1])
	y, errY := strconv.Atoi(args[2])
	if errX != nil || errY != nil {
		return
	}

	info := m.s.trickplayInfo
	frame := info.FrameAt(seconds)

	m.send("overlay-add", overlayID, x, y,
		m.s.trickplayPath,
		info.FrameOffset(frame),
		"bgra",
		info.Width,
		info.Height,
		info.Width*trickplay.BytesPerPixel,
	)
}
