package playback

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/samber/mo"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/vesper-player/vesper/constant"
	"github.com/vesper-player/vesper/player"
	"github.com/vesper-player/vesper/trackmap"
	"github.com/vesper-player/vesper/trickplay"
)

func hasCommand(cmds [][]any, want []any) bool {
	for _, cmd := range cmds {
		if reflect.DeepEqual(cmd, want) {
			return true
		}
	}
	return false
}

func isStopped(n Notice) bool { _, ok := n.(Stopped); return ok }
func isFailed(n Notice) bool  { _, ok := n.(Failed); return ok }

func TestNew(t *testing.T) {
	Convey("New should require an engine", t, func() {
		_, err := New(Deps{}, DefaultOptions())
		So(err, ShouldNotBeNil)
	})
}

func TestPlaybackLifecycle(t *testing.T) {
	Convey("Given a machine", t, func() {
		r := newRig(nil)
		Reset(r.close)

		Convey("An invalid request should be refused", func() {
			err := r.m.Play(Request{})
			So(errors.Is(err, ErrInvalidRequest), ShouldBeTrue)
			So(r.m.State(), ShouldEqual, Idle)
		})

		Convey("Playing an episode to its natural end", func() {
			r.library.next["series"] = "ep2"
			req := episode()
			req.StartSeconds = 12.5

			So(r.m.Play(req), ShouldBeNil)
			So(r.m.State(), ShouldEqual, Loading)

			start := r.engine.lastStart()
			So(start.Binary, ShouldEqual, constant.EngineBinary)
			So(start.URL, ShouldEqual, req.URL)
			So(start.Args, ShouldResemble, []string{"--idle=yes", "--start=12.5"})

			r.position(0.1)
			So(r.m.State(), ShouldEqual, Buffering)

			r.position(1.2)
			So(r.m.State(), ShouldEqual, Playing)
			So(r.reporter.names(), ShouldResemble, []string{"start"})

			r.property(player.PropDuration, 100.0)
			r.position(100)
			r.emit(player.Notification{Kind: player.KindEndOfFile, Reason: "eof"})

			So(r.m.State(), ShouldEqual, Idle)
			So(r.reporter.playedItems(), ShouldResemble, []string{"ep1"})
			So(r.reporter.names(), ShouldResemble, []string{"start", "stopped"})

			stopped := r.noticesOf(isStopped)
			So(stopped, ShouldHaveLength, 1)
			So(stopped[0].(Stopped).Played, ShouldBeTrue)

			So(r.awaitNotice(func(n Notice) bool {
				ready, ok := n.(AutoplayReady)
				return ok && ready.ItemID == "ep2"
			}), ShouldBeTrue)

			Convey("and the session should be cleared", func() {
				snap := r.m.Snapshot()
				So(snap.ItemID, ShouldBeEmpty)
				So(snap.Position, ShouldEqual, 0.0)
				So(snap.PendingSeek.IsPresent(), ShouldBeFalse)
				So(r.engine.sent("overlay-remove", overlayID), ShouldHaveLength, 1)
			})
		})

		Convey("Stopping below the threshold should not mark the item played", func() {
			r.toPlaying(episode())
			r.property(player.PropDuration, 100.0)
			r.position(50)

			So(r.m.Stop(), ShouldBeTrue)
			r.sync()

			So(r.m.State(), ShouldEqual, Idle)
			So(r.engine.stopCount(), ShouldEqual, 1)
			So(r.reporter.playedItems(), ShouldBeEmpty)

			rep, ok := r.reporter.last("stopped")
			So(ok, ShouldBeTrue)
			So(rep.PositionTicks, ShouldEqual, int64(50*constant.TicksPerSecond))
			So(rep.MediaSourceID, ShouldEqual, "source1")
		})

		Convey("Stopping past the threshold should mark it played", func() {
			r.toPlaying(episode())
			r.property(player.PropDuration, 100.0)
			r.position(95)

			So(r.m.Stop(), ShouldBeTrue)
			r.sync()
			So(r.reporter.playedItems(), ShouldResemble, []string{"ep1"})
			So(r.m.Snapshot().State, ShouldEqual, Idle)
		})

		Convey("Play during playback should replace the session", func() {
			r.toPlaying(episode())
			next := episode()
			next.ItemID = "ep2"

			So(r.m.Play(next), ShouldBeNil)
			r.sync()

			So(r.m.State(), ShouldEqual, Loading)
			So(r.m.Snapshot().ItemID, ShouldEqual, "ep2")
			So(r.reporter.names(), ShouldResemble, []string{"start", "stopped"})
			So(r.engine.stopCount(), ShouldEqual, 1)
		})
	})
}

func TestTimeouts(t *testing.T) {
	Convey("Given a machine", t, func() {
		r := newRig(nil)
		Reset(r.close)

		Convey("Loading should fail after thirty seconds without a position", func() {
			So(r.m.Play(episode()), ShouldBeNil)

			r.advance(29 * time.Second)
			So(r.m.State(), ShouldEqual, Loading)

			r.advance(time.Second)
			So(r.m.State(), ShouldEqual, Error)
			So(r.engine.stopCount(), ShouldEqual, 1)
			So(r.m.Snapshot().Error, ShouldContainSubstring, "timed out")
			So(r.noticesOf(isFailed), ShouldHaveLength, 1)

			Convey("and the identifiers should survive for a retry", func() {
				So(r.m.Snapshot().ItemID, ShouldEqual, "ep1")
				So(r.m.Retry(), ShouldBeTrue)
				So(r.m.State(), ShouldEqual, Loading)
				So(r.engine.lastStart().URL, ShouldEqual, episode().URL)
			})

			Convey("and clearing the error should return to idle", func() {
				So(r.m.ClearError(), ShouldBeTrue)
				So(r.m.State(), ShouldEqual, Idle)
				So(r.m.Retry(), ShouldBeFalse)
			})
		})

		Convey("Position updates while buffering should restart the timeout", func() {
			So(r.m.Play(episode()), ShouldBeNil)
			r.position(0.1)
			So(r.m.State(), ShouldEqual, Buffering)

			r.advance(40 * time.Second)
			r.position(0.3)
			r.advance(40 * time.Second)
			So(r.m.State(), ShouldEqual, Buffering)

			r.position(0.4)
			So(r.m.Snapshot().BufferingProgress, ShouldEqual, 99)

			r.advance(59 * time.Second)
			So(r.m.State(), ShouldEqual, Buffering)

			r.advance(time.Second)
			So(r.m.State(), ShouldEqual, Error)
		})

		Convey("Small steady steps should complete buffering once they add up", func() {
			So(r.m.Play(episode()), ShouldBeNil)
			r.position(10)
			So(r.m.State(), ShouldEqual, Buffering)

			for _, p := range []float64{10.2, 10.4} {
				r.position(p)
				So(r.m.State(), ShouldEqual, Buffering)
			}

			r.position(10.6)
			So(r.m.State(), ShouldEqual, Playing)
		})

		Convey("Buffering progress should follow elapsed time", func() {
			So(r.m.Play(episode()), ShouldBeNil)
			r.position(0.1)

			r.advance(30 * time.Second)
			r.position(0.2)
			So(r.m.Snapshot().BufferingProgress, ShouldEqual, 50)
		})

		Convey("Leaving loading should cancel its timeout", func() {
			r.toPlaying(episode())
			r.advance(5 * time.Minute)
			So(r.m.State(), ShouldEqual, Playing)
		})

		Convey("Progress should be reported every ten seconds while playing", func() {
			r.toPlaying(episode())
			r.advance(10 * time.Second)
			r.advance(10 * time.Second)
			So(r.reporter.names(), ShouldResemble, []string{"start", "progress", "progress"})
		})
	})
}

func TestSeekQueue(t *testing.T) {
	Convey("Given a buffering session", t, func() {
		r := newRig(nil)
		Reset(r.close)

		So(r.m.Play(episode()), ShouldBeNil)
		r.position(0.1)
		So(r.m.State(), ShouldEqual, Buffering)

		Convey("A seek should wait for playback", func() {
			So(r.m.Seek(42), ShouldBeTrue)
			So(r.engine.sent("seek"), ShouldBeEmpty)
			So(r.m.Snapshot().PendingSeek, ShouldResemble, mo.Some(42.0))

			r.position(1.2)
			So(r.m.State(), ShouldEqual, Playing)
			So(r.engine.sent("seek"), ShouldResemble, [][]any{{"seek", 42.0, "absolute"}})

			r.property(player.PropPausedForCache, true)
			r.property(player.PropPausedForCache, false)
			So(r.m.State(), ShouldEqual, Playing)
			So(r.engine.sent("seek"), ShouldHaveLength, 1)
		})

		Convey("Pausing should send the queued seek at once", func() {
			So(r.m.Seek(42), ShouldBeTrue)
			So(r.m.Pause(), ShouldBeTrue)
			So(r.engine.sent("seek"), ShouldResemble, [][]any{{"seek", 42.0, "absolute"}})
			So(r.m.Snapshot().PendingSeek.IsPresent(), ShouldBeFalse)

			So(r.m.Resume(), ShouldBeTrue)
			r.position(300)
			r.property(player.PropPausedForCache, true)
			r.property(player.PropPausedForCache, false)
			So(r.m.State(), ShouldEqual, Playing)
			So(r.engine.sent("seek"), ShouldHaveLength, 1)
		})

		Convey("Stopping should drop the queued seek", func() {
			So(r.m.Seek(42), ShouldBeTrue)
			So(r.m.Stop(), ShouldBeTrue)
			So(r.m.Snapshot().PendingSeek.IsPresent(), ShouldBeFalse)
		})
	})

	Convey("A seek queued while loading should be sent on buffering", t, func() {
		r := newRig(nil)
		Reset(r.close)

		So(r.m.Play(episode()), ShouldBeNil)
		So(r.m.Seek(30), ShouldBeTrue)
		So(r.engine.sent("seek"), ShouldBeEmpty)

		r.position(0.1)
		So(r.engine.sent("seek"), ShouldResemble, [][]any{{"seek", 30.0, "absolute"}})
	})

	Convey("A seek while paused should go straight to the engine", t, func() {
		r := newRig(nil)
		Reset(r.close)

		r.toPlaying(episode())
		r.property(player.PropPause, true)
		So(r.m.State(), ShouldEqual, Paused)

		So(r.m.Seek(90), ShouldBeTrue)
		So(r.m.Snapshot().PendingSeek.IsPresent(), ShouldBeFalse)
		So(r.engine.sent("seek"), ShouldResemble, [][]any{{"seek", 90.0, "absolute"}})
	})

	Convey("Seeking without a session should be refused", t, func() {
		r := newRig(nil)
		Reset(r.close)
		So(r.m.Seek(10), ShouldBeFalse)
	})
}

func TestEngineSignals(t *testing.T) {
	Convey("Given a playing session", t, func() {
		r := newRig(nil)
		Reset(r.close)
		r.toPlaying(episode())

		Convey("The engine stalling on cache should re-enter buffering", func() {
			r.property(player.PropPausedForCache, true)
			So(r.m.State(), ShouldEqual, Buffering)

			r.property(player.PropPausedForCache, false)
			So(r.m.State(), ShouldEqual, Playing)
			So(r.reporter.names(), ShouldResemble, []string{"start"})
		})

		Convey("Pause and resume should be reported", func() {
			So(r.m.Pause(), ShouldBeTrue)
			So(r.m.State(), ShouldEqual, Paused)
			So(r.engine.sent("set_property", "pause", player.YesNo(true)), ShouldHaveLength, 1)

			r.property(player.PropPause, true)
			So(r.m.State(), ShouldEqual, Paused)

			So(r.m.Resume(), ShouldBeTrue)
			r.sync()
			So(r.reporter.names(), ShouldResemble, []string{"start", "paused", "resumed"})
		})

		Convey("A pause made in the engine should be followed", func() {
			r.property(player.PropPause, true)
			So(r.m.State(), ShouldEqual, Paused)

			r.property(player.PropPause, false)
			So(r.m.State(), ShouldEqual, Playing)
		})

		Convey("A clean engine exit should stop playback", func() {
			r.emit(player.Notification{Kind: player.KindStateChanged})
			So(r.m.State(), ShouldEqual, Idle)
			So(r.reporter.names(), ShouldResemble, []string{"start", "stopped"})
		})

		Convey("A crash should enter the error state", func() {
			r.position(33)
			r.emit(player.Notification{Kind: player.KindStateChanged, ExitCode: 139})
			So(r.m.State(), ShouldEqual, Error)
			So(r.m.Snapshot().Error, ShouldContainSubstring, "code 139")

			Convey("and a retry should resume from the last position", func() {
				So(r.m.Retry(), ShouldBeTrue)
				So(r.engine.lastStart().Args, ShouldContain, "--start=33")
			})
		})

		Convey("A playback error should surface the engine's message", func() {
			r.emit(player.Notification{Kind: player.KindEndOfFile, Reason: "error", Error: "loading failed"})
			So(r.m.State(), ShouldEqual, Error)
			So(r.m.Snapshot().Error, ShouldEqual, "loading failed")
		})

		Convey("Volume changes should be tracked", func() {
			r.property(player.PropVolume, 55.0)
			r.property(player.PropMute, true)

			snap := r.m.Snapshot()
			So(snap.Volume, ShouldEqual, 55.0)
			So(snap.Muted, ShouldBeTrue)

			So(r.m.SetVolume(80), ShouldBeTrue)
			So(r.m.SetMuted(false), ShouldBeTrue)
			So(r.engine.sent("set_property", "volume"), ShouldResemble, [][]any{{"set_property", "volume", 80.0}})
			So(r.engine.sent("set_property", "mute"), ShouldResemble, [][]any{{"set_property", "mute", player.YesNo(false)}})
		})

		Convey("Unknown values and stray messages should be ignored", func() {
			r.property(player.PropTimePos, nil)
			r.emit(player.Notification{Kind: player.KindClientMessage, Name: "something-else"})
			So(r.m.State(), ShouldEqual, Playing)
		})
	})

	Convey("An engine that fails to start should fail the session", t, func() {
		r := newRig(nil)
		Reset(r.close)
		r.engine.startErr = errors.New("start mpv: executable file not found")

		So(r.m.Play(episode()), ShouldBeNil)
		So(r.m.State(), ShouldEqual, Error)
		So(r.m.Snapshot().Error, ShouldContainSubstring, "executable file not found")
	})
}

func TestTracks(t *testing.T) {
	Convey("Given a request with an explicit track map", t, func() {
		r := newRig(nil)
		Reset(r.close)

		mp := trackmap.NewMap()
		mp.Audio[7] = 2
		mp.Audio[8] = 1
		mp.Subtitle[9] = 1

		req := episode()
		req.URL += "&AudioStreamIndex=4"
		req.TrackMap = &mp
		req.Selection = trackmap.Selection{Audio: mo.Some(7)}

		So(r.m.Play(req), ShouldBeNil)
		snap := r.m.Snapshot()
		So(snap.AudioTrack, ShouldEqual, 7)
		So(snap.EngineAudioTrack, ShouldEqual, 2)
		So(snap.TrackMode, ShouldEqual, ApplyingStartupSelection)

		Convey("Entering buffering should apply the resolved tracks", func() {
			r.position(0.1)
			So(r.engine.sent("set_property", "aid"), ShouldResemble, [][]any{{"set_property", "aid", 2}})
			So(r.engine.sent("set_property", "sid"), ShouldResemble, [][]any{{"set_property", "sid", "no"}})
			So(r.engine.sent("set_property", "audio-delay"), ShouldHaveLength, 1)
		})

		Convey("Engine echoes during startup should be ignored", func() {
			r.position(0.1)
			r.property(player.PropAudioTrack, 0)
			So(r.m.Snapshot().AudioTrack, ShouldEqual, 7)
		})

		Convey("Once playing", func() {
			r.position(0.1)
			r.position(1.2)
			So(r.m.Snapshot().TrackMode, ShouldEqual, UserControlled)

			Convey("an engine change should update the selection", func() {
				r.property(player.PropAudioTrack, 0)
				snap := r.m.Snapshot()
				So(snap.AudioTrack, ShouldEqual, 8)
				So(snap.EngineAudioTrack, ShouldEqual, 1)
			})

			Convey("a user change should be applied and remembered", func() {
				So(r.m.SetAudioTrack(8), ShouldBeTrue)
				So(r.m.SetSubtitleTrack(9), ShouldBeTrue)
				r.sync()

				So(hasCommand(r.engine.sent("set_property", "aid"), []any{"set_property", "aid", 1}), ShouldBeTrue)
				So(hasCommand(r.engine.sent("set_property", "sid"), []any{"set_property", "sid", 1}), ShouldBeTrue)

				pref, ok := r.prefs.Get("season:season1")
				So(ok, ShouldBeTrue)
				So(*pref.Audio, ShouldEqual, 8)
				So(*pref.Subtitle, ShouldEqual, 9)

				Convey("and used by the next episode of the season", func() {
					next := episode()
					next.ItemID = "ep2"
					next.TrackMap = &mp

					So(r.m.Play(next), ShouldBeNil)
					snap := r.m.Snapshot()
					So(snap.AudioTrack, ShouldEqual, 8)
					So(snap.SubtitleTrack, ShouldEqual, 9)
					So(snap.EngineSubtitleTrack, ShouldEqual, 1)
				})

				Convey("and used again by a retry after a crash", func() {
					r.emit(player.Notification{Kind: player.KindStateChanged, ExitCode: 139})
					So(r.m.State(), ShouldEqual, Error)

					So(r.m.Retry(), ShouldBeTrue)
					snap := r.m.Snapshot()
					So(snap.AudioTrack, ShouldEqual, 7)
					So(snap.SubtitleTrack, ShouldEqual, 9)
					So(snap.TrackMode, ShouldEqual, ApplyingStartupSelection)
				})
			})

			Convey("turning subtitles off should disable them", func() {
				So(r.m.SetSubtitleTrack(-1), ShouldBeTrue)
				sids := r.engine.sent("set_property", "sid")
				So(sids[len(sids)-1], ShouldResemble, []any{"set_property", "sid", "no"})
			})

			Convey("the audio delay should be applied and remembered", func() {
				So(r.m.SetAudioDelay(0.25), ShouldBeTrue)
				r.sync()

				So(hasCommand(r.engine.sent("set_property", "audio-delay"), []any{"set_property", "audio-delay", 0.25}), ShouldBeTrue)
				pref, _ := r.prefs.Get("season:season1")
				So(*pref.AudioDelay, ShouldEqual, 0.25)
			})
		})
	})

	Convey("Given a URL pinning tracks and no map", t, func() {
		r := newRig(nil)
		Reset(r.close)

		req := episode()
		req.URL += "&AudioStreamIndex=4&SubtitleStreamIndex=6"
		So(r.m.Play(req), ShouldBeNil)
		r.position(0.1)

		Convey("The pinned indices should be kept and the engine left alone", func() {
			snap := r.m.Snapshot()
			So(snap.AudioTrack, ShouldEqual, 4)
			So(snap.SubtitleTrack, ShouldEqual, 6)
			So(r.engine.sent("set_property", "aid"), ShouldBeEmpty)
			So(r.engine.sent("set_property", "sid"), ShouldBeEmpty)
		})
	})
}

func TestSegments(t *testing.T) {
	intro := Segment{Kind: Intro, StartTicks: 10 * constant.TicksPerSecond, EndTicks: 40 * constant.TicksPerSecond}

	Convey("Given an episode with an intro", t, func() {
		Convey("With auto-skip", func() {
			r := newRig(func(o *Options, _ *Deps) { o.SkipIntro = true })
			Reset(r.close)

			req := episode()
			req.Segments = []Segment{intro}
			r.toPlaying(req)

			So(r.engine.sent("set_property", "chapter-list"), ShouldHaveLength, 1)

			r.position(12)
			So(r.engine.sent("seek"), ShouldResemble, [][]any{{"seek", 40.0, "absolute"}})

			entered := r.noticesOf(func(n Notice) bool { _, ok := n.(SegmentEntered); return ok })
			So(entered, ShouldHaveLength, 1)
			So(entered[0].(SegmentEntered).Skipped, ShouldBeTrue)

			r.position(13)
			So(r.engine.sent("seek"), ShouldHaveLength, 1)
		})

		Convey("Without auto-skip", func() {
			r := newRig(nil)
			Reset(r.close)

			req := episode()
			req.Segments = []Segment{intro}
			r.toPlaying(req)
			So(r.m.SkipSegment(), ShouldBeFalse)

			r.position(12)
			So(r.engine.sent("seek"), ShouldBeEmpty)

			Convey("the engine script can ask for the skip", func() {
				r.emit(player.Notification{Kind: player.KindClientMessage, Name: "skip-segment"})
				So(r.engine.sent("seek"), ShouldResemble, [][]any{{"seek", 40.0, "absolute"}})
			})
		})
	})
}

func TestDisplay(t *testing.T) {
	Convey("Given display switching", t, func() {
		r := newRig(func(o *Options, _ *Deps) {
			o.MatchRefreshRate = true
			o.ToggleHDR = true
		})
		Reset(r.close)

		req := episode()
		req.Framerate = 23.976
		req.HDR = true

		r.toPlaying(req)
		So(r.m.Stop(), ShouldBeTrue)
		r.sync()

		So(r.display.list(), ShouldResemble, []string{"refresh", "hdr", "restore"})
	})
}

func TestTrickplay(t *testing.T) {
	Convey("Given trickplay metadata", t, func() {
		r := newRig(func(_ *Options, d *Deps) { d.Fetcher = sheetFetcher{} })
		Reset(r.close)

		info := trickplay.Info{TileWidth: 2, TileHeight: 2, Width: 4, Height: 3, IntervalMs: 10000, ThumbnailCount: 6}
		req := episode()
		req.Trickplay = &info

		r.toPlaying(req)

		So(r.awaitNotice(func(n Notice) bool { _, ok := n.(TrickplayReady); return ok }), ShouldBeTrue)

		snap := r.m.Snapshot()
		So(snap.TrickplayReady, ShouldBeTrue)

		stat, err := r.fs.Stat(snap.TrickplayPath)
		So(err, ShouldBeNil)
		So(stat.Size(), ShouldEqual, int64(6*4*3*4))

		So(r.engine.sent("script-message", "trickplay-ready"), ShouldResemble,
			[][]any{{"script-message", "trickplay-ready", snap.TrickplayPath, "6", "4", "3", "10000"}})

		Convey("A preview request should place the matching frame", func() {
			r.emit(player.Notification{Kind: player.KindClientMessage, Name: "trickplay-preview", Args: []string{"25", "100", "200"}})

			So(r.engine.sent("overlay-add"), ShouldResemble, [][]any{{
				"overlay-add", overlayID, 100, 200, snap.TrickplayPath, int64(2 * 4 * 3 * 4), "bgra", 4, 3, 16,
			}})

			r.emit(player.Notification{Kind: player.KindClientMessage, Name: "trickplay-hide"})
			So(r.engine.sent("overlay-remove"), ShouldHaveLength, 1)
		})

		Convey("A retry after a crash should announce the store again", func() {
			r.emit(player.Notification{Kind: player.KindStateChanged, ExitCode: 139})
			So(r.m.State(), ShouldEqual, Error)

			So(r.m.Retry(), ShouldBeTrue)
			r.position(0.1)
			r.position(1.5)
			So(r.m.State(), ShouldEqual, Playing)

			again := r.m.Snapshot()
			So(again.TrickplayReady, ShouldBeTrue)
			So(again.TrickplayPath, ShouldEqual, snap.TrickplayPath)
			So(r.engine.sent("script-message", "trickplay-ready"), ShouldHaveLength, 2)
			So(r.noticesOf(func(n Notice) bool { _, ok := n.(TrickplayReady); return ok }), ShouldHaveLength, 2)
		})

		Convey("Stopping should discard the store", func() {
			So(r.m.Stop(), ShouldBeTrue)
			r.sync()

			_, err := r.fs.Stat(snap.TrickplayPath)
			So(err, ShouldNotBeNil)
			So(r.m.Snapshot().TrickplayReady, ShouldBeFalse)
		})
	})
}

func TestShutdown(t *testing.T) {
	Convey("Shutdown should stop the session and drain reports", t, func() {
		r := newRig(nil)
		Reset(r.close)

		r.toPlaying(episode())

		select {
		case <-r.m.Shutdown():
		case <-time.After(patience):
		}

		So(r.m.State(), ShouldEqual, Idle)
		So(r.reporter.names(), ShouldResemble, []string{"start", "stopped"})
	})
}
