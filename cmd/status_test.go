package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/muesli/reflow/ansi"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/vesper-player/vesper/constant"
	"github.com/vesper-player/vesper/playback"
)

func TestClockTime(t *testing.T) {
	Convey("Given positions in seconds", t, func() {
		So(clockTime(0), ShouldEqual, "0:00")
		So(clockTime(95.7), ShouldEqual, "1:35")
		So(clockTime(3725), ShouldEqual, "1:02:05")
	})
}

func TestStatusLine(t *testing.T) {
	Convey("Given a status line", t, func() {
		var out bytes.Buffer
		line := newStatusLine(&out, true)
		line.width = func() int { return 200 }

		Convey("It should show the state and position", func() {
			line.update(playback.Transitioned{From: playback.Buffering, To: playback.Playing, Event: playback.BufferComplete})
			line.update(playback.Progress{Position: 65, Duration: 1200})

			So(out.String(), ShouldContainSubstring, "Playing 1:05 / 20:00")
		})

		Convey("A shorter line should blank the previous one", func() {
			line.update(playback.Failed{Message: "engine exited with code 2"})
			line.update(playback.Transitioned{From: playback.Error, To: playback.Idle, Event: playback.Stop})

			last := out.String()[strings.LastIndex(out.String(), "\r")+1:]
			So(strings.TrimRight(last, " "), ShouldNotContainSubstring, "engine exited")
			So(strings.HasSuffix(last, " "), ShouldBeTrue)
		})

		Convey("It should truncate to the terminal width", func() {
			line.width = func() int { return 10 }
			line.update(playback.AutoplayReady{SeriesID: "s", ItemID: "a-very-long-episode-identifier"})

			last := out.String()[strings.LastIndex(out.String(), "\r")+1:]
			So(ansi.PrintableRuneWidth(last), ShouldBeLessThanOrEqualTo, 9)
		})

		Convey("Wide characters should count by cell width", func() {
			line.width = func() int { return 12 }
			line.update(playback.Failed{Message: "再生できませんでした"})

			last := out.String()[strings.LastIndex(out.String(), "\r")+1:]
			So(ansi.PrintableRuneWidth(last), ShouldBeLessThanOrEqualTo, 11)
		})

		Convey("done should end the line once", func() {
			line.update(playback.Progress{Position: 1, Duration: 2})
			line.done()
			line.done()
			So(strings.Count(out.String(), "\n"), ShouldEqual, 1)
		})
	})

	Convey("Given a status line off a terminal", t, func() {
		var out bytes.Buffer
		line := newStatusLine(&out, false)

		Convey("Position updates alone should print nothing new", func() {
			line.update(playback.Transitioned{From: playback.Buffering, To: playback.Playing, Event: playback.BufferComplete})
			line.update(playback.Progress{Position: 1, Duration: 60})
			line.update(playback.Progress{Position: 2, Duration: 60})

			So(strings.Count(out.String(), "\n"), ShouldEqual, 1)
			So(out.String(), ShouldNotContainSubstring, "\r")
		})

		Convey("done should write nothing", func() {
			line.update(playback.Transitioned{From: playback.Idle, To: playback.Loading, Event: playback.Play})
			before := out.Len()
			line.done()
			So(out.Len(), ShouldEqual, before)
		})
	})
}

func TestParseSegment(t *testing.T) {
	Convey("Given a segment flag", t, func() {
		Convey("A valid range should convert to ticks", func() {
			s, err := parseSegment(playback.Intro, "30-95.5")
			So(err, ShouldBeNil)
			So(s.Kind, ShouldEqual, playback.Intro)
			So(s.StartTicks, ShouldEqual, int64(30*constant.TicksPerSecond))
			So(s.EndTicks, ShouldEqual, int64(95.5*constant.TicksPerSecond))
		})

		Convey("An inverted range should be rejected", func() {
			_, err := parseSegment(playback.Outro, "100-90")
			So(err, ShouldNotBeNil)
		})

		Convey("Garbage should be rejected", func() {
			_, err := parseSegment(playback.Outro, "end")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestTemplateLibrary(t *testing.T) {
	Convey("Given a tile url template", t, func() {
		lib := templateLibrary{tiles: "https://media.example/Videos/{item}/Trickplay/{width}/{index}.jpg", next: "43"}

		So(lib.TrickplayTileURL("42", 320, 3), ShouldEqual, "https://media.example/Videos/42/Trickplay/320/3.jpg")

		next, err := lib.NextUnplayedEpisode(context.Background(), "series")
		So(err, ShouldBeNil)
		So(next, ShouldEqual, "43")
	})
}
