package cmd

import (
	"bytes"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
	"github.com/vesper-player/vesper/key"
)

func TestBuildReport(t *testing.T) {
	Convey("Given the attach backend", t, func() {
		viper.Set(key.EngineBackend, "attach")
		viper.Set(key.EngineAttachEndpoint, "/run/user/1000/mpv.sock")
		viper.Set(key.TrickplayEnable, false)
		defer viper.Reset()

		r := newBuildReport()

		Convey("The engine should be the endpoint", func() {
			So(r.Backend, ShouldEqual, "attach")
			So(r.Engine, ShouldEqual, "/run/user/1000/mpv.sock")
		})

		Convey("The report should render every section", func() {
			var out bytes.Buffer
			So(versionTemplate.Execute(&out, r), ShouldBeNil)
			So(out.String(), ShouldContainSubstring, "/run/user/1000/mpv.sock")
			So(out.String(), ShouldContainSubstring, "mpv JSON IPC")
			So(out.String(), ShouldContainSubstring, "off")
		})
	})

	Convey("Given a process backend binary that does not exist", t, func() {
		viper.Set(key.EngineBackend, "process")
		viper.Set(key.EngineBinary, "vesper-missing-engine")
		defer viper.Reset()

		So(newBuildReport().Engine, ShouldEqual, "vesper-missing-engine (not found)")
	})
}
