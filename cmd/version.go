package cmd

import (
	"os"
	"os/exec"
	"runtime"
	"strings"
	"text/template"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vesper-player/vesper/color"
	"github.com/vesper-player/vesper/constant"
	"github.com/vesper-player/vesper/key"
	"github.com/vesper-player/vesper/player"
	"github.com/vesper-player/vesper/style"
	"github.com/vesper-player/vesper/version"
)

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.SetOut(os.Stdout)
	versionCmd.Flags().BoolP("short", "s", false, "Print only the version number")
}

// buildReport is what `vesper version` prints.
type buildReport struct {
	App, Version, Revision, BuiltAt, Platform string

	Backend string
	// Engine is the resolved binary for the process backend or the
	// endpoint for the attach backend.
	Engine    string
	Trickplay bool
}

func newBuildReport() buildReport {
	r := buildReport{
		App:       constant.App,
		Version:   constant.Version,
		Revision:  lo.Ternary(constant.Revision == "", "unknown", constant.Revision),
		BuiltAt:   lo.Ternary(strings.TrimSpace(constant.BuiltAt) == "", "unknown", strings.TrimSpace(constant.BuiltAt)),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Backend:   viper.GetString(key.EngineBackend),
		Trickplay: viper.GetBool(key.TrickplayEnable),
	}

	if player.Backend(r.Backend) == player.BackendAttach {
		r.Engine = lo.Ternary(viper.GetString(key.EngineAttachEndpoint) == "", "no endpoint set", viper.GetString(key.EngineAttachEndpoint))
		return r
	}

	binary := lo.Ternary(viper.GetString(key.EngineBinary) == "", constant.EngineBinary, viper.GetString(key.EngineBinary))
	if path, err := exec.LookPath(binary); err == nil {
		r.Engine = path
	} else {
		r.Engine = binary + " (not found)"
	}
	return r
}

var versionTemplate = template.Must(template.New("version").Funcs(template.FuncMap{
	"faint":   style.Faint,
	"bold":    style.Bold,
	"magenta": style.Fg(color.Purple),
}).Parse(`{{ magenta "▇▇▇" }} {{ magenta .App }} {{ bold .Version }}

  {{ faint "Commit" }}      {{ .Revision }}
  {{ faint "Built" }}       {{ .BuiltAt }}
  {{ faint "Platform" }}    {{ .Platform }}

  {{ faint "Backend" }}     {{ bold .Backend }}
  {{ faint "Engine" }}      {{ .Engine }}
  {{ faint "IPC" }}         mpv JSON IPC
  {{ faint "Trickplay" }}   {{ if .Trickplay }}on{{ else }}off{{ end }}
`))

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and the engine it will drive",
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("short")) {
			cmd.Println(constant.Version)
			return
		}

		defer version.Notify()
		handleErr(versionTemplate.Execute(cmd.OutOrStdout(), newBuildReport()))
	},
}
