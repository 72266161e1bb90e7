package cmd

import (
	"fmt"
	"os"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
	"github.com/vesper-player/vesper/filesystem"
	"github.com/vesper-player/vesper/icon"
	"github.com/vesper-player/vesper/util"
	"github.com/vesper-player/vesper/where"
)

// clearTarget defines a filesystem resource eligible for cleanup.
type clearTarget struct {
	name     string
	argLong  string
	argShort mo.Option[string]
	location func() string
}

var clearTargets = []clearTarget{
	{"cache directory", "cache", mo.Some("c"), where.Cache},
	{"trickplay previews", "trickplay", mo.Some("t"), where.Trickplay},
	{"track preferences", "preferences", mo.Some("p"), where.TrackPreferences},
	{"logs", "logs", mo.Some("l"), where.Logs},
}

func init() {
	rootCmd.AddCommand(clearCmd)

	for _, target := range clearTargets {
		help := fmt.Sprintf("clear %s", target.name)
		if target.argShort.IsPresent() {
			clearCmd.Flags().BoolP(target.argLong, target.argShort.MustGet(), false, help)
		} else {
			clearCmd.Flags().Bool(target.argLong, false, help)
		}
	}
}

// clearCmd removes cached and persisted application artifacts.
var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear cached previews, stored preferences and logs",
	Run: func(cmd *cobra.Command, args []string) {
		var anyCleared bool

		doClear := func(what string) bool {
			return lo.Must(cmd.Flags().GetBool(what))
		}

		for _, target := range clearTargets {
			if !doClear(target.argLong) {
				continue
			}

			anyCleared = true
			e := util.PrintErasable(fmt.Sprintf("%s Clearing %s...", icon.Get(icon.Progress), target.name))
			removed, err := clearLocation(target.location())
			e()
			handleErr(err)
			fmt.Printf("%s %s cleared (%s)\n", icon.Get(icon.Success), util.Capitalize(target.name), util.Quantify(removed, "file", "files"))
		}

		if !anyCleared {
			handleErr(cmd.Help())
		}
	},
}

// clearLocation removes path and reports how many regular files it held.
func clearLocation(path string) (removed int, err error) {
	fs := filesystem.API()

	err = fs.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			removed++
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return 0, err
	}

	return removed, fs.RemoveAll(path)
}
