package cmd

import (
	"os"
	"sort"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/vesper-player/vesper/color"
	"github.com/vesper-player/vesper/config"
	"github.com/vesper-player/vesper/style"
	"github.com/vesper-player/vesper/where"
)

// envEntry is one supported environment variable as seen by this process.
type envEntry struct {
	name  string
	value string
	set   bool
	err   error
}

// envEntries lists every supported variable sorted by name. Values that
// override a setting are checked the same way config set checks them.
func envEntries() []envEntry {
	entries := lo.MapToSlice(config.Default, func(_ string, field config.Field) envEntry {
		e := envEntry{name: field.Env()}
		e.value, e.set = os.LookupEnv(e.name)

		if e.set {
			v, err := parseValue(field, []string{e.value})
			if err == nil {
				err = config.Validate(field.Key, v)
			}
			e.err = err
		}
		return e
	})

	path, ok := os.LookupEnv(where.EnvConfigPath)
	entries = append(entries, envEntry{name: where.EnvConfigPath, value: path, set: ok})

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].name < entries[j].name
	})
	return entries
}

func init() {
	rootCmd.AddCommand(envCmd)
	envCmd.Flags().BoolP("set-only", "s", false, "Only list variables that are set")
	envCmd.Flags().BoolP("unset-only", "u", false, "Only list variables that are not set")
	envCmd.MarkFlagsMutuallyExclusive("set-only", "unset-only")
}

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "List environment variables that override settings",
	Run: func(cmd *cobra.Command, args []string) {
		setOnly := lo.Must(cmd.Flags().GetBool("set-only"))
		unsetOnly := lo.Must(cmd.Flags().GetBool("unset-only"))

		for _, e := range envEntries() {
			if (setOnly && !e.set) || (unsetOnly && e.set) {
				continue
			}

			cmd.Print(style.New().Bold(true).Foreground(color.Purple).Render(e.name), "=")

			switch {
			case !e.set:
				cmd.Println(style.Faint("unset"))
			case e.err != nil:
				cmd.Println(style.Fg(color.Red)(e.value), style.Faint("("+e.err.Error()+")"))
			default:
				cmd.Println(style.Fg(color.Green)(e.value))
			}
		}
	},
}
