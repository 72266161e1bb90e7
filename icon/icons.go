// Package icon renders the status symbols shown next to CLI and playback
// messages in the variant picked by icons.variant.
package icon

import (
	"github.com/spf13/viper"
	"github.com/vesper-player/vesper/key"
)

// Icon identifies a symbol in the registry.
type Icon int

const (
	Fail Icon = iota + 1
	Success
	Progress
	Warn
	Play
	Pause
	Buffer
	Stop
)

// Variants in the column order of the registry rows.
var variants = []string{"plain", "emoji", "nerd", "kaomoji", "squares"}

// AvailableVariants lists the accepted icons.variant values.
func AvailableVariants() []string {
	return append([]string(nil), variants...)
}

var icons = map[Icon][5]string{
	Fail:     {"x", "💥", "\uf00d", "(×_×)", "🟥"},
	Success:  {"ok", "🎉", "\uf00c", "(ᵔ◡ᵔ)", "🟩"},
	Progress: {"...", "⏳", "\uf254", "(・_・;)", "🟦"},
	Warn:     {"!", "⚠️", "\uf071", "(°ロ°)", "🟨"},
	Play:     {">", "▶️", "\uf04b", "(•̀ᴗ•́)و", "🟩"},
	Pause:    {"||", "⏸️", "\uf04c", "(－_－)", "🟨"},
	Buffer:   {"~", "🌀", "\uf110", "(@_@)", "🟪"},
	Stop:     {"#", "⏹️", "\uf04d", "(-_-)zzz", "⬛"},
}

// Get renders i in the configured variant. Unknown variants render as plain.
func Get(i Icon) string {
	row, ok := icons[i]
	if !ok {
		return ""
	}

	variant := viper.GetString(key.IconsVariant)
	for col, name := range variants {
		if name == variant {
			return row[col]
		}
	}
	return row[0]
}
