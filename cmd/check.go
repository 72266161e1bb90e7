package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/viper"
	"github.com/vesper-player/vesper/constant"
	"github.com/vesper-player/vesper/icon"
	"github.com/vesper-player/vesper/key"
	"github.com/vesper-player/vesper/player"
	"github.com/vesper-player/vesper/style"
)

// CheckDependencies verifies that the configured engine executable can be found.
// The attach backend talks to an engine someone else started, so it needs nothing.
func CheckDependencies() {
	if player.Backend(viper.GetString(key.EngineBackend)) == player.BackendAttach {
		return
	}

	binary := viper.GetString(key.EngineBinary)
	if binary == "" {
		binary = constant.EngineBinary
	}

	if _, err := exec.LookPath(binary); err != nil {
		printMissingDependencyError(binary)
		os.Exit(1)
	}
}

func printMissingDependencyError(dep string) {
	var installCmd string
	if dep == constant.EngineBinary {
		installCmd = constant.EngineInstallHints[runtime.GOOS]
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(style.ErrorColor).
		Padding(1, 2).
		Margin(1, 0)

	title := style.New().Bold(true).Foreground(style.ErrorColor).Render(fmt.Sprintf("%s Error: Missing Dependency", icon.Get(icon.Fail)))
	body := style.New().Foreground(style.Text).Render(fmt.Sprintf("The engine '%s' was not found in your PATH.", dep))

	suggestion := ""
	if installCmd != "" {
		suggestion = fmt.Sprintf("\n\nTo install it, try running:\n  %s", style.New().Foreground(style.AccentColor).Bold(true).Render(installCmd))
	} else {
		suggestion = fmt.Sprintf("\n\nPoint %s at the executable to use.", style.New().Foreground(style.AccentColor).Bold(true).Render(key.EngineBinary))
	}

	fmt.Println(box.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			title,
			"\n",
			body,
			suggestion,
		),
	))
}
