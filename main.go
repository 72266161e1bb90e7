// Package main is the entry point for the vesper application.
package main

import (
	"github.com/samber/lo"
	"github.com/vesper-player/vesper/cmd"
	"github.com/vesper-player/vesper/config"
	"github.com/vesper-player/vesper/log"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())

	cmd.Execute()
}
