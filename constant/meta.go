// Package constant defines immutable application-level identifiers and build metadata.
package constant

import _ "embed"

const (
	// App is the canonical application identifier used for filesystem paths and CLI branding.
	App = "vesper"

	// Version is the current application semantic version string.
	Version = "0.3.0"

	// UserAgent is sent with every request to the media library and tile endpoints.
	UserAgent = App + "/" + Version

	// Repository is the GitHub owner/name pair releases are published under.
	Repository = "vesper-player/vesper"
)

// Build metadata, overridden with -ldflags at release time.
var (
	BuiltAt  = ""
	Revision = ""
)

// Logo is the banner shown above the root command help.
//
//go:embed ascii.txt
var Logo string
