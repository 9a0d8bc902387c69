package leadform

import _ "embed"

// Version is the release of the leadform binaries and adapters.
//
//go:embed VERSION
var Version string
