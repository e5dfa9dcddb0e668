// Package config embeds the default configuration shipped with the module.
package config

import _ "embed"

// Default is the built-in conf.yaml, used when no file is present on disk.
//
//go:embed conf.yaml
var Default []byte
