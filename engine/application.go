package engine

import (
	"github.com/spaghettifunk/hybrid/engine/config"
)

type ApplicationConfig struct {
	// The application name handed to the device.
	Name string
	// ConfigPath is the TOML file to load and watch. Empty uses the defaults
	// and disables reloading.
	ConfigPath string
	// Config overrides the file when set.
	Config *config.Config
}
