package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// Discover returns the first settings file found under the XDG config
// directories, preferring YAML over TOML. It returns an empty string when
// neither exists, in which case Default applies.
func Discover() string {
	for _, name := range []string{DefaultConfigFilename, DefaultTOMLConfigFilename} {
		if path, err := xdg.SearchConfigFile(filepath.Join(AppDirName, name)); err == nil {
			return path
		}
	}

	return ""
}

// DefaultPath returns where genconfig writes the settings file when no path is given.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppDirName, DefaultConfigFilename)
}
