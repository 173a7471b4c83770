package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/nvim-installer/internal/domain/release"
)

// Config holds every path and name the installer touches.
// The zero value is not usable; start from Default or Load.
type Config struct {
	// Host serves the release archives.
	Host string `yaml:"host" toml:"host"`
	// Project is the "<owner>/<repo>" path of the released project.
	Project string `yaml:"project" toml:"project"`
	// Channel is the release tag to download.
	Channel string `yaml:"channel" toml:"channel"`
	// Release is the platform-qualified build identifier.
	Release string `yaml:"release" toml:"release"`
	// Root is prepended to InstallPrefix and LinkPrefix. Only tests and
	// image builds should change it.
	Root string `yaml:"root" toml:"root"`
	// WorkDir receives the archive and the transient extracted tree.
	WorkDir string `yaml:"work_dir" toml:"work_dir"`
	// InstallPrefix receives the extracted tree.
	InstallPrefix string `yaml:"install_prefix" toml:"install_prefix"`
	// LinkPrefix is the parent of the link directories.
	LinkPrefix string `yaml:"link_prefix" toml:"link_prefix"`
	// LinkDirs are the subdirectories of the release whose entries get linked.
	LinkDirs []string `yaml:"link_dirs" toml:"link_dirs"`
	// OnConflict decides what happens when a destination already exists.
	OnConflict ConflictPolicy `yaml:"on_conflict" toml:"on_conflict"`
	// Timeout bounds the whole download.
	Timeout Duration `yaml:"timeout" toml:"timeout"`
}

const (
	// DefaultConfigFilename is the settings file name looked up under the XDG config home.
	DefaultConfigFilename = "config.yaml"

	// DefaultTOMLConfigFilename is the TOML alternative of DefaultConfigFilename.
	DefaultTOMLConfigFilename = "config.toml"

	// AppDirName is the per-application directory under XDG base directories.
	AppDirName = "nvim-installer"

	// DefaultHost serves the releases.
	DefaultHost = "github.com"

	// DefaultProject is the released project.
	DefaultProject = "neovim/neovim"

	// DefaultChannel is the release tag downloaded.
	DefaultChannel = "stable"

	// DefaultRelease is the fixed build identifier.
	DefaultRelease = "nvim-linux-x86_64"

	// DefaultRoot leaves system paths untouched.
	DefaultRoot = "/"

	// DefaultWorkDir is the current working directory.
	DefaultWorkDir = "."

	// DefaultInstallPrefix receives the extracted tree.
	DefaultInstallPrefix = "/opt"

	// DefaultLinkPrefix receives the links.
	DefaultLinkPrefix = "/usr/local"

	// DefaultTimeout bounds the archive download.
	DefaultTimeout = 10 * time.Minute

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

// DefaultLinkDirs returns the release subdirectories published by default.
func DefaultLinkDirs() []string {
	return []string{"bin", "lib", "share"}
}

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errUnknownFormat is returned for configuration files that are neither YAML nor TOML.
	errUnknownFormat = errors.New("unknown configuration format")
	// errInvalidName is returned for names that must be a single path element.
	errInvalidName = errors.New("must be a single path element")
	// errRelativePath is returned for system paths that must be absolute.
	errRelativePath = errors.New("must be an absolute path")
)

// Default returns the configuration reproducing the fixed install locations.
func Default() *Config {
	return &Config{
		Host:          DefaultHost,
		Project:       DefaultProject,
		Channel:       DefaultChannel,
		Release:       DefaultRelease,
		Root:          DefaultRoot,
		WorkDir:       DefaultWorkDir,
		InstallPrefix: DefaultInstallPrefix,
		LinkPrefix:    DefaultLinkPrefix,
		LinkDirs:      DefaultLinkDirs(),
		OnConflict:    ConflictFail,
		Timeout:       Duration(DefaultTimeout),
	}
}

// Load reads configuration from path and validates it.
// Keys missing from the file keep their default values.
func Load(path string) (*Config, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("expand settings path: %w", err)
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()

	switch format(path) {
	case formatYAML:
		err = yaml.Unmarshal(contents, cfg)
	case formatTOML:
		err = toml.Unmarshal(contents, cfg)
	default:
		return nil, fmt.Errorf("%s: %w", path, errUnknownFormat)
	}

	if err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes cfg to path in the format implied by its extension.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	path, err := homedir.Expand(path)
	if err != nil {
		return fmt.Errorf("expand settings path: %w", err)
	}

	if err = Validate(cfg); err != nil {
		return err
	}

	var data []byte

	switch format(path) {
	case formatYAML:
		data, err = yaml.Marshal(cfg)
	case formatTOML:
		data, err = toml.Marshal(cfg)
	default:
		return fmt.Errorf("%s: %w", path, errUnknownFormat)
	}

	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	// Restrict permissions.
	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills empty fields with defaults, expands "~" and checks the result.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	applyDefaults(cfg)

	var err error

	for _, p := range []*string{&cfg.Root, &cfg.WorkDir} {
		if *p, err = homedir.Expand(*p); err != nil {
			return fmt.Errorf("expand path %q: %w", *p, err)
		}
	}

	if strings.Contains(cfg.Host, "/") {
		return fmt.Errorf("host %q: %w", cfg.Host, errInvalidName)
	}

	for _, name := range append([]string{cfg.Channel, cfg.Release}, cfg.LinkDirs...) {
		if !isPathElement(name) {
			return fmt.Errorf("%q: %w", name, errInvalidName)
		}
	}

	for _, p := range []string{cfg.Root, cfg.InstallPrefix, cfg.LinkPrefix} {
		if !filepath.IsAbs(p) {
			return fmt.Errorf("%q: %w", p, errRelativePath)
		}
	}

	if _, err = ParseConflictPolicy(string(cfg.OnConflict)); err != nil {
		return err
	}

	return nil
}

// ReleaseInfo returns the release described by cfg.
func (c *Config) ReleaseInfo() release.Release {
	return release.Release{
		Host:       c.Host,
		Project:    strings.Trim(c.Project, "/"),
		Channel:    c.Channel,
		Identifier: c.Release,
	}
}

// Layout returns the on-disk layout described by cfg.
// A relative WorkDir is resolved against the current working directory.
func (c *Config) Layout() (release.Layout, error) {
	workDir, err := filepath.Abs(c.WorkDir)
	if err != nil {
		return release.Layout{}, fmt.Errorf("resolve work directory: %w", err)
	}

	return release.Layout{
		Root:          c.Root,
		WorkDir:       workDir,
		InstallPrefix: c.InstallPrefix,
		LinkPrefix:    c.LinkPrefix,
		LinkDirs:      slices.Clone(c.LinkDirs),
	}, nil
}

func applyDefaults(cfg *Config) {
	def := Default()

	setIfEmpty(&cfg.Host, def.Host)
	setIfEmpty(&cfg.Project, def.Project)
	setIfEmpty(&cfg.Channel, def.Channel)
	setIfEmpty(&cfg.Release, def.Release)
	setIfEmpty(&cfg.Root, def.Root)
	setIfEmpty(&cfg.WorkDir, def.WorkDir)
	setIfEmpty(&cfg.InstallPrefix, def.InstallPrefix)
	setIfEmpty(&cfg.LinkPrefix, def.LinkPrefix)

	if len(cfg.LinkDirs) == 0 {
		cfg.LinkDirs = def.LinkDirs
	}

	if cfg.OnConflict == "" {
		cfg.OnConflict = def.OnConflict
	}

	// Set default timeout if not specified.
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
}

func setIfEmpty(field *string, value string) {
	if strings.TrimSpace(*field) == "" {
		*field = value
	}
}

func isPathElement(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

type fileFormat int

const (
	formatUnknown fileFormat = iota
	formatYAML
	formatTOML
)

func format(path string) fileFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML
	case ".toml":
		return formatTOML
	default:
		return formatUnknown
	}
}
