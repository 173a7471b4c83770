// Package config defines the installer settings and provides helpers to
// discover, load, validate and save them in YAML or TOML format.
//
// Defaults reproduce the fixed locations: the stable nvim-linux-x86_64 build
// from github.com/neovim/neovim, installed under /opt and linked into
// /usr/local/{bin,lib,share}. The Root field exists so tests can point every
// system path at a sandbox directory.
package config
