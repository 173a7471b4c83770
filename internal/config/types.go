package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ConflictPolicy decides what the installer does when a destination already exists.
type ConflictPolicy string

const (
	// ConflictFail aborts the run with a filesystem error.
	ConflictFail ConflictPolicy = "fail"
	// ConflictReplace removes the existing install directory or symlink first.
	ConflictReplace ConflictPolicy = "replace"
	// ConflictSkip keeps the existing entry and moves on.
	ConflictSkip ConflictPolicy = "skip"
)

var errUnknownConflictPolicy = errors.New("unknown conflict policy")

// ParseConflictPolicy converts user input into a ConflictPolicy.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch p := ConflictPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case ConflictFail, ConflictReplace, ConflictSkip:
		return p, nil
	default:
		return "", fmt.Errorf("%q (want fail, replace or skip): %w", s, errUnknownConflictPolicy)
	}
}

// Duration is a time.Duration written as "90s" or "10m" in both YAML and TOML.
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("parse duration: %w", err)
	}

	*d = Duration(parsed)

	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
