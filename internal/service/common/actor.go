//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"os"
	"os/user"
)

// Actor describes the identity running the installer.
type Actor struct {
	// Hostname is the machine name.
	Hostname string
	// Username is the effective user name.
	Username string
	// UID is the effective user id.
	UID int
}

// Privileged reports whether the actor runs as root.
func (a *Actor) Privileged() bool {
	return a.UID == 0
}

// DetectActor gathers host and user information for the run log.
func DetectActor() (*Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}

	return &Actor{
		Hostname: hostname,
		Username: currentUser.Username,
		UID:      os.Geteuid(),
	}, nil
}
