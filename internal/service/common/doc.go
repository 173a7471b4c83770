// Package common holds helpers shared by the installer steps.
//
// It provides an HTTP download client configured through functional options
// and a helper to detect the identity (hostname, user, uid) running the
// installer so the log shows who performed a privileged install.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
