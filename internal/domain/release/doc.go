// Package release models how a published editor build is named and where its
// pieces land on disk.
//
// Every name (archive, extracted directory, install directory, link paths)
// is derived from the release identifier alone, so repeated runs always
// agree on them.
package release
