package release

import (
	"net/url"
	"path"
	"path/filepath"
)

// ArchiveExtension is appended to the identifier to name the downloaded archive.
const ArchiveExtension = ".tar.gz"

// Release identifies a single downloadable build.
type Release struct {
	// Host serves the releases, e.g. "github.com".
	Host string
	// Project is the "<owner>/<repo>" path on the host.
	Project string
	// Channel is the release tag or channel, e.g. "stable".
	Channel string
	// Identifier is the platform-qualified build name, e.g. "nvim-linux-x86_64".
	Identifier string
}

// ArchiveName returns the archive filename, "<identifier>.tar.gz".
func (r Release) ArchiveName() string {
	return r.Identifier + ArchiveExtension
}

// DirName returns the top-level directory the archive unpacks to.
func (r Release) DirName() string {
	return r.Identifier
}

// URL returns the HTTPS download location of the archive.
func (r Release) URL() string {
	u := url.URL{
		Scheme: "https",
		Host:   r.Host,
		Path:   path.Join("/", r.Project, "releases", "download", r.Channel, r.ArchiveName()),
	}

	return u.String()
}

// Layout describes where a release is unpacked, installed and published.
type Layout struct {
	// Root is prepended to every system path. It is "/" outside of tests.
	Root string
	// WorkDir receives the archive and the transient extracted tree.
	WorkDir string
	// InstallPrefix is the directory the extracted tree is moved into, e.g. "/opt".
	InstallPrefix string
	// LinkPrefix is the parent of the link directories, e.g. "/usr/local".
	LinkPrefix string
	// LinkDirs are the subdirectories published into LinkPrefix, in order.
	LinkDirs []string
}

// ArchivePath returns where the downloaded archive is stored.
func (l Layout) ArchivePath(r Release) string {
	return filepath.Join(l.WorkDir, r.ArchiveName())
}

// ExtractedDir returns where the archive's top-level directory appears after extraction.
func (l Layout) ExtractedDir(r Release) string {
	return filepath.Join(l.WorkDir, r.DirName())
}

// InstallDir returns the final location of the release tree.
func (l Layout) InstallDir(r Release) string {
	return filepath.Join(l.rooted(l.InstallPrefix), r.DirName())
}

// InstallParent returns the rooted install prefix.
func (l Layout) InstallParent() string {
	return l.rooted(l.InstallPrefix)
}

// SourceDir returns the installed subdirectory whose entries are linked.
func (l Layout) SourceDir(r Release, sub string) string {
	return filepath.Join(l.InstallDir(r), sub)
}

// LinkDir returns the rooted directory that receives links for sub.
func (l Layout) LinkDir(sub string) string {
	return filepath.Join(l.rooted(l.LinkPrefix), sub)
}

// LinkPath returns the link location for an entry of sub, together with the path it points at.
func (l Layout) LinkPath(r Release, sub, name string) (link, target string) {
	return filepath.Join(l.LinkDir(sub), name), filepath.Join(l.SourceDir(r, sub), name)
}

func (l Layout) rooted(p string) string {
	if l.Root == "" {
		return filepath.Clean(p)
	}

	return filepath.Join(l.Root, p)
}
