// Package testutil builds release archives and serves them for tests.
package testutil

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Entry is a single tar header plus body.
type Entry struct {
	// Name is the path inside the archive.
	Name string
	// Body is the content of regular files.
	Body string
	// Mode is the permission bits; zero picks 0o755 for dirs and 0o644 otherwise.
	Mode int64
	// Type is the tar type flag; zero means a regular file.
	Type byte
	// Linkname is the target of symlinks and hard links.
	Linkname string
}

// ModTime is stamped on every entry built by Archive.
//
//nolint:gochecknoglobals // Constant timestamp shared by tests.
var ModTime = time.Date(2025, time.March, 26, 12, 0, 0, 0, time.UTC)

// Archive returns a gzip-compressed tar stream of entries, in order.
// t is the active test; entries are written as given.
func Archive(t *testing.T, entries ...Entry) []byte {
	t.Helper()

	var buf bytes.Buffer

	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for _, e := range entries {
		header := &tar.Header{
			Name:     e.Name,
			Mode:     e.Mode,
			Typeflag: e.Type,
			Linkname: e.Linkname,
			ModTime:  ModTime,
		}

		if header.Typeflag == 0 {
			header.Typeflag = tar.TypeReg
		}

		if header.Mode == 0 {
			header.Mode = 0o644
			if header.Typeflag == tar.TypeDir {
				header.Mode = 0o755
			}
		}

		if header.Typeflag == tar.TypeReg {
			header.Size = int64(len(e.Body))
		}

		require.NoError(t, tw.WriteHeader(header))

		if header.Size > 0 {
			_, err := tw.Write([]byte(e.Body))
			require.NoError(t, err)
		}
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	return buf.Bytes()
}

// Release returns the entries of a minimal editor release rooted at id:
// bin/editor, lib/libfoo.so and share/doc.txt.
// id is the release identifier used as top-level directory.
func Release(id string) []Entry {
	return []Entry{
		{Name: id + "/", Type: tar.TypeDir},
		{Name: id + "/bin/", Type: tar.TypeDir},
		{Name: id + "/bin/editor", Body: "#!/bin/sh\necho editor\n", Mode: 0o755},
		{Name: id + "/lib/", Type: tar.TypeDir},
		{Name: id + "/lib/libfoo.so", Body: "\x7fELF", Mode: 0o644},
		{Name: id + "/share/", Type: tar.TypeDir},
		{Name: id + "/share/doc.txt", Body: "documentation\n"},
	}
}

// Server serves body at the release download path for project, channel and
// id over TLS. It returns the server and its host:port.
// t is the active test; the server is closed on cleanup.
func Server(t *testing.T, project, channel, id string, body []byte) (*httptest.Server, string) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc(
		path.Join("/", project, "releases", "download", channel, id+".tar.gz"),
		func(w http.ResponseWriter, r *http.Request) {
			// Mimic the release host by redirecting to the asset storage.
			http.Redirect(w, r, "/assets/"+id, http.StatusFound)
		},
	)
	mux.HandleFunc("/assets/"+id, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(body)
	})

	ts := httptest.NewTLSServer(mux)
	t.Cleanup(ts.Close)

	u, err := url.Parse(ts.URL)
	require.NoError(t, err)

	return ts, u.Host
}
