package mock

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Manifest formats a MANIFEST file body with the passed version and purpose. Empty
// values are omitted so tests can build manifests missing a required key.
func Manifest(version, purpose string) string {
	m := ""
	if version != "" {
		m += fmt.Sprintf("version=%s\n", version)
	}
	if purpose != "" {
		m += fmt.Sprintf("purpose=%s\n", purpose)
	}
	return m
}

// MakeTarball creates an archive named 'name' in directory 'dir' holding the
// passed files (name -> content) and returns the full path of the archive. If
// the name ends in .tgz or .tar.gz the archive is gzipped.
func MakeTarball(dir string, name string, files map[string]string) (string, error) {
	archive := filepath.Join(dir, name)
	f, err := os.Create(archive)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var w io.Writer = f
	if strings.HasSuffix(name, ".tgz") || strings.HasSuffix(name, ".tar.gz") {
		gzw := gzip.NewWriter(f)
		defer gzw.Close()
		w = gzw
	}
	tw := tar.NewWriter(w)
	defer tw.Close()

	// deterministic member order
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		content := files[name]
		hdr := &tar.Header{
			Name:     name,
			Mode:     0644,
			Size:     int64(len(content)),
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return "", err
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			return "", err
		}
	}
	return archive, nil
}

// ImageFiles returns a typical image archive payload: a MANIFEST plus a couple of
// image files.
func ImageFiles(version, purpose string) map[string]string {
	return map[string]string{
		"MANIFEST":       Manifest(version, purpose),
		"MANIFEST.sig":   "sig",
		"image-kernel":   "kernel " + version,
		"image-rofs":     "rofs " + version,
		"image-rofs.sig": "sig",
		"image-rwfs":     "rwfs",
		"image-u-boot":   "u-boot",
		"publickey":      "key",
	}
}
