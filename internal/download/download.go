// Package download fetches source datasets over HTTP and unpacks them into
// a local cache. Downloads are idempotent: if the dataset directory already
// exists the fetch is skipped, so a partially completed run can be resumed
// by running it again.
package download

import (
	"archive/zip"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// Downloader fetches datasets into a cache directory.
type Downloader struct {
	// Path is the base directory for downloaded datasets.
	Path string

	// Client is the HTTP client for fetches. Defaults to http.DefaultClient.
	Client *http.Client
}

// New returns a Downloader caching under path.
func New(path string) *Downloader {
	return &Downloader{Path: path, Client: http.DefaultClient}
}

func (d *Downloader) client() *http.Client {
	if d.Client != nil {
		return d.Client
	}
	return http.DefaultClient
}

// Download fetches a single file into the dataset directory. The saved name
// comes from the URL path unless savedName is given. Existing files are
// left alone.
func (d *Downloader) Download(rawURL, dataset, savedName string) error {
	name := savedName
	if name == "" {
		name = filenameFromURL(rawURL)
	}
	if name == "" {
		return fmt.Errorf("no filename in URL %s; pass a saved name", rawURL)
	}
	dest := filepath.Join(d.Path, dataset, name)

	if _, err := os.Stat(dest); err == nil {
		log.Info().Str("dataset", dataset).Str("path", dest).Msg("already downloaded, skipping")
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create dataset dir: %w", err)
	}
	return d.fetch(rawURL, dest)
}

// DownloadAndUnzip fetches a zip archive and extracts it into
// Path/dataset[/subfolder]. If the target directory already exists the
// whole operation is skipped.
//
// With flatten set, an archive whose content is a single top-level
// directory has that directory's contents moved up one level. An archive
// with several top-level entries cannot be flattened and is an error.
func (d *Downloader) DownloadAndUnzip(rawURL, dataset, subfolder string, flatten bool) error {
	dest := filepath.Join(d.Path, dataset)
	if subfolder != "" {
		dest = filepath.Join(dest, subfolder)
	}

	if _, err := os.Stat(dest); err == nil {
		log.Info().Str("dataset", dataset).Str("path", dest).Msg("already downloaded, skipping")
		return nil
	}

	tmpDir, err := os.MkdirTemp("", "reefmap-download-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	zipPath := filepath.Join(tmpDir, dataset+".zip")
	if err := d.fetch(rawURL, zipPath); err != nil {
		return err
	}

	// Extract next to the destination and rename into place so an
	// interrupted extraction never leaves a half-filled dataset dir.
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create dataset dir: %w", err)
	}
	stage := dest + ".tmp"
	if err := os.RemoveAll(stage); err != nil {
		return fmt.Errorf("clear stale extraction dir: %w", err)
	}
	if err := extractZip(zipPath, stage); err != nil {
		return fmt.Errorf("extract %s: %w", dataset, err)
	}

	if flatten {
		if err := flattenDir(stage, rawURL); err != nil {
			return err
		}
	}

	if err := os.Rename(stage, dest); err != nil {
		return fmt.Errorf("move dataset into place: %w", err)
	}
	log.Info().Str("dataset", dataset).Str("path", dest).Msg("dataset ready")
	return nil
}

// fetch downloads a URL to a destination path via a .tmp sibling.
func (d *Downloader) fetch(rawURL, dest string) error {
	log.Info().Str("url", rawURL).Msg("downloading")

	resp, err := d.client().Get(rawURL)
	if err != nil {
		return fmt.Errorf("download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: HTTP %d", rawURL, resp.StatusCode)
	}

	tmp := dest + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	_, err = io.Copy(out, resp.Body)
	out.Close()
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("save %s: %w", dest, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return fmt.Errorf("finalize download: %w", err)
	}
	return nil
}

// extractZip unpacks an archive into destDir. Entries whose path would
// resolve outside destDir abort the extraction.
func extractZip(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer r.Close()

	root := filepath.Clean(destDir)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return err
	}

	for _, f := range r.File {
		target := filepath.Join(root, f.Name)
		if rel, err := filepath.Rel(root, target); err != nil ||
			rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry %q escapes extraction dir", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := writeZipEntry(f, target); err != nil {
			return fmt.Errorf("extract entry %s: %w", f.Name, err)
		}
	}
	return nil
}

func writeZipEntry(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	in, err := f.Open()
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// flattenDir moves the contents of a lone top-level directory up one level.
func flattenDir(dir, sourceURL string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		return fmt.Errorf("cannot flatten %s: expected a single top-level directory, found %v (from %s)",
			dir, names, sourceURL)
	}

	inner := filepath.Join(dir, entries[0].Name())
	children, err := os.ReadDir(inner)
	if err != nil {
		return err
	}
	for _, c := range children {
		if err := os.Rename(filepath.Join(inner, c.Name()), filepath.Join(dir, c.Name())); err != nil {
			return fmt.Errorf("flatten %s: %w", dir, err)
		}
	}
	return os.Remove(inner)
}

// filenameFromURL returns the last path segment of a URL, ignoring query
// parameters.
func filenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	segs := strings.Split(u.Path, "/")
	return segs[len(segs)-1]
}
