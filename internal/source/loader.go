package source

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// SourceFile is one discovered configuration file with its normalized text.
type SourceFile struct {
	Path string
	Text string
}

// Skipped records a file the loader could not read. The scanner turns each
// entry into a low-severity synthetic finding rather than aborting.
type Skipped struct {
	Path   string
	Reason string
}

// InputError is fatal: the scan cannot start at all (missing root, corrupt
// archive). Everything recoverable is reported through Skipped instead.
type InputError struct {
	Op  string
	Err error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// IsCandidate reports whether a path looks like a Terraform configuration
// file the scanner should read.
func IsCandidate(path string) bool {
	return strings.HasSuffix(path, ".tf") || strings.HasSuffix(path, ".tf.json")
}

// LoadDir walks root and returns all candidate files in lexicographic path
// order. Re-walking the same tree is safe and yields the same sequence.
// A single unreadable file is logged and recorded as skipped; only a missing
// or unwalkable root is fatal.
func LoadDir(root string, log logrus.FieldLogger) ([]SourceFile, []Skipped, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, &InputError{Op: "stat scan root", Err: err}
	}
	if !info.IsDir() {
		return nil, nil, &InputError{Op: "stat scan root", Err: fmt.Errorf("%s is not a directory", root)}
	}

	var files []SourceFile
	var skipped []Skipped

	// WalkDir visits entries in lexical order, which gives the deterministic
	// file ordering the report contract requires.
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			log.WithField("path", path).WithError(walkErr).Warn("skipping unreadable entry")
			skipped = append(skipped, Skipped{Path: path, Reason: walkErr.Error()})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			// Terraform's own cache directory never holds user configuration.
			if d.Name() == ".terraform" {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsCandidate(path) {
			return nil
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			log.WithField("path", path).WithError(readErr).Warn("skipping unreadable file")
			skipped = append(skipped, Skipped{Path: path, Reason: readErr.Error()})
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		files = append(files, SourceFile{Path: filepath.ToSlash(rel), Text: string(data)})
		return nil
	})
	if err != nil {
		return nil, nil, &InputError{Op: "walking scan root", Err: err}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, skipped, nil
}

// LoadArchive reads candidate files out of an in-memory zip archive.
// A corrupt archive or an entry escaping the archive root is fatal.
func LoadArchive(data []byte, log logrus.FieldLogger) ([]SourceFile, []Skipped, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, &InputError{Op: "opening archive", Err: err}
	}

	var files []SourceFile
	var skipped []Skipped

	for _, entry := range zr.File {
		name := filepath.ToSlash(entry.Name)
		if strings.Contains(name, "..") {
			return nil, nil, &InputError{Op: "reading archive", Err: fmt.Errorf("entry %q escapes archive root", entry.Name)}
		}
		if entry.FileInfo().IsDir() || !IsCandidate(name) {
			continue
		}

		rc, openErr := entry.Open()
		if openErr != nil {
			log.WithField("path", name).WithError(openErr).Warn("skipping unreadable archive entry")
			skipped = append(skipped, Skipped{Path: name, Reason: openErr.Error()})
			continue
		}
		text, readErr := io.ReadAll(rc)
		rc.Close()
		if readErr != nil {
			return nil, nil, &InputError{Op: "reading archive", Err: fmt.Errorf("entry %q: %w", entry.Name, readErr)}
		}
		files = append(files, SourceFile{Path: name, Text: string(text)})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, skipped, nil
}
