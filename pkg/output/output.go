// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package output

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 📊 FileStatus compares a transformed file with what is already on disk
type FileStatus int

const (
	StatusUnknown   FileStatus = iota
	StatusNew                  // target doesn't exist yet
	StatusModified             // target exists and content differs
	StatusUnchanged            // target exists and content matches
)

func (s FileStatus) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusModified:
		return "modified"
	case StatusUnchanged:
		return "unchanged"
	default:
		return "unknown"
	}
}

// Mode selects what the Writer does with a transformed file.
type Mode int

const (
	ModeOverwrite Mode = iota // replace the source file in place
	ModeOutDir                // mirror the file under Options.OutDir
	ModeDiff                  // print a diff, write nothing
	ModeDryRun                // report only
)

func (m Mode) String() string {
	switch m {
	case ModeOverwrite:
		return "overwrite"
	case ModeOutDir:
		return "out-dir"
	case ModeDiff:
		return "diff"
	case ModeDryRun:
		return "dry-run"
	default:
		return "unknown"
	}
}

// Writes reports whether the mode touches the file system.
func (m Mode) Writes() bool {
	return m == ModeOverwrite || m == ModeOutDir
}

// 📄 FileInfo describes one file handed to the Writer
type FileInfo struct {
	Path     string      // source path
	Target   string      // where the content goes
	Status   FileStatus  // compared with the target
	Size     int64       // size of the new content
	Mode     os.FileMode // permissions carried over from the source
	Checksum string      // sha256 of the new content
	Written  bool        // whether the target was written
}

type Options struct {
	Mode    Mode
	OutDir  string    // required for ModeOutDir
	BaseDir string    // mirror paths are relative to this; defaults to "."
	Diff    io.Writer // required for ModeDiff
	Context int       // diff context lines; defaults to 3
}

// 💾 Writer persists transformed files according to its Mode
type Writer struct {
	opts Options

	mu      sync.Mutex
	files   map[string]FileInfo
	backups []backup // written targets, oldest first
}

// backup is what a target held before the writer replaced it.
type backup struct {
	path    string
	target  string
	existed bool
	content []byte
	perm    os.FileMode
}

// 🏭 NewWriter checks the options for the chosen mode
func NewWriter(opts Options) (*Writer, error) {
	switch opts.Mode {
	case ModeOverwrite, ModeDryRun:
	case ModeOutDir:
		if opts.OutDir == "" {
			return nil, errors.Errorf("out-dir mode needs an output directory")
		}
	case ModeDiff:
		if opts.Diff == nil {
			return nil, errors.Errorf("diff mode needs a destination writer")
		}
	default:
		return nil, errors.Errorf("unknown output mode %d", opts.Mode)
	}
	if opts.BaseDir == "" {
		opts.BaseDir = "."
	}
	if opts.Context <= 0 {
		opts.Context = 3
	}
	return &Writer{opts: opts, files: make(map[string]FileInfo)}, nil
}

func (w *Writer) Mode() Mode { return w.opts.Mode }

// Target returns where content for path ends up. Out-dir targets mirror the
// path relative to BaseDir and may not escape it.
func (w *Writer) Target(path string) (string, error) {
	if w.opts.Mode != ModeOutDir {
		return path, nil
	}

	absBase, err := filepath.Abs(w.opts.BaseDir)
	if err != nil {
		return "", errors.Errorf("resolving base dir: %w", err)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Errorf("resolving %s: %w", path, err)
	}
	rel, err := filepath.Rel(absBase, absPath)
	if err != nil {
		return "", errors.Errorf("relating %s to %s: %w", path, w.opts.BaseDir, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Errorf("%s is outside %s", path, w.opts.BaseDir)
	}
	return filepath.Join(w.opts.OutDir, rel), nil
}

// Write compares updated with the target and persists it if the mode allows.
// original is the source content updated was derived from.
func (w *Writer) Write(ctx context.Context, path string, original, updated []byte) (FileInfo, error) {
	logger := zerolog.Ctx(ctx)

	target, err := w.Target(path)
	if err != nil {
		return FileInfo{}, err
	}

	info := FileInfo{
		Path:     path,
		Target:   target,
		Size:     int64(len(updated)),
		Mode:     0644,
		Checksum: Checksum(updated),
	}
	if st, err := os.Stat(path); err == nil {
		info.Mode = st.Mode().Perm()
	}

	existing := original
	exists := true
	if target != path {
		existing, err = os.ReadFile(target)
		if os.IsNotExist(err) {
			exists = false
		} else if err != nil {
			return FileInfo{}, errors.Errorf("reading %s: %w", target, err)
		}
	}

	switch {
	case !exists:
		info.Status = StatusNew
	case Checksum(existing) == info.Checksum:
		info.Status = StatusUnchanged
	default:
		info.Status = StatusModified
	}

	switch w.opts.Mode {
	case ModeDiff:
		if info.Status != StatusUnchanged {
			if _, err := io.WriteString(w.opts.Diff, Diff(path, string(original), string(updated), w.opts.Context)); err != nil {
				return FileInfo{}, errors.Errorf("writing diff: %w", err)
			}
		}
	case ModeOverwrite, ModeOutDir:
		if info.Status != StatusUnchanged {
			b := backup{path: path, target: target, existed: exists, content: existing, perm: info.Mode}
			if st, err := os.Stat(target); err == nil {
				b.perm = st.Mode().Perm()
			}
			if err := WriteFileAtomic(target, updated, info.Mode); err != nil {
				return FileInfo{}, err
			}
			info.Written = true

			w.mu.Lock()
			w.backups = append(w.backups, b)
			w.mu.Unlock()
		}
	}

	logger.Debug().
		Str("path", path).
		Str("target", target).
		Str("status", info.Status.String()).
		Bool("written", info.Written).
		Msg("output")

	w.mu.Lock()
	w.files[path] = info
	w.mu.Unlock()

	return info, nil
}

// Files lists everything handed to Write, sorted by path.
func (w *Writer) Files() []FileInfo {
	w.mu.Lock()
	defer w.mu.Unlock()

	files := make([]FileInfo, 0, len(w.files))
	for _, info := range w.files {
		files = append(files, info)
	}
	slices.SortFunc(files, func(a, b FileInfo) int { return strings.Compare(a.Path, b.Path) })
	return files
}

// ⏪ Rollback puts back every target this writer has written, newest first:
// replaced targets get their previous content, new targets are removed. It
// returns the targets it restored and joins the failures of the rest.
func (w *Writer) Rollback(ctx context.Context) ([]string, error) {
	logger := zerolog.Ctx(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()

	var restored []string
	var errs []error
	for i := len(w.backups) - 1; i >= 0; i-- {
		b := w.backups[i]
		var err error
		if b.existed {
			err = WriteFileAtomic(b.target, b.content, b.perm)
		} else if err = os.Remove(b.target); os.IsNotExist(err) {
			err = nil
		}
		if err != nil {
			errs = append(errs, errors.Errorf("restoring %s: %w", b.target, err))
			continue
		}

		restored = append(restored, b.target)
		if info, ok := w.files[b.path]; ok {
			info.Written = false
			w.files[b.path] = info
		}
		logger.Debug().Str("target", b.target).Bool("removed", !b.existed).Msg("rolled back")
	}
	w.backups = nil

	return restored, errors.Join(errs...)
}

// 🔍 Checksum returns the hex sha256 of content
func Checksum(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

// WriteFileAtomic writes content next to path and renames it into place.
func WriteFileAtomic(path string, content []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Errorf("creating parent directories: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Errorf("setting file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.Errorf("renaming temp file: %w", err)
	}
	return nil
}
