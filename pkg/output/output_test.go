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
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWriter_Validation(t *testing.T) {
	tests := []struct {
		name      string
		opts      Options
		wantError string
	}{
		{name: "overwrite", opts: Options{Mode: ModeOverwrite}},
		{name: "dry_run", opts: Options{Mode: ModeDryRun}},
		{name: "out_dir", opts: Options{Mode: ModeOutDir, OutDir: "out"}},
		{name: "diff", opts: Options{Mode: ModeDiff, Diff: &bytes.Buffer{}}},
		{name: "out_dir_missing_dir", opts: Options{Mode: ModeOutDir}, wantError: "output directory"},
		{name: "diff_missing_writer", opts: Options{Mode: ModeDiff}, wantError: "destination writer"},
		{name: "unknown_mode", opts: Options{Mode: Mode(42)}, wantError: "unknown output mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewWriter(tt.opts)
			if tt.wantError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.opts.Mode, w.Mode())
		})
	}
}

func TestWriter_Overwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.tsx")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0600))

	w, err := NewWriter(Options{Mode: ModeOverwrite})
	require.NoError(t, err)

	info, err := w.Write(context.Background(), path, []byte("old\n"), []byte("new\n"))
	require.NoError(t, err)
	assert.Equal(t, StatusModified, info.Status)
	assert.True(t, info.Written)
	assert.Equal(t, path, info.Target)
	assert.Equal(t, Checksum([]byte("new\n")), info.Checksum)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new\n", string(got))

	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), st.Mode().Perm(), "file mode should be preserved")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file should be gone")
}

func TestWriter_Rollback(t *testing.T) {
	tests := []struct {
		name    string
		mode    Mode
		outDir  bool
		wantOld bool // target should hold the previous content afterwards
	}{
		{name: "overwrite_restores_content", mode: ModeOverwrite, wantOld: true},
		{name: "out_dir_removes_new_targets", mode: ModeOutDir, outDir: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "page.tsx")
			require.NoError(t, os.WriteFile(path, []byte("old\n"), 0600))

			opts := Options{Mode: tt.mode, BaseDir: dir}
			if tt.outDir {
				opts.OutDir = t.TempDir()
			}
			w, err := NewWriter(opts)
			require.NoError(t, err)

			info, err := w.Write(context.Background(), path, []byte("old\n"), []byte("new\n"))
			require.NoError(t, err)
			require.True(t, info.Written)

			restored, err := w.Rollback(context.Background())
			require.NoError(t, err)
			assert.Equal(t, []string{info.Target}, restored)
			assert.False(t, w.Files()[0].Written)

			if tt.wantOld {
				got, err := os.ReadFile(info.Target)
				require.NoError(t, err)
				assert.Equal(t, "old\n", string(got))
				st, err := os.Stat(info.Target)
				require.NoError(t, err)
				assert.Equal(t, os.FileMode(0600), st.Mode().Perm())
			} else {
				assert.NoFileExists(t, info.Target)
			}

			restored, err = w.Rollback(context.Background())
			require.NoError(t, err)
			assert.Empty(t, restored)
		})
	}
}

func TestWriter_UnchangedIsNotWritten(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.tsx")
	require.NoError(t, os.WriteFile(path, []byte("same\n"), 0644))
	before, err := os.Stat(path)
	require.NoError(t, err)

	w, err := NewWriter(Options{Mode: ModeOverwrite})
	require.NoError(t, err)

	info, err := w.Write(context.Background(), path, []byte("same\n"), []byte("same\n"))
	require.NoError(t, err)
	assert.Equal(t, StatusUnchanged, info.Status)
	assert.False(t, info.Written)

	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
}

func TestWriter_OutDir(t *testing.T) {
	base := t.TempDir()
	out := t.TempDir()
	path := filepath.Join(base, "src", "page.tsx")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0644))

	w, err := NewWriter(Options{Mode: ModeOutDir, OutDir: out, BaseDir: base})
	require.NoError(t, err)

	info, err := w.Write(context.Background(), path, []byte("old\n"), []byte("new\n"))
	require.NoError(t, err)
	assert.Equal(t, StatusNew, info.Status)
	assert.True(t, info.Written)
	assert.Equal(t, filepath.Join(out, "src", "page.tsx"), info.Target)

	got, err := os.ReadFile(info.Target)
	require.NoError(t, err)
	assert.Equal(t, "new\n", string(got))

	src, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old\n", string(src), "source must be untouched")

	// a second run finds the mirrored file up to date
	info, err = w.Write(context.Background(), path, []byte("old\n"), []byte("new\n"))
	require.NoError(t, err)
	assert.Equal(t, StatusUnchanged, info.Status)
	assert.False(t, info.Written)
}

func TestWriter_OutDirRejectsEscapes(t *testing.T) {
	base := t.TempDir()
	w, err := NewWriter(Options{Mode: ModeOutDir, OutDir: t.TempDir(), BaseDir: base})
	require.NoError(t, err)

	_, err = w.Target(filepath.Join(base, "..", "elsewhere.tsx"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is outside")
}

func TestWriter_DiffAndDryRunWriteNothing(t *testing.T) {
	color.NoColor = true

	for _, mode := range []Mode{ModeDiff, ModeDryRun} {
		t.Run(mode.String(), func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "page.tsx")
			require.NoError(t, os.WriteFile(path, []byte("a\nb\n"), 0644))

			var buf bytes.Buffer
			w, err := NewWriter(Options{Mode: mode, Diff: &buf})
			require.NoError(t, err)

			info, err := w.Write(context.Background(), path, []byte("a\nb\n"), []byte("a\nc\n"))
			require.NoError(t, err)
			assert.Equal(t, StatusModified, info.Status)
			assert.False(t, info.Written)

			got, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, "a\nb\n", string(got))

			if mode == ModeDiff {
				assert.Contains(t, buf.String(), "-b\n+c\n")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestWriter_Files(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(Options{Mode: ModeDryRun})
	require.NoError(t, err)

	for _, name := range []string{"b.tsx", "a.tsx"} {
		_, err := w.Write(context.Background(), filepath.Join(dir, name), []byte("x"), []byte("x"))
		require.NoError(t, err)
	}

	files := w.Files()
	require.Len(t, files, 2)
	assert.Equal(t, filepath.Join(dir, "a.tsx"), files[0].Path)
	assert.Equal(t, filepath.Join(dir, "b.tsx"), files[1].Path)
}

func TestFileStatus_String(t *testing.T) {
	tests := []struct {
		status FileStatus
		want   string
	}{
		{StatusNew, "new"},
		{StatusModified, "modified"},
		{StatusUnchanged, "unchanged"},
		{StatusUnknown, "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.String())
	}
}
