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

package runner

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/walteh/splice/pkg/config"
	"github.com/walteh/splice/pkg/log"
	"github.com/walteh/splice/pkg/output"
	"github.com/walteh/splice/pkg/rewrite"
	"github.com/walteh/splice/pkg/source"
	"github.com/walteh/splice/pkg/text"
)

// ErrNoTargets means the patterns resolved to no files.
var ErrNoTargets = errors.Base("no target files")

// 🔧 Options configures a recipe run
type Options struct {
	Recipe     *config.Recipe
	Transforms []string // transform names; empty selects all in recipe order

	// Targets are paths or doublestar globs relative to the working
	// directory. When empty the recipe's files are used, relative to the
	// recipe.
	Targets []string

	Writer      *output.Writer
	Concurrency int // defaults to GOMAXPROCS
}

// 📄 FileResult is what happened to one target file
type FileResult struct {
	Path     string
	Original []byte
	Result   *text.Result // may be set alongside a missing anchor error
	Info     output.FileInfo
	Err      error
}

func (f FileResult) Changed() bool {
	return f.Err == nil && f.Result != nil && f.Result.Changed
}

// 📊 Report summarises a run
type Report struct {
	Files   []FileResult // target order
	Written int
}

func (r *Report) Changed() []FileResult {
	var out []FileResult
	for _, f := range r.Files {
		if f.Changed() {
			out = append(out, f)
		}
	}
	return out
}

func (r *Report) Failed() []FileResult {
	var out []FileResult
	for _, f := range r.Files {
		if f.Err != nil {
			out = append(out, f)
		}
	}
	return out
}

// 🏃 Run transforms every target and, only if all of them succeed, hands
// the results to the writer.
func Run(ctx context.Context, opts Options) (*Report, error) {
	logger := log.FromContext(ctx)

	if opts.Recipe == nil {
		return nil, errors.Errorf("recipe is required")
	}
	if opts.Writer == nil {
		return nil, errors.Errorf("writer is required")
	}

	compiled, err := opts.Recipe.Compile(opts.Transforms)
	if err != nil {
		return nil, errors.Errorf("compiling recipe: %w", err)
	}

	patterns, base := opts.Targets, "."
	if len(patterns) == 0 {
		patterns, base = opts.Recipe.Files, opts.Recipe.Dir()
	}
	paths, err := ExpandTargets(patterns, base)
	if err != nil {
		return nil, err
	}

	logger.StartRun(ctx, log.RunOperation{
		Recipe: opts.Recipe.Location(),
		Files:  len(paths),
		DryRun: !opts.Writer.Mode().Writes(),
	})
	defer logger.EndRun(ctx)

	results, err := Transform(ctx, compiled, paths, opts.Concurrency)
	if err != nil {
		return nil, err
	}
	report := &Report{Files: results}

	if failed := report.Failed(); len(failed) > 0 {
		for _, f := range failed {
			logFile(ctx, logger, f, "failed")
		}
		return report, errors.Errorf("%d of %d files failed, nothing written: %w", len(failed), len(results), failed[0].Err)
	}

	for i := range report.Files {
		f := &report.Files[i]
		info, err := opts.Writer.Write(ctx, f.Path, f.Original, []byte(f.Result.Buffer.Text()))
		if err != nil {
			f.Err = errors.Errorf("writing %s: %w", f.Path, err)
			logFile(ctx, logger, *f, "failed")
			return report, rollback(ctx, logger, opts.Writer, report, f.Err)
		}
		f.Info = info
		if info.Written {
			report.Written++
		}
		logFile(ctx, logger, *f, info.Status.String())
	}

	return report, nil
}

// rollback undoes the writes that happened before cause and names the
// files it restored or failed to restore in the returned error.
func rollback(ctx context.Context, logger *log.Logger, w *output.Writer, report *Report, cause error) error {
	restored, err := w.Rollback(ctx)
	for i := range report.Files {
		if report.Files[i].Info.Written && slices.Contains(restored, report.Files[i].Info.Target) {
			report.Files[i].Info.Written = false
			report.Written--
		}
	}

	if len(restored) > 0 {
		logger.Warningf("restored %d already written file(s): %s", len(restored), strings.Join(restored, ", "))
	}
	if err != nil {
		return errors.Join(cause, errors.Errorf("rolling back, still written: %s: %w", strings.Join(written(report), ", "), err))
	}
	if len(restored) > 0 {
		return errors.Errorf("%w (restored %s)", cause, strings.Join(restored, ", "))
	}
	return cause
}

func written(report *Report) []string {
	var out []string
	for _, f := range report.Files {
		if f.Info.Written {
			out = append(out, f.Info.Target)
		}
	}
	return out
}

// Transform rewrites each path concurrently. Per-file failures are reported
// on the FileResult; the returned error is only set when ctx is done.
func Transform(ctx context.Context, compiled *config.Compiled, paths []string, concurrency int) ([]FileResult, error) {
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}

	results := make([]FileResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = transformFile(gctx, compiled, path)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, errors.Errorf("transforming files: %w", err)
	}
	return results, nil
}

func transformFile(ctx context.Context, compiled *config.Compiled, path string) FileResult {
	zlog := zerolog.Ctx(ctx)
	fr := FileResult{Path: path}

	content, err := os.ReadFile(path)
	if err != nil {
		fr.Err = errors.Errorf("reading %s: %w", path, err)
		return fr
	}
	fr.Original = content

	reqs, err := compiled.For(path, string(content))
	if err != nil {
		fr.Err = errors.Errorf("selecting transforms for %s: %w", path, err)
		return fr
	}

	fr.Result, fr.Err = rewrite.Transform(source.New(path, string(content)), reqs)

	zlog.Debug().
		Str("path", path).
		Int("requests", len(reqs)).
		Bool("changed", fr.Changed()).
		Err(fr.Err).
		Msg("transformed")
	return fr
}

func logFile(ctx context.Context, logger *log.Logger, f FileResult, status string) {
	op := log.FileOperation{
		Path:      f.Path,
		Status:    status,
		IsChanged: f.Changed(),
		IsFailed:  f.Err != nil,
		Err:       f.Err,
	}
	if f.Result != nil {
		op.Applied = f.Result.Applied
		op.Skipped = len(f.Result.Outcomes) - f.Result.Applied
	}
	logger.LogFileOperation(ctx, op)

	if f.Result == nil {
		return
	}
	for _, o := range f.Result.Outcomes {
		logger.LogEditOperation(ctx, f.Path, log.EditOperation{
			Label:  o.Label,
			Anchor: o.Anchor,
			Mode:   o.Mode.String(),
			Status: o.Status.String(),
		})
	}
}

// ExpandTargets resolves paths and doublestar globs against baseDir. Plain
// paths must exist; globs may match nothing. Results keep pattern order,
// are sorted within a glob and contain no duplicates or directories.
func ExpandTargets(patterns []string, baseDir string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		pat := filepath.FromSlash(pattern)
		if !filepath.IsAbs(pat) {
			pat = filepath.Join(baseDir, pat)
		}

		if !strings.ContainsAny(pattern, "*?[{") {
			st, err := os.Stat(pat)
			if err != nil {
				return nil, errors.Errorf("target %s: %w", pattern, err)
			}
			if st.IsDir() {
				return nil, errors.Errorf("target %s is a directory", pattern)
			}
			add(pat)
			continue
		}

		matches, err := doublestar.FilepathGlob(pat)
		if err != nil {
			return nil, errors.Errorf("expanding %s: %w", pattern, err)
		}
		slices.Sort(matches)
		for _, m := range matches {
			if st, err := os.Stat(m); err == nil && !st.IsDir() {
				add(m)
			}
		}
	}

	if len(out) == 0 {
		return nil, errors.WithStack(ErrNoTargets)
	}
	return out, nil
}
