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

package log

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// 🎨 Display configuration
const (
	fileIndent  = 4  // spaces to indent file entries
	opIndent    = 8  // spaces to indent edit entries
	nameWidth   = 35 // Base width for filename
	modeWidth   = 15 // Width for edit mode
	statusWidth = 24 // Width for status text
)

// 🎯 FileOperation represents the rewrite of one file for logging
type FileOperation struct {
	Path      string // File path
	Status    string // unchanged / modified / new / failed
	Applied   int    // Number of edits applied
	Skipped   int    // Number of edits skipped
	IsChanged bool   // Whether the file content changed
	IsFailed  bool   // Whether planning or writing failed
	Err       error  // Failure cause
}

// ✏️ EditOperation represents one planned edit for logging
type EditOperation struct {
	Label  string // Request name
	Anchor string // Anchor description
	Mode   string // Requested mode
	Status string // Outcome
}

// 📦 RunOperation represents one recipe run for logging
type RunOperation struct {
	Recipe string // Recipe path
	Files  int    // Number of target files
	DryRun bool   // Whether writes are suppressed
}

// 🎯 Logger handles structured logging with console output
type Logger struct {
	zlog    zerolog.Logger
	console io.Writer
	mu      sync.Mutex
	current *RunOperation
	files   []FileOperation
}

// 🏭 New creates a new logger writing user output to console and records to zlog
func New(console io.Writer, zlog zerolog.Logger) *Logger {
	return &Logger{
		zlog:    zlog,
		console: console,
	}
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the logger from context
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	if !ok {
		panic("logger not found in context")
	}
	return logger
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// 📝 formatFileOperation formats a file operation for display
func (l *Logger) formatFileOperation(op FileOperation) string {
	var symbol rune
	var symbolColor color.Attribute
	switch {
	case op.IsFailed:
		symbol = '✗'
		symbolColor = color.FgRed
	case op.IsChanged:
		symbol = '⟳'
		symbolColor = color.FgBlue
	default:
		symbol = '•'
		symbolColor = color.FgCyan
	}

	counts := fmt.Sprintf("%d applied, %d skipped", op.Applied, op.Skipped)

	return fmt.Sprintf("%s%s %s %s %s",
		fmt.Sprintf("%*s", fileIndent, ""),
		color.New(symbolColor).Sprint(string(symbol)),
		fmt.Sprintf("%-*s", nameWidth, op.Path),
		color.New(color.Faint).Sprint(fmt.Sprintf("%-*s", statusWidth, counts)),
		op.Status)
}

// 📝 formatEditOperation formats a single edit for display
func (l *Logger) formatEditOperation(op EditOperation) string {
	var statusColor color.Attribute
	switch op.Status {
	case "applied":
		statusColor = color.FgGreen
	case "skipped-already-present":
		statusColor = color.FgCyan
	default:
		statusColor = color.FgYellow
	}

	return fmt.Sprintf("%s%s %s %s",
		fmt.Sprintf("%*s", opIndent, ""),
		fmt.Sprintf("%-*s", nameWidth-opIndent+fileIndent+2, op.Label),
		fmt.Sprintf("%-*s", modeWidth, op.Mode),
		color.New(statusColor).Sprint(op.Status))
}

// 📝 LogFileOperation logs the rewrite of one file
func (l *Logger) LogFileOperation(ctx context.Context, op FileOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.files = append(l.files, op)

	fmt.Fprintln(l.console, l.formatFileOperation(op))

	var ev *zerolog.Event
	if op.IsFailed {
		ev = l.zlog.Error().Err(op.Err)
	} else {
		ev = l.zlog.Info()
	}
	ev.Str("file", op.Path).
		Str("status", op.Status).
		Int("applied", op.Applied).
		Int("skipped", op.Skipped).
		Bool("is_changed", op.IsChanged).
		Msg("file rewrite")
}

// 📝 LogEditOperation logs the outcome of one edit, below its file
func (l *Logger) LogEditOperation(ctx context.Context, file string, op EditOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintln(l.console, l.formatEditOperation(op))

	l.zlog.Debug().
		Str("file", file).
		Str("request", op.Label).
		Str("anchor", op.Anchor).
		Str("mode", op.Mode).
		Str("status", op.Status).
		Msg("edit")
}

// 📝 StartRun starts a new recipe run
func (l *Logger) StartRun(ctx context.Context, op RunOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.current = &op
	l.files = nil

	suffix := ""
	if op.DryRun {
		suffix = " " + color.New(color.Faint).Sprint("(dry run)")
	}
	fmt.Fprintf(l.console, "%s %s %s %s%s\n",
		color.New(color.FgMagenta).Sprint("◆"),
		color.New(color.Bold).Sprint(op.Recipe),
		color.New(color.Faint).Sprint("•"),
		color.New(color.FgYellow).Sprintf("%d files", op.Files),
		suffix)

	l.zlog.Info().
		Str("recipe", op.Recipe).
		Int("files", op.Files).
		Bool("dry_run", op.DryRun).
		Msg("starting run")
}

// 📝 EndRun ends the current run and returns the file operations logged during it
func (l *Logger) EndRun(ctx context.Context) []FileOperation {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current == nil {
		return nil
	}

	files := l.files
	changed := 0
	for _, f := range files {
		if f.IsChanged {
			changed++
		}
	}
	l.zlog.Info().
		Str("recipe", l.current.Recipe).
		Int("files", len(files)).
		Int("changed", changed).
		Msg("run complete")

	l.current = nil
	l.files = nil
	return files
}

// 📝 LogNewline logs a newline
func (l *Logger) LogNewline() {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.console)
}

// 📝 Header logs a header
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	name := color.New(color.Bold, color.FgCyan).Sprint("splice")
	fmt.Fprintf(l.console, "\n%s %s\n\n", name, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Success logs a success message
func (l *Logger) Success(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Info logs an info message
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// 📝 Warningf logs a formatted warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.Warning(fmt.Sprintf(format, args...))
}

// 📝 Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

// 📝 Successf logs a formatted success message
func (l *Logger) Successf(format string, args ...interface{}) {
	l.Success(fmt.Sprintf(format, args...))
}
