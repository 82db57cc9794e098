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

// Package source holds the immutable text snapshots the rewrite engine works on.
package source

import (
	"fmt"
	"strings"
)

// 📄 Buffer is an immutable snapshot of source text and where it came from.
//
// A Buffer is never modified. Every edit produces a new Buffer, and a Match
// remembers the Buffer it was resolved against so that plans cannot be mixed
// up between snapshots.
type Buffer struct {
	origin string
	text   string
}

// 🏭 New creates a buffer for the given origin (usually a file path).
func New(origin, text string) *Buffer {
	return &Buffer{origin: origin, text: text}
}

// Origin returns the identifier the buffer was created with.
func (b *Buffer) Origin() string { return b.origin }

// Text returns the full buffer contents.
func (b *Buffer) Text() string { return b.text }

// Len returns the buffer length in bytes.
func (b *Buffer) Len() int { return len(b.text) }

// Slice returns text[start:end], clamped to the buffer bounds.
func (b *Buffer) Slice(start, end int) string {
	start = clamp(start, 0, len(b.text))
	end = clamp(end, start, len(b.text))
	return b.text[start:end]
}

// Contains reports whether s occurs anywhere in the buffer.
func (b *Buffer) Contains(s string) bool {
	return strings.Contains(b.text, s)
}

// Derive returns a new buffer with the same origin and the given text.
func (b *Buffer) Derive(text string) *Buffer {
	return &Buffer{origin: b.origin, text: text}
}

// LineCol converts a byte offset into a 1-based line and column.
func (b *Buffer) LineCol(offset int) (line, col int) {
	offset = clamp(offset, 0, len(b.text))
	before := b.text[:offset]
	line = strings.Count(before, "\n") + 1
	col = offset - (strings.LastIndexByte(before, '\n') + 1) + 1
	return line, col
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// 🎯 Match is a resolved occurrence of an anchor in one specific buffer.
// Offsets are byte offsets, End is exclusive.
type Match struct {
	Start int
	End   int
	Text  string

	buf *Buffer
}

// NewMatch binds the region [start, end) of buf into a Match.
func NewMatch(buf *Buffer, start, end int) Match {
	return Match{Start: start, End: end, Text: buf.Slice(start, end), buf: buf}
}

// Buffer returns the snapshot the match was resolved against.
func (m Match) Buffer() *Buffer { return m.buf }

// Len returns the length of the matched region.
func (m Match) Len() int { return m.End - m.Start }

// Empty reports whether the match is zero-width.
func (m Match) Empty() bool { return m.Start == m.End }

// Overlaps reports whether two matches claim any part of the same region.
// Zero-width matches overlap a region when they sit strictly inside it, and
// overlap each other when they sit at the same offset.
func (m Match) Overlaps(o Match) bool {
	switch {
	case m.Empty() && o.Empty():
		return m.Start == o.Start
	case m.Empty():
		return o.Start < m.Start && m.Start < o.End
	case o.Empty():
		return m.Start < o.Start && o.Start < m.End
	default:
		return m.Start < o.End && o.Start < m.End
	}
}

func (m Match) String() string {
	if m.buf == nil {
		return fmt.Sprintf("[%d:%d]", m.Start, m.End)
	}
	line, col := m.buf.LineCol(m.Start)
	return fmt.Sprintf("%s:%d:%d [%d:%d]", m.buf.origin, line, col, m.Start, m.End)
}
