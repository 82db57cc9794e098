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

// Package dedup decides whether a pending insertion is already in place.
package dedup

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/walteh/splice/pkg/source"
)

// AlreadyPresent reports whether marker occurs in buf. An empty marker is
// never present.
func AlreadyPresent(buf *source.Buffer, marker string) bool {
	if marker == "" || buf == nil {
		return false
	}
	return buf.Contains(marker)
}

// Guard answers AlreadyPresent against the buffer as it will look once the
// operations accepted so far are applied: text removed by accepted
// replacements no longer counts and accepted payloads do.
//
// A Guard is built for one plan and discarded with it.
type Guard struct {
	buf      *source.Buffer
	removed  []source.Match
	payloads []string
}

// NewGuard returns a guard over the original buffer.
func NewGuard(buf *source.Buffer) *Guard {
	return &Guard{buf: buf}
}

// Present reports whether marker occurs in the projected buffer.
func (g *Guard) Present(marker string) bool {
	if len(g.payloads) == 0 && len(g.removed) == 0 {
		return AlreadyPresent(g.buf, marker)
	}
	return g.search(marker, strings.Contains)
}

// PresentStandalone is Present for text that must not be glued to an
// identifier: "x" is not present in "export", while "<div/>" is present in
// "return <div/>".
func (g *Guard) PresentStandalone(text string) bool {
	return g.search(text, containsStandalone)
}

func (g *Guard) search(marker string, contains func(s, substr string) bool) bool {
	if marker == "" || g.buf == nil {
		return false
	}
	for _, p := range g.payloads {
		if contains(p, marker) {
			return true
		}
	}
	pos := 0
	for _, r := range g.removed {
		if r.Start > pos && contains(g.buf.Slice(pos, r.Start), marker) {
			return true
		}
		if r.End > pos {
			pos = r.End
		}
	}
	return contains(g.buf.Slice(pos, g.buf.Len()), marker)
}

func containsStandalone(s, substr string) bool {
	first, _ := utf8.DecodeRuneInString(substr)
	last, _ := utf8.DecodeLastRuneInString(substr)
	for off := 0; off <= len(s)-len(substr); {
		i := strings.Index(s[off:], substr)
		if i < 0 {
			return false
		}
		start, end := off+i, off+i+len(substr)
		before, _ := utf8.DecodeLastRuneInString(s[:start])
		after, _ := utf8.DecodeRuneInString(s[end:])
		if !(isWord(first) && start > 0 && isWord(before)) &&
			!(isWord(last) && end < len(s) && isWord(after)) {
			return true
		}
		off = start + 1
	}
	return false
}

func isWord(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Insert records a payload that will be part of the output.
func (g *Guard) Insert(payload string) {
	if payload != "" {
		g.payloads = append(g.payloads, payload)
	}
}

// Remove records a region that will be dropped from the output.
func (g *Guard) Remove(m source.Match) {
	if m.Empty() {
		return
	}
	g.removed = append(g.removed, m)
	sort.SliceStable(g.removed, func(i, j int) bool {
		return g.removed[i].Start < g.removed[j].Start
	})
}
