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

// Package anchor resolves declarative anchors to regions of a source buffer.
//
// Anchors form a closed set of variants. Each variant carries its own
// resolution rule and every rule follows the same first-match policy: the
// earliest occurrence at or after the scan offset wins, and no occurrence is
// reported as a miss rather than an error.
package anchor

import (
	"fmt"
	"regexp"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/splice/pkg/source"
)

// 🎯 Anchor describes a region to locate in a buffer.
type Anchor interface {
	fmt.Stringer

	// Kind is the short variant name used in recipes and reports.
	Kind() string

	resolve(text string, from int) (start, end int, ok bool)
}

// Find returns the first match of a in buf.
func Find(buf *source.Buffer, a Anchor) (source.Match, bool) {
	return FindFrom(buf, a, 0)
}

// FindFrom returns the first match of a that starts at or after offset.
//
// A Regex anchor is matched against the whole text so that ^ and \b see
// their context, and only its non-overlapping match sequence is considered:
// `aa` in "aaa" matches at 0 and FindFrom with offset 1 finds nothing, even
// though a Literal "aa" would match at 1. Next walks the same sequence.
func FindFrom(buf *source.Buffer, a Anchor, offset int) (source.Match, bool) {
	if a == nil || offset < 0 || offset > buf.Len() {
		return source.Match{}, false
	}
	start, end, ok := a.resolve(buf.Text(), offset)
	if !ok {
		return source.Match{}, false
	}
	return source.NewMatch(buf, start, end), true
}

// Next returns the match following prev. The scan starts strictly after
// prev.End so that anchors able to match an empty region always advance.
func Next(buf *source.Buffer, a Anchor, prev source.Match) (source.Match, bool) {
	offset := prev.End
	if prev.Empty() {
		offset++
	}
	return FindFrom(buf, a, offset)
}

// FindAll returns every successive match of a in buf.
func FindAll(buf *source.Buffer, a Anchor) []source.Match {
	var matches []source.Match
	m, ok := Find(buf, a)
	for ok {
		matches = append(matches, m)
		m, ok = Next(buf, a, m)
	}
	return matches
}

// Literal matches the first exact occurrence of Text.
type Literal struct {
	Text string
}

func (l Literal) Kind() string   { return "literal" }
func (l Literal) String() string { return fmt.Sprintf("literal %q", l.Text) }

func (l Literal) resolve(text string, from int) (int, int, bool) {
	if l.Text == "" {
		return 0, 0, false
	}
	idx := strings.Index(text[from:], l.Text)
	if idx < 0 {
		return 0, 0, false
	}
	return from + idx, from + idx + len(l.Text), true
}

// Regex matches the leftmost occurrence of a regular expression.
type Regex struct {
	re *regexp.Regexp
}

// NewRegex compiles expr into an anchor.
func NewRegex(expr string) (Regex, error) {
	if expr == "" {
		return Regex{}, errors.Errorf("regex anchor: expression is empty")
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return Regex{}, errors.Errorf("regex anchor %q: %w", expr, err)
	}
	return Regex{re: re}, nil
}

// MustRegex is like NewRegex but panics on an invalid expression.
func MustRegex(expr string) Regex {
	r, err := NewRegex(expr)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Regex) Kind() string { return "regex" }

func (r Regex) String() string {
	if r.re == nil {
		return "regex <nil>"
	}
	return fmt.Sprintf("regex /%s/", r.re.String())
}

func (r Regex) resolve(text string, from int) (int, int, bool) {
	if r.re == nil {
		return 0, 0, false
	}
	// scanning the whole text keeps ^ and \b context intact; candidates are
	// the non-overlapping matches, the same sequence Next walks
	for _, loc := range r.re.FindAllStringIndex(text, -1) {
		if loc[0] >= from {
			return loc[0], loc[1], true
		}
	}
	return 0, 0, false
}

// Delimited matches from the first Open through its balanced Close.
type Delimited struct {
	Open  string
	Close string
}

func (d Delimited) Kind() string   { return "delimited" }
func (d Delimited) String() string { return fmt.Sprintf("delimited %q…%q", d.Open, d.Close) }

func (d Delimited) resolve(text string, from int) (int, int, bool) {
	if d.Open == "" || d.Close == "" {
		return 0, 0, false
	}
	idx := strings.Index(text[from:], d.Open)
	if idx < 0 {
		return 0, 0, false
	}
	start := from + idx
	end, ok := balanced(text, start, d.Open, d.Close)
	if !ok {
		return 0, 0, false
	}
	return start, end, true
}

// Block matches a block introduced by Header: from the header through the
// balanced close of the first Open delimiter at or after it.
type Block struct {
	Header string
	Open   string // defaults to "{"
	Close  string // defaults to "}"
}

func (b Block) Kind() string { return "block" }

func (b Block) String() string {
	opener, closer := b.delims()
	return fmt.Sprintf("block %q %s…%s", b.Header, opener, closer)
}

func (b Block) delims() (string, string) {
	opener, closer := b.Open, b.Close
	if opener == "" {
		opener = "{"
	}
	if closer == "" {
		closer = "}"
	}
	return opener, closer
}

func (b Block) resolve(text string, from int) (int, int, bool) {
	if b.Header == "" {
		return 0, 0, false
	}
	opener, closer := b.delims()
	idx := strings.Index(text[from:], b.Header)
	if idx < 0 {
		return 0, 0, false
	}
	start := from + idx
	rel := strings.Index(text[start:], opener)
	if rel < 0 {
		return 0, 0, false
	}
	end, ok := balanced(text, start+rel, opener, closer)
	if !ok {
		return 0, 0, false
	}
	return start, end, true
}

// balanced returns the offset just past the Close that balances the Open
// found at openAt. Identical delimiters do not nest.
func balanced(text string, openAt int, opener, closer string) (int, bool) {
	pos := openAt + len(opener)
	if opener == closer {
		idx := strings.Index(text[pos:], closer)
		if idx < 0 {
			return 0, false
		}
		return pos + idx + len(closer), true
	}
	depth := 1
	for depth > 0 {
		nextClose := strings.Index(text[pos:], closer)
		if nextClose < 0 {
			return 0, false
		}
		nextOpen := strings.Index(text[pos:], opener)
		if nextOpen >= 0 && nextOpen < nextClose {
			depth++
			pos += nextOpen + len(opener)
			continue
		}
		depth--
		pos += nextClose + len(closer)
	}
	return pos, true
}
