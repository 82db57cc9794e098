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

package anchor

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	importLine    = regexp.MustCompile(`^(import\b|export\s+(\*|\{[^}]*\})\s+from\b|from\s+\S+\s+import\b|use\s+[\w\\:{]|#\s*(include|import)\b|@import\b|(const|let|var)\s+[\w{}\s,:]+=\s*require\(|require\()`)
	directiveLine = regexp.MustCompile(`^['"]use [\w ]+['"];?$`)
	packageLine   = regexp.MustCompile(`^package\s+[\w.]+;?$`)
)

// ImportBlock matches the first contiguous run of import statements, from the
// first import line through the end of the last one (line terminator included).
//
// A leading preamble of blank lines, comments, string directives and package
// clauses is skipped. The run ends at the first line that is neither an
// import, blank, nor a comment; blank and comment lines trailing the run are
// left out of the region. Imports that open a brace or parenthesis continue
// until it is closed.
type ImportBlock struct{}

func (ImportBlock) Kind() string   { return "import_block" }
func (ImportBlock) String() string { return "import block" }

func (ImportBlock) resolve(text string, from int) (int, int, bool) {
	start, end := -1, -1
	inComment := false
	for ln := range lines(text, lineStartAt(text, from)) {
		trimmed := strings.TrimSpace(ln.text)

		if inComment {
			if strings.Contains(trimmed, "*/") {
				inComment = false
			}
			continue
		}

		if ln.start < end {
			// still inside a multi-line import
			continue
		}

		switch {
		case importLine.MatchString(trimmed):
			if start < 0 {
				start = ln.start
			}
			end = importEnd(text, ln)
		case trimmed == "", isComment(trimmed):
			if strings.HasPrefix(trimmed, "/*") && !strings.Contains(trimmed, "*/") {
				inComment = true
			}
		case start < 0 && (directiveLine.MatchString(trimmed) || packageLine.MatchString(trimmed)):
		default:
			if start < 0 {
				return 0, 0, false
			}
			return start, end, true
		}
	}
	if start < 0 {
		return 0, 0, false
	}
	return start, end, true
}

// importEnd returns the offset after the line that closes the import starting
// on ln. Single-line imports end after their own terminator.
func importEnd(text string, ln line) int {
	depth := delimDepth(ln.text)
	if depth <= 0 {
		return ln.next
	}
	for next := range lines(text, ln.next) {
		depth += delimDepth(next.text)
		if depth <= 0 {
			return next.next
		}
	}
	return len(text)
}

func delimDepth(s string) int {
	return strings.Count(s, "{") + strings.Count(s, "(") + strings.Count(s, "[") -
		strings.Count(s, "}") - strings.Count(s, ")") - strings.Count(s, "]")
}

func isComment(trimmed string) bool {
	if strings.HasPrefix(trimmed, "#") {
		return !importLine.MatchString(trimmed)
	}
	for _, p := range []string{"//", "/*", "*", "--"} {
		if strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	return false
}

// Section matches a region fenced by marker lines containing "BEGIN <Name>"
// and "END <Name>", whatever comment syntax surrounds them. Both marker lines
// are part of the region.
type Section struct {
	Name string
}

func (s Section) Kind() string   { return "section" }
func (s Section) String() string { return fmt.Sprintf("section %q", s.Name) }

func (s Section) resolve(text string, from int) (int, int, bool) {
	if strings.TrimSpace(s.Name) == "" {
		return 0, 0, false
	}
	begin := markerPattern("BEGIN", s.Name)
	finish := markerPattern("END", s.Name)

	start := -1
	for ln := range lines(text, lineStartAt(text, from)) {
		if start < 0 {
			if begin.MatchString(ln.text) {
				start = ln.start
			}
			continue
		}
		if finish.MatchString(ln.text) {
			return start, ln.next, true
		}
	}
	return 0, 0, false
}

func markerPattern(word, name string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + word + `\s+` + regexp.QuoteMeta(strings.TrimSpace(name)) + `($|[^\w-])`)
}

type line struct {
	start int    // offset of the first byte
	next  int    // offset after the line terminator
	text  string // content without the terminator
}

// lines yields the lines of text starting at offset.
func lines(text string, offset int) func(yield func(line) bool) {
	return func(yield func(line) bool) {
		for pos := offset; pos < len(text); {
			nl := strings.IndexByte(text[pos:], '\n')
			ln := line{start: pos, next: len(text), text: text[pos:]}
			if nl >= 0 {
				ln.next = pos + nl + 1
				ln.text = text[pos : pos+nl]
			}
			ln.text = strings.TrimSuffix(ln.text, "\r")
			if !yield(ln) {
				return
			}
			pos = ln.next
		}
	}
}

// lineStartAt returns the first line start at or after offset.
func lineStartAt(text string, offset int) int {
	if offset <= 0 {
		return 0
	}
	if offset > len(text) {
		return len(text)
	}
	if text[offset-1] == '\n' {
		return offset
	}
	nl := strings.IndexByte(text[offset:], '\n')
	if nl < 0 {
		return len(text)
	}
	return offset + nl + 1
}
