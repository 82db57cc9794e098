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
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
)

type diffLine struct {
	op      diffmatchpatch.Operation
	text    string
	oldLine int // 1-based, at this line
	newLine int
}

// Diff renders a unified line diff of before and after with the given number
// of context lines. It returns "" when nothing changed.
func Diff(path, before, after string, context int) string {
	if before == after {
		return ""
	}

	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lineArray)

	var lines []diffLine
	oldN, newN := 1, 1
	for _, d := range diffs {
		for _, l := range splitLines(d.Text) {
			lines = append(lines, diffLine{op: d.Type, text: l, oldLine: oldN, newLine: newN})
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				oldN++
				newN++
			case diffmatchpatch.DiffDelete:
				oldN++
			case diffmatchpatch.DiffInsert:
				newN++
			}
		}
	}

	var sb strings.Builder
	sb.WriteString(color.New(color.Bold).Sprintf("--- a/%s\n+++ b/%s\n", path, path))

	for i := 0; i < len(lines); {
		if lines[i].op == diffmatchpatch.DiffEqual {
			i++
			continue
		}

		start := max(0, i-context)
		last := i
		for j := i; j < len(lines) && j-last <= 2*context; j++ {
			if lines[j].op != diffmatchpatch.DiffEqual {
				last = j
			}
		}
		end := min(len(lines), last+context+1)

		writeHunk(&sb, lines[start:end])
		i = end
	}

	return sb.String()
}

func writeHunk(sb *strings.Builder, hunk []diffLine) {
	oldCount, newCount := 0, 0
	for _, l := range hunk {
		if l.op != diffmatchpatch.DiffInsert {
			oldCount++
		}
		if l.op != diffmatchpatch.DiffDelete {
			newCount++
		}
	}
	sb.WriteString(color.CyanString("@@ -%d,%d +%d,%d @@", hunk[0].oldLine, oldCount, hunk[0].newLine, newCount))
	sb.WriteString("\n")

	for _, l := range hunk {
		text := strings.TrimSuffix(l.text, "\n")
		switch l.op {
		case diffmatchpatch.DiffDelete:
			sb.WriteString(color.RedString("-%s", text))
		case diffmatchpatch.DiffInsert:
			sb.WriteString(color.GreenString("+%s", text))
		default:
			fmt.Fprintf(sb, " %s", text)
		}
		sb.WriteString("\n")
		if !strings.HasSuffix(l.text, "\n") {
			sb.WriteString("\\ No newline at end of file\n")
		}
	}
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
