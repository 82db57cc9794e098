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

// Package text applies edit plans to source buffers.
package text

import (
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/splice/pkg/plan"
	"github.com/walteh/splice/pkg/source"
)

// ErrForeignPlan means the plan was built for a different buffer.
var ErrForeignPlan = errors.Base("plan belongs to a different buffer")

// 📊 Status is the outcome of one operation.
type Status int

const (
	StatusUnknown               Status = iota
	StatusApplied                      // payload written
	StatusSkippedAlreadyPresent        // marker already in the buffer
	StatusSkippedNoMatch               // anchor not found
)

// String returns a string representation of Status
func (s Status) String() string {
	switch s {
	case StatusApplied:
		return "applied"
	case StatusSkippedAlreadyPresent:
		return "skipped-already-present"
	case StatusSkippedNoMatch:
		return "skipped-no-match"
	default:
		return "unknown"
	}
}

// Outcome reports what happened to one operation.
type Outcome struct {
	Index    int
	Label    string
	Anchor   string
	Mode     plan.Mode // requested mode
	Status   Status
	Required bool

	// Match is the region in the original buffer, valid when Matched.
	Match   source.Match
	Matched bool

	// OutputStart and OutputEnd locate the emitted payload in the new
	// buffer, valid when Status is StatusApplied.
	OutputStart int
	OutputEnd   int
}

// Result holds the outcome of applying a plan.
type Result struct {
	Original *source.Buffer
	Buffer   *source.Buffer
	Outcomes []Outcome // request order
	Applied  int
	Changed  bool
}

// Skipped returns the outcomes with the given status.
func (r *Result) Skipped(status Status) []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out
}

// Apply emits a new buffer from buf and p in one pass over the original.
//
// Text outside the regions of applied operations is copied byte for byte.
// Offsets come from the original buffer; the outcome offsets are translated
// into the new one.
func Apply(buf *source.Buffer, p *plan.Plan) (*Result, error) {
	if buf == nil || p == nil {
		return nil, errors.Errorf("buffer and plan are required")
	}
	if p.Buffer() != buf {
		return nil, errors.WithStack(ErrForeignPlan)
	}

	ops := p.Operations()
	result := &Result{
		Original: buf,
		Outcomes: make([]Outcome, len(ops)),
	}
	for i, op := range ops {
		result.Outcomes[i] = Outcome{
			Index:    op.Index,
			Label:    op.Label(),
			Anchor:   op.Request.Anchor.String(),
			Mode:     op.Request.Mode,
			Status:   statusFor(op.Mode),
			Required: op.Request.Required,
			Match:    op.Match,
			Matched:  op.Matched,
		}
	}

	var sb strings.Builder
	sb.Grow(buf.Len() + payloadSize(ops))

	pos := 0
	for _, i := range p.Positions() {
		op := ops[i]
		sb.WriteString(buf.Slice(pos, op.Match.Start))

		var start, end int
		switch op.Mode {
		case plan.ModeReplaceRegion:
			start = sb.Len()
			sb.WriteString(op.Payload())
			end = sb.Len()
		case plan.ModeInsertBefore:
			start = sb.Len()
			sb.WriteString(op.Payload())
			end = sb.Len()
			sb.WriteString(op.Match.Text)
		case plan.ModeInsertAfter:
			sb.WriteString(op.Match.Text)
			start = sb.Len()
			sb.WriteString(op.Payload())
			end = sb.Len()
		}
		pos = op.Match.End

		result.Outcomes[i].OutputStart = start
		result.Outcomes[i].OutputEnd = end
		result.Applied++
	}
	sb.WriteString(buf.Slice(pos, buf.Len()))

	text := sb.String()
	result.Changed = text != buf.Text()
	result.Buffer = buf.Derive(text)
	return result, nil
}

func statusFor(m plan.Mode) Status {
	switch m {
	case plan.ModeSkipIfPresent:
		return StatusSkippedAlreadyPresent
	case plan.ModeSkipNoMatch:
		return StatusSkippedNoMatch
	case plan.ModeReplaceRegion, plan.ModeInsertBefore, plan.ModeInsertAfter:
		return StatusApplied
	default:
		return StatusUnknown
	}
}

func payloadSize(ops []plan.Operation) int {
	n := 0
	for _, op := range ops {
		if op.Mode.Edits() {
			n += len(op.Payload())
		}
	}
	return n
}
