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

package plan

import (
	"fmt"
	"sort"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/splice/pkg/anchor"
	"github.com/walteh/splice/pkg/dedup"
	"github.com/walteh/splice/pkg/source"
)

var (
	// ErrPlanConflict is wrapped by every ConflictError.
	ErrPlanConflict = errors.Base("plan conflict")

	// ErrForeignMatch means an operation carries a match from another buffer.
	ErrForeignMatch = errors.Base("match belongs to a different buffer")
)

// ConflictError reports two operations whose regions overlap. A plan that
// fails with it applies nothing.
type ConflictError struct {
	Origin string
	First  Operation
	Second Operation
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s in %s: %s (%s at %d:%d) overlaps %s (%s at %d:%d)",
		ErrPlanConflict.Error(), e.Origin,
		e.First.Label(), e.First.Request.Anchor, e.First.Match.Start, e.First.Match.End,
		e.Second.Label(), e.Second.Request.Anchor, e.Second.Match.Start, e.Second.Match.End)
}

func (e *ConflictError) Unwrap() error { return ErrPlanConflict }

// 📋 Plan is the validated set of operations for one buffer.
type Plan struct {
	buf     *source.Buffer
	ops     []Operation // request order
	ordered []int       // editing operations, ascending offset
}

// Build resolves every request against buf and validates the result.
//
// Every matched request is checked for overlaps before dedup runs, so a
// skipped request still conflicts with the requests around it. Requests are
// then deduplicated in caller order against the projected buffer; one that
// is already applied becomes skip-if-present, even when its anchor no longer
// matches, and a missing anchor otherwise becomes skip-no-match.
func Build(buf *source.Buffer, reqs []Request) (*Plan, error) {
	if buf == nil {
		return nil, errors.Errorf("buffer is required")
	}
	if err := ValidateRequests(reqs); err != nil {
		return nil, err
	}

	ops := make([]Operation, len(reqs))
	for i, req := range reqs {
		op := Operation{
			Index:   i,
			Request: req,
			Mode:    req.Mode,
			Marker:  req.Marker,
		}
		op.Match, op.Matched = anchor.Find(buf, req.Anchor)
		if !op.Matched {
			op.Mode = ModeSkipNoMatch
		}
		ops[i] = op
	}

	if err := checkOverlaps(buf, ops, orderedEdits(ops), true); err != nil {
		return nil, err
	}

	guard := dedup.NewGuard(buf)
	var accepted []Operation
	for i := range ops {
		op := &ops[i]
		if alreadyApplied(guard, *op, accepted) {
			op.Mode = ModeSkipIfPresent
			continue
		}
		if !op.Matched {
			continue
		}
		guard.Insert(op.Payload())
		if op.Mode == ModeReplaceRegion {
			guard.Remove(op.Match)
		}
		accepted = append(accepted, *op)
	}

	return New(buf, ops)
}

func alreadyApplied(guard *dedup.Guard, op Operation, accepted []Operation) bool {
	if op.Marker != "" {
		return guard.Present(op.Marker)
	}
	for _, prev := range accepted {
		if op.Matched && sameEdit(prev, op) {
			return true
		}
	}
	if op.Request.Mode != ModeReplaceRegion {
		return false
	}
	switch {
	case op.Matched:
		return op.Match.Text == op.Payload()
	case op.Payload() == "":
		return true
	default:
		return guard.PresentStandalone(op.Payload())
	}
}

// sameEdit reports whether two operations would emit the same text at the
// same place.
func sameEdit(a, b Operation) bool {
	return a.Request.Mode == b.Request.Mode &&
		a.Match.Start == b.Match.Start &&
		a.Match.End == b.Match.End &&
		a.Payload() == b.Payload()
}

// New validates already-resolved operations into a plan. Every editing
// operation must carry a match from buf and no two may overlap.
func New(buf *source.Buffer, ops []Operation) (*Plan, error) {
	if buf == nil {
		return nil, errors.Errorf("buffer is required")
	}
	p := &Plan{buf: buf, ops: append([]Operation(nil), ops...)}

	for _, op := range p.ops {
		if op.Request.Anchor == nil {
			return nil, errors.Errorf("operation %s: anchor is required", op.Label())
		}
		if !op.Mode.Edits() {
			continue
		}
		if op.Match.Buffer() != buf {
			return nil, errors.Errorf("operation %s: %w", op.Label(), ErrForeignMatch)
		}
		if op.Match.Start < 0 || op.Match.End < op.Match.Start || op.Match.End > buf.Len() {
			return nil, errors.Errorf("operation %s: region %d:%d outside buffer", op.Label(), op.Match.Start, op.Match.End)
		}
	}

	p.ordered = orderedEdits(p.ops)
	if err := checkOverlaps(buf, p.ops, p.ordered, false); err != nil {
		return nil, err
	}

	return p, nil
}

// orderedEdits returns the positions of the editing operations sorted by
// region.
func orderedEdits(ops []Operation) []int {
	var ordered []int
	for i, op := range ops {
		if op.Mode.Edits() {
			ordered = append(ordered, i)
		}
	}
	sort.SliceStable(ordered, func(a, b int) bool {
		x, y := ops[ordered[a]].Match, ops[ordered[b]].Match
		if x.Start != y.Start {
			return x.Start < y.Start
		}
		return x.End < y.End
	})
	return ordered
}

// checkOverlaps walks ordered positions into ops. With allowSame, two
// operations making the same edit are not a conflict; dedup drops one.
func checkOverlaps(buf *source.Buffer, ops []Operation, ordered []int, allowSame bool) error {
	for a := range ordered {
		for b := a + 1; b < len(ordered); b++ {
			first, second := ops[ordered[a]], ops[ordered[b]]
			if second.Match.Start > first.Match.End {
				break
			}
			if allowSame && sameEdit(first, second) {
				continue
			}
			if first.Match.Overlaps(second.Match) {
				return errors.WithStack(&ConflictError{Origin: buf.Origin(), First: first, Second: second})
			}
		}
	}
	return nil
}

// Buffer returns the snapshot the plan was built for.
func (p *Plan) Buffer() *source.Buffer { return p.buf }

// Operations returns every operation in request order.
func (p *Plan) Operations() []Operation {
	return append([]Operation(nil), p.ops...)
}

// Positions returns, in ascending offset order, the positions within
// Operations of the operations that edit.
func (p *Plan) Positions() []int {
	return append([]int(nil), p.ordered...)
}

// Ordered returns the editing operations in ascending offset order.
func (p *Plan) Ordered() []Operation {
	out := make([]Operation, 0, len(p.ordered))
	for _, i := range p.ordered {
		out = append(out, p.ops[i])
	}
	return out
}

// Len returns the number of operations.
func (p *Plan) Len() int { return len(p.ops) }
