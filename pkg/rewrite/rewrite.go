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

// Package rewrite runs requests against a buffer: plan, then apply.
package rewrite

import (
	"fmt"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/splice/pkg/plan"
	"github.com/walteh/splice/pkg/source"
	"github.com/walteh/splice/pkg/text"
)

// ErrRequiredAnchor is wrapped by MissingAnchorError.
var ErrRequiredAnchor = errors.Base("required anchor not found")

// MissingAnchorError lists required requests whose anchors did not match.
// The result that came with it must not be persisted.
type MissingAnchorError struct {
	Origin   string
	Outcomes []text.Outcome
}

func (e *MissingAnchorError) Error() string {
	parts := make([]string, 0, len(e.Outcomes))
	for _, o := range e.Outcomes {
		parts = append(parts, fmt.Sprintf("%s (%s)", o.Label, o.Anchor))
	}
	return fmt.Sprintf("%s in %s: %s", ErrRequiredAnchor.Error(), e.Origin, strings.Join(parts, ", "))
}

func (e *MissingAnchorError) Unwrap() error { return ErrRequiredAnchor }

// Transform plans reqs against buf and applies the plan.
//
// A plan conflict returns no result. When required requests miss their
// anchors the result is returned together with a *MissingAnchorError.
func Transform(buf *source.Buffer, reqs []plan.Request) (*text.Result, error) {
	if buf == nil {
		return nil, errors.Errorf("buffer is required")
	}
	p, err := plan.Build(buf, reqs)
	if err != nil {
		return nil, errors.Errorf("planning %s: %w", buf.Origin(), err)
	}

	res, err := text.Apply(buf, p)
	if err != nil {
		return nil, errors.Errorf("applying plan to %s: %w", buf.Origin(), err)
	}

	var missing []text.Outcome
	for _, o := range res.Outcomes {
		if o.Required && o.Status == text.StatusSkippedNoMatch {
			missing = append(missing, o)
		}
	}
	if len(missing) > 0 {
		return res, errors.WithStack(&MissingAnchorError{Origin: buf.Origin(), Outcomes: missing})
	}
	return res, nil
}
