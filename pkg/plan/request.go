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

// Package plan turns rewrite requests into an ordered, validated set of edits.
package plan

import (
	"fmt"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/splice/pkg/anchor"
	"github.com/walteh/splice/pkg/source"
)

// 🔧 Mode is how an operation affects its matched region.
type Mode int

const (
	ModeUnknown       Mode = iota
	ModeReplaceRegion      // drop the region, emit the payload
	ModeInsertBefore       // emit the payload, then the region
	ModeInsertAfter        // emit the region, then the payload
	ModeSkipIfPresent      // payload already in place, emit the region untouched
	ModeSkipNoMatch        // anchor not found, nothing to emit
)

// String returns the recipe spelling of the mode.
func (m Mode) String() string {
	switch m {
	case ModeReplaceRegion:
		return "replace-region"
	case ModeInsertBefore:
		return "insert-before"
	case ModeInsertAfter:
		return "insert-after"
	case ModeSkipIfPresent:
		return "skip-if-present"
	case ModeSkipNoMatch:
		return "skip-no-match"
	default:
		return "unknown"
	}
}

// Edits reports whether the mode changes the buffer.
func (m Mode) Edits() bool {
	return m == ModeReplaceRegion || m == ModeInsertBefore || m == ModeInsertAfter
}

// ParseMode parses a mode name. Underscores and a bare "replace" are accepted.
func ParseMode(s string) (Mode, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-") {
	case "replace-region", "replace":
		return ModeReplaceRegion, nil
	case "insert-before":
		return ModeInsertBefore, nil
	case "insert-after":
		return ModeInsertAfter, nil
	case "skip-if-present":
		return ModeSkipIfPresent, nil
	case "skip-no-match":
		return ModeSkipNoMatch, nil
	}
	return ModeUnknown, errors.Errorf("unknown mode %q", s)
}

// 📝 Request is one caller-supplied rewrite: where, what and how.
type Request struct {
	Name    string
	Anchor  anchor.Anchor
	Payload string
	Mode    Mode

	// Marker is the text whose presence means the request is already
	// applied. Without one, a replacement is applied when its region
	// already reads as the payload, or when its anchor is gone and the
	// payload stands in the buffer on its own. A deletion whose anchor is
	// gone is applied too. Inserts without a marker are never deduplicated.
	Marker string

	// Required requests turn a missing anchor into a failure for the caller.
	Required bool
}

// Label names the request in reports.
func (r Request) Label(index int) string {
	if r.Name != "" {
		return r.Name
	}
	return fmt.Sprintf("#%d", index+1)
}

// Validate checks a request before it is planned.
func (r Request) Validate() error {
	if r.Anchor == nil {
		return errors.Errorf("anchor is required")
	}
	switch r.Mode {
	case ModeReplaceRegion, ModeInsertBefore, ModeInsertAfter:
	case ModeSkipIfPresent, ModeSkipNoMatch:
		return errors.Errorf("mode %s is decided by the planner and cannot be requested", r.Mode)
	default:
		return errors.Errorf("mode is required")
	}
	if r.Payload == "" && r.Mode != ModeReplaceRegion {
		return errors.Errorf("payload is required for %s", r.Mode)
	}
	return nil
}

// ValidateRequests validates every request and reports the first failure.
func ValidateRequests(reqs []Request) error {
	for i, r := range reqs {
		if err := r.Validate(); err != nil {
			return errors.Errorf("request %s: %w", r.Label(i), err)
		}
	}
	return nil
}

// 🎯 Operation is a request bound to its resolved match.
type Operation struct {
	Index   int // position in the request list
	Request Request
	Match   source.Match
	Matched bool
	Mode    Mode // effective mode after matching and dedup
	Marker  string
}

// Label names the operation in reports.
func (o Operation) Label() string { return o.Request.Label(o.Index) }

// Payload returns the text the operation emits besides the region.
func (o Operation) Payload() string { return o.Request.Payload }
