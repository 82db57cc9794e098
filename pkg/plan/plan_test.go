package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/splice/pkg/anchor"
	"github.com/walteh/splice/pkg/source"
)

const page = "import a from 'a'\nimport b from 'b'\nimport c from 'c'\n\nexport default function Page() {\n  return <div/>\n}\n"

func TestBuild_Modes(t *testing.T) {
	tests := []struct {
		name      string
		reqs      []Request
		wantModes []Mode
	}{
		{
			name: "insert_after_import_block",
			reqs: []Request{
				{Anchor: anchor.ImportBlock{}, Payload: "import d from 'd'\n", Mode: ModeInsertAfter, Marker: "from 'd'"},
			},
			wantModes: []Mode{ModeInsertAfter},
		},
		{
			name: "marker_already_present",
			reqs: []Request{
				{Anchor: anchor.ImportBlock{}, Payload: "import b from 'b'\n", Mode: ModeInsertAfter, Marker: "from 'b'"},
			},
			wantModes: []Mode{ModeSkipIfPresent},
		},
		{
			name: "missing_anchor",
			reqs: []Request{
				{Anchor: anchor.Section{Name: "render"}, Payload: "x", Mode: ModeReplaceRegion},
			},
			wantModes: []Mode{ModeSkipNoMatch},
		},
		{
			name: "present_wins_over_missing_anchor",
			reqs: []Request{
				{Anchor: anchor.Literal{Text: "gone"}, Payload: "<div/>", Mode: ModeReplaceRegion},
			},
			wantModes: []Mode{ModeSkipIfPresent},
		},
		{
			name: "duplicate_payload_applied_once",
			reqs: []Request{
				{Name: "first", Anchor: anchor.ImportBlock{}, Payload: "import d from 'd'\n", Mode: ModeInsertAfter, Marker: "from 'd'"},
				{Name: "second", Anchor: anchor.Literal{Text: "export default"}, Payload: "import d from 'd'\n", Mode: ModeInsertBefore, Marker: "from 'd'"},
			},
			wantModes: []Mode{ModeInsertAfter, ModeSkipIfPresent},
		},
		{
			name: "replace_applied_when_payload_elsewhere",
			reqs: []Request{
				{Anchor: anchor.Literal{Text: "import a"}, Payload: "import b", Mode: ModeReplaceRegion},
			},
			wantModes: []Mode{ModeReplaceRegion},
		},
		{
			name: "region_already_reads_as_payload",
			reqs: []Request{
				{Anchor: anchor.Literal{Text: "import b from 'b'"}, Payload: "import b from 'b'", Mode: ModeReplaceRegion},
			},
			wantModes: []Mode{ModeSkipIfPresent},
		},
		{
			name: "payload_inside_identifier_is_not_present",
			reqs: []Request{
				{Anchor: anchor.Literal{Text: "gone"}, Payload: "port", Mode: ModeReplaceRegion},
			},
			wantModes: []Mode{ModeSkipNoMatch},
		},
		{
			name: "deletion_with_missing_anchor",
			reqs: []Request{
				{Anchor: anchor.Section{Name: "legacy"}, Mode: ModeReplaceRegion},
			},
			wantModes: []Mode{ModeSkipIfPresent},
		},
		{
			name: "same_edit_twice_applied_once",
			reqs: []Request{
				{Anchor: anchor.Literal{Text: "<div/>"}, Payload: "{/* hi */}", Mode: ModeInsertBefore},
				{Anchor: anchor.Literal{Text: "<div/>"}, Payload: "{/* hi */}", Mode: ModeInsertBefore},
			},
			wantModes: []Mode{ModeInsertBefore, ModeSkipIfPresent},
		},
		{
			name: "insert_without_marker_not_deduplicated",
			reqs: []Request{
				{Anchor: anchor.Literal{Text: "<div/>"}, Payload: "import a from 'a'", Mode: ModeInsertBefore},
			},
			wantModes: []Mode{ModeInsertBefore},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := source.New("page.tsx", page)
			p, err := Build(buf, tt.reqs)
			require.NoError(t, err)
			require.Equal(t, len(tt.reqs), p.Len())

			var got []Mode
			for _, op := range p.Operations() {
				got = append(got, op.Mode)
			}
			assert.Equal(t, tt.wantModes, got)
		})
	}
}

func TestBuild_OrderedByOffset(t *testing.T) {
	buf := source.New("page.tsx", page)
	p, err := Build(buf, []Request{
		{Name: "late", Anchor: anchor.Literal{Text: "return"}, Payload: "// hi\n  ", Mode: ModeInsertBefore},
		{Name: "early", Anchor: anchor.Literal{Text: "import a"}, Payload: "// top\n", Mode: ModeInsertBefore},
	})
	require.NoError(t, err)

	ordered := p.Ordered()
	require.Len(t, ordered, 2)
	assert.Equal(t, "early", ordered[0].Label())
	assert.Equal(t, "late", ordered[1].Label())

	ops := p.Operations()
	assert.Equal(t, "late", ops[0].Label())
}

func TestBuild_Conflict(t *testing.T) {
	tests := []struct {
		name string
		reqs []Request
	}{
		{
			name: "overlapping_regions",
			reqs: []Request{
				{Name: "imports", Anchor: anchor.ImportBlock{}, Payload: "x\n", Mode: ModeReplaceRegion},
				{Name: "second_import", Anchor: anchor.Literal{Text: "import b"}, Payload: "y", Mode: ModeReplaceRegion},
			},
		},
		{
			name: "same_region_two_inserts",
			reqs: []Request{
				{Name: "one", Anchor: anchor.ImportBlock{}, Payload: "import d from 'd'\n", Mode: ModeInsertAfter},
				{Name: "two", Anchor: anchor.ImportBlock{}, Payload: "import e from 'e'\n", Mode: ModeInsertAfter},
			},
		},
		{
			name: "region_inside_block",
			reqs: []Request{
				{Name: "block", Anchor: anchor.Block{Header: "export default"}, Payload: "x", Mode: ModeReplaceRegion},
				{Name: "inner", Anchor: anchor.MustRegex(`\breturn\b`), Payload: "y", Mode: ModeInsertAfter},
			},
		},
		{
			name: "skipped_request_still_conflicts",
			reqs: []Request{
				{Name: "block", Anchor: anchor.Block{Header: "export default"}, Payload: "1", Mode: ModeReplaceRegion, Marker: "import a"},
				{Name: "inner", Anchor: anchor.Literal{Text: "return"}, Payload: " null", Mode: ModeInsertAfter},
			},
		},
		{
			name: "replace_with_payload_elsewhere_conflicts",
			reqs: []Request{
				{Name: "block", Anchor: anchor.Block{Header: "function Page"}, Payload: "import a", Mode: ModeReplaceRegion},
				{Name: "inner", Anchor: anchor.Literal{Text: "return"}, Payload: " null", Mode: ModeInsertAfter},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := source.New("page.tsx", page)
			p, err := Build(buf, tt.reqs)
			require.Error(t, err)
			assert.Nil(t, p)
			assert.True(t, errors.Is(err, ErrPlanConflict))

			var ce *ConflictError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, "page.tsx", ce.Origin)
			assert.Contains(t, err.Error(), tt.reqs[0].Name)
			assert.Contains(t, err.Error(), tt.reqs[1].Name)
		})
	}
}

func TestBuild_AdjacentRegionsDoNotConflict(t *testing.T) {
	buf := source.New("x", "aaabbb")
	_, err := Build(buf, []Request{
		{Anchor: anchor.Literal{Text: "aaa"}, Payload: "A", Mode: ModeReplaceRegion},
		{Anchor: anchor.Literal{Text: "bbb"}, Payload: "B", Mode: ModeReplaceRegion},
	})
	require.NoError(t, err)
}

func TestBuild_SameEditTwiceDoesNotConflict(t *testing.T) {
	buf := source.New("x", "import a from 'a'\n")
	p, err := Build(buf, []Request{
		{Anchor: anchor.ImportBlock{}, Payload: "import b from 'b'\n", Mode: ModeInsertAfter, Marker: "from 'b'"},
		{Anchor: anchor.ImportBlock{}, Payload: "import b from 'b'\n", Mode: ModeInsertAfter, Marker: "from 'b'"},
	})
	require.NoError(t, err)
	assert.Len(t, p.Ordered(), 1)
}

func TestValidateRequests(t *testing.T) {
	tests := []struct {
		name      string
		req       Request
		wantError string
	}{
		{
			name:      "missing_anchor",
			req:       Request{Payload: "x", Mode: ModeInsertAfter},
			wantError: "anchor is required",
		},
		{
			name:      "missing_mode",
			req:       Request{Anchor: anchor.Literal{Text: "a"}, Payload: "x"},
			wantError: "mode is required",
		},
		{
			name:      "planner_mode",
			req:       Request{Anchor: anchor.Literal{Text: "a"}, Payload: "x", Mode: ModeSkipIfPresent},
			wantError: "decided by the planner",
		},
		{
			name:      "insert_without_payload",
			req:       Request{Anchor: anchor.Literal{Text: "a"}, Mode: ModeInsertBefore},
			wantError: "payload is required",
		},
		{
			name: "replace_with_empty_payload_deletes",
			req:  Request{Anchor: anchor.Literal{Text: "a"}, Mode: ModeReplaceRegion},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequests([]Request{tt.req})
			if tt.wantError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantError)
				assert.Contains(t, err.Error(), "request #1")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNew_ForeignMatch(t *testing.T) {
	a := source.New("a", "hello")
	b := source.New("b", "hello")
	m, ok := anchor.Find(b, anchor.Literal{Text: "hello"})
	require.True(t, ok)

	_, err := New(a, []Operation{{
		Request: Request{Anchor: anchor.Literal{Text: "hello"}, Payload: "x", Mode: ModeReplaceRegion},
		Match:   m,
		Matched: true,
		Mode:    ModeReplaceRegion,
	}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrForeignMatch))
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{
		"replace-region": ModeReplaceRegion,
		"replace":        ModeReplaceRegion,
		"insert_before":  ModeInsertBefore,
		"Insert-After":   ModeInsertAfter,
	} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
		assert.NotEqual(t, "unknown", got.String())
	}

	_, err := ParseMode("upsert")
	require.Error(t, err)
}
