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

package config

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/splice/pkg/plan"
)

const whenRecipe = `vars:
  component: Board
transforms:
  - name: tsx-only
    anchor: {literal: "return ("}
    mode: insert-before
    payload: "// tsx\n"
    when: 'ext == ".tsx"'
  - name: tabs-only
    anchor: {literal: "return ("}
    mode: insert-before
    payload: "// tabs\n"
    when: 'content contains "activeTab" && vars.component == "Board"'
  - name: always
    anchor: {section: generated}
    mode: replace-region
    payload_file: payloads/generated.txt
    required: true
`

func loadRecipe(t *testing.T, content string) *Recipe {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "payloads/generated.txt", "// BEGIN generated\nok\n// END generated\n")
	path := writeFile(t, dir, "recipe.yaml", content)

	recipe, err := Load(context.Background(), path, nil)
	require.NoError(t, err)
	return recipe
}

func TestCompile_Selection(t *testing.T) {
	recipe := loadRecipe(t, whenRecipe)

	tests := []struct {
		name      string
		names     []string
		want      []string
		wantError string
	}{
		{name: "all_in_recipe_order", names: nil, want: []string{"tsx-only", "tabs-only", "always"}},
		{name: "caller_order", names: []string{"always", "tsx-only"}, want: []string{"always", "tsx-only"}},
		{name: "unknown", names: []string{"nope"}, wantError: `unknown transform "nope"`},
		{name: "twice", names: []string{"always", "always"}, wantError: "selected twice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compiled, err := recipe.Compile(tt.names)
			if tt.wantError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, compiled.Names())
		})
	}
}

func TestCompiled_For(t *testing.T) {
	recipe := loadRecipe(t, whenRecipe)
	compiled, err := recipe.Compile(nil)
	require.NoError(t, err)

	tests := []struct {
		name    string
		path    string
		content string
		want    []string
	}{
		{name: "tsx_with_tabs", path: "src/App.tsx", content: "const activeTab = 1", want: []string{"tsx-only", "tabs-only", "always"}},
		{name: "tsx_without_tabs", path: "src/App.tsx", content: "plain", want: []string{"tsx-only", "always"}},
		{name: "go_file", path: "main.go", content: "plain", want: []string{"always"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reqs, err := compiled.For(tt.path, tt.content)
			require.NoError(t, err)

			var got []string
			for _, r := range reqs {
				got = append(got, r.Name)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompiled_ForBuildsRequests(t *testing.T) {
	recipe := loadRecipe(t, whenRecipe)
	compiled, err := recipe.Compile([]string{"always"})
	require.NoError(t, err)

	reqs, err := compiled.For("main.go", "")
	require.NoError(t, err)
	require.Len(t, reqs, 1)

	r := reqs[0]
	assert.Equal(t, plan.ModeReplaceRegion, r.Mode)
	assert.Equal(t, "// BEGIN generated\nok\n// END generated\n", r.Payload)
	assert.True(t, r.Required)
	assert.Equal(t, "section", r.Anchor.Kind())
	require.NoError(t, plan.ValidateRequests(reqs))
}

func TestCompile_MissingPayloadFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "recipe.yaml", "transforms:\n  - {name: x, anchor: {literal: a}, mode: insert-after, payload_file: missing.txt}\n")

	recipe, err := Load(context.Background(), path, nil)
	require.NoError(t, err)

	_, err = recipe.Compile(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading payload file")
	assert.Contains(t, err.Error(), filepath.Join(dir, "missing.txt"))
}
