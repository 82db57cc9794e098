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
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/splice/pkg/anchor"
	"github.com/walteh/splice/pkg/plan"
)

// 🔌 Parser is the interface for recipe parsers
type Parser interface {
	// 📝 Parse parses the recipe from bytes
	Parse(ctx context.Context, data []byte, opts ParseOptions) (*Recipe, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

// ParseOptions carries what a parser needs besides the raw bytes.
type ParseOptions struct {
	Filename string
	Vars     map[string]string // override the recipe's own vars
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 📚 Recipe is a set of named transforms and the files they apply to
type Recipe struct {
	Files      []string          `json:"files,omitempty" yaml:"files,omitempty" hcl:"files,optional"`
	Vars       map[string]string `json:"vars,omitempty" yaml:"vars,omitempty" hcl:"vars,optional"`
	Transforms []Transform       `json:"transforms" yaml:"transforms" hcl:"transform,block"`

	location string
}

// 🔄 Transform is one named rewrite request
type Transform struct {
	Name        string     `json:"name" yaml:"name" hcl:"name,label"`
	Anchor      AnchorSpec `json:"anchor" yaml:"anchor" hcl:"anchor,block"`
	Mode        string     `json:"mode" yaml:"mode" hcl:"mode"`
	Payload     string     `json:"payload,omitempty" yaml:"payload,omitempty" hcl:"payload,optional"`
	PayloadFile string     `json:"payload_file,omitempty" yaml:"payload_file,omitempty" hcl:"payload_file,optional"`
	Marker      string     `json:"marker,omitempty" yaml:"marker,omitempty" hcl:"marker,optional"`
	Required    bool       `json:"required,omitempty" yaml:"required,omitempty" hcl:"required,optional"`
	When        string     `json:"when,omitempty" yaml:"when,omitempty" hcl:"when,optional"`
}

// 🎯 AnchorSpec selects exactly one anchor variant
type AnchorSpec struct {
	Literal     string         `json:"literal,omitempty" yaml:"literal,omitempty" hcl:"literal,optional"`
	Regex       string         `json:"regex,omitempty" yaml:"regex,omitempty" hcl:"regex,optional"`
	ImportBlock bool           `json:"import_block,omitempty" yaml:"import_block,omitempty" hcl:"import_block,optional"`
	Section     string         `json:"section,omitempty" yaml:"section,omitempty" hcl:"section,optional"`
	Delimited   *DelimitedSpec `json:"delimited,omitempty" yaml:"delimited,omitempty" hcl:"delimited,block"`
	Block       *BlockSpec     `json:"block,omitempty" yaml:"block,omitempty" hcl:"block,block"`
}

// DelimitedSpec configures a delimited anchor
type DelimitedSpec struct {
	Open  string `json:"open" yaml:"open" hcl:"open"`
	Close string `json:"close" yaml:"close" hcl:"close"`
}

// BlockSpec configures a block anchor
type BlockSpec struct {
	Header string `json:"header" yaml:"header" hcl:"header"`
	Open   string `json:"open,omitempty" yaml:"open,omitempty" hcl:"open,optional"`
	Close  string `json:"close,omitempty" yaml:"close,omitempty" hcl:"close,optional"`
}

// 🎯 Load loads and validates a recipe file
//
// The format is determined by the file extension:
// - .json for JSON
// - .yaml or .yml for YAML
// - .hcl for HCL
// - .splice will try YAML, then HCL
func Load(ctx context.Context, path string, vars map[string]string) (*Recipe, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading recipe")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading recipe file: %w", err)
	}

	opts := ParseOptions{Filename: path, Vars: vars}

	var recipe *Recipe
	if filepath.Ext(path) == ".splice" || filepath.Base(path) == ".splice" {
		recipe, err = (&YAMLParser{}).Parse(ctx, data, opts)
		if err != nil {
			logger.Debug().Err(err).Msg("recipe is not YAML, trying HCL")
			recipe, err = (&HCLParser{}).Parse(ctx, data, opts)
		}
		if err != nil {
			return nil, errors.Errorf("parsing %s as YAML or HCL: %w", path, err)
		}
	} else {
		p := GetParser(path)
		if p == nil {
			return nil, errors.Errorf("no parser found for file: %s", path)
		}
		recipe, err = p.Parse(ctx, data, opts)
		if err != nil {
			return nil, errors.Errorf("parsing recipe: %w", err)
		}
	}

	recipe.location = path
	if err := recipe.Validate(); err != nil {
		return nil, errors.Errorf("validating recipe: %w", err)
	}

	logger.Debug().Int("transforms", len(recipe.Transforms)).Msg("recipe loaded")
	return recipe, nil
}

// Location returns the path the recipe was loaded from.
func (r *Recipe) Location() string { return r.location }

// Dir returns the directory relative paths in the recipe resolve against.
func (r *Recipe) Dir() string {
	if r.location == "" {
		return "."
	}
	return filepath.Dir(r.location)
}

// 🔍 Validate checks if the recipe is valid
func (r *Recipe) Validate() error {
	if len(r.Transforms) == 0 {
		return errors.Errorf("at least one transform is required")
	}
	seen := make(map[string]bool, len(r.Transforms))
	for i, t := range r.Transforms {
		if t.Name == "" {
			return errors.Errorf("transform %d: name is required", i)
		}
		if seen[t.Name] {
			return errors.Errorf("transform %q: duplicate name", t.Name)
		}
		seen[t.Name] = true
		if err := t.Validate(); err != nil {
			return errors.Errorf("transform %q: %w", t.Name, err)
		}
	}
	return nil
}

// 🔍 Validate checks a single transform
func (t Transform) Validate() error {
	if _, err := t.Anchor.Build(); err != nil {
		return err
	}
	mode, err := plan.ParseMode(t.Mode)
	if err != nil {
		return err
	}
	if !mode.Edits() {
		return errors.Errorf("mode %s cannot be requested", mode)
	}
	if t.Payload != "" && t.PayloadFile != "" {
		return errors.Errorf("payload and payload_file are mutually exclusive")
	}
	if t.Payload == "" && t.PayloadFile == "" && mode != plan.ModeReplaceRegion {
		return errors.Errorf("payload or payload_file is required for %s", mode)
	}
	if t.When != "" {
		if _, err := compileWhen(t.When); err != nil {
			return err
		}
	}
	return nil
}

// 🏗️ Build converts the recipe anchor into an anchor.Anchor
func (a AnchorSpec) Build() (anchor.Anchor, error) {
	var found []anchor.Anchor
	if a.Literal != "" {
		found = append(found, anchor.Literal{Text: a.Literal})
	}
	if a.Regex != "" {
		re, err := anchor.NewRegex(a.Regex)
		if err != nil {
			return nil, err
		}
		found = append(found, re)
	}
	if a.ImportBlock {
		found = append(found, anchor.ImportBlock{})
	}
	if a.Section != "" {
		found = append(found, anchor.Section{Name: a.Section})
	}
	if a.Delimited != nil {
		if a.Delimited.Open == "" || a.Delimited.Close == "" {
			return nil, errors.Errorf("delimited anchor needs open and close")
		}
		found = append(found, anchor.Delimited{Open: a.Delimited.Open, Close: a.Delimited.Close})
	}
	if a.Block != nil {
		if a.Block.Header == "" {
			return nil, errors.Errorf("block anchor needs a header")
		}
		found = append(found, anchor.Block{Header: a.Block.Header, Open: a.Block.Open, Close: a.Block.Close})
	}

	switch len(found) {
	case 0:
		return nil, errors.Errorf("anchor is required")
	case 1:
		return found[0], nil
	default:
		return nil, errors.Errorf("anchor must set exactly one of literal, regex, import_block, section, delimited, block")
	}
}

var varRef = regexp.MustCompile(`\$\{var\.([A-Za-z_][\w-]*)\}`)

// expandVars replaces ${var.name} references in the text fields of the
// recipe. HCL recipes resolve these natively and skip this step.
func (r *Recipe) expandVars(overrides map[string]string) error {
	vars := mergeVars(r.Vars, overrides)
	r.Vars = vars

	var missing []string
	expand := func(s string) string {
		return varRef.ReplaceAllStringFunc(s, func(ref string) string {
			name := varRef.FindStringSubmatch(ref)[1]
			v, ok := vars[name]
			if !ok {
				missing = append(missing, name)
				return ref
			}
			return v
		})
	}

	for i := range r.Transforms {
		t := &r.Transforms[i]
		t.Payload = expand(t.Payload)
		t.PayloadFile = expand(t.PayloadFile)
		t.Marker = expand(t.Marker)
		t.Anchor.Literal = expand(t.Anchor.Literal)
		t.Anchor.Section = expand(t.Anchor.Section)
		if t.Anchor.Block != nil {
			t.Anchor.Block.Header = expand(t.Anchor.Block.Header)
		}
	}
	for i := range r.Files {
		r.Files[i] = expand(r.Files[i])
	}

	if len(missing) > 0 {
		return errors.Errorf("undefined variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

func mergeVars(base, overrides map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(overrides))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

func compileWhen(src string) (*whenProgram, error) {
	program, err := expr.Compile(src, expr.Env(fileEnv{}), expr.AsBool())
	if err != nil {
		return nil, errors.Errorf("compiling when %q: %w", src, err)
	}
	return &whenProgram{src: src, program: program}, nil
}
