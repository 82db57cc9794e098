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
	"os"
	"path/filepath"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/splice/pkg/anchor"
	"github.com/walteh/splice/pkg/plan"
)

// fileEnv is what a transform's `when` expression can see.
type fileEnv struct {
	Path    string            `expr:"path"`
	Ext     string            `expr:"ext"`
	Base    string            `expr:"base"`
	Dir     string            `expr:"dir"`
	Size    int               `expr:"size"`
	Content string            `expr:"content"`
	Vars    map[string]string `expr:"vars"`
}

type whenProgram struct {
	src     string
	program *vm.Program
}

func (w *whenProgram) eval(env fileEnv) (bool, error) {
	out, err := expr.Run(w.program, env)
	if err != nil {
		return false, errors.Errorf("evaluating when %q: %w", w.src, err)
	}
	ok, _ := out.(bool)
	return ok, nil
}

type compiledTransform struct {
	name     string
	anchor   anchor.Anchor
	mode     plan.Mode
	payload  string
	marker   string
	required bool
	when     *whenProgram
}

// 📦 Compiled is a recipe with anchors built, payload files read and
// conditions compiled, ready to produce requests per file.
type Compiled struct {
	vars       map[string]string
	transforms []compiledTransform
}

// 🏗️ Compile prepares the named transforms, in the order given. No names
// selects every transform in recipe order.
func (r *Recipe) Compile(names []string) (*Compiled, error) {
	byName := make(map[string]Transform, len(r.Transforms))
	for _, t := range r.Transforms {
		byName[t.Name] = t
	}

	if len(names) == 0 {
		for _, t := range r.Transforms {
			names = append(names, t.Name)
		}
	}

	c := &Compiled{vars: r.Vars}
	picked := make(map[string]bool, len(names))
	for _, name := range names {
		t, ok := byName[name]
		if !ok {
			return nil, errors.Errorf("unknown transform %q", name)
		}
		if picked[name] {
			return nil, errors.Errorf("transform %q selected twice", name)
		}
		picked[name] = true

		ct, err := r.compileTransform(t)
		if err != nil {
			return nil, errors.Errorf("transform %q: %w", name, err)
		}
		c.transforms = append(c.transforms, ct)
	}
	return c, nil
}

func (r *Recipe) compileTransform(t Transform) (compiledTransform, error) {
	a, err := t.Anchor.Build()
	if err != nil {
		return compiledTransform{}, err
	}
	mode, err := plan.ParseMode(t.Mode)
	if err != nil {
		return compiledTransform{}, err
	}

	payload := t.Payload
	if t.PayloadFile != "" {
		path := t.PayloadFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(r.Dir(), path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return compiledTransform{}, errors.Errorf("reading payload file: %w", err)
		}
		payload = string(data)
	}

	ct := compiledTransform{
		name:     t.Name,
		anchor:   a,
		mode:     mode,
		payload:  payload,
		marker:   t.Marker,
		required: t.Required,
	}
	if t.When != "" {
		if ct.when, err = compileWhen(t.When); err != nil {
			return compiledTransform{}, err
		}
	}
	return ct, nil
}

// Names returns the selected transform names in order.
func (c *Compiled) Names() []string {
	names := make([]string, 0, len(c.transforms))
	for _, t := range c.transforms {
		names = append(names, t.name)
	}
	return names
}

// 🎯 For returns the requests that apply to the file at path with the given
// content. Transforms whose `when` condition is false are left out.
func (c *Compiled) For(path, content string) ([]plan.Request, error) {
	env := fileEnv{
		Path:    filepath.ToSlash(path),
		Ext:     filepath.Ext(path),
		Base:    filepath.Base(path),
		Dir:     filepath.ToSlash(filepath.Dir(path)),
		Size:    len(content),
		Content: content,
		Vars:    c.vars,
	}

	reqs := make([]plan.Request, 0, len(c.transforms))
	for _, t := range c.transforms {
		if t.when != nil {
			ok, err := t.when.eval(env)
			if err != nil {
				return nil, errors.Errorf("transform %q: %w", t.name, err)
			}
			if !ok {
				continue
			}
		}
		reqs = append(reqs, plan.Request{
			Name:     t.name,
			Anchor:   t.anchor,
			Payload:  t.payload,
			Mode:     t.mode,
			Marker:   t.marker,
			Required: t.required,
		})
	}
	return reqs, nil
}
