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
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&HCLParser{})
}

// 🔧 HCLParser implements the Parser interface for HCL files
//
// Recipe variables are exposed to expressions as var.<name>:
//
//	vars = { component = "ProfessionalKanbanBoard" }
//
//	transform "import" {
//	  anchor { import_block = true }
//	  mode    = "insert-after"
//	  payload = "import ${var.component} from '@/components/task/${var.component}'\n"
//	}
type HCLParser struct{}

// 🔍 CanParse checks if this parser can handle the given file
func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".hcl")
}

// 📝 Parse parses the recipe from HCL
func (p *HCLParser) Parse(ctx context.Context, data []byte, opts ParseOptions) (*Recipe, error) {
	filename := opts.Filename
	if filename == "" {
		filename = "recipe.hcl"
	}

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	// vars are read first so the rest of the body can reference them
	declared, err := declaredVars(hclFile.Body)
	if err != nil {
		return nil, err
	}
	vars := mergeVars(declared, opts.Vars)

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"var": varsValue(vars),
		},
	}

	var recipe Recipe
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &recipe)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}
	recipe.Vars = vars

	return &recipe, nil
}

func declaredVars(body hcl.Body) (map[string]string, error) {
	content, _, diags := body.PartialContent(&hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{{Name: "vars"}},
	})
	if diags.HasErrors() {
		return nil, errors.Errorf("reading vars: %s", diags.Error())
	}

	attr, ok := content.Attributes["vars"]
	if !ok {
		return nil, nil
	}
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return nil, errors.Errorf("evaluating vars: %s", diags.Error())
	}
	if val.IsNull() || !val.CanIterateElements() {
		return nil, errors.Errorf("vars must be an object of strings")
	}

	out := make(map[string]string)
	for it := val.ElementIterator(); it.Next(); {
		k, v := it.Element()
		if !v.Type().Equals(cty.String) || v.IsNull() {
			return nil, errors.Errorf("var %q must be a string", k.AsString())
		}
		out[k.AsString()] = v.AsString()
	}
	return out, nil
}

func varsValue(vars map[string]string) cty.Value {
	if len(vars) == 0 {
		return cty.EmptyObjectVal
	}
	vals := make(map[string]cty.Value, len(vars))
	for k, v := range vars {
		vals[k] = cty.StringVal(v)
	}
	return cty.ObjectVal(vals)
}
