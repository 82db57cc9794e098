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

package opts

import (
	"context"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/splice/pkg/config"
	"github.com/walteh/splice/pkg/log"
)

// RootOpts contains shared options used by all commands
type RootOpts struct {
	RecipeFile  string
	Vars        []string // key=value
	Debug       bool
	Concurrency int

	// Logger is set once flags are parsed
	Logger *log.Logger
}

// ParseVars turns --var flags into a map; later flags win.
func (o *RootOpts) ParseVars() (map[string]string, error) {
	if len(o.Vars) == 0 {
		return nil, nil
	}
	vars := make(map[string]string, len(o.Vars))
	for _, kv := range o.Vars {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, errors.Errorf("invalid --var %q, expected key=value", kv)
		}
		vars[k] = v
	}
	return vars, nil
}

// LoadRecipe loads the recipe named by --recipe with --var overrides.
func (o *RootOpts) LoadRecipe(ctx context.Context) (*config.Recipe, error) {
	vars, err := o.ParseVars()
	if err != nil {
		return nil, err
	}
	recipe, err := config.Load(ctx, o.RecipeFile, vars)
	if err != nil {
		return nil, errors.Errorf("loading recipe: %w", err)
	}
	return recipe, nil
}
