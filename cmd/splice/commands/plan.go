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

package commands

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/splice/cmd/splice/opts"
	"github.com/walteh/splice/pkg/plan"
	"github.com/walteh/splice/pkg/source"
	"github.com/walteh/splice/pkg/text"
)

// NewPlanCmd creates the plan command
func NewPlanCmd(o *opts.RootOpts) *cobra.Command {
	var transforms []string

	cmd := &cobra.Command{
		Use:   "plan FILE",
		Short: "Show the resolved edit plan for one file",
		Long: `Plan resolves every selected transform against FILE and prints a table of
requests, anchors, matched regions and outcomes. Nothing is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := args[0]

			recipe, err := o.LoadRecipe(ctx)
			if err != nil {
				return err
			}
			compiled, err := recipe.Compile(transforms)
			if err != nil {
				return errors.Errorf("compiling recipe: %w", err)
			}

			content, err := os.ReadFile(path)
			if err != nil {
				return errors.Errorf("reading %s: %w", path, err)
			}
			reqs, err := compiled.For(path, string(content))
			if err != nil {
				return err
			}

			buf := source.New(path, string(content))
			p, err := plan.Build(buf, reqs)
			if err != nil {
				return errors.Errorf("planning %s: %w", path, err)
			}
			res, err := text.Apply(buf, p)
			if err != nil {
				return errors.Errorf("applying plan: %w", err)
			}

			return pterm.DefaultTable.
				WithHasHeader().
				WithWriter(cmd.OutOrStdout()).
				WithData(planTable(res)).
				Render()
		},
	}

	cmd.Flags().StringSliceVarP(&transforms, "transform", "t", nil, "transforms to plan (default: all)")

	return cmd
}

func planTable(res *text.Result) pterm.TableData {
	data := pterm.TableData{{"#", "Request", "Anchor", "Mode", "Region", "Outcome", "Output"}}
	for _, o := range res.Outcomes {
		region, out := "-", "-"
		if o.Matched {
			region = o.Match.String()
		}
		if o.Status == text.StatusApplied {
			out = fmt.Sprintf("[%d:%d]", o.OutputStart, o.OutputEnd)
		}
		outcome := o.Status.String()
		if o.Required && o.Status == text.StatusSkippedNoMatch {
			outcome += " (required)"
		}
		data = append(data, []string{
			fmt.Sprint(o.Index + 1),
			o.Label,
			o.Anchor,
			o.Mode.String(),
			region,
			outcome,
			out,
		})
	}
	return data
}
