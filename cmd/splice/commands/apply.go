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
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/splice/cmd/splice/opts"
	"github.com/walteh/splice/pkg/output"
	"github.com/walteh/splice/pkg/runner"
)

type applyFlags struct {
	transforms []string
	outDir     string
	diff       bool
	dryRun     bool
}

// NewApplyCmd creates the apply command
func NewApplyCmd(o *opts.RootOpts) *cobra.Command {
	var flags applyFlags

	cmd := &cobra.Command{
		Use:   "apply [files...]",
		Short: "Apply recipe transforms to files",
		Long: `Apply runs the recipe's transforms against each target file.
It will:
1. Resolve targets from the arguments or the recipe's files globs
2. Transform every file, stopping if any plan conflicts or a required anchor is missing
3. Only then write the results (in place, to --out, as a --diff, or not at all with --dry-run)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := o.Logger

			recipe, err := o.LoadRecipe(ctx)
			if err != nil {
				return err
			}

			wopts := output.Options{Mode: output.ModeOverwrite, BaseDir: "."}
			switch {
			case flags.outDir != "":
				wopts.Mode = output.ModeOutDir
				wopts.OutDir = flags.outDir
				if len(args) == 0 {
					wopts.BaseDir = recipe.Dir()
				}
			case flags.diff:
				wopts.Mode = output.ModeDiff
				wopts.Diff = cmd.OutOrStdout()
			case flags.dryRun:
				wopts.Mode = output.ModeDryRun
			}
			writer, err := output.NewWriter(wopts)
			if err != nil {
				return errors.Errorf("creating writer: %w", err)
			}

			logger.Header("apply")
			report, err := runner.Run(ctx, runner.Options{
				Recipe:      recipe,
				Transforms:  flags.transforms,
				Targets:     args,
				Writer:      writer,
				Concurrency: o.Concurrency,
			})
			if err != nil {
				return errors.Errorf("applying recipe: %w", err)
			}

			logger.LogNewline()
			changed := len(report.Changed())
			switch {
			case changed == 0:
				logger.Successf("%d files already up to date", len(report.Files))
			case writer.Mode().Writes():
				logger.Successf("updated %d of %d files", report.Written, len(report.Files))
			default:
				logger.Warningf("%d of %d files would change (%s)", changed, len(report.Files), writer.Mode())
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&flags.transforms, "transform", "t", nil, "transforms to run, in order (default: all)")
	cmd.Flags().StringVar(&flags.outDir, "out", "", "write results under this directory instead of in place")
	cmd.Flags().BoolVar(&flags.diff, "diff", false, "print a diff instead of writing")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "report what would change without writing")
	cmd.MarkFlagsMutuallyExclusive("out", "diff", "dry-run")

	return cmd
}
