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

// ErrWouldChange is returned by check when a file is not up to date.
var ErrWouldChange = errors.Base("files would change")

// NewCheckCmd creates the check command
func NewCheckCmd(o *opts.RootOpts) *cobra.Command {
	var transforms []string

	cmd := &cobra.Command{
		Use:   "check [files...]",
		Short: "Fail if applying the recipe would change any file",
		Long: `Check transforms every target without writing and exits non-zero
if any file would change. Running it after apply verifies the recipe is idempotent.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := o.Logger

			recipe, err := o.LoadRecipe(ctx)
			if err != nil {
				return err
			}
			writer, err := output.NewWriter(output.Options{Mode: output.ModeDryRun})
			if err != nil {
				return errors.Errorf("creating writer: %w", err)
			}

			logger.Header("check")
			report, err := runner.Run(ctx, runner.Options{
				Recipe:      recipe,
				Transforms:  transforms,
				Targets:     args,
				Writer:      writer,
				Concurrency: o.Concurrency,
			})
			if err != nil {
				return errors.Errorf("checking recipe: %w", err)
			}

			logger.LogNewline()
			if changed := report.Changed(); len(changed) > 0 {
				logger.Warningf("%d of %d files would change", len(changed), len(report.Files))
				return errors.WithStack(ErrWouldChange)
			}
			logger.Successf("all %d files up to date", len(report.Files))
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&transforms, "transform", "t", nil, "transforms to check (default: all)")

	return cmd
}
