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

package main

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/walteh/splice/cmd/splice/commands"
	"github.com/walteh/splice/cmd/splice/opts"
	"github.com/walteh/splice/pkg/log"
)

// newRootCmd creates the root command with every subcommand attached
func newRootCmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "splice",
		Short: "Anchor-based source rewriting",
		Long: `splice applies named rewrite requests to source files. Each request finds
an anchor (a literal, regex, delimited region, balanced block, import block or
marked section), then inserts before or after it or replaces it. Requests that
are already applied are skipped, so running a recipe twice changes nothing.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(cmd, o, cmd.ErrOrStderr())
		},
	}

	addRootFlags(cmd, o)

	cmd.AddCommand(
		commands.NewApplyCmd(o),
		commands.NewPlanCmd(o),
		commands.NewCheckCmd(o),
		newVersionCmd(),
	)

	return cmd
}

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command, o *opts.RootOpts) {
	cmd.PersistentFlags().StringVarP(&o.RecipeFile, "recipe", "r", ".splice.yaml", "recipe file path")
	cmd.PersistentFlags().StringArrayVar(&o.Vars, "var", nil, "recipe variable as key=value (repeatable)")
	cmd.PersistentFlags().BoolVarP(&o.Debug, "debug", "d", false, "enable debug logging")
	cmd.PersistentFlags().IntVar(&o.Concurrency, "concurrency", 0, "files transformed in parallel (default: GOMAXPROCS)")
}

// setupLogging configures zerolog based on flags and puts both loggers on the command context
func setupLogging(cmd *cobra.Command, o *opts.RootOpts, stderr io.Writer) {
	level := zerolog.WarnLevel
	if o.Debug {
		level = zerolog.DebugLevel
	}
	zlog := zerolog.New(zerolog.ConsoleWriter{Out: stderr, NoColor: stderr != os.Stderr}).
		Level(level).
		With().Timestamp().
		Logger()

	o.Logger = log.New(cmd.OutOrStdout(), zlog)

	ctx := zlog.WithContext(cmd.Context())
	cmd.SetContext(log.NewContext(ctx, o.Logger))
}
