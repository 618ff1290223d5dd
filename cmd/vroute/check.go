package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vroute/internal/config"
	"github.com/vango-dev/vroute/internal/errors"
	"github.com/vango-dev/vroute/pkg/router"
)

func checkCmd(opts *globalOptions) *cobra.Command {
	var (
		quiet  bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the route table",
		Long: `Validate the route table: server settings, every route pattern and
every redirect target.

check also warns about routes that first-match-wins selection never
picks: routes that repeat an earlier route, routes after a route without
patterns and literal routes an earlier prefix route always beats.

Examples:
  vroute check
  vroute check --config deploy/routes.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err := cfg.Validate(); err != nil {
				if asJSON {
					fmt.Fprintln(out, errors.FromError(err, "E121").FormatJSON())
				}
				return err
			}
			conflicts, err := router.NewMatcher().Conflicts(cfg.Routes())
			if err != nil {
				return errors.FromError(err, "E121")
			}
			if asJSON {
				if conflicts == nil {
					conflicts = []router.Conflict{}
				}
				return writeJSON(out, map[string]any{
					"source":    cfg.Source(),
					"routes":    len(cfg.Entries),
					"conflicts": conflicts,
				})
			}

			success(out, "%s: %d routes valid", cfg.Source(), len(cfg.Entries))
			if !quiet {
				for i, r := range cfg.Entries {
					info(out, "%2d  %-12s %s", i, r.Name, describeRoute(r))
				}
			}
			for _, c := range conflicts {
				warn(out, "%s", c)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only report errors and conflicts")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result or the validation error as JSON")

	return cmd
}

func describeRoute(r config.RouteConfig) string {
	patterns := r.Patterns()
	desc := "(any)"
	if len(patterns) > 0 {
		desc = strings.Join(patterns, " | ")
	}

	var mods []string
	if r.Exact {
		mods = append(mods, "exact")
	}
	if r.Strict {
		mods = append(mods, "strict")
	}
	if r.Sensitive {
		mods = append(mods, "sensitive")
	}
	if len(mods) > 0 {
		desc += " [" + strings.Join(mods, ",") + "]"
	}
	if r.Redirect != nil {
		desc += " -> " + r.Redirect.To
	}
	return desc
}
