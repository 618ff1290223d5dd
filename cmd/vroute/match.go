package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vroute/internal/errors"
	"github.com/vango-dev/vroute/pkg/router"
)

func matchCmd(opts *globalOptions) *cobra.Command {
	var (
		pattern  string
		matchOpt router.Options
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "match <path>",
		Short: "Match a path against the route table or a pattern",
		Long: `Match a path against the route table and print the selected route.

With --pattern the path is matched against that single pattern instead,
and no route table is read.

Examples:
  vroute match /users/5
  vroute match /users/5 --pattern /users/:id --exact
  vroute match /Users/5 --pattern /users/:id --sensitive --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pathname := args[0]
			out := cmd.OutOrStdout()

			if pattern != "" {
				m := router.NewMatcher()
				match, err := m.Match(pathname, pattern, matchOpt)
				if err != nil {
					return errors.FromError(err, "E201")
				}
				if asJSON {
					return writeJSON(out, match)
				}
				if match == nil {
					fmt.Fprintf(out, "no match for %s\n", pathname)
					return nil
				}
				printMatch(out, match)
				return nil
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			m := router.NewMatcher()
			sel, err := m.SelectFirst(pathname, cfg.Routes(), router.RootMatch(pathname))
			if err != nil {
				return errors.FromError(err, "E201")
			}
			if sel == nil {
				return errors.New("E205").WithDetail("no route matches " + pathname)
			}
			if asJSON {
				return writeJSON(out, sel)
			}
			printSelection(out, sel)
			return nil
		},
	}

	cmd.Flags().StringVarP(&pattern, "pattern", "p", "", "Match a single pattern instead of the route table")
	cmd.Flags().BoolVar(&matchOpt.Exact, "exact", false, "Require the pattern to consume the whole path")
	cmd.Flags().BoolVar(&matchOpt.Strict, "strict", false, "Make a trailing slash significant")
	cmd.Flags().BoolVar(&matchOpt.Sensitive, "sensitive", false, "Match case-sensitively")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")

	return cmd
}

func printSelection(w io.Writer, sel *router.Selection) {
	name := sel.Route.Name
	if name == "" {
		name = "(unnamed)"
	}
	success(w, "route %d %s", sel.Index, name)
	if sel.Route.Redirect != nil {
		info(w, "redirect: %s", sel.Route.Redirect.To)
	}
	printMatch(w, sel.Match)
}

func printMatch(w io.Writer, m *router.Match) {
	info(w, "pattern:  %s", m.Path)
	info(w, "url:      %s", m.URL)
	info(w, "exact:    %t", m.IsExact)

	names := make([]string, 0, len(m.Params))
	for name := range m.Params {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		info(w, "param:    %s=%s", name, m.Params[name])
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
