package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vroute/internal/errors"
	"github.com/vango-dev/vroute/pkg/router"
)

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <pattern> [name=value...]",
		Short: "Generate a path from a pattern",
		Long: `Generate a path by filling a pattern's parameters.

Values are escaped for a path segment. Optional parameters may be left
out; required ones may not.

Examples:
  vroute generate /users/:id id=5
  vroute generate "/files/:path*" path=docs/readme.md
  vroute generate /posts/:slug?`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(args[1:])
			if err != nil {
				return err
			}

			path, err := router.NewMatcher().GeneratePath(args[0], params)
			if err != nil {
				return errors.FromError(err, "E201")
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	return cmd
}

// parseParams reads name=value arguments. A later value for the same name
// wins.
func parseParams(args []string) (router.Params, error) {
	params := make(router.Params, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, errors.New("E140").
				WithDetail(fmt.Sprintf("parameter %q is not name=value", arg))
		}
		params[name] = value
	}
	return params, nil
}
