package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vroute/internal/errors"
)

func explainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explain [code]",
		Short: "Describe error codes",
		Long: `Describe a registered error code, or list every code.

Examples:
  vroute explain
  vroute explain E204`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				codes := errors.GetAllCodes()
				slices.Sort(codes)
				for _, code := range codes {
					t, _ := errors.GetTemplate(code)
					fmt.Fprintf(out, "%s  %-8s %s\n", code, t.Category, t.Message)
				}
				return nil
			}

			code := strings.ToUpper(args[0])
			t, ok := errors.GetTemplate(code)
			if !ok {
				return errors.New("E140").WithDetail(fmt.Sprintf("unknown error code %q", args[0])).
					WithSuggestion("Run 'vroute explain' to list the codes")
			}
			fmt.Fprintf(out, "%s: %s\n\n", code, t.Message)
			if t.Detail != "" {
				fmt.Fprintf(out, "%s\n\n", t.Detail)
			}
			fmt.Fprintf(out, "Category: %s\n", t.Category)
			fmt.Fprintf(out, "Docs:     %s\n", t.DocURL)
			return nil
		},
	}

	return cmd
}
