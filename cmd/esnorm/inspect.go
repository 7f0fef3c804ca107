package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"entrysummary/internal/audit"
	"entrysummary/internal/parser"
)

func newInspectCommand() *cobra.Command {
	var keepNumeric bool
	cmd := &cobra.Command{
		Use:   "inspect <result.json>",
		Short: "Show how an extraction result is recognized and expanded, without writing files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			entry, shape, err := parser.NormalizeJSON(data)
			if err != nil {
				return err
			}
			expander := parser.NewExpander(parser.WithItemFilter(parser.NoiseFilter(keepNumeric)))
			rows, expand := expander.ExpandWithReport(entry)
			opts := audit.DefaultOptions()
			opts.Schema = expander.Schema()

			report := struct {
				Shape      parser.ShapeReport  `json:"shape"`
				Expand     parser.ExpandReport `json:"expand"`
				Validation *audit.Report       `json:"validation"`
			}{shape, expand, audit.Validate(entry, rows, opts)}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().BoolVar(&keepNumeric, "keep-numeric-lines", true, "Keep items whose line number is numeric even without value or HTS code")
	return cmd
}

func newColumnsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "columns",
		Short: "Print the output column header in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cols := parser.NewExpander().Schema().Columns()
			_, err := fmt.Fprintln(cmd.OutOrStdout(), strings.Join(cols, "\n"))
			return err
		},
	}
}
