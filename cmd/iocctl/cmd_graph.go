package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	ioc "github.com/plumeink/cullinan-ioc"
	"github.com/plumeink/cullinan-ioc/config"
	"github.com/plumeink/cullinan-ioc/internal/demo"
)

var graphJSON bool

// iocctl graph: print definitions, eager order and declared dependencies.
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the demo definitions and their eager initialization order",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load(envFiles...)
		app, err := demo.Build(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
		if err != nil {
			return err
		}
		return printGraph(cmd.OutOrStdout(), app, graphJSON)
	},
}

func init() {
	graphCmd.Flags().BoolVar(&graphJSON, "json", false, "print JSON instead of a table")
}

type graphReport struct {
	Definitions []ioc.DefinitionInfo `json:"definitions"`
	EagerOrder  []string             `json:"eager_order"`
	Edges       map[string][]string  `json:"edges"`
}

func printGraph(out io.Writer, app *ioc.ApplicationContext, asJSON bool) error {
	order, err := app.EagerOrder()
	if err != nil {
		return err
	}
	report := graphReport{
		Definitions: app.Definitions(),
		EagerOrder:  order,
		Edges:       app.DependencyGraph(),
	}
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "NAME\tSCOPE\tEAGER\tPHASE\tACTIVE\tDEPENDS ON")
	fmt.Fprintln(w, "----\t-----\t-----\t-----\t------\t----------")
	for _, d := range report.Definitions {
		fmt.Fprintf(w, "%s\t%s\t%t\t%d\t%t\t%s\n",
			d.Name, d.Scope, d.Eager, d.Phase, app.Has(d.Name), strings.Join(report.Edges[d.Name], ", "))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "\neager order: %s\n", strings.Join(order, " -> "))
	return err
}
