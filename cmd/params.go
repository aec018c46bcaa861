package cmd

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/samogod/tunecfg/pkg/orchestrator"
	"github.com/samogod/tunecfg/pkg/params"
)

var paramsCmd = &cobra.Command{
	Use:   "params <document|task>",
	Short: "List the external parameters a configuration requires",
	Long:  `List the external parameters a configuration reads, through its imports and variables, and flag likely misspellings`,
	Args:  cobra.ExactArgs(1),
	Run:   runParams,
}

func init() {
	rootCmd.AddCommand(paramsCmd)
}

func runParams(cmd *cobra.Command, args []string) {
	orch := newOrchestrator()
	defer orch.Close()

	report, err := orch.References(args[0])
	if err != nil {
		color.Red("Failed to read parameters: %v", err)
		orch.Close()
		os.Exit(1)
	}

	renderParameters(report, os.Stdout)

	for _, m := range report.Suspicious {
		color.Yellow("[WARN] %s is one edit away from %s; each name is resolved on its own", m.Name, m.Similar)
	}
}

func renderParameters(report *orchestrator.ParameterReport, out io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetTitle(report.Document)
	t.AppendHeader(table.Row{"PARAMETER", "DESCRIPTION"})
	for _, name := range report.Parameters {
		description, ok := params.Known[name]
		if !ok {
			description = "-"
		}
		t.AppendRow(table.Row{name, description})
	}
	t.AppendFooter(table.Row{"TOTAL", len(report.Parameters)})
	t.Render()
}
