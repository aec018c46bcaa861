package cmd

import (
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/samogod/tunecfg/pkg/tasks"
)

var tasksReadme bool

var tasksCmd = &cobra.Command{
	Use:   "tasks [task]",
	Short: "List the bundled task configurations",
	Long:  `List the bundled task configurations with the parameters each one requires, or show the documentation of one task`,
	Args:  cobra.MaximumNArgs(1),
	Run:   runTasks,
}

func init() {
	tasksCmd.Flags().BoolVar(&tasksReadme, "readme", false, "show the documentation of the given task")
	rootCmd.AddCommand(tasksCmd)
}

func runTasks(cmd *cobra.Command, args []string) {
	if tasksReadme {
		if len(args) == 0 {
			color.Red("Error: --readme requires a task name")
			cmd.Help()
			os.Exit(1)
		}
		readme, err := tasks.Readme(args[0])
		if err != nil {
			color.Red("Error: %v", err)
			os.Exit(1)
		}
		os.Stdout.WriteString(readme)
		return
	}

	orch := newOrchestrator()
	defer orch.Close()

	infos, err := orch.Tasks()
	if err != nil {
		color.Red("Failed to list tasks: %v", err)
		orch.Close()
		os.Exit(1)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"TASK", "DOCUMENT", "PARAMETERS"})
	for _, info := range infos {
		if len(args) == 1 && info.Name != args[0] {
			continue
		}
		for _, doc := range info.Documents {
			t.AppendRow(table.Row{info.Name, doc.Path, strings.Join(doc.Parameters, "\n")})
		}
		t.AppendSeparator()
	}
	t.Render()
}
