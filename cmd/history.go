package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/samogod/tunecfg/pkg/database"
	"github.com/samogod/tunecfg/pkg/orchestrator"
)

var (
	historyAll    bool
	historyExport string
	historyImport string
)

var historyCmd = &cobra.Command{
	Use:   "history [document|task]",
	Short: "Query the run registry",
	Long:  `Query recorded resolutions for a document or for all documents, export them as JSON lines, or load an export into the run index`,
	Args:  cobra.MaximumNArgs(1),
	Run:   runHistory,
}

func init() {
	historyCmd.Flags().BoolVar(&historyAll, "all", false, "query all documents")
	historyCmd.Flags().StringVar(&historyExport, "export", "", "write the queried runs to a JSON lines file")
	historyCmd.Flags().StringVar(&historyImport, "import", "", "load a JSON lines export into the run index")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	if historyImport != "" {
		if historyAll || len(args) > 0 || historyExport != "" {
			color.Red("Error: --import cannot be combined with other history options")
			os.Exit(1)
		}
		orch := newOrchestrator()
		defer orch.Close()

		if _, err := orch.ImportHistory(historyImport); err != nil {
			color.Red("Failed to import history: %v", err)
			orch.Close()
			os.Exit(1)
		}
		return
	}

	if !historyAll && len(args) == 0 {
		color.Red("Error: either provide a document or use --all flag")
		cmd.Help()
		os.Exit(1)
	}

	if historyAll && len(args) > 0 {
		color.Red("Error: cannot use both document and --all flag together")
		cmd.Help()
		os.Exit(1)
	}

	orch := newOrchestrator()
	defer orch.Close()

	target := ""
	if len(args) > 0 {
		target = args[0]
	}

	runs, err := orch.History(target)
	if err != nil {
		color.Red("Failed to query run registry: %v", err)
		orch.Close()
		os.Exit(1)
	}

	if len(runs) == 0 {
		if target != "" {
			color.Yellow("[INF] Document %s not found in run registry.", target)
		} else {
			color.Yellow("[INF] Run registry is empty.")
		}
		return
	}

	if historyExport != "" {
		if err := exportHistory(historyExport, runs); err != nil {
			color.Red("Failed to export history: %v", err)
			orch.Close()
			os.Exit(1)
		}
		color.Green("[INF] Exported %d run(s) to %s", len(runs), historyExport)
		return
	}

	printRuns(runs)
}

func exportHistory(filename string, runs []database.RunRecord) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := orchestrator.ExportHistory(file, runs); err != nil {
		return err
	}
	return file.Close()
}

func printRuns(runs []database.RunRecord) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, color.CyanString("DOCUMENT\tFINGERPRINT\tCOUNT\tFIRST_RESOLVED\tLAST_RESOLVED\tPARAMETERS"))
	fmt.Fprintln(w, strings.Repeat("-", 120))

	for _, r := range runs {
		countColor := color.YellowString
		if r.ResolveCount > 1 {
			countColor = color.GreenString
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Document,
			shortFingerprint(r.Fingerprint),
			countColor("%d", r.ResolveCount),
			r.FirstResolved.Format("2006-01-02 15:04:05"),
			r.LastResolved.Format("2006-01-02 15:04:05"),
			formatParameters(r.Parameters),
		)
	}
	w.Flush()

	color.Green("\nTotal records: %d", len(runs))
}

// shortFingerprint trims a digest to its algorithm and first 12 hex digits.
func shortFingerprint(fp string) string {
	algo, hex, ok := strings.Cut(fp, ":")
	if !ok || len(hex) <= 12 {
		return fp
	}
	return algo + ":" + hex[:12]
}

func formatParameters(p map[string]string) string {
	if len(p) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + p[k]
	}
	return strings.Join(parts, " ")
}
