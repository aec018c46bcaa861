package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/samogod/tunecfg/pkg/config"
	"github.com/samogod/tunecfg/pkg/database"
	"github.com/samogod/tunecfg/pkg/orchestrator"
	"github.com/samogod/tunecfg/pkg/session"
	"github.com/samogod/tunecfg/pkg/validate"
)

var (
	configFile   string
	outputFile   string
	outputFormat string
	paramsFile   string
	assignments  []string
	useEnv       bool
	noValidate   bool
	record       bool
	verbose      bool
)

var Verbose bool

var rootCmd = &cobra.Command{
	Use:   "tunecfg <document|task>",
	Short: "resolve fine-tuning configurations",
	Long:  `resolve layered fine-tuning configurations with explicit parameters into one trainer-ready document`,
	Args:  cobra.MaximumNArgs(1),
	Run:   runResolve,
}

// single-dash spellings of long flags, accepted for convenience
var longFlagAliases = map[string]string{
	"-param":       "--param",
	"-params-file": "--params-file",
	"-env":         "--env",
	"-no-validate": "--no-validate",
	"-record":      "--record",
	"-format":      "--format",
	"-output":      "--output",
	"-config":      "--config",
	"-verbose":     "--verbose",
}

func Execute() {
	os.Args = normalizeArgs(os.Args)

	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func normalizeArgs(args []string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		if long, ok := longFlagAliases[arg]; ok {
			arg = long
		}
		out[i] = arg
	}
	return out
}

// DebugLog writes to stderr so resolved output on stdout stays clean.
func DebugLog(format string, args ...interface{}) {
	if Verbose {
		fmt.Fprintf(os.Stderr, "[DBG] "+format+"\n", args...)
	}
}

func setDebugLogFunctions() {
	config.DebugLog = DebugLog
	orchestrator.DebugLog = DebugLog
	session.DebugLog = DebugLog
	database.DebugLog = DebugLog
}

func enableVerbose() {
	Verbose = verbose
	if verbose {
		setDebugLogFunctions()
	}
}

func newOrchestrator() *orchestrator.Orchestrator {
	enableVerbose()

	orch, err := orchestrator.NewOrchestrator(configFile)
	if err != nil {
		color.Red("Failed to initialize orchestrator: %v", err)
		os.Exit(1)
	}
	return orch
}

func init() {
	rootCmd.SetHelpTemplate(`Usage:
  {{.UseLine}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}

{{if .HasAvailableSubCommands}}Commands:{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

{{end}}Flags:
INPUT:
   document|task              a configuration file, an http(s) url or a bundled task (e.g. ner, ner/luke)

PARAMETERS:
   -p, -param KEY=VALUE       external parameter, repeatable (highest precedence)
   -params-file string        yaml or json file of parameters (lowest precedence)
   -env                       read referenced parameters from the environment

OUTPUT:
   -o, -output string         file to write the resolved configuration to (default: stdout)
   -f, -format string         output format, json or yaml (default: from config)
   -no-validate               skip the trainer shape checks

HISTORY:
   -record                    record the run in the run registry and run index

CONFIGURATION:
   -c, -config string         config file path (default: config/config.yaml)

DEBUG:
   -v, -verbose               enable verbose/debug output on stderr
{{if .HasAvailableSubCommands}}
Use "{{.CommandPath}} [command] --help" for more information about a command.{{end}}
`)

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (default: config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose/debug output on stderr")

	rootCmd.Flags().StringArrayVarP(&assignments, "param", "p", nil, "external parameter KEY=VALUE, repeatable")
	rootCmd.Flags().StringVar(&paramsFile, "params-file", "", "yaml or json file of parameters")
	rootCmd.Flags().BoolVar(&useEnv, "env", false, "read referenced parameters from the environment")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "file to write the resolved configuration to")
	rootCmd.Flags().StringVarP(&outputFormat, "format", "f", "", "output format, json or yaml")
	rootCmd.Flags().BoolVar(&noValidate, "no-validate", false, "skip the trainer shape checks")
	rootCmd.Flags().BoolVar(&record, "record", false, "record the run in the run registry and run index")

	rootCmd.AddCommand(versionCmd)
}

func runResolve(cmd *cobra.Command, args []string) {
	if len(args) == 0 {
		color.Red("Error: a document or task is required")
		cmd.Help()
		os.Exit(1)
	}

	orch := newOrchestrator()
	defer orch.Close()

	DebugLog("resolving %s", args[0])

	result, err := orch.Resolve(orchestrator.ResolveOptions{
		Target:      args[0],
		ParamsFile:  paramsFile,
		UseEnv:      useEnv,
		Environ:     os.Environ(),
		Assignments: assignments,
		Format:      outputFormat,
		NoValidate:  noValidate,
		Record:      record,
	})
	if err != nil {
		for _, line := range errorLines(err) {
			color.Red("%s", line)
		}
		orch.Close()
		os.Exit(1)
	}

	if err := writeOutput(result, outputFile); err != nil {
		color.Red("Output error: %v", err)
		orch.Close()
		os.Exit(1)
	}

	if outputFile != "" {
		color.Green("[INF] Resolved %s to %s (%s) in %v",
			result.Document, outputFile, result.Fingerprint.Encoded()[:12], result.Duration)
	}
}

// errorLines formats a resolution failure, one validation issue per line.
func errorLines(err error) []string {
	var verr *validate.Error
	if errors.As(err, &verr) {
		lines := []string{"Resolution failed: the resolved configuration is invalid"}
		for _, issue := range verr.Issues {
			lines = append(lines, "  "+issue.String())
		}
		return lines
	}
	return []string{fmt.Sprintf("Resolution failed: %v", err)}
}

// writeOutput writes to stdout, or to filename through a temporary file so
// that a failed write never leaves a partial configuration behind.
func writeOutput(result *orchestrator.ResolveResult, filename string) error {
	if filename == "" {
		_, err := os.Stdout.Write(result.Output)
		return err
	}

	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filename)+".*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(result.Output); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write to file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}

	if err := os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}
	return nil
}
