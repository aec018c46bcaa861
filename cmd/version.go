package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const (
	Version   = "1.0.0"
	BuildDate = "2025-11-20"
	Author    = "samogod"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  "Display version, build date, and author information for tunecfg",
	Run: func(cmd *cobra.Command, args []string) {
		printBanner()
		printVersionInfo()
	},
}

func printBanner() {
	banner := color.CyanString("tunecfg") + color.HiBlackString("  @samogod")
	info := color.HiBlackString("layered fine-tuning configuration resolver")
	fmt.Println(banner)
	fmt.Println(info)
	fmt.Println()
}

func printVersionInfo() {
	color.Green("Current Version:    %s", Version)
	color.Green("Build Date:         %s", BuildDate)
	fmt.Println()
}
