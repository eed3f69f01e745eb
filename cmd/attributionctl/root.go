package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	format string
}

var rootCmd = &cobra.Command{
	Use:   "attributionctl",
	Short: "Operate the sponsorship attribution pipeline",
	Long:  "attributionctl imports campaigns, triggers attribution recomputes\nand prints campaign ROI straight from the attribution stores.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.format, "format", "table", "Output format: table or markdown")

	rootCmd.AddCommand(recomputeCmd)
	rootCmd.AddCommand(roiCmd)
	rootCmd.AddCommand(campaignsCmd)
	rootCmd.Version = version
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
