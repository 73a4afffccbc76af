// Command-line entry point for the PNR parser.
//
// Commands:
//
//	extract  parse reservation text files (or stdin) and print the results
//	trace    show which grammar matched each line of a text
//	serve    run the HTTP API
//	worker   consume OCR submissions from NATS
//
// Settings come from the environment (and an optional .env file); flags
// override them.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pnr_parser/internal/config"
	"pnr_parser/internal/logging"
)

// app carries state shared by every subcommand.
type app struct {
	envFile  string
	logLevel string
	cfg      *config.Config
	logger   *logging.ZapLogger
}

func rootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "pnr_parser",
		Short:         "Extract itineraries and schedule changes from GDS reservation text",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			var files []string
			if a.envFile != "" {
				files = append(files, a.envFile)
			}
			a.cfg = config.Load(files...)
			if cmd.Flags().Changed("log-level") {
				a.cfg.LogLevel = a.logLevel
			}
			a.logger = logging.New(a.cfg.LogLevel)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	// Global flags
	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "Path to a .env file (default: ./.env if present)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	root.AddCommand(
		extractCmd(a),
		traceCmd(a),
		serveCmd(a),
		workerCmd(a),
	)

	return root
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
