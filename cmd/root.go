// Package cmd implements the gpudc-sim command line: a Cobra root command
// with a single "serve" subcommand (spec.md §6, SPEC_FULL.md §4.17).
package cmd

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logLevel string
	logFile  string
)

var rootCmd = &cobra.Command{
	Use:   "gpudc-sim",
	Short: "Discrete-time simulator and evaluation harness for a GPU data centre",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

		if logFile != "" {
			rotated := &lumberjack.Logger{
				Filename:   logFile,
				MaxSize:    100,
				MaxBackups: 5,
				MaxAge:     28,
				Compress:   true,
			}
			logrus.SetOutput(io.MultiWriter(os.Stderr, rotated))
		}
	},
}

// Execute runs the root command, exiting 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Optional path to mirror logs to, rotated at 100MB/5 backups/28 days")
	rootCmd.AddCommand(serveCmd)
}
