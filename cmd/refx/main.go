package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/refx/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

// globalFlags are shared by every command.
type globalFlags struct {
	dir       string
	logLevel  string
	logFormat string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "refx",
		Short: "Compile, render and preview refx templates",
		Long: `refx binds live values into markup built from literal text.

Template files are markup with ${...} placeholders. The refx tool
checks them, renders them headlessly and serves a live preview:

  • check   report every binding site, or the first error
  • render  print the hydrated markup
  • serve   host the template behind a websocket preview`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.dir, "dir", "C", ".", "Directory to search for refx.{json,yaml,yml,toml}")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", "", "Log format (text, json)")

	rootCmd.AddCommand(
		checkCmd(flags),
		renderCmd(flags),
		serveCmd(flags),
		versionCmd(),
	)
	return rootCmd
}

// success prints a success message.
func success(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.ErrOrStderr(), "\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
