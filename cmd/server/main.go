package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rl1809/guild-bag/internal/config"
	"github.com/rl1809/guild-bag/internal/logging"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

type rootOptions struct {
	configFile string
	verbose    bool
	jsonOutput bool

	cfg config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "guildbag",
		Short:         "Shared inventory bot for a tabletop guild",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configFile)
			if err != nil {
				return err
			}
			if opts.verbose {
				cfg.Log.Level = "debug"
			}
			if opts.jsonOutput {
				cfg.Log.Format = "json"
			}
			logging.Configure(cfg.Log)
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "Path to a guildbag.yml or .toml config file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Output in JSON format")

	cmd.AddCommand(
		newServeCmd(opts),
		newConsoleCmd(opts),
		newExecCmd(opts),
		newSendCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of guildbag",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "guildbag %s\n", version)
			fmt.Fprintf(out, "  Commit:    %s\n", commit)
			fmt.Fprintf(out, "  Built:     %s\n", buildDate)
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logging.NewLogger("cli").WithError(err).Error("command failed")
		os.Exit(1)
	}
}
