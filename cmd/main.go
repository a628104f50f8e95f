package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sitebeep/internal/cli"
)

func main() {
	opts := &cli.Options{}

	rootCmd := &cobra.Command{
		Use:   "sitebeep",
		Short: "Native messaging host for the sitebeep reminder extension",
		Long: `sitebeep plays a periodic reminder cue while an allow-listed site is focused.
The browser extension starts it as a native messaging host; run "sitebeep install"
once to register it.`,
		Args: cobra.ArbitraryArgs,
		// Chrome on Windows appends --parent-window=<handle>.
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		SilenceUsage:       true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.RunHost(cmd.Context(), opts, os.Stdin, os.Stdout)
		},
	}
	rootCmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default $XDG_CONFIG_HOME/sitebeep/config.yml)")
	rootCmd.PersistentFlags().StringVar(&opts.LogDir, "log-dir", "", "log directory (default $SITEBEEP_LOG_PATH or the OS log dir)")
	rootCmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level override")
	rootCmd.PersistentFlags().BoolVar(&opts.Tray, "tray", false, "show a system tray menu while hosting")

	rootCmd.AddCommand(cli.HostCmd(opts))
	rootCmd.AddCommand(cli.StatusCmd(opts))
	rootCmd.AddCommand(cli.InstallCmd(opts))
	rootCmd.AddCommand(cli.UninstallCmd(opts))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
