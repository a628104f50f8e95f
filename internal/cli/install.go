package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"sitebeep/internal/platform"
)

// InstallCmd registers the host with the browser.
func InstallCmd(opts *Options) *cobra.Command {
	var (
		extensionIDs []string
		execPath     string
	)
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Register the native messaging host with Chrome and Chromium",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if len(extensionIDs) == 0 {
				extensionIDs = cfg.Host.ExtensionIDs
			}
			if execPath == "" {
				execPath, err = os.Executable()
				if err != nil {
					return fmt.Errorf("locate executable: %w", err)
				}
			}
			execPath, err = filepath.Abs(execPath)
			if err != nil {
				return err
			}

			manifest, err := platform.NewHostManifest(cfg.Host.Name, execPath, extensionIDs)
			if err != nil {
				return err
			}
			written, err := platform.NewService().InstallHostManifest(manifest)
			for _, path := range written {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.New(color.FgGreen).Sprint("WROTE"), path)
			}
			return err
		},
	}
	cmd.Flags().StringSliceVar(&extensionIDs, "extension-id", nil, "allowed extension id (repeatable)")
	cmd.Flags().StringVar(&execPath, "path", "", "host executable (default: this binary)")
	return cmd
}

// UninstallCmd removes the browser registration.
func UninstallCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the native messaging host registration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if err := platform.NewService().UninstallHostManifest(cfg.Host.Name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.New(color.FgRed).Sprint("REMOVED"), cfg.Host.Name)
			return nil
		},
	}
}
