package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"sitebeep/internal/config"
	"sitebeep/internal/control"
	"sitebeep/internal/core/beeper"
	"sitebeep/internal/core/model"
	"sitebeep/internal/storage"
)

// StatusCmd prints the persisted reminder state.
func StatusCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored reminder state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			store, err := storage.Open(cfg.Store.Backend, cfg.StateDir())
			if err != nil {
				return err
			}
			defer store.Close()

			prefs, err := store.CurrentState()
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), cfg, prefs, time.Now())
			return nil
		},
	}
}

func printStatus(out io.Writer, cfg config.Config, prefs model.Preferences, now time.Time) {
	status := beeper.Status{
		Active:      prefs.Active,
		Volume:      prefs.Volume,
		Suppression: prefs.Suppression,
	}
	state := control.Describe(status, now)

	var label string
	switch {
	case state == "active":
		label = color.New(color.FgGreen).Sprint(state)
	case prefs.Suppression.ActiveAt(now):
		label = color.New(color.FgYellow).Sprint(state)
	default:
		label = color.New(color.FgRed).Sprint(state)
	}

	fmt.Fprintf(out, "State:   %s\n", label)
	fmt.Fprintf(out, "Volume:  %d%%\n", prefs.Volume)
	fmt.Fprintf(out, "Store:   %s (%s)\n", cfg.Store.Backend, cfg.StateDir())
	fmt.Fprintf(out, "Sink:    %s\n", cfg.Audio.Sink)
	if len(prefs.URLList) == 0 {
		fmt.Fprintf(out, "Sites:   %s\n", color.New(color.FgYellow).Sprint("(none)"))
		return
	}
	fmt.Fprintln(out, "Sites:")
	for _, site := range prefs.URLList {
		fmt.Fprintf(out, "  - %s\n", site)
	}
}
