package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/manifold/internal/config"
	"github.com/papapumpkin/manifold/internal/ledger"
	"github.com/papapumpkin/manifold/internal/ui"
	"github.com/papapumpkin/manifold/internal/updatecheck"
)

var showCmd = &cobra.Command{
	Use:   "show [NAME...]",
	Short: "Summarize the InstallInfo written by the last check",
	Long: `Without arguments, prints the lists saved by the last completed check.
With item names, prints what that check decided for each of them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		info, err := ledger.LoadInfo(cfg.ManagedInstallsDir)
		if err != nil {
			return err
		}

		printer := ui.New()
		if len(args) > 0 {
			showDecisions(printer, *info, args)
			return nil
		}
		printer.Summary(*info)
		printer.Result(updatecheck.ResultFor(*info))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}

// showDecisions prints the recorded install and removal decisions for each
// name, rebuilt from a saved InstallInfo.
func showDecisions(printer *ui.Printer, info ledger.Info, names []string) {
	printer.SetVerbose(true)
	l := ledger.FromInfo(info)
	for _, name := range names {
		found := false
		if r, ok := l.InstallRecord(name); ok {
			found = true
			printer.Report(decisionEvent(r, ledger.SideInstall))
		}
		if r, ok := l.UninstallRecord(name); ok {
			found = true
			printer.Report(decisionEvent(r, ledger.SideUninstall))
		}
		if !found {
			printer.Warning(name + " was not processed by the last check")
		}
	}
}

func decisionEvent(r ledger.Record, side ledger.Side) updatecheck.Event {
	return updatecheck.Event{
		Level:   updatecheck.LevelInfo,
		Name:    r.Name,
		Side:    side,
		Outcome: r.Outcome,
		Reason:  r.Reason,
	}
}
