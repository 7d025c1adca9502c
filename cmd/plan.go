package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/manifold/internal/catalog"
	"github.com/papapumpkin/manifold/internal/config"
	"github.com/papapumpkin/manifold/internal/ui"
	"github.com/papapumpkin/manifold/internal/updatecheck"
)

var planCmd = &cobra.Command{
	Use:   "plan NAME[==VERSION]",
	Short: "Show the order an item and its requirements would be installed in",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().StringSlice("catalog", nil, "catalogs to resolve versions in (default: configured, else all)")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	printer := ui.New()
	ix, err := loadIndex(cfg.CatalogsDir, printer)
	if err != nil {
		return err
	}

	catalogs, _ := cmd.Flags().GetStringSlice("catalog")
	if len(catalogs) == 0 {
		catalogs = cfg.Catalogs
	}
	if len(catalogs) == 0 {
		catalogs = ix.Catalogs()
	}

	steps, err := installOrder(ix, args[0], catalogs)
	if err != nil {
		return err
	}
	name, _ := catalog.SplitNameAndVersion(args[0])
	printer.InstallOrder(name, steps)

	dependents, err := updatecheck.Dependents(ix, name)
	if err != nil {
		return err
	}
	if len(dependents) > 0 {
		printer.Detail("required by " + strings.Join(dependents, ", "))
	}
	return nil
}

// installOrder resolves the planned order of entry against catalogs. The
// entry itself keeps any pinned version; requirements resolve to the newest
// visible descriptor.
func installOrder(ix *catalog.Index, entry string, catalogs []string) ([]*catalog.Descriptor, error) {
	order, err := updatecheck.Plan(ix, entry)
	if err != nil {
		return nil, err
	}
	name, _ := catalog.SplitNameAndVersion(entry)

	steps := make([]*catalog.Descriptor, 0, len(order))
	for _, n := range order {
		lookup := n
		if n == name {
			lookup = entry
		}
		d, err := ix.Resolve(lookup, catalogs)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", lookup, err)
		}
		steps = append(steps, d)
	}
	return steps, nil
}
