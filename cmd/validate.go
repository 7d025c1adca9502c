package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/manifold/internal/catalog"
	"github.com/papapumpkin/manifold/internal/config"
	"github.com/papapumpkin/manifold/internal/ui"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the catalogs for malformed items and broken references",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		descs, err := catalog.LoadDir(cfg.CatalogsDir)
		if err != nil {
			return err
		}

		ix, errs := catalog.NewIndex(descs)
		errs = append(errs, catalog.Validate(ix)...)
		ui.New().ValidateResult(ix.Len(), errs)

		for _, e := range errs {
			if e.Category.Rejects() {
				os.Exit(1)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
