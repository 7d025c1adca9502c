package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/manifold/internal/catalog"
	"github.com/papapumpkin/manifold/internal/config"
	"github.com/papapumpkin/manifold/internal/fetch"
	"github.com/papapumpkin/manifold/internal/installed"
	"github.com/papapumpkin/manifold/internal/ledger"
	"github.com/papapumpkin/manifold/internal/telemetry"
	"github.com/papapumpkin/manifold/internal/ui"
	"github.com/papapumpkin/manifold/internal/updatecheck"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check for software to install, update, and remove",
	Long: `Processes the client's manifest against the repository catalogs and writes
InstallInfo.toml into the managed installs directory.

The exit status is 0 when nothing needs doing, 2 when updates are available,
and 1 when the check could not start or finished with errors.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().Bool("walk-installed-dependencies", false, "also process requirements of items that are already installed")
	checkCmd.Flags().Bool("no-telemetry", false, "do not append events to the telemetry file")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("walk-installed-dependencies") {
		cfg.WalkInstalledDependencies, _ = cmd.Flags().GetBool("walk-installed-dependencies")
	}
	noTelemetry, _ := cmd.Flags().GetBool("no-telemetry")

	printer := ui.New()
	printer.SetVerbose(cfg.Verbose)

	var emitter *telemetry.Emitter
	if !noTelemetry {
		emitter, err = openEmitter(cfg.TelemetryPath)
		if err != nil {
			printer.Warning(err.Error())
		}
	}

	ctx, cancel := setupSignalContext(printer)
	result, err := checkClient(ctx, cfg, printer, emitter)
	cancel()
	if cerr := emitter.Close(); cerr != nil {
		printer.Warning(cerr.Error())
	}
	if err != nil {
		return err
	}
	printer.Result(result)

	if code := exitCode(result); code != 0 {
		os.Exit(code)
	}
	return nil
}

func exitCode(r updatecheck.Result) int {
	switch {
	case r == updatecheck.ResultUpdatesAvailable:
		return 2
	case r < 0:
		return 1
	default:
		return 0
	}
}

// checkClient runs one update check for cfg. A completed run saves its
// InstallInfo, drops self-serve uninstalls that are done, and prunes the
// download cache; a failed or stopped run leaves all three untouched. Errors
// are returned only for problems that prevent the check from starting or
// its result from being saved.
func checkClient(ctx context.Context, cfg config.Config, printer *ui.Printer, emitter *telemetry.Emitter) (updatecheck.Result, error) {
	ix, err := loadIndex(cfg.CatalogsDir, printer)
	if err != nil {
		return updatecheck.ResultDidntStart, err
	}

	manifests := updatecheck.DirSource(cfg.ManifestsDir)
	m, err := manifests.Manifest(cfg.ClientIdentifier)
	if err != nil {
		return updatecheck.ResultDidntStart, fmt.Errorf("loading manifest: %w", err)
	}
	if len(cfg.Catalogs) > 0 {
		m.Catalogs = cfg.Catalogs
	}

	run := updatecheck.Run{Manifest: m}
	if cfg.LocalOnlyManifest != "" {
		lo, err := updatecheck.LoadManifest(cfg.LocalOnlyManifest)
		if err != nil {
			printer.Warning(err.Error())
		} else {
			run.LocalOnly = lo
		}
	}
	if run.SelfServe, err = updatecheck.LoadSelfServe(cfg.SelfServePath()); err != nil {
		printer.Warning(err.Error())
	}

	db, err := installed.LoadDB(cfg.ReceiptsPath)
	if err != nil {
		return updatecheck.ResultDidntStart, err
	}
	repo, err := fetch.NewRepo(fetch.RepoOptions{
		RepoURL:  cfg.RepoURL,
		CacheDir: cfg.CacheDir(),
		Timeout:  cfg.FetchTimeout,
	})
	if err != nil {
		return updatecheck.ResultDidntStart, err
	}

	engine := updatecheck.NewEngine(ix, repo,
		updatecheck.WithQuerier(db),
		updatecheck.WithReporter(updatecheck.MultiReporter{printer, emitter}),
		updatecheck.WithManifestSource(manifests),
		updatecheck.WithWalkInstalledDependencies(cfg.WalkInstalledDependencies),
	)

	_ = emitter.RunStart(m.Name, m.Catalogs)
	result, info := engine.Check(ctx, run, ledger.New())
	_ = emitter.RunDone(result, listCounts(info))

	if result < 0 || ctx.Err() != nil {
		printer.Warning("check did not complete; keeping the previous " + ledger.InfoFileName)
		return result, nil
	}

	changed, err := ledger.SaveInfo(cfg.ManagedInstallsDir, info)
	if err != nil {
		return updatecheck.ResultFinishedWithErrors, err
	}
	if changed {
		printer.Detail("wrote " + filepath.Join(cfg.ManagedInstallsDir, ledger.InfoFileName))
	}

	dropped, err := updatecheck.CleanSelfServeUninstalls(cfg.SelfServePath(), info)
	if err != nil {
		printer.Warning(err.Error())
	}
	for _, entry := range dropped {
		printer.Detail("removed " + entry + " from self-serve uninstalls")
	}

	pruned, err := repo.Prune(cacheKeep(info))
	if err != nil {
		printer.Warning(err.Error())
	}
	for _, name := range pruned {
		printer.Detail("removed " + name + " from cache")
	}
	return result, nil
}

// cacheKeep lists the installer items a finalized InstallInfo still needs.
func cacheKeep(info ledger.Info) []string {
	var keep []string
	for _, list := range [][]ledger.Item{info.ManagedInstalls, info.ManagedUpdates, info.OptionalInstalls, info.ProblemItems} {
		for _, it := range list {
			if it.InstallerItem != "" {
				keep = append(keep, it.InstallerItem)
			}
		}
	}
	return keep
}

// loadIndex reads the catalogs directory and builds the index, reporting
// descriptors the index rejected.
func loadIndex(dir string, printer *ui.Printer) (*catalog.Index, error) {
	descs, err := catalog.LoadDir(dir)
	if err != nil {
		return nil, err
	}
	ix, problems := catalog.NewIndex(descs)
	for _, p := range problems {
		printer.Warning(p.Error())
	}
	return ix, nil
}

func openEmitter(path string) (*telemetry.Emitter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	return telemetry.NewEmitter(path)
}

func listCounts(info ledger.Info) map[string]int {
	return map[string]int{
		"managed_installs":  len(info.ManagedInstalls),
		"managed_updates":   len(info.ManagedUpdates),
		"optional_installs": len(info.OptionalInstalls),
		"removals":          len(info.Removals),
		"problem_items":     len(info.ProblemItems),
	}
}

// setupSignalContext returns a context that is canceled on SIGINT or SIGTERM.
func setupSignalContext(printer *ui.Printer) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			printer.Info("\nstopping after the current stage...")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}
