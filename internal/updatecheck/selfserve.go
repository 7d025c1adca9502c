package updatecheck

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/papapumpkin/manifold/internal/catalog"
	"github.com/papapumpkin/manifold/internal/ledger"
)

// SelfServe holds the user's self-service choices. Only names offered in
// optional_installs are honoured.
type SelfServe struct {
	Installs   []string `toml:"managed_installs"`
	Uninstalls []string `toml:"managed_uninstalls"`
}

// LoadSelfServe reads a self-serve selections file. A missing file means no
// selections.
func LoadSelfServe(path string) (SelfServe, error) {
	var s SelfServe
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("reading self-serve manifest: %w", err)
	}
	if err := toml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parsing self-serve manifest %s: %w", path, err)
	}
	return s, nil
}

// CleanSelfServeUninstalls drops from the self-serve file at path every
// uninstall selection that info shows as already gone: processed for
// removal, not left in removals, and not failed or skipped. It returns the
// names dropped. The file is rewritten only when something was dropped.
func CleanSelfServeUninstalls(path string, info ledger.Info) ([]string, error) {
	sel, err := LoadSelfServe(path)
	if err != nil || len(sel.Uninstalls) == 0 {
		return nil, err
	}

	gone := alreadyRemoved(info)
	var kept, dropped []string
	for _, entry := range sel.Uninstalls {
		if name, _ := catalog.SplitNameAndVersion(entry); gone[name] {
			dropped = append(dropped, entry)
			continue
		}
		kept = append(kept, entry)
	}
	if len(dropped) == 0 {
		return nil, nil
	}

	sel.Uninstalls = kept
	data, err := toml.Marshal(sel)
	if err != nil {
		return nil, fmt.Errorf("marshaling self-serve manifest: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing temp self-serve manifest: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("renaming self-serve manifest: %w", err)
	}
	return dropped, nil
}

func alreadyRemoved(info ledger.Info) map[string]bool {
	pending := make(map[string]bool)
	for _, it := range info.Removals {
		pending[it.Name] = true
	}
	for _, f := range info.Failures {
		if f.Side == ledger.SideUninstall {
			pending[f.Name] = true
		}
	}
	gone := make(map[string]bool)
	for _, name := range info.ProcessedUninstalls {
		if !pending[name] {
			gone[name] = true
		}
	}
	return gone
}

// selfServe installs and removes the user's selections. Manifest
// default_installs join the installs unless the user already chose to
// remove them.
func (e *Engine) selfServe(m *Manifest, sel SelfServe, l *ledger.Ledger) error {
	defaults, err := e.collect(m, KeyDefaultInstalls)

	removing := make(map[string]bool, len(sel.Uninstalls))
	for _, entry := range sel.Uninstalls {
		name, _ := catalog.SplitNameAndVersion(entry)
		removing[name] = true
	}
	installs := append([]string(nil), sel.Installs...)
	chosen := make(map[string]bool, len(installs))
	for _, entry := range installs {
		name, _ := catalog.SplitNameAndVersion(entry)
		chosen[name] = true
	}
	for _, entry := range defaults {
		name, _ := catalog.SplitNameAndVersion(entry)
		if !chosen[name] && !removing[name] {
			chosen[name] = true
			installs = append(installs, entry)
		}
	}

	available := make(map[string]ledger.Item)
	for _, it := range l.AvailableOptional() {
		available[it.Name] = it
	}

	for _, entry := range installs {
		name, _ := catalog.SplitNameAndVersion(entry)
		it, ok := available[name]
		switch {
		case !ok:
			e.reporter.Report(Event{Level: LevelWarning, Name: name, Message: name + " is not offered in optional_installs"})
		case it.Note != "":
			e.reporter.Report(Event{Level: LevelWarning, Name: name, Message: fmt.Sprintf("%s cannot be installed: %s", name, it.Note)})
		default:
			e.install(entry, m.Catalogs, l, ModeOptional)
		}
	}
	for _, entry := range sel.Uninstalls {
		name, _ := catalog.SplitNameAndVersion(entry)
		if _, ok := available[name]; !ok {
			e.reporter.Report(Event{Level: LevelWarning, Name: name, Message: name + " is not offered in optional_installs"})
			continue
		}
		e.ProcessUninstall(entry, m.Catalogs, l)
	}
	return err
}
