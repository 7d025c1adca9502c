// Package ui renders update-check progress and results for a terminal.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/papapumpkin/manifold/internal/ansi"
	"github.com/papapumpkin/manifold/internal/catalog"
	"github.com/papapumpkin/manifold/internal/ledger"
	"github.com/papapumpkin/manifold/internal/updatecheck"
)

// Printer writes human-readable output. Color is used only when the
// destination is a terminal.
type Printer struct {
	w       io.Writer
	color   bool
	verbose bool
}

// New returns a Printer on stderr, colored when stderr is a terminal.
func New() *Printer {
	fd := os.Stderr.Fd()
	return NewWriter(os.Stderr, isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd))
}

// NewWriter returns a Printer on w.
func NewWriter(w io.Writer, color bool) *Printer {
	return &Printer{w: w, color: color}
}

// SetVerbose controls whether detail-level events are shown.
func (p *Printer) SetVerbose(v bool) { p.verbose = v }

func (p *Printer) paint(s string, codes ...string) string {
	return ansi.Paint(p.color, s, codes...)
}

// Error prints msg as an error.
func (p *Printer) Error(msg string) {
	fmt.Fprintf(p.w, "%s%s\n", p.paint("error: ", ansi.Red, ansi.Bold), msg)
}

// Warning prints msg as a warning.
func (p *Printer) Warning(msg string) {
	fmt.Fprintf(p.w, "%s%s\n", p.paint("warning: ", ansi.Yellow, ansi.Bold), msg)
}

// Info prints msg as-is.
func (p *Printer) Info(msg string) {
	fmt.Fprintln(p.w, msg)
}

// Detail prints msg dimmed. Callers decide whether detail is wanted.
func (p *Printer) Detail(msg string) {
	fmt.Fprintln(p.w, p.paint(msg, ansi.Dim))
}

// Report implements updatecheck.Reporter.
func (p *Printer) Report(ev updatecheck.Event) {
	if ev.IsDecision() {
		p.decision(ev)
		return
	}
	switch ev.Level {
	case updatecheck.LevelError:
		p.Error(ev.Message)
	case updatecheck.LevelWarning:
		p.Warning(ev.Message)
	case updatecheck.LevelInfo:
		p.Info(ev.Message)
	default:
		if p.verbose {
			p.Detail(ev.Message)
		}
	}
}

func (p *Printer) decision(ev updatecheck.Event) {
	var symbol, color string
	switch ev.Outcome {
	case ledger.OutcomeInstalled, ledger.OutcomeRemoved:
		symbol, color = "+", ansi.Green
	case ledger.OutcomeAlreadyInstalled, ledger.OutcomeAlreadyRemoved:
		if !p.verbose {
			return
		}
		symbol, color = "=", ansi.Dim
	case ledger.OutcomeSkipped:
		symbol, color = "-", ansi.Yellow
	default:
		symbol, color = "✗", ansi.Red
	}
	side := ""
	if ev.Side == ledger.SideUninstall {
		side = " (removal)"
	}
	line := fmt.Sprintf("  %s %-24s %s%s", symbol, ev.Name, ev.Outcome, side)
	if ev.Reason != nil {
		line += ": " + ev.Reason.Error()
	}
	fmt.Fprintln(p.w, p.paint(line, color))
}

// ValidateResult prints the outcome of catalog validation.
func (p *Printer) ValidateResult(itemCount int, errs []catalog.ValidationError) {
	if len(errs) == 0 {
		fmt.Fprintf(p.w, "%s — %d item(s), no errors\n", p.paint("✓ catalogs", ansi.Green, ansi.Bold), itemCount)
		return
	}
	fmt.Fprintf(p.w, "%s — %d problem(s):\n", p.paint("✗ catalogs", ansi.Red, ansi.Bold), len(errs))
	for _, e := range errs {
		mark := p.paint("•", ansi.Yellow)
		if e.Category.Rejects() {
			mark = p.paint("•", ansi.Red)
		}
		fmt.Fprintf(p.w, "  %s [%s] %s\n", mark, e.Category, e.Error())
	}
}

// InstallOrder prints the requirements of name in the order they would be
// installed.
func (p *Printer) InstallOrder(name string, steps []*catalog.Descriptor) {
	fmt.Fprintln(p.w, p.paint("install order for "+name, ansi.Bold, ansi.Cyan))
	for i, d := range steps {
		req := ""
		if len(d.Requires) > 0 {
			req = p.paint(" requires "+strings.Join(d.Requires, ", "), ansi.Dim)
		}
		fmt.Fprintf(p.w, "  %2d. %-24s %-12s %8s%s\n", i+1, d.Name, d.Version, size(d.InstallerItemSize), req)
	}
}

// Summary prints a finalized InstallInfo.
func (p *Printer) Summary(info ledger.Info) {
	p.section("managed installs", info.ManagedInstalls)
	p.section("managed updates", info.ManagedUpdates)
	p.section("optional installs", info.OptionalInstalls)
	p.section("removals", info.Removals)
	p.section("problem items", info.ProblemItems)

	if len(info.FeaturedItems) > 0 {
		fmt.Fprintf(p.w, "%s %s\n", p.paint("featured:", ansi.Bold), strings.Join(info.FeaturedItems, ", "))
	}
	if len(info.Failures) > 0 {
		fmt.Fprintln(p.w, p.paint("failures:", ansi.Bold, ansi.Red))
		for _, f := range info.Failures {
			fmt.Fprintf(p.w, "  %s %s (%s): %s\n", p.paint("✗", ansi.Red), f.Name, f.Side, f.Reason)
		}
	}
}

func (p *Printer) section(title string, items []ledger.Item) {
	if len(items) == 0 {
		return
	}
	var total int64
	for _, it := range items {
		total += it.Size
	}
	fmt.Fprintf(p.w, "%s %s\n", p.paint(title+":", ansi.Bold), p.paint(fmt.Sprintf("(%d, %s)", len(items), size(total)), ansi.Dim))
	for _, it := range items {
		label := it.Name
		if it.DisplayName != "" {
			label = it.DisplayName
		}
		line := fmt.Sprintf("  %-28s %-12s %8s", label, it.Version, size(it.Size))
		if it.Note != "" {
			line += "  " + p.paint(it.Note, ansi.Yellow)
		}
		fmt.Fprintln(p.w, line)
	}
}

// Result prints the run's final status line.
func (p *Printer) Result(r updatecheck.Result) {
	switch r {
	case updatecheck.ResultUpdatesAvailable:
		fmt.Fprintln(p.w, p.paint("✓ updates available", ansi.Green, ansi.Bold))
	case updatecheck.ResultNoUpdatesAvailable:
		fmt.Fprintln(p.w, p.paint("✓ no updates available", ansi.Green))
	default:
		fmt.Fprintln(p.w, p.paint("✗ "+strings.ReplaceAll(r.String(), "_", " "), ansi.Red, ansi.Bold))
	}
}

// size formats a size in kilobytes.
func size(kb int64) string {
	if kb <= 0 {
		return "-"
	}
	return humanize.IBytes(uint64(kb) * 1024)
}
