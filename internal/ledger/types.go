// Package ledger holds the per-run record of install and removal decisions.
// The ledger doubles as the memo table and cycle guard for recursive install
// processing: a name is claimed before its requirements are walked and keeps
// its terminal outcome for the rest of the run.
//
// A Ledger is not safe for concurrent mutation; it is owned by the single
// goroutine walking the requires graph.
package ledger

// Outcome is the terminal decision recorded for a name.
type Outcome string

const (
	// OutcomeInstalled means the payload was acquired and the item scheduled.
	OutcomeInstalled Outcome = "installed"
	// OutcomeAlreadyInstalled means the machine already satisfies the item.
	OutcomeAlreadyInstalled Outcome = "already_installed"
	// OutcomeSkipped means the item was deliberately not acted on.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed means the item could not be scheduled this run.
	OutcomeFailed Outcome = "failed"
	// OutcomeRemoved means the item was scheduled for removal.
	OutcomeRemoved Outcome = "removed"
	// OutcomeAlreadyRemoved means a removal was requested for an item not present.
	OutcomeAlreadyRemoved Outcome = "already_removed"
)

// Succeeded reports whether the outcome leaves the item present (install
// side) or absent (removal side) as requested.
func (o Outcome) Succeeded() bool {
	switch o {
	case OutcomeInstalled, OutcomeAlreadyInstalled, OutcomeRemoved, OutcomeAlreadyRemoved:
		return true
	}
	return false
}

// ClaimState is the per-name traversal state.
type ClaimState int

const (
	// Unvisited names have no record.
	Unvisited ClaimState = iota
	// InProgress names are claimed and their requirements are being walked.
	InProgress
	// Done names carry a terminal outcome.
	Done
)

// String returns the state name.
func (s ClaimState) String() string {
	switch s {
	case InProgress:
		return "in_progress"
	case Done:
		return "done"
	default:
		return "unvisited"
	}
}

// Side distinguishes the install and removal halves of the ledger.
type Side string

// Ledger sides.
const (
	SideInstall   Side = "install"
	SideUninstall Side = "uninstall"
)

// Record is the decision state for one name on one side.
type Record struct {
	Name    string
	State   ClaimState
	Outcome Outcome
	Reason  error // nil unless the outcome needs explaining
}

// Item is one entry of a ledger list, carrying what the execution stage
// needs to act on the decision.
type Item struct {
	Name          string   `toml:"name"`
	Version       string   `toml:"version"`
	DisplayName   string   `toml:"display_name,omitempty"`
	Installed     bool     `toml:"installed"`
	InstallerItem string   `toml:"installer_item,omitempty"`
	InstallerType string   `toml:"installer_type,omitempty"`
	Size          int64    `toml:"installer_item_size,omitempty"`
	Requires      []string `toml:"requires,omitempty"`
	UpdateFor     []string `toml:"update_for,omitempty"`
	Unattended    bool     `toml:"unattended_install,omitempty"`
	Note          string   `toml:"note,omitempty"`

	WillBeInstalled bool `toml:"will_be_installed,omitempty"`
	WillBeRemoved   bool `toml:"will_be_removed,omitempty"`
}

// Failure is the persisted reason a name failed or was skipped.
type Failure struct {
	Name    string  `toml:"name"`
	Side    Side    `toml:"side"`
	Outcome Outcome `toml:"outcome"`
	Reason  string  `toml:"reason"`
}

// Info is the run's output artifact: every list the execution stage consumes
// plus the processed-name bookkeeping.
type Info struct {
	ManagedInstalls     []Item    `toml:"managed_installs"`
	ManagedUpdates      []Item    `toml:"managed_updates"`
	OptionalInstalls    []Item    `toml:"optional_installs"`
	Removals            []Item    `toml:"removals"`
	AvailableOptional   []Item    `toml:"available_optional"`
	FeaturedItems       []string  `toml:"featured_items"`
	ProblemItems        []Item    `toml:"problem_items"`
	ProcessedInstalls   []string  `toml:"processed_installs"`
	ProcessedUninstalls []string  `toml:"processed_uninstalls"`
	Failures            []Failure `toml:"failures,omitempty"`
}
