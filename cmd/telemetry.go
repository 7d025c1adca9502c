package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/papapumpkin/manifold/internal/config"
	"github.com/papapumpkin/manifold/internal/telemetry"
)

var telemetryCmd = &cobra.Command{
	Use:   "telemetry",
	Short: "View JSONL telemetry events recorded by checks",
	Long: `Reads and formats the telemetry file written by "manifold check".

Without --run, shows events from every run in the file. With --last, shows
only the most recent run. With --follow (-f), watches the file for new
events (like tail -f).`,
	RunE: runTelemetry,
}

func init() {
	telemetryCmd.Flags().String("run", "", "run ID to view")
	telemetryCmd.Flags().Bool("last", false, "view only the most recent run")
	telemetryCmd.Flags().BoolP("follow", "f", false, "follow the file for new events")
	rootCmd.AddCommand(telemetryCmd)
}

func runTelemetry(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	runID, _ := cmd.Flags().GetString("run")
	last, _ := cmd.Flags().GetBool("last")
	follow, _ := cmd.Flags().GetBool("follow")

	path := cfg.TelemetryPath
	if last && runID == "" {
		if runID, err = lastRunID(path); err != nil {
			return err
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	defer f.Close()

	// Print all existing events.
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		printEvent(cmd.OutOrStdout(), line, runID)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("telemetry: read %s: %w", path, err)
	}

	if !follow {
		return nil
	}

	// A followed stream shows every new run.
	if last {
		runID = ""
	}
	return tailFollow(cmd.OutOrStdout(), f, path, runID)
}

// tailFollow watches the file for new data using fsnotify and prints new events.
func tailFollow(w io.Writer, f *os.File, path, runID string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("telemetry: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("telemetry: watch %s: %w", path, err)
	}

	reader := bufio.NewReader(f)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Write == 0 {
				continue
			}
			printNewLines(w, reader, runID)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("telemetry: watch %s: %w", path, err)
		}
	}
}

// printNewLines prints every complete line available from r.
func printNewLines(w io.Writer, r *bufio.Reader, runID string) {
	for {
		line, err := r.ReadString('\n')
		line = strings.TrimSpace(line)
		if line != "" {
			printEvent(w, line, runID)
		}
		if err != nil {
			return
		}
	}
}

// printEvent decodes a JSONL line and prints a human-readable representation.
// Events from runs other than runID are skipped when runID is set.
func printEvent(w io.Writer, line, runID string) {
	var evt telemetry.Event
	if err := json.Unmarshal([]byte(line), &evt); err != nil {
		fmt.Fprintf(w, "??? %s\n", line)
		return
	}
	if runID != "" && evt.RunID != runID {
		return
	}

	ts := evt.Timestamp.Local().Format(time.DateTime)
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s]", ts))
	parts = append(parts, evt.Kind)

	if evt.RunID != "" && runID == "" {
		parts = append(parts, fmt.Sprintf("run=%s", shortID(evt.RunID)))
	}
	if evt.Item != "" {
		parts = append(parts, fmt.Sprintf("item=%s", evt.Item))
	}
	if evt.Side != "" {
		parts = append(parts, fmt.Sprintf("side=%s", evt.Side))
	}
	if evt.Data != nil {
		if m, ok := evt.Data.(map[string]any); ok {
			parts = append(parts, formatDataMap(m))
		} else {
			data, _ := json.Marshal(evt.Data)
			parts = append(parts, string(data))
		}
	}

	fmt.Fprintln(w, strings.Join(parts, " "))
}

// formatDataMap formats a data map as key=value pairs sorted by key.
func formatDataMap(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%v", k, m[k])
	}
	return b.String()
}

// lastRunID returns the run ID of the last run_start event in the file.
func lastRunID(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	defer f.Close()

	var id string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var evt telemetry.Event
		if json.Unmarshal(scanner.Bytes(), &evt) != nil {
			continue
		}
		if evt.Kind == telemetry.KindRunStart {
			id = evt.RunID
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("telemetry: read %s: %w", path, err)
	}
	if id == "" {
		return "", fmt.Errorf("telemetry: no runs recorded in %s", path)
	}
	return id, nil
}

// shortID trims a run ID to its first group for display.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
