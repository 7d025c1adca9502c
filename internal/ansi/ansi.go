// Package ansi holds the ANSI escape codes used for colored terminal output.
package ansi

// ANSI SGR (Select Graphic Rendition) codes.
const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Dim    = "\033[2m"
	Yellow = "\033[33m"
	Green  = "\033[32m"
	Red    = "\033[31m"
	Cyan   = "\033[36m"
)

// Paint wraps s in the given codes followed by Reset. With enabled false it
// returns s unchanged, so callers can format once for terminals and pipes.
func Paint(enabled bool, s string, codes ...string) string {
	if !enabled || len(codes) == 0 {
		return s
	}
	prefix := ""
	for _, c := range codes {
		prefix += c
	}
	return prefix + s + Reset
}
