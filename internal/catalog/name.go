package catalog

import (
	"strings"
	"unicode"
)

// Separators accepted between an item name and a pinned version.
const (
	pinSeparator    = "=="
	legacySeparator = "--"
)

// SplitNameAndVersion splits a manifest entry such as "Firefox==120.0" or
// "Firefox--120.0" into its name and pinned version. Entries without a pin
// return an empty version. A separator not followed by a digit is treated as
// part of the name.
func SplitNameAndVersion(entry string) (name, version string) {
	entry = strings.TrimSpace(entry)
	for _, sep := range []string{pinSeparator, legacySeparator} {
		idx := strings.LastIndex(entry, sep)
		if idx <= 0 {
			continue
		}
		rest := entry[idx+len(sep):]
		if rest == "" || !unicode.IsDigit(rune(rest[0])) {
			continue
		}
		return entry[:idx], rest
	}
	return entry, ""
}
