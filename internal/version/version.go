// Package version orders the version strings carried by catalog descriptors
// and installed-state probes. Versions are compared loosely: the leading
// dotted numeric run is compared segment by segment ("1.10" > "1.9",
// "1.0" == "1.0.0"), and whatever follows it breaks ties lexically. A
// version with a numeric run sorts above one without.
package version

import (
	"regexp"
	"strings"

	goversion "github.com/hashicorp/go-version"
)

// Zero is used in place of an empty version string.
const Zero = "0"

var numericRun = regexp.MustCompile(`^[0-9]+(\.[0-9]+)*`)

// Compare returns -1 if a < b, 0 if a == b, and 1 if a > b.
func Compare(a, b string) int {
	na, ra := split(normalize(a))
	nb, rb := split(normalize(b))
	switch {
	case na == nil && nb == nil:
		return strings.Compare(ra, rb)
	case na == nil:
		return -1
	case nb == nil:
		return 1
	}
	if c := na.Compare(nb); c != 0 {
		return c
	}
	return strings.Compare(ra, rb)
}

// Equal reports whether a and b denote the same version.
func Equal(a, b string) bool {
	return Compare(a, b) == 0
}

// split returns the parsed leading numeric run of v, or nil when v has none,
// and the trimmed remainder.
func split(v string) (*goversion.Version, string) {
	run := numericRun.FindString(v)
	if run == "" {
		return nil, v
	}
	n, err := goversion.NewVersion(run)
	if err != nil {
		return nil, v
	}
	return n, strings.TrimSpace(v[len(run):])
}

func normalize(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return Zero
	}
	return v
}
