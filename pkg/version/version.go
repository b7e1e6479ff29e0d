// Package version compares dotted document versions such as "1.2.10".
//
// Versions are compared component-wise from the left. When one version is a
// prefix of the other the shorter one is older, so "1.2" < "1.2.0" < "1.2.1".
package version

import (
	"strconv"
	"strings"
)

// Key is the snapshot key holding the stamped document version.
const Key = "sheetVersion"

// Zero is the version assumed for snapshots without a stamp.
const Zero = "0.0.0"

// Version is a parsed dotted version.
type Version []int

// Parse splits v into its numeric components. Empty input yields an empty
// Version; components that are not non-negative integers count as 0.
func Parse(v string) Version {
	v = strings.TrimSpace(v)
	if v == "" {
		return Version{}
	}
	parts := strings.Split(v, ".")
	out := make(Version, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			n = 0
		}
		out[i] = n
	}
	return out
}

func (v Version) String() string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

// Compare returns -1 when v is older than other, 1 when newer and 0 when equal.
func (v Version) Compare(other Version) int {
	for i := range v {
		if i == len(other) {
			return 1
		}
		switch {
		case v[i] == other[i]:
			continue
		case v[i] > other[i]:
			return 1
		default:
			return -1
		}
	}
	if len(v) != len(other) {
		return -1
	}
	return 0
}

// Compare parses and compares two version strings.
func Compare(a, b string) int {
	return Parse(a).Compare(Parse(b))
}

// IsOlder reports whether v predates target.
func IsOlder(v, target string) bool {
	return Compare(v, target) < 0
}

// Of returns the version stamped in a snapshot, or Zero when the stamp is
// missing or not a string.
func Of(snapshot map[string]any) string {
	if snapshot == nil {
		return Zero
	}
	raw, ok := snapshot[Key]
	if !ok {
		return Zero
	}
	s, ok := raw.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return Zero
	}
	return s
}

// SnapshotBefore reports whether the snapshot's stamped version predates target.
func SnapshotBefore(snapshot map[string]any, target string) bool {
	return IsOlder(Of(snapshot), target)
}
