package locator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/quantmind-br/tkblender/internal/core"
)

// Policy filters candidates by Blender version
type Policy struct {
	Minimum string
}

// Check reports whether version satisfies the policy and, if not, why.
// The blank version of unversioned installs is accepted as unknown.
func (p Policy) Check(version string) (bool, string) {
	if version == core.BlankVersion || p.Minimum == "" {
		return true, ""
	}

	older, err := IsOlder(version, p.Minimum)
	if err != nil {
		return false, fmt.Sprintf("version %q is not comparable: %v", version, err)
	}
	if older {
		return false, fmt.Sprintf("version %s is older than the minimum supported %s", version, p.Minimum)
	}
	return true, ""
}

// IsOlder reports whether version a is strictly older than b.
//
// Blender numbers releases major.minor with the minor read as a decimal
// fraction (2.79 < 2.8 == 2.80 < 2.83 < 3.0); patch levels are ignored.
func IsOlder(a, b string) (bool, error) {
	va, err := ParseVersion(a)
	if err != nil {
		return false, err
	}
	vb, err := ParseVersion(b)
	if err != nil {
		return false, err
	}
	return va < vb, nil
}

// ParseVersion converts "major.minor[.patch...]" into a comparable number
func ParseVersion(version string) (float64, error) {
	version = strings.TrimSpace(version)
	if version == "" {
		return 0, fmt.Errorf("empty version")
	}

	parts := strings.Split(version, ".")
	if len(parts) > 2 {
		parts = parts[:2]
	}
	for _, part := range parts {
		if part == "" {
			return 0, fmt.Errorf("malformed version %q", version)
		}
		if _, err := strconv.ParseUint(part, 10, 32); err != nil {
			return 0, fmt.Errorf("malformed version %q", version)
		}
	}

	v, err := strconv.ParseFloat(strings.Join(parts, "."), 64)
	if err != nil {
		return 0, fmt.Errorf("malformed version %q: %w", version, err)
	}
	return v, nil
}
