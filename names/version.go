package names

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a dotted sequence of integer components, e.g. "2.0" or "1.2.3".
// Package versions match by exact component equality, so "2.0" and "2.0.0"
// are distinct.
type Version []int

const maxComponent = 1<<31 - 1

// ParseVersion parses a version string like "2.0" or "1.2.3"
func ParseVersion(s string) (Version, bool) {
	if s == "" {
		return nil, false
	}

	parts := strings.Split(s, ".")
	v := make(Version, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			return nil, false
		}
		n := 0
		for _, c := range p {
			if c < '0' || c > '9' {
				return nil, false
			}
			if n > (maxComponent-int(c-'0'))/10 {
				return nil, false
			}
			n = n*10 + int(c-'0')
		}
		v = append(v, n)
	}
	return v, true
}

// Equal reports whether two versions have identical components
func (v Version) Equal(other Version) bool {
	if len(v) != len(other) {
		return false
	}
	for i := range v {
		if v[i] != other[i] {
			return false
		}
	}
	return true
}

// Compare orders versions component-wise; a version is less than any
// extension of itself ("2.0" < "2.0.0")
func (v Version) Compare(other Version) int {
	n := len(v)
	if len(other) < n {
		n = len(other)
	}
	for i := 0; i < n; i++ {
		switch {
		case v[i] < other[i]:
			return -1
		case v[i] > other[i]:
			return 1
		}
	}
	switch {
	case len(v) < len(other):
		return -1
	case len(v) > len(other):
		return 1
	}
	return 0
}

// UnmarshalText parses a dotted version, for TOML and flag decoding
func (v *Version) UnmarshalText(text []byte) error {
	parsed, ok := ParseVersion(string(text))
	if !ok {
		return fmt.Errorf("invalid version %q", string(text))
	}
	*v = parsed
	return nil
}

// String returns the version in dotted form
func (v Version) String() string {
	var b strings.Builder
	for i, n := range v {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}
