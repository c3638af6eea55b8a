package names

import "strings"

// UnitID identifies one installed package instance, in the form
// "name-version" or "name-version-abihash". Package names may themselves
// contain dashes and digits ("base64-bytestring-1.0-ff001122"), so the id
// is decomposed from the right: a trailing hex segment of at least eight
// characters is the abi hash, and the segment before it is the version when
// it starts with a digit.
type UnitID string

// PackageID identifies a package source: name plus version, no abi hash.
// Two units built from the same source at different configurations share a
// PackageID and differ only in hash.
type PackageID struct {
	Name    string
	Version Version
}

// String returns the id as "name-version"
func (p PackageID) String() string {
	if len(p.Version) == 0 {
		return p.Name
	}
	return p.Name + "-" + p.Version.String()
}

// PackageName returns the bare package name with version and hash stripped
func (u UnitID) PackageName() string {
	name, _, _ := splitUnit(string(u))
	return name
}

// SourceID returns the name+version identity of the unit. It reports false
// when the unit id carries no version segment.
func (u UnitID) SourceID() (PackageID, bool) {
	name, version, _ := splitUnit(string(u))
	if version == "" {
		return PackageID{}, false
	}
	v, ok := ParseVersion(version)
	if !ok {
		return PackageID{}, false
	}
	return PackageID{Name: name, Version: v}, true
}

// InstanceHash returns the trailing abi hash segment, or "" if absent
func (u UnitID) InstanceHash() string {
	_, _, hash := splitUnit(string(u))
	return hash
}

// splitUnit decomposes a unit id from the right: hash first, then version.
// Either may be absent; the remainder is the package name.
func splitUnit(u string) (name, version, hash string) {
	parts := strings.Split(u, "-")
	i := len(parts)

	if i > 1 && isInstanceHash(parts[i-1]) {
		hash = parts[i-1]
		i--
	}
	if i > 1 && isVersionText(parts[i-1]) {
		version = parts[i-1]
		i--
	}
	return strings.Join(parts[:i], "-"), version, hash
}

// isInstanceHash reports whether s looks like an abi hash: lowercase hex,
// at least eight characters
func isInstanceHash(s string) bool {
	if len(s) < 8 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// isVersionText reports whether s is a digit-leading dotted version
func isVersionText(s string) bool {
	if s == "" || s[0] < '0' || s[0] > '9' {
		return false
	}
	_, ok := ParseVersion(s)
	return ok
}
