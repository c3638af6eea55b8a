// Package names defines the identities the plugin loader traffics in:
// package units, package source ids, module references, and resolved name
// occurrences.
package names

// ModuleRef identifies a module within a package unit
type ModuleRef struct {
	Unit   UnitID
	Module string
}

// String returns the reference as "unit:Module.Path"
func (r ModuleRef) String() string {
	return string(r.Unit) + ":" + r.Module
}

// Span records the source position a name occurrence came from. It survives
// remapping untouched so diagnostics keep pointing at the cross-compiled
// source.
type Span struct {
	File string
	Line int
	Col  int
}

// Name is one resolved identifier occurrence. Module is nil for locally
// bound names; for top-level names it carries the defining module in
// whichever package universe the name currently belongs to. Unique
// disambiguates occurrences that share an Occ string.
type Name struct {
	Module *ModuleRef
	Occ    string
	Unique uint64
	Span   Span
}

// String returns "unit:Module.occ" for top-level names and the bare
// occurrence for local ones
func (n Name) String() string {
	if n.Module == nil {
		return n.Occ
	}
	return n.Module.String() + "." + n.Occ
}

// WithModule returns a copy of n bound to a different defining module.
// Occurrence, uniqueness, and span are preserved.
func (n Name) WithModule(ref ModuleRef) Name {
	n.Module = &ref
	return n
}
