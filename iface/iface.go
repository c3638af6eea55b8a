// Package iface reads module interface files (.vi): the per-module record
// of exports, module-level imports, and declared entities with their WIT
// type text. Interfaces are the native toolchain's type environment; the
// loader trusts them the way the compiler trusts its own build products.
package iface

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/veldtlang/pluginhost/errors"
	"github.com/veldtlang/pluginhost/names"
)

// DeclKind categorizes what a declaration names
type DeclKind string

const (
	DeclValue       DeclKind = "value"
	DeclType        DeclKind = "type"
	DeclClass       DeclKind = "class"
	DeclConstructor DeclKind = "constructor"
)

// Export is one entry of a module's export list. Origin is the defining
// module, which differs from the exporting one for re-exports.
type Export struct {
	Occ    string
	Unique uint64
	Origin names.ModuleRef
}

// Decl is one entry of a module's type environment
type Decl struct {
	Occ  string
	Kind DeclKind
	Sig  *Signature
}

// Interface is one module's compiled interface
type Interface struct {
	Module  names.ModuleRef
	Exports []Export
	Imports []names.ModuleRef
	decls   map[string]*Decl
}

type ifaceFile struct {
	Module  string       `toml:"module"`
	Unit    names.UnitID `toml:"unit"`
	Exports []exportRow  `toml:"export"`
	Imports []importRow  `toml:"import"`
	Decls   []declRow    `toml:"decl"`
}

type exportRow struct {
	Occ    string       `toml:"occ"`
	Unique uint64       `toml:"unique"`
	Unit   names.UnitID `toml:"unit,omitempty"`
	Module string       `toml:"module,omitempty"`
}

type importRow struct {
	Module string       `toml:"module"`
	Unit   names.UnitID `toml:"unit,omitempty"`
}

type declRow struct {
	Occ  string `toml:"occ"`
	Kind string `toml:"kind"`
	Type string `toml:"type"`
}

// Load reads one interface file. ref is the module the caller expects the
// file to describe; a file describing a different module path means the
// installation is stale and loading fails.
func Load(path string, ref names.ModuleRef) (*Interface, error) {
	var f ifaceFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, errors.IfaceLoad(string(ref.Unit), ref.Module, err)
	}
	if f.Module != "" && f.Module != ref.Module {
		return nil, errors.New(errors.PhaseIface, errors.KindIfaceLoad).
			Unit(string(ref.Unit)).
			Module(ref.Module).
			Detail("%s describes module %s", path, f.Module).
			Build()
	}

	own := ref
	if f.Unit != "" {
		own.Unit = f.Unit
	}

	out := &Interface{
		Module: own,
		decls:  make(map[string]*Decl, len(f.Decls)),
	}

	for _, row := range f.Exports {
		origin := own
		if row.Module != "" {
			origin.Module = row.Module
		}
		if row.Unit != "" {
			origin.Unit = row.Unit
		}
		out.Exports = append(out.Exports, Export{
			Occ:    row.Occ,
			Unique: row.Unique,
			Origin: origin,
		})
	}

	for _, row := range f.Imports {
		dep := names.ModuleRef{Unit: own.Unit, Module: row.Module}
		if row.Unit != "" {
			dep.Unit = row.Unit
		}
		out.Imports = append(out.Imports, dep)
	}

	for _, row := range f.Decls {
		sig, err := ParseSignature(row.Type)
		if err != nil {
			return nil, errors.New(errors.PhaseIface, errors.KindIfaceLoad).
				Unit(string(own.Unit)).
				Module(own.Module).
				Symbol(row.Occ).
				Detail("declared type of %s", row.Occ).
				Cause(err).
				Build()
		}
		kind := DeclKind(row.Kind)
		if kind == "" {
			kind = DeclValue
		}
		out.decls[row.Occ] = &Decl{Occ: row.Occ, Kind: kind, Sig: sig}
	}

	return out, nil
}

// Decl looks up an occurrence in the module's type environment
func (i *Interface) Decl(occ string) (*Decl, bool) {
	d, ok := i.decls[occ]
	return d, ok
}

// ResolveExport finds the single export with the given occurrence name and
// returns the concrete symbol it stands for. Callers only ask for names
// they previously compiled against this module, so anything but exactly
// one candidate is an invariant violation and panics.
func (i *Interface) ResolveExport(occ string) names.Name {
	var found *Export
	n := 0
	for idx := range i.Exports {
		if i.Exports[idx].Occ == occ {
			found = &i.Exports[idx]
			n++
		}
	}
	if n != 1 {
		panic(fmt.Sprintf("pluginhost: inconsistent export list: %d exports named %q in %s",
			n, occ, i.Module))
	}
	return names.Name{
		Module: &found.Origin,
		Occ:    found.Occ,
		Unique: found.Unique,
	}
}
