// Package match computes, for a name compiled against a veldt-js package,
// the package identity that stands for it in the native registry. The two
// universes build independently, so unit ids rarely agree verbatim and
// matching has to work from the partial identity a unit id encodes. The
// policy is deliberate about when it gives up: handing back a wrong unit
// would link the wrong code and fail much later, far from the cause.
package match

import (
	"go.uber.org/zap"

	"github.com/veldtlang/pluginhost/config"
	"github.com/veldtlang/pluginhost/errors"
	"github.com/veldtlang/pluginhost/names"
	"github.com/veldtlang/pluginhost/registry"
)

// Remap rewrites n to its binding in the native universe. Names without a
// module (locally bound identifiers) pass through unchanged. Everything
// else keeps its occurrence name, uniqueness tag, and span and gets its
// unit replaced per RemapUnit; when no rule produces a unit the result is
// a PackageNotFound error naming the symbol.
func Remap(src *config.Config, view *registry.View, n names.Name) (names.Name, error) {
	if n.Module == nil {
		return n, nil
	}
	unit, ok := RemapUnit(src, view, n.Module.Module, n.Module.Unit)
	if !ok {
		return names.Name{}, errors.PackageNotFound(n.Occ, n.Module.Module, string(n.Module.Unit))
	}
	return n.WithModule(names.ModuleRef{Unit: unit, Module: n.Module.Module}), nil
}

// RemapUnit resolves one (module, unit) pair against the native registry.
// Rules apply in priority order and the first rule whose guard holds
// decides the outcome:
//
//  1. unit is present verbatim in the native registry: the universes
//     already agree, keep it.
//  2. unit is the package the cross session is currently building, which
//     has no registry entry in either universe yet: fall back to its bare
//     package name and route the module through the module table of the
//     native package carrying that name.
//  3. otherwise a native package built from the same package name and
//     version is required, instance hash ignored, and the module is
//     routed through its module table.
//
// A rule whose guard holds but whose lookups miss fails the whole match;
// later rules are not tried. A native package under a different version
// never matches, and build variants play no part at all.
func RemapUnit(src *config.Config, view *registry.View, module string, unit names.UnitID) (names.UnitID, bool) {
	if _, ok := view.ByUnit(unit); ok {
		return unit, true
	}

	if unit != "" && unit == src.CurrentUnit {
		e, ok := view.ByPackageName(unit.PackageName())
		if !ok {
			Logger().Debug("current unit has no native counterpart",
				zap.String("unit", string(unit)),
				zap.String("package", unit.PackageName()))
			return "", false
		}
		return moduleUnit(e, module)
	}

	id, ok := unit.SourceID()
	if !ok {
		return "", false
	}
	e, ok := view.BySourceID(id)
	if !ok {
		Logger().Debug("no native package for source id",
			zap.String("unit", string(unit)),
			zap.String("source", id.String()))
		return "", false
	}
	return moduleUnit(e, module)
}

func moduleUnit(e *registry.Entry, module string) (names.UnitID, bool) {
	u, ok := e.ModuleUnit(module)
	if !ok {
		Logger().Debug("module not in native package",
			zap.String("module", module),
			zap.String("unit", string(e.Unit)))
		return "", false
	}
	return u, true
}
