// Package loader retrieves validated values from native plugin packages.
// It ties the other layers together: the session manager supplies the
// running environment, the match layer carries a name's package identity
// into the native universe, the defining module's interface supplies the
// declared type, and linking makes the module resident. A value is only
// handed out when its declared type structurally equals the type the
// caller expects.
package loader

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/veldtlang/pluginhost/config"
	"github.com/veldtlang/pluginhost/errors"
	"github.com/veldtlang/pluginhost/iface"
	"github.com/veldtlang/pluginhost/match"
	"github.com/veldtlang/pluginhost/names"
	"github.com/veldtlang/pluginhost/session"
)

// ValueHandle is a validated reference to an exported value in a linked
// module. By the time a handle exists, the declared type has been checked
// against the caller's expectation; accessors hand the underlying export
// out without further verification.
type ValueHandle struct {
	name   names.Name
	sig    *iface.Signature
	mod    api.Module
	fn     api.Function
	global api.Global
}

// Name returns the fully resolved name the value was loaded under
func (h *ValueHandle) Name() names.Name { return h.name }

// Signature returns the value's declared type
func (h *ValueHandle) Signature() *iface.Signature { return h.sig }

// Module returns the linked module instance the value lives in
func (h *ValueHandle) Module() api.Module { return h.mod }

// Func returns the exported function behind the handle. It is nil when
// the handle holds a plain value.
func (h *ValueHandle) Func() api.Function { return h.fn }

// Global returns the exported global behind the handle. It is nil when
// the handle holds a function.
func (h *ValueHandle) Global() api.Global { return h.global }

func (h *ValueHandle) raw() any {
	if h.fn != nil {
		return h.fn
	}
	return h.global
}

// Value extracts the runtime representation behind a handle with no
// further checking: the declared type was verified when the handle was
// produced. T is api.Function for function values and api.Global for
// plain ones; asking for the representation the handle does not hold
// panics.
func Value[T any](h *ValueHandle) T {
	return h.raw().(T)
}

// LoadValue retrieves sym from a running environment. The result is
// three-valued: a handle when the declared type matches want, ok false
// with a nil error when it does not, and an error for everything that
// means the installation itself is broken. sym must already name the
// defining module in the native universe.
func LoadValue(ctx context.Context, env *session.Environment, sym names.Name, want *iface.Signature) (*ValueHandle, bool, error) {
	decl, err := env.LookupDecl(sym)
	if err != nil {
		return nil, false, err
	}
	if decl.Kind != iface.DeclValue {
		return nil, false, errors.WrongKind(sym.Occ, string(decl.Kind))
	}
	if !decl.Sig.Equal(want) {
		Logger().Debug("declared type does not match expectation",
			zap.String("symbol", sym.String()),
			zap.String("declared", decl.Sig.String()),
			zap.String("expected", want.String()))
		return nil, false, nil
	}

	mod, err := env.Link(ctx, *sym.Module)
	if err != nil {
		return nil, false, err
	}

	h := &ValueHandle{name: sym, sig: decl.Sig, mod: mod}
	if decl.Sig.Func {
		h.fn = mod.ExportedFunction(sym.Occ)
	} else {
		h.global = mod.ExportedGlobal(sym.Occ)
	}
	if h.fn == nil && h.global == nil {
		return nil, false, errors.New(errors.PhaseLink, errors.KindLinkFailed).
			Unit(string(sym.Module.Unit)).
			Module(sym.Module.Module).
			Symbol(sym.Occ).
			Detail("linked module exports no symbol for the declared value").
			Build()
	}

	Logger().Debug("loaded value",
		zap.String("symbol", sym.String()),
		zap.String("type", decl.Sig.String()))
	return h, true, nil
}

// GetValueHandle performs the full retrieval for a name the cross
// compiler resolved: ensure the one native session, remap the name's
// package identity into the native universe, resolve the occurrence
// through the module's export list, and load the value it stands for
// with its declared type checked against want. Names without a defining
// module never reach plugin loading; passing one is a caller bug.
func GetValueHandle(ctx context.Context, st *config.Settings, mgr *session.Manager, cfg *config.Config, n names.Name, want *iface.Signature) (*ValueHandle, bool, error) {
	if n.Module == nil {
		panic("pluginhost: GetValueHandle on a name without a module")
	}

	env, err := mgr.Ensure(ctx, st, cfg)
	if err != nil {
		return nil, false, err
	}

	remapped, err := match.Remap(cfg, env.Packages, n)
	if err != nil {
		return nil, false, err
	}

	ifc, err := env.Interface(*remapped.Module)
	if err != nil {
		return nil, false, err
	}
	sym := ifc.ResolveExport(remapped.Occ)
	sym.Span = n.Span

	return LoadValue(ctx, env, sym, want)
}

// GetValue retrieves the value behind n as representation T. Retrieval
// and checking follow GetValueHandle; T must match want's shape the way
// Value requires.
func GetValue[T any](ctx context.Context, st *config.Settings, mgr *session.Manager, cfg *config.Config, n names.Name, want *iface.Signature) (T, bool, error) {
	var zero T
	h, ok, err := GetValueHandle(ctx, st, mgr, cfg, n, want)
	if err != nil || !ok {
		return zero, ok, err
	}
	return Value[T](h), true, nil
}

// LookupExported is the string-level entry point for tools: it names the
// wanted value by unit, module path, and occurrence instead of a
// compiler-produced name. Unlike GetValueHandle it treats an occurrence
// missing from the export list as an error, not an invariant violation;
// the strings may come straight from a command line.
func LookupExported(ctx context.Context, st *config.Settings, mgr *session.Manager, cfg *config.Config, unit names.UnitID, module, occ string, want *iface.Signature) (*ValueHandle, bool, error) {
	env, err := mgr.Ensure(ctx, st, cfg)
	if err != nil {
		return nil, false, err
	}

	native, ok := match.RemapUnit(cfg, env.Packages, module, unit)
	if !ok {
		return nil, false, errors.PackageNotFound(occ, module, string(unit))
	}
	ifc, err := env.Interface(names.ModuleRef{Unit: native, Module: module})
	if err != nil {
		return nil, false, err
	}

	for i := range ifc.Exports {
		if ifc.Exports[i].Occ != occ {
			continue
		}
		sym := names.Name{
			Module: &ifc.Exports[i].Origin,
			Occ:    occ,
			Unique: ifc.Exports[i].Unique,
		}
		return LoadValue(ctx, env, sym, want)
	}
	return nil, false, errors.MissingEntity(occ, module, string(native))
}
