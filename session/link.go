package session

import (
	"context"
	"os"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/veldtlang/pluginhost/errors"
	"github.com/veldtlang/pluginhost/names"
)

// Link makes ref's code resident in the session and returns its module
// instance. Modules the interface imports are linked first, depth first;
// a module already linked is returned as-is. Linking is serialized: two
// callers linking overlapping closures cannot instantiate a module twice.
func (e *Environment) Link(ctx context.Context, ref names.ModuleRef) (api.Module, error) {
	e.linkMu.Lock()
	defer e.linkMu.Unlock()
	return e.linkLocked(ctx, ref, make(map[names.ModuleRef]bool))
}

func (e *Environment) linkLocked(ctx context.Context, ref names.ModuleRef, visiting map[names.ModuleRef]bool) (api.Module, error) {
	if mod, ok := e.linked[ref]; ok {
		return mod, nil
	}
	if visiting[ref] {
		return nil, errors.New(errors.PhaseLink, errors.KindLinkFailed).
			Unit(string(ref.Unit)).
			Module(ref.Module).
			Detail("import cycle through %s", ref).
			Build()
	}
	visiting[ref] = true

	ifc, err := e.Interface(ref)
	if err != nil {
		return nil, err
	}
	for _, dep := range ifc.Imports {
		if _, err := e.linkLocked(ctx, dep, visiting); err != nil {
			return nil, err
		}
	}

	if err := e.initWASI(ctx); err != nil {
		return nil, errors.LinkFailed(string(ref.Unit), ref.Module, err)
	}

	entry, ok := e.Packages.ByUnit(ref.Unit)
	if !ok {
		return nil, errors.New(errors.PhaseLink, errors.KindLinkFailed).
			Unit(string(ref.Unit)).
			Module(ref.Module).
			Detail("unit not present in the native package view").
			Build()
	}
	path, ok := moduleFile(entry, ref.Module, e.Config.ObjSuffix)
	if !ok {
		return nil, errors.New(errors.PhaseLink, errors.KindLinkFailed).
			Unit(string(ref.Unit)).
			Module(ref.Module).
			Detail("no %s.%s under the package's import dirs",
				ref.Module, e.Config.ObjSuffix).
			Build()
	}
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.LinkFailed(string(ref.Unit), ref.Module, err)
	}

	compiled, err := e.runtime.CompileModule(ctx, code)
	if err != nil {
		return nil, errors.LinkFailed(string(ref.Unit), ref.Module, err)
	}

	// modules import each other by module path, so instances register
	// under that name in the runtime
	mod, err := e.runtime.InstantiateModule(ctx, compiled,
		wazero.NewModuleConfig().WithName(ref.Module))
	if err != nil {
		return nil, errors.LinkFailed(string(ref.Unit), ref.Module, err)
	}

	e.linked[ref] = mod
	Logger().Info("linked module",
		zap.String("module", ref.String()), zap.String("path", path))
	return mod, nil
}
