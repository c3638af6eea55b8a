// Package session owns the native toolchain session: the one wazero
// runtime plugins are linked into, the registry view it resolves packages
// against, and the caches that keep interface loading and linking cheap.
// A process holds at most one session, constructed lazily by the Manager
// and kept for the process lifetime.
package session

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/veldtlang/pluginhost/config"
	"github.com/veldtlang/pluginhost/errors"
	"github.com/veldtlang/pluginhost/iface"
	"github.com/veldtlang/pluginhost/names"
	"github.com/veldtlang/pluginhost/registry"
)

// Environment is the running native session. Config is the sanitized
// native configuration, Packages the merged registry view over its
// package databases. After construction the only mutations are the two
// caches and the linked-module set.
type Environment struct {
	Config   *config.Config
	Native   *config.NativeSettings
	Root     string
	Packages *registry.View

	runtime      wazero.Runtime
	wasiInitMu   sync.Mutex
	wasiInitDone atomic.Bool

	ifaceMu sync.RWMutex
	ifaces  map[names.ModuleRef]*iface.Interface

	linkMu sync.Mutex
	linked map[names.ModuleRef]api.Module
}

func newEnvironment(ctx context.Context, st *config.Settings, cfg *config.Config) (*Environment, error) {
	root, err := config.NativeRoot(st)
	if err != nil {
		return nil, err
	}
	native := config.Sanitize(cfg, root)

	ns, err := config.LoadNativeSettings(root)
	if err != nil {
		return nil, err
	}
	if err := config.CheckHostVersion(st, ns); err != nil {
		return nil, err
	}

	globalDB := native.GlobalPackageDB
	if ns.PkgDB != "" {
		globalDB = ns.PkgDB
		if !filepath.IsAbs(globalDB) {
			globalDB = filepath.Join(config.NativeLibDir(root), globalDB)
		}
	}

	dbs := make([]*registry.DB, 0, len(native.PackageDBs)+1)
	db, err := registry.Open(globalDB)
	if err != nil {
		return nil, err
	}
	dbs = append(dbs, db)
	for _, dir := range native.PackageDBs {
		db, err := registry.Open(dir)
		if err != nil {
			return nil, err
		}
		dbs = append(dbs, db)
	}

	env := &Environment{
		Config:   native,
		Native:   ns,
		Root:     root,
		Packages: registry.NewView(dbs...),
		runtime:  wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig()),
		ifaces:   make(map[names.ModuleRef]*iface.Interface),
		linked:   make(map[names.ModuleRef]api.Module),
	}

	Logger().Info("native toolchain session ready",
		zap.String("root", root),
		zap.String("version", ns.Version),
		zap.Int("units", len(env.Packages.Units())))
	return env, nil
}

// Interface returns the interface of the given module, loading and caching
// it on first use. The module's unit must be resolvable through the
// session's package view.
func (e *Environment) Interface(ref names.ModuleRef) (*iface.Interface, error) {
	e.ifaceMu.RLock()
	cached, ok := e.ifaces[ref]
	e.ifaceMu.RUnlock()
	if ok {
		return cached, nil
	}

	entry, ok := e.Packages.ByUnit(ref.Unit)
	if !ok {
		return nil, errors.New(errors.PhaseIface, errors.KindIfaceLoad).
			Unit(string(ref.Unit)).
			Module(ref.Module).
			Detail("unit not present in the native package view").
			Build()
	}
	path, ok := moduleFile(entry, ref.Module, e.Config.IfaceSuffix)
	if !ok {
		return nil, errors.New(errors.PhaseIface, errors.KindIfaceLoad).
			Unit(string(ref.Unit)).
			Module(ref.Module).
			Detail("no %s.%s under the package's import dirs",
				ref.Module, e.Config.IfaceSuffix).
			Build()
	}

	ifc, err := iface.Load(path, ref)
	if err != nil {
		return nil, err
	}

	e.ifaceMu.Lock()
	e.ifaces[ref] = ifc
	e.ifaceMu.Unlock()

	Logger().Debug("loaded interface",
		zap.String("module", ref.String()), zap.String("path", path))
	return ifc, nil
}

// LookupDecl finds sym's declared entity in the type environment of its
// defining module. Absence means the installation's interfaces are stale
// relative to whatever compiled the symbol.
func (e *Environment) LookupDecl(sym names.Name) (*iface.Decl, error) {
	if sym.Module == nil {
		panic("pluginhost: LookupDecl on a name without a module")
	}
	ifc, err := e.Interface(*sym.Module)
	if err != nil {
		return nil, err
	}
	d, ok := ifc.Decl(sym.Occ)
	if !ok {
		return nil, errors.MissingEntity(sym.Occ, sym.Module.Module, string(sym.Module.Unit))
	}
	return d, nil
}

// Close tears down the wazero runtime. Production callers never do; the
// session lives as long as the process. Tests do.
func (e *Environment) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// initWASI instantiates the WASI host module once per runtime. Safe for
// concurrent callers.
func (e *Environment) initWASI(ctx context.Context) error {
	if e.wasiInitDone.Load() {
		return nil
	}

	e.wasiInitMu.Lock()
	defer e.wasiInitMu.Unlock()

	if e.wasiInitDone.Load() {
		return nil
	}
	if e.runtime.Module(wasi_snapshot_preview1.ModuleName) != nil {
		e.wasiInitDone.Store(true)
		return nil
	}

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, e.runtime); err != nil {
		return err
	}
	e.wasiInitDone.Store(true)
	return nil
}

// moduleFile resolves a module's on-disk artifact within a package: the
// module path with dots as directory separators plus the suffix, under
// the first import dir that has it.
func moduleFile(entry *registry.Entry, module, suffix string) (string, bool) {
	rel := filepath.FromSlash(strings.ReplaceAll(module, ".", "/")) + "." + suffix
	for _, dir := range entry.ImportDirs {
		p := filepath.Join(dir, rel)
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}
