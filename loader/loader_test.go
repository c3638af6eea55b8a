package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tetratelabs/wazero/api"

	"github.com/veldtlang/pluginhost/config"
	"github.com/veldtlang/pluginhost/errors"
	"github.com/veldtlang/pluginhost/iface"
	"github.com/veldtlang/pluginhost/internal/wasmgen"
	"github.com/veldtlang/pluginhost/names"
	"github.com/veldtlang/pluginhost/session"
)

// The fixture's plugin package: native unit acmeUnit provides Acme.M,
// which exports a plain u32 value, a function, a re-export whose origin
// is Acme.Impl, a type, and an export with a missing declaration. The
// cross compiler knows the same package under crossUnit.
const (
	acmeUnit  = "acme-2.0-aabb1122"
	crossUnit = "acme-2.0-99ffee00"
)

type fixture struct {
	st   *config.Settings
	cfg  *config.Config
	mgr  *session.Manager
	root string
}

func newBareFixture(t *testing.T) *fixture {
	t.Helper()
	base := t.TempDir()

	crossLib := filepath.Join(base, "cross", "lib")
	root := filepath.Join(base, "native")
	mkdir(t, crossLib)
	mkdir(t, filepath.Join(root, "lib", "pkgdb"))

	writeFile(t, filepath.Join(crossLib, config.MarkerFile), root)
	writeFile(t, filepath.Join(root, "lib", config.SettingsFile),
		"version = \"9.6.0\"\n")

	return &fixture{
		st: &config.Settings{
			LibDir:      crossLib,
			ToolVersion: "0.9.0",
			HostVersion: "9.6",
		},
		cfg:  config.DefaultCross(),
		mgr:  session.NewManager(),
		root: root,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := newBareFixture(t)
	f.addPackage(t, acmeUnit, "acme", "2.0", []pkgModule{
		{
			name:  "Acme.M",
			iface: acmeMIface,
			wasm: &wasmgen.Module{
				Funcs: []wasmgen.Func{{
					Name: "g",
					Type: wasmgen.FuncType{Params: []wasmgen.ValType{wasmgen.I32}, Results: []wasmgen.ValType{wasmgen.I32}},
					Body: wasmgen.IdentityBody(),
				}},
				Globals: []wasmgen.Global{{Name: "f", Type: wasmgen.I32, Value: 42}},
			},
		},
		{
			name:  "Acme.Impl",
			iface: acmeImplIface,
			wasm: &wasmgen.Module{
				Globals: []wasmgen.Global{{Name: "h", Type: wasmgen.I32, Value: 7}},
			},
		},
	})
	return f
}

const acmeMIface = `
module = "Acme.M"
unit = "` + acmeUnit + `"

[[export]]
occ = "f"
unique = 1

[[export]]
occ = "g"
unique = 2

[[export]]
occ = "h"
unique = 3
module = "Acme.Impl"

[[export]]
occ = "t"
unique = 4

[[export]]
occ = "ghost"
unique = 5

[[decl]]
occ = "f"
type = "u32"

[[decl]]
occ = "g"
type = "func(x: u32) -> u32"

[[decl]]
occ = "t"
kind = "type"
type = "u32"
`

const acmeImplIface = `
module = "Acme.Impl"
unit = "` + acmeUnit + `"

[[export]]
occ = "h"
unique = 1

[[decl]]
occ = "h"
type = "u32"
`

type pkgModule struct {
	name  string
	iface string
	wasm  *wasmgen.Module
}

func (f *fixture) addPackage(t *testing.T, unit, name, version string, mods []pkgModule) {
	t.Helper()
	pkgDir := filepath.Join(f.root, "pkg", name)

	var moduleRows strings.Builder
	for _, m := range mods {
		rel := filepath.FromSlash(strings.ReplaceAll(m.name, ".", "/"))
		mkdir(t, filepath.Dir(filepath.Join(pkgDir, rel+".x")))
		writeFile(t, filepath.Join(pkgDir, rel+".vi"), m.iface)
		if m.wasm != nil {
			writeBytes(t, filepath.Join(pkgDir, rel+".wasm"), m.wasm.Encode())
		}
		fmt.Fprintf(&moduleRows, "\n[[module]]\nname = %q\n", m.name)
	}

	conf := fmt.Sprintf(`unit = %q
name = %q
version = %q
exposed = true
import-dirs = [%q]
%s`, unit, name, version, pkgDir, moduleRows.String())
	writeFile(t, filepath.Join(f.root, "lib", "pkgdb", name+".conf"), conf)
}

func mkdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func writeBytes(t *testing.T, path string, body []byte) {
	t.Helper()
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}
}

func sig(t *testing.T, text string) *iface.Signature {
	t.Helper()
	s, err := iface.ParseSignature(text)
	if err != nil {
		t.Fatalf("ParseSignature(%q): %v", text, err)
	}
	return s
}

// crossName builds the name the cross compiler would hand over: the
// occurrence with its module still in the cross package universe.
func crossName(occ string) names.Name {
	ref := names.ModuleRef{Unit: crossUnit, Module: "Acme.M"}
	return names.Name{Module: &ref, Occ: occ}
}

func (f *fixture) get(t *testing.T, n names.Name, want *iface.Signature) (*ValueHandle, bool, error) {
	t.Helper()
	ctx := context.Background()
	h, ok, err := GetValueHandle(ctx, f.st, f.mgr, f.cfg, n, want)
	t.Cleanup(func() {
		if env, eerr := f.mgr.Ensure(ctx, f.st, f.cfg); eerr == nil {
			env.Close(ctx)
		}
	})
	return h, ok, err
}

func TestGetValueHandleGlobal(t *testing.T) {
	f := newFixture(t)

	h, ok, err := f.get(t, crossName("f"), sig(t, "u32"))
	if err != nil || !ok {
		t.Fatalf("GetValueHandle = %v, %v, %v", h, ok, err)
	}
	if h.Func() != nil {
		t.Error("a plain value must not carry a function")
	}
	g := h.Global()
	if g == nil {
		t.Fatal("handle carries no global")
	}
	if got := g.Get(); got != 42 {
		t.Errorf("f = %d, want 42", got)
	}
	if h.Name().Module.Unit != acmeUnit {
		t.Errorf("handle unit = %s, want the native unit", h.Name().Module.Unit)
	}
	if h.Signature().String() != "u32" {
		t.Errorf("handle type = %s", h.Signature())
	}

	// the defining module is linked once; a second retrieval reuses it
	again, ok, err := f.get(t, crossName("f"), sig(t, "u32"))
	if err != nil || !ok {
		t.Fatalf("second GetValueHandle = %v, %v, %v", again, ok, err)
	}
	if again.Module() != h.Module() {
		t.Error("second retrieval linked a fresh module instance")
	}
}

func TestGetValueHandleTypeMismatch(t *testing.T) {
	f := newFixture(t)

	for _, want := range []string{"bool", "s64", "func(x: u32) -> u32"} {
		h, ok, err := f.get(t, crossName("f"), sig(t, want))
		if err != nil {
			t.Fatalf("want %q: err = %v, a type mismatch is not an error", want, err)
		}
		if ok || h != nil {
			t.Errorf("want %q: got a handle for a differently typed value", want)
		}
	}
}

func TestGetValueFunction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	fn, ok, err := GetValue[api.Function](ctx, f.st, f.mgr, f.cfg, crossName("g"), sig(t, "func(x: u32) -> u32"))
	if err != nil || !ok {
		t.Fatalf("GetValue = %v, %v", ok, err)
	}
	defer func() {
		if env, eerr := f.mgr.Ensure(ctx, f.st, f.cfg); eerr == nil {
			env.Close(ctx)
		}
	}()

	res, err := fn.Call(ctx, 9)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if len(res) != 1 || res[0] != 9 {
		t.Errorf("g(9) = %v", res)
	}
}

func TestGetValueHandleReExport(t *testing.T) {
	f := newFixture(t)

	h, ok, err := f.get(t, crossName("h"), sig(t, "u32"))
	if err != nil || !ok {
		t.Fatalf("GetValueHandle = %v, %v", ok, err)
	}
	if h.Name().Module.Module != "Acme.Impl" {
		t.Errorf("re-export resolved to %s, want the defining module", h.Name().Module)
	}
	if got := h.Global().Get(); got != 7 {
		t.Errorf("h = %d, want 7", got)
	}
}

func TestGetValueHandleWrongKind(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.get(t, crossName("t"), sig(t, "u32"))
	if err == nil {
		t.Fatal("loading a type as a value should fail")
	}
	perr, ok := err.(*errors.Error)
	if !ok || perr.Kind != errors.KindWrongKind {
		t.Errorf("err = %v, want wrong_kind", err)
	}
}

func TestGetValueHandleMissingDecl(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.get(t, crossName("ghost"), sig(t, "u32"))
	if err == nil {
		t.Fatal("an export without a declaration should fail")
	}
	perr, ok := err.(*errors.Error)
	if !ok || perr.Kind != errors.KindMissingEntity {
		t.Errorf("err = %v, want missing_entity", err)
	}
}

func TestGetValueHandlePackageNotFound(t *testing.T) {
	f := newBareFixture(t)
	f.addPackage(t, "acme-1.0-33445566", "acme", "1.0", []pkgModule{{
		name:  "Acme.M",
		iface: "module = \"Acme.M\"\nunit = \"acme-1.0-33445566\"\n\n[[decl]]\nocc = \"f\"\ntype = \"u32\"\n",
		wasm: &wasmgen.Module{
			Globals: []wasmgen.Global{{Name: "f", Type: wasmgen.I32, Value: 1}},
		},
	}})

	_, _, err := f.get(t, crossName("f"), sig(t, "u32"))
	if err == nil {
		t.Fatal("a package installed at a different version must not match")
	}
	perr, ok := err.(*errors.Error)
	if !ok || perr.Kind != errors.KindPackageNotFound {
		t.Fatalf("err = %v, want package_not_found", err)
	}
	if !strings.Contains(err.Error(), "missing from the native type environment") {
		t.Errorf("err = %v", err)
	}
	if perr.Unit != crossUnit {
		t.Errorf("err names unit %s, want the requested cross unit", perr.Unit)
	}
}

func TestLookupExported(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	h, ok, err := LookupExported(ctx, f.st, f.mgr, f.cfg, acmeUnit, "Acme.M", "f", sig(t, "u32"))
	if err != nil || !ok {
		t.Fatalf("LookupExported = %v, %v", ok, err)
	}
	defer func() {
		if env, eerr := f.mgr.Ensure(ctx, f.st, f.cfg); eerr == nil {
			env.Close(ctx)
		}
	}()
	if h.Global().Get() != 42 {
		t.Errorf("f = %d", h.Global().Get())
	}

	_, _, err = LookupExported(ctx, f.st, f.mgr, f.cfg, "nosuch-1.0-00000000", "No.Such", "x", sig(t, "u32"))
	if err == nil {
		t.Fatal("an unknown unit should fail")
	}
	if perr, ok := err.(*errors.Error); !ok || perr.Kind != errors.KindPackageNotFound {
		t.Errorf("err = %v, want package_not_found", err)
	}

	// arbitrary strings may name nothing; that is an error, not a panic
	_, _, err = LookupExported(ctx, f.st, f.mgr, f.cfg, acmeUnit, "Acme.M", "typo", sig(t, "u32"))
	if err == nil {
		t.Fatal("a name outside the export list should fail")
	}
	if perr, ok := err.(*errors.Error); !ok || perr.Kind != errors.KindMissingEntity {
		t.Errorf("err = %v, want missing_entity", err)
	}
}

func TestValuePanicsOnWrongRepresentation(t *testing.T) {
	f := newFixture(t)

	h, ok, err := f.get(t, crossName("f"), sig(t, "u32"))
	if err != nil || !ok {
		t.Fatalf("GetValueHandle = %v, %v", ok, err)
	}

	defer func() {
		if recover() == nil {
			t.Error("Value with the wrong representation should panic")
		}
	}()
	Value[api.Function](h)
}
