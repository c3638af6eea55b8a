package config

import (
	"path/filepath"
	"reflect"
	"testing"
)

func crossConfig() *Config {
	return &Config{
		ToolDir:         "/opt/veldt-js/lib",
		GlobalPackageDB: "/opt/veldt-js/lib/pkgdb",
		PackageDBs: []string{
			"/opt/veldt-js/lib/pkgdb",
			"/home/u/.veldt/store/proj-veldtjs-0.3.1-veldt9.6.2-pkgdb",
			"/home/u/src/veldt-js/pkgdb-inplace",
			"/home/u/project/local-pkgdb",
		},
		PackageFlags:    []PackageFlag{{Action: "hide", Arg: "acme"}},
		HideAllPackages: true,
		Variants:        []string{"js", "profiling"},
		IfaceSuffix:     CrossIfaceSuffix,
		DynIfaceSuffix:  CrossDynIfaceSuffix,
		ObjSuffix:       CrossObjSuffix,
		CurrentUnit:     "plugin-proj-0.1-deadbeef",
	}
}

func TestSanitize(t *testing.T) {
	cfg := crossConfig()
	got := Sanitize(cfg, "/opt/veldt")

	if got.ToolDir != filepath.Join("/opt/veldt", "lib") {
		t.Errorf("ToolDir = %q", got.ToolDir)
	}
	if got.GlobalPackageDB != filepath.Join("/opt/veldt", "lib", "pkgdb") {
		t.Errorf("GlobalPackageDB = %q", got.GlobalPackageDB)
	}

	if got.PackageFlags != nil {
		t.Errorf("PackageFlags = %v, want cleared", got.PackageFlags)
	}
	if got.HideAllPackages {
		t.Error("HideAllPackages must be cleared")
	}

	if !reflect.DeepEqual(got.Variants, []string{"profiling"}) {
		t.Errorf("Variants = %v, want [profiling]", got.Variants)
	}

	if got.IfaceSuffix != "vi" || got.DynIfaceSuffix != "dyn_vi" || got.ObjSuffix != "wasm" {
		t.Errorf("suffixes = %q %q %q", got.IfaceSuffix, got.DynIfaceSuffix, got.ObjSuffix)
	}

	wantDBs := []string{
		"/opt/veldt-js/lib/pkgdb", // not a cross-pattern path: passes through
		filepath.Join("/home/u/.veldt/store", "proj-veldt-9.6.2-pkgdb"),
		"/home/u/project/local-pkgdb",
	}
	if !reflect.DeepEqual(got.PackageDBs, wantDBs) {
		t.Errorf("PackageDBs = %v, want %v", got.PackageDBs, wantDBs)
	}

	if got.CurrentUnit != cfg.CurrentUnit {
		t.Errorf("CurrentUnit = %q, must be preserved", got.CurrentUnit)
	}
}

func TestSanitizeDoesNotMutateInput(t *testing.T) {
	cfg := crossConfig()
	before := cfg.Clone()

	Sanitize(cfg, "/opt/veldt")

	if !reflect.DeepEqual(cfg, before) {
		t.Errorf("input mutated:\n got %+v\nwant %+v", cfg, before)
	}
}

func TestSanitizeNativeInputIsFixpointForSuffixes(t *testing.T) {
	cfg := crossConfig()
	once := Sanitize(cfg, "/opt/veldt")
	twice := Sanitize(once, "/opt/veldt")

	if twice.IfaceSuffix != once.IfaceSuffix ||
		twice.DynIfaceSuffix != once.DynIfaceSuffix ||
		twice.ObjSuffix != once.ObjSuffix {
		t.Errorf("suffix stripping is not idempotent: %q %q %q",
			twice.IfaceSuffix, twice.DynIfaceSuffix, twice.ObjSuffix)
	}
	if !reflect.DeepEqual(twice.PackageDBs, once.PackageDBs) {
		t.Errorf("db mapping is not idempotent: %v vs %v", twice.PackageDBs, once.PackageDBs)
	}
}

func TestMapPackageDB(t *testing.T) {
	tests := []struct {
		in   string
		want string
		keep bool
	}{
		{
			in:   "/store/proj-veldtjs-0.3.1-veldt9.6.2-pkgdb",
			want: filepath.Join("/store", "proj-veldt-9.6.2-pkgdb"),
			keep: true,
		},
		{
			in:   "/store/deep-name-veldtjs-1.0-veldt9.4-pkgdb",
			want: filepath.Join("/store", "deep-name-veldt-9.4-pkgdb"),
			keep: true,
		},
		{in: "/somewhere/plain-pkgdb", want: "/somewhere/plain-pkgdb", keep: true},
		{in: "/src/veldt-js/pkgdb-inplace", keep: false},
		{in: "/store/proj-veldtjs-x.y-veldt9.6-pkgdb", want: "/store/proj-veldtjs-x.y-veldt9.6-pkgdb", keep: true}, // malformed version: untouched
	}

	for _, tt := range tests {
		got, keep := mapPackageDB(tt.in)
		if keep != tt.keep {
			t.Errorf("mapPackageDB(%q) keep = %v, want %v", tt.in, keep, tt.keep)
			continue
		}
		if keep && got != tt.want {
			t.Errorf("mapPackageDB(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDefaultCross(t *testing.T) {
	cfg := DefaultCross()
	if cfg.IfaceSuffix != "js_vi" || cfg.ObjSuffix != "js_wasm" {
		t.Errorf("defaults = %q %q", cfg.IfaceSuffix, cfg.ObjSuffix)
	}
	if len(cfg.Variants) != 1 || cfg.Variants[0] != CrossVariant {
		t.Errorf("variants = %v", cfg.Variants)
	}
}
