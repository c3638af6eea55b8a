// Package config models the build configuration of the veldt-js cross
// compiler and its transformation into a configuration that drives the
// native veldt toolchain plugins are loaded from.
package config

import (
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/veldtlang/pluginhost/names"
)

// Suffixes of build artifacts. The cross compiler prefixes its own with
// "js_"; the native toolchain uses the bare forms.
const (
	CrossIfaceSuffix    = "js_vi"
	CrossDynIfaceSuffix = "js_dyn_vi"
	CrossObjSuffix      = "js_wasm"

	crossSuffixPrefix = "js_"

	// CrossVariant marks artifacts of the cross build flavor
	CrossVariant = "js"
)

// PackageFlag is one -package/-hide-package style directive from the
// command line
type PackageFlag struct {
	Action string // "expose" or "hide"
	Arg    string
}

// Config is the subset of the compiler session configuration the plugin
// loader consumes. Sanitize rewrites a cross configuration into one
// addressing the native installation; everything else reads it as-is.
type Config struct {
	ToolDir         string
	GlobalPackageDB string
	PackageDBs      []string
	PackageFlags    []PackageFlag
	HideAllPackages bool
	Variants        []string
	IfaceSuffix     string
	DynIfaceSuffix  string
	ObjSuffix       string
	CurrentUnit     names.UnitID
}

// DefaultCross returns the configuration shape the cross compiler starts
// sessions with
func DefaultCross() *Config {
	return &Config{
		IfaceSuffix:    CrossIfaceSuffix,
		DynIfaceSuffix: CrossDynIfaceSuffix,
		ObjSuffix:      CrossObjSuffix,
		Variants:       []string{CrossVariant},
	}
}

// Clone returns a deep copy of the configuration
func (c *Config) Clone() *Config {
	out := *c
	out.PackageDBs = append([]string(nil), c.PackageDBs...)
	out.PackageFlags = append([]PackageFlag(nil), c.PackageFlags...)
	out.Variants = append([]string(nil), c.Variants...)
	return &out
}

// crossDBPattern matches package database directories the cross compiler
// materializes next to native ones: "<stem>-veldtjs-<ver>-veldt<ver>-pkgdb"
var crossDBPattern = regexp.MustCompile(`^(.*)-veldtjs-[0-9][0-9.]*-veldt([0-9][0-9.]*)-pkgdb$`)

// Sanitize derives the native session configuration from a cross one. The
// input is never mutated. The transformation is rule by rule:
// toolchain-internal paths are re-pointed at the native root, package
// exposure flags are cleared, the cross build variant is removed, the
// cross artifact suffixes lose their prefix, and the package database
// stack is rewritten onto the native databases.
func Sanitize(cfg *Config, nativeRoot string) *Config {
	out := cfg.Clone()

	out.ToolDir = NativeLibDir(nativeRoot)
	out.GlobalPackageDB = filepath.Join(out.ToolDir, PkgDBDirName)

	out.PackageFlags = nil
	out.HideAllPackages = false

	variants := out.Variants[:0]
	for _, v := range out.Variants {
		if v != CrossVariant {
			variants = append(variants, v)
		}
	}
	out.Variants = variants

	out.IfaceSuffix = strings.TrimPrefix(out.IfaceSuffix, crossSuffixPrefix)
	out.DynIfaceSuffix = strings.TrimPrefix(out.DynIfaceSuffix, crossSuffixPrefix)
	out.ObjSuffix = strings.TrimPrefix(out.ObjSuffix, crossSuffixPrefix)

	dbs := out.PackageDBs[:0]
	for _, db := range out.PackageDBs {
		mapped, keep := mapPackageDB(db)
		if !keep {
			Logger().Debug("dropping in-place package database", zap.String("db", db))
			continue
		}
		dbs = append(dbs, mapped)
	}
	out.PackageDBs = dbs

	return out
}

// mapPackageDB rewrites one package database path for the native session.
// In-place databases belong to the cross compiler's own build tree and
// have no native counterpart.
func mapPackageDB(db string) (string, bool) {
	base := filepath.Base(db)
	if strings.HasSuffix(base, "-inplace") {
		return "", false
	}
	if m := crossDBPattern.FindStringSubmatch(base); m != nil {
		mapped := filepath.Join(filepath.Dir(db), m[1]+"-veldt-"+m[2]+"-pkgdb")
		Logger().Debug("remapped package database",
			zap.String("from", db), zap.String("to", mapped))
		return mapped, true
	}
	return db, true
}
