// Package registry reads installed-package databases of the native veldt
// toolchain: directories of per-package conf files with an optional SQLite
// cache index. The databases are owned by the package tool; this package
// only ever reads them.
package registry

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"github.com/veldtlang/pluginhost/errors"
	"github.com/veldtlang/pluginhost/names"
)

// ModuleEntry is one row of a package's module table. Unit is empty for
// modules the package provides itself and names the providing unit for
// re-exported or instantiated modules.
type ModuleEntry struct {
	Name string       `toml:"name"`
	Unit names.UnitID `toml:"unit,omitempty"`
}

// Entry describes one installed package, one conf file
type Entry struct {
	Unit       names.UnitID  `toml:"unit"`
	Name       string        `toml:"name"`
	Version    names.Version `toml:"version"`
	Variants   []string      `toml:"variants"`
	Exposed    bool          `toml:"exposed"`
	ImportDirs []string      `toml:"import-dirs"`
	Modules    []ModuleEntry `toml:"module"`
}

// SourceID returns the entry's name+version identity
func (e *Entry) SourceID() names.PackageID {
	return names.PackageID{Name: e.Name, Version: e.Version}
}

// ModuleUnit returns the unit that provides the named module
func (e *Entry) ModuleUnit(module string) (names.UnitID, bool) {
	for i := range e.Modules {
		if e.Modules[i].Name != module {
			continue
		}
		if e.Modules[i].Unit != "" {
			return e.Modules[i].Unit, true
		}
		return e.Unit, true
	}
	return "", false
}

// HasVariant reports whether the entry was built with the given build variant
func (e *Entry) HasVariant(v string) bool {
	for _, have := range e.Variants {
		if have == v {
			return true
		}
	}
	return false
}

// DB is one package database directory, fully loaded
type DB struct {
	Path    string
	Entries []Entry
}

const cacheFile = "cache.db"

// Open reads the package database at dir. A cache.db index written by the
// package tool is preferred; when the cache is absent or unreadable the
// conf files are scanned instead.
func Open(dir string) (*DB, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Registry(dir, err)
	}
	if !info.IsDir() {
		return nil, errors.New(errors.PhaseConfig, errors.KindRegistry).
			Detail("package database %s is not a directory", dir).
			Build()
	}

	cache := filepath.Join(dir, cacheFile)
	if _, err := os.Stat(cache); err == nil {
		entries, err := readCache(cache)
		if err == nil {
			Logger().Debug("loaded package database from cache",
				zap.String("db", dir), zap.Int("packages", len(entries)))
			return &DB{Path: dir, Entries: entries}, nil
		}
		Logger().Warn("package cache unreadable, scanning conf files",
			zap.String("db", dir), zap.Error(err))
	}

	entries, err := readConfDir(dir)
	if err != nil {
		return nil, err
	}
	Logger().Debug("loaded package database from conf files",
		zap.String("db", dir), zap.Int("packages", len(entries)))
	return &DB{Path: dir, Entries: entries}, nil
}

// readConfDir parses every *.conf file in dir. os.ReadDir sorts by file
// name, which keeps the load order deterministic.
func readConfDir(dir string) ([]Entry, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Registry(dir, err)
	}

	var entries []Entry
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".conf") {
			continue
		}
		path := filepath.Join(dir, f.Name())

		var e Entry
		if _, err := toml.DecodeFile(path, &e); err != nil {
			return nil, errors.Registry(path, err)
		}
		if err := normalizeEntry(&e, path); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// normalizeEntry fills name and version from the unit id when the conf
// omits them, and rejects entries with no unit at all
func normalizeEntry(e *Entry, origin string) error {
	if e.Unit == "" {
		return errors.New(errors.PhaseConfig, errors.KindRegistry).
			Detail("%s has no unit id", origin).
			Build()
	}
	if e.Name == "" {
		e.Name = e.Unit.PackageName()
	}
	if len(e.Version) == 0 {
		if src, ok := e.Unit.SourceID(); ok {
			e.Version = src.Version
		}
	}
	return nil
}
