package registry

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/veldtlang/pluginhost/names"
)

// readCache loads every package from a cache.db index. List-valued columns
// hold newline-joined text; the modules table carries one row per exposed
// module with an optional providing unit.
func readCache(path string) ([]Entry, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping cache: %w", err)
	}

	modules, err := readCacheModules(db)
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(
		"SELECT unit, name, version, variants, exposed, import_dirs FROM packages ORDER BY unit")
	if err != nil {
		return nil, fmt.Errorf("query packages: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			unit, name, version  string
			variants, importDirs string
			exposed              bool
		)
		if err := rows.Scan(&unit, &name, &version, &variants, &exposed, &importDirs); err != nil {
			return nil, fmt.Errorf("scan package: %w", err)
		}

		e := Entry{
			Unit:       names.UnitID(unit),
			Name:       name,
			Variants:   splitList(variants),
			Exposed:    exposed,
			ImportDirs: splitList(importDirs),
			Modules:    modules[names.UnitID(unit)],
		}
		if version != "" {
			v, ok := names.ParseVersion(version)
			if !ok {
				return nil, fmt.Errorf("package %s: invalid version %q", unit, version)
			}
			e.Version = v
		}
		if err := normalizeEntry(&e, path); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read packages: %w", err)
	}
	return entries, nil
}

func readCacheModules(db *sql.DB) (map[names.UnitID][]ModuleEntry, error) {
	rows, err := db.Query("SELECT unit, name, target_unit FROM modules ORDER BY unit, name")
	if err != nil {
		return nil, fmt.Errorf("query modules: %w", err)
	}
	defer rows.Close()

	out := make(map[names.UnitID][]ModuleEntry)
	for rows.Next() {
		var unit, name string
		var target sql.NullString
		if err := rows.Scan(&unit, &name, &target); err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		m := ModuleEntry{Name: name}
		if target.Valid {
			m.Unit = names.UnitID(target.String)
		}
		out[names.UnitID(unit)] = append(out[names.UnitID(unit)], m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read modules: %w", err)
	}
	return out, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, "\n") {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
