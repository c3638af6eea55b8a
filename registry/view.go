package registry

import (
	"sort"

	"go.uber.org/zap"

	"github.com/veldtlang/pluginhost/names"
)

// View is the merged, query-ready index over a session's package databases.
// Databases merge in the order given, the global database first; a unit id
// appearing in a later database shadows the earlier one. When several units
// answer to the same package name or source id, exposed entries win over
// hidden ones, then later databases over earlier ones, then higher versions.
type View struct {
	byUnit   map[names.UnitID]*Entry
	byName   map[string]*Entry
	bySource map[string]*Entry
	units    []*Entry
}

// NewView builds the merged index
func NewView(dbs ...*DB) *View {
	v := &View{
		byUnit:   make(map[names.UnitID]*Entry),
		byName:   make(map[string]*Entry),
		bySource: make(map[string]*Entry),
	}

	type slot struct {
		e  *Entry
		db int
	}
	named := make(map[string]slot)
	sourced := make(map[string]slot)

	prefer := func(e *Entry, db int, s slot) bool {
		if s.e == nil {
			return true
		}
		if e.Exposed != s.e.Exposed {
			return e.Exposed
		}
		if db != s.db {
			return db > s.db
		}
		return e.Version.Compare(s.e.Version) > 0
	}

	for _, db := range dbs {
		if db == nil {
			continue
		}
		for i := range db.Entries {
			e := &db.Entries[i]
			v.byUnit[e.Unit] = e
		}
	}

	for di, db := range dbs {
		if db == nil {
			continue
		}
		for i := range db.Entries {
			e := &db.Entries[i]
			if v.byUnit[e.Unit] != e {
				// shadowed by a later database; invisible to every index
				continue
			}
			if s := named[e.Name]; prefer(e, di, s) {
				named[e.Name] = slot{e: e, db: di}
			}
			src := e.SourceID().String()
			if s := sourced[src]; prefer(e, di, s) {
				sourced[src] = slot{e: e, db: di}
			}
		}
	}

	for name, s := range named {
		v.byName[name] = s.e
	}
	for src, s := range sourced {
		v.bySource[src] = s.e
	}

	v.units = make([]*Entry, 0, len(v.byUnit))
	for _, e := range v.byUnit {
		v.units = append(v.units, e)
	}
	sort.Slice(v.units, func(i, j int) bool {
		return v.units[i].Unit < v.units[j].Unit
	})

	Logger().Debug("built package view",
		zap.Int("databases", len(dbs)), zap.Int("units", len(v.units)))
	return v
}

// ByUnit returns the entry with exactly the given unit id
func (v *View) ByUnit(unit names.UnitID) (*Entry, bool) {
	e, ok := v.byUnit[unit]
	return e, ok
}

// ByPackageName returns the preferred entry for a bare package name
func (v *View) ByPackageName(name string) (*Entry, bool) {
	e, ok := v.byName[name]
	return e, ok
}

// BySourceID returns the preferred entry matching name and exact version,
// instance hashes ignored
func (v *View) BySourceID(id names.PackageID) (*Entry, bool) {
	e, ok := v.bySource[id.String()]
	return e, ok
}

// Units returns every visible entry ordered by unit id
func (v *View) Units() []*Entry {
	return v.units
}
