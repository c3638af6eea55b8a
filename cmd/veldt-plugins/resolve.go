package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veldtlang/pluginhost/iface"
	"github.com/veldtlang/pluginhost/match"
	"github.com/veldtlang/pluginhost/names"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <unit> <module> <name>",
	Short: "Resolve a cross-compiled name into the native universe",
	Long:  "Shows how a package unit the cross compiler knows maps onto an installed native unit, which module defines the named export, and what type it declares.",
	Args:  cobra.ExactArgs(3),
	RunE:  runResolve,
}

type resolution struct {
	RequestedUnit string `json:"requested_unit"`
	NativeUnit    string `json:"native_unit"`
	Module        string `json:"module"`
	OriginUnit    string `json:"origin_unit"`
	OriginModule  string `json:"origin_module"`
	Name          string `json:"name"`
	Kind          string `json:"kind,omitempty"`
	Type          string `json:"type,omitempty"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	unit, module, occ := names.UnitID(args[0]), args[1], args[2]

	env, _, cfg, err := ensure(context.Background())
	if err != nil {
		return err
	}

	native, ok := match.RemapUnit(cfg, env.Packages, module, unit)
	if !ok {
		return fmt.Errorf("no native package matches %s", unit)
	}

	ifc, err := env.Interface(names.ModuleRef{Unit: native, Module: module})
	if err != nil {
		return err
	}

	// scan instead of ResolveExport: arbitrary command-line names missing
	// from the export list are a user miss, not corrupt data
	var exp *iface.Export
	for i := range ifc.Exports {
		if ifc.Exports[i].Occ == occ {
			exp = &ifc.Exports[i]
			break
		}
	}
	if exp == nil {
		return fmt.Errorf("%s exports no %q", ifc.Module, occ)
	}

	res := resolution{
		RequestedUnit: string(unit),
		NativeUnit:    string(native),
		Module:        module,
		OriginUnit:    string(exp.Origin.Unit),
		OriginModule:  exp.Origin.Module,
		Name:          occ,
	}

	origin, err := env.Interface(exp.Origin)
	if err == nil {
		if d, ok := origin.Decl(occ); ok {
			res.Kind = string(d.Kind)
			res.Type = d.Sig.String()
		}
	}

	if flagFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Printf("%s -> %s\n", res.RequestedUnit, res.NativeUnit)
	fmt.Printf("export %s.%s", res.Module, res.Name)
	if res.OriginModule != res.Module || res.OriginUnit != res.NativeUnit {
		fmt.Printf(" (defined in %s:%s)", res.OriginUnit, res.OriginModule)
	}
	fmt.Println()
	if res.Type != "" {
		fmt.Printf("%s : %s\n", res.Kind, res.Type)
	}
	return nil
}
