package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/veldtlang/pluginhost/registry"
)

var packagesCmd = &cobra.Command{
	Use:   "packages",
	Short: "List packages visible in the native package view",
	Long:  "Lists every package unit the native toolchain session would resolve against, after database merging and shadowing.",
	Args:  cobra.NoArgs,
	RunE:  runPackages,
}

type packageInfo struct {
	Unit     string   `json:"unit"`
	Name     string   `json:"name"`
	Version  string   `json:"version"`
	Exposed  bool     `json:"exposed"`
	Variants []string `json:"variants,omitempty"`
	Modules  []string `json:"modules,omitempty"`
}

func runPackages(cmd *cobra.Command, args []string) error {
	env, _, _, err := ensure(context.Background())
	if err != nil {
		return err
	}

	infos := make([]packageInfo, 0, len(env.Packages.Units()))
	for _, e := range env.Packages.Units() {
		infos = append(infos, packageInfo{
			Unit:     string(e.Unit),
			Name:     e.Name,
			Version:  e.Version.String(),
			Exposed:  e.Exposed,
			Variants: e.Variants,
			Modules:  moduleNames(e),
		})
	}

	if flagFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}

	for _, p := range infos {
		exposure := "hidden"
		if p.Exposed {
			exposure = "exposed"
		}
		fmt.Printf("%s  (%s, %d modules)", p.Unit, exposure, len(p.Modules))
		if len(p.Variants) > 0 {
			fmt.Printf("  [%s]", strings.Join(p.Variants, " "))
		}
		fmt.Println()
	}
	return nil
}

func moduleNames(e *registry.Entry) []string {
	out := make([]string, 0, len(e.Modules))
	for _, m := range e.Modules {
		out = append(out, m.Name)
	}
	return out
}
