package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/veldtlang/pluginhost/config"
	"github.com/veldtlang/pluginhost/internal/wasmgen"
)

var fixtureCmd = &cobra.Command{
	Use:   "fixture <dir>",
	Short: "Write a self-contained demo installation",
	Long:  "Fabricates a cross installation whose marker points at a fabricated native toolchain with one demo package, so every other subcommand has something to run against.",
	Args:  cobra.ExactArgs(1),
	RunE:  runFixture,
}

// demoNativeVersion is what the fabricated native toolchain claims to be
const demoNativeVersion = "9.6.1"

const demoIface = `module = "Demo.Core"
unit = "demo-1.0-0123abcd"

[[export]]
occ = "answer"
unique = 1

[[export]]
occ = "add"
unique = 2

[[decl]]
occ = "answer"
type = "u32"

[[decl]]
occ = "add"
type = "func(x: u32, y: u32) -> u32"
`

func runFixture(cmd *cobra.Command, args []string) error {
	base, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	crossLib := filepath.Join(base, "cross", "lib")
	root := filepath.Join(base, "native")
	pkgDir := filepath.Join(root, "pkg", "demo")
	for _, dir := range []string{crossLib, filepath.Join(root, "lib", "pkgdb"), filepath.Join(pkgDir, "Demo")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	demo := &wasmgen.Module{
		Funcs: []wasmgen.Func{{
			Name: "add",
			Type: wasmgen.FuncType{
				Params:  []wasmgen.ValType{wasmgen.I32, wasmgen.I32},
				Results: []wasmgen.ValType{wasmgen.I32},
			},
			Body: wasmgen.AddI32Body(),
		}},
		Globals: []wasmgen.Global{{Name: "answer", Type: wasmgen.I32, Value: 42}},
	}

	files := []struct {
		path string
		data []byte
	}{
		{filepath.Join(crossLib, config.MarkerFile), []byte(root + "\n")},
		{filepath.Join(root, "lib", config.SettingsFile), []byte("version = \"" + demoNativeVersion + "\"\n")},
		{filepath.Join(root, "lib", "pkgdb", "demo.conf"), []byte(fmt.Sprintf(`unit = "demo-1.0-0123abcd"
name = "demo"
version = "1.0"
exposed = true
import-dirs = [%q]

[[module]]
name = "Demo.Core"
`, pkgDir))},
		{filepath.Join(pkgDir, "Demo", "Core.vi"), []byte(demoIface)},
		{filepath.Join(pkgDir, "Demo", "Core.wasm"), demo.Encode()},
	}
	for _, f := range files {
		if err := os.WriteFile(f.path, f.data, 0o644); err != nil {
			return err
		}
	}

	fmt.Printf("Demo installation written under %s\n\n", base)
	fmt.Printf("  export %s=%s\n\n", libDirEnv, crossLib)
	fmt.Println("Try:")
	fmt.Println("  veldt-plugins packages")
	fmt.Println("  veldt-plugins resolve demo-1.0-ffffffff Demo.Core add")
	fmt.Println("  veldt-plugins get demo-1.0-0123abcd Demo.Core answer --type u32")
	fmt.Println("  veldt-plugins get demo-1.0-0123abcd Demo.Core add --type \"func(x: u32, y: u32) -> u32\" --call 2,3")
	return nil
}
