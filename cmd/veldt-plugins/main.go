// veldt-plugins inspects the native plugin universe behind a veldt-js
// installation: which packages the native toolchain has installed, how
// cross-compiled package identities map onto them, and what values their
// modules export.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/veldtlang/pluginhost/config"
	"github.com/veldtlang/pluginhost/loader"
	"github.com/veldtlang/pluginhost/match"
	"github.com/veldtlang/pluginhost/registry"
	"github.com/veldtlang/pluginhost/session"
)

// toolVersion is the cross toolchain release this tool ships with
const toolVersion = "0.9.0"

// libDirEnv names the cross installation when --lib is not given
const libDirEnv = "VELDTJS_LIBDIR"

var (
	flagLib         string
	flagHostVersion string
	flagFormat      string
	flagVerbose     bool
)

var mgr = session.NewManager()

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "veldt-plugins",
	Short:         "Inspect the native plugin universe of a veldt-js installation",
	Long:          "veldt-plugins resolves the native toolchain a veldt-js installation points at and answers questions about it: installed packages, package-identity remapping, and exported values with their declared types.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if flagFormat != "json" && flagFormat != "text" {
			return fmt.Errorf("invalid format %q (want json or text)", flagFormat)
		}
		if flagVerbose {
			l, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			config.SetLogger(l)
			registry.SetLogger(l)
			match.SetLogger(l)
			session.SetLogger(l)
			loader.SetLogger(l)
		}
		return nil
	},
	// No Run: prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLib, "lib", "", "cross toolchain lib directory (default: $"+libDirEnv+")")
	rootCmd.PersistentFlags().StringVar(&flagHostVersion, "host-version", "", "native toolchain version to insist on (major.minor)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format: json|text")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "log internal progress to stderr")

	rootCmd.AddCommand(packagesCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(fixtureCmd)
}

// settings resolves which cross installation the tool operates on
func settings() (*config.Settings, error) {
	lib := flagLib
	if lib == "" {
		lib = os.Getenv(libDirEnv)
	}
	if lib == "" {
		return nil, fmt.Errorf("no cross toolchain lib directory: pass --lib or set %s", libDirEnv)
	}
	return &config.Settings{
		LibDir:      lib,
		ToolVersion: toolVersion,
		HostVersion: flagHostVersion,
	}, nil
}

// ensure starts (or reuses) the native toolchain session
func ensure(ctx context.Context) (*session.Environment, *config.Settings, *config.Config, error) {
	st, err := settings()
	if err != nil {
		return nil, nil, nil, err
	}
	cfg := config.DefaultCross()
	env, err := mgr.Ensure(ctx, st, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return env, st, cfg, nil
}
