package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.bytecodealliance.org/wit"

	"github.com/veldtlang/pluginhost/iface"
	"github.com/veldtlang/pluginhost/loader"
	"github.com/veldtlang/pluginhost/names"
)

var (
	flagType string
	flagCall string
)

var getCmd = &cobra.Command{
	Use:   "get <unit> <module> <name>",
	Short: "Retrieve an exported value, checking its declared type",
	Long:  "Loads the named value from its defining native module. The value is only handed out when the type declared in the module interface equals --type; plain values print their contents, functions are invoked when --call provides arguments.",
	Args:  cobra.ExactArgs(3),
	RunE:  runGet,
}

func init() {
	getCmd.Flags().StringVar(&flagType, "type", "", "expected declared type, WIT syntax (required)")
	getCmd.Flags().StringVar(&flagCall, "call", "", "comma-separated arguments to invoke a function value with")
	_ = getCmd.MarkFlagRequired("type")
}

type retrieval struct {
	Unit    string   `json:"unit"`
	Module  string   `json:"module"`
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Matched bool     `json:"matched"`
	Value   *uint64  `json:"value,omitempty"`
	Results []uint64 `json:"results,omitempty"`
}

func runGet(cmd *cobra.Command, args []string) error {
	unit, module, occ := names.UnitID(args[0]), args[1], args[2]

	want, err := iface.ParseSignature(flagType)
	if err != nil {
		return fmt.Errorf("invalid --type: %w", err)
	}

	ctx := context.Background()
	_, st, cfg, err := ensure(ctx)
	if err != nil {
		return err
	}

	h, ok, err := loader.LookupExported(ctx, st, mgr, cfg, unit, module, occ, want)
	if err != nil {
		return err
	}

	res := retrieval{
		Unit:    args[0],
		Module:  module,
		Name:    occ,
		Type:    flagType,
		Matched: ok,
	}

	if !ok {
		if flagFormat == "json" {
			return printJSON(res)
		}
		fmt.Printf("%s.%s is not declared as %s\n", module, occ, flagType)
		return nil
	}

	switch {
	case h.Global() != nil:
		v := h.Global().Get()
		res.Value = &v

	case flagCall != "":
		callArgs, err := parseCallArgs(flagCall, h.Signature())
		if err != nil {
			return err
		}
		out, err := h.Func().Call(ctx, callArgs...)
		if err != nil {
			return fmt.Errorf("call %s.%s: %w", module, occ, err)
		}
		res.Results = out
	}

	if flagFormat == "json" {
		return printJSON(res)
	}

	fmt.Printf("%s : %s\n", h.Name(), h.Signature())
	switch {
	case res.Value != nil:
		fmt.Printf("= %d\n", *res.Value)
	case res.Results != nil:
		fmt.Printf("-> %v\n", res.Results)
	default:
		fmt.Println("(function value; pass --call to invoke it)")
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseCallArgs converts comma-separated argument text into core stack
// values, one per declared parameter.
func parseCallArgs(text string, sig *iface.Signature) ([]uint64, error) {
	parts := strings.Split(text, ",")
	if len(parts) != len(sig.Params) {
		return nil, fmt.Errorf("%d arguments given, function takes %d", len(parts), len(sig.Params))
	}
	out := make([]uint64, len(parts))
	for i, p := range parts {
		v, err := coreArg(strings.TrimSpace(p), sig.Params[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out[i] = v
	}
	return out, nil
}

// coreArg encodes one textual argument as the core stack value for its
// declared WIT type.
func coreArg(value string, t wit.Type) (uint64, error) {
	switch t.(type) {
	case wit.Bool:
		if value == "true" || value == "1" {
			return 1, nil
		}
		return 0, nil
	case wit.U8, wit.U16, wit.U32, wit.Char:
		v, err := strconv.ParseUint(value, 10, 32)
		return v, err
	case wit.S8, wit.S16, wit.S32:
		v, err := strconv.ParseInt(value, 10, 32)
		return uint64(uint32(int32(v))), err
	case wit.U64:
		return strconv.ParseUint(value, 10, 64)
	case wit.S64:
		v, err := strconv.ParseInt(value, 10, 64)
		return uint64(v), err
	case wit.F32:
		v, err := strconv.ParseFloat(value, 32)
		return uint64(math.Float32bits(float32(v))), err
	case wit.F64:
		v, err := strconv.ParseFloat(value, 64)
		return math.Float64bits(v), err
	default:
		return 0, fmt.Errorf("cannot build a %s argument from the command line", iface.TypeString(t))
	}
}
