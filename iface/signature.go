package iface

import (
	"fmt"
	"regexp"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/veldtlang/pluginhost/errors"
)

// Signature is a declared type: a plain value type or a function type over
// WIT types. Plain values carry their type as the single result.
type Signature struct {
	Params  []wit.Type
	Results []wit.Type
	Func    bool
}

// ValueOf returns a plain value signature
func ValueOf(t wit.Type) *Signature {
	return &Signature{Results: []wit.Type{t}}
}

// FuncOf returns a function signature
func FuncOf(params, results []wit.Type) *Signature {
	return &Signature{Params: params, Results: results, Func: true}
}

// funcPattern matches the function shape of declared type text:
// "func(x: u32, y: string) -> bool"
var funcPattern = regexp.MustCompile(`^func\s*\(([^)]*)\)(?:\s*->\s*(.+))?$`)

// ParseSignature parses declared type text. Anything that does not open
// with the func shape is a single WIT type.
func ParseSignature(s string) (*Signature, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New(errors.PhaseIface, errors.KindInvalidData).
			Detail("empty type text").
			Build()
	}

	m := funcPattern.FindStringSubmatch(s)
	if m == nil {
		t, err := parseType(s)
		if err != nil {
			return nil, errors.New(errors.PhaseIface, errors.KindInvalidData).
				Detail("parse type %q", s).
				Cause(err).
				Build()
		}
		return ValueOf(t), nil
	}

	sig := &Signature{Func: true}

	if params := strings.TrimSpace(m[1]); params != "" {
		for _, p := range splitTypeList(params) {
			typText := p
			if idx := strings.LastIndex(p, ":"); idx != -1 {
				typText = strings.TrimSpace(p[idx+1:])
			}
			t, err := parseType(typText)
			if err != nil {
				return nil, errors.New(errors.PhaseIface, errors.KindInvalidData).
					Detail("parse parameter type %q", typText).
					Cause(err).
					Build()
			}
			sig.Params = append(sig.Params, t)
		}
	}

	if results := strings.TrimSpace(m[2]); results != "" && results != "()" {
		list := []string{results}
		if strings.HasPrefix(results, "(") && strings.HasSuffix(results, ")") {
			inner := strings.TrimSuffix(strings.TrimPrefix(results, "("), ")")
			list = splitTypeList(inner)
		}
		for _, r := range list {
			t, err := parseType(strings.TrimSpace(r))
			if err != nil {
				return nil, errors.New(errors.PhaseIface, errors.KindInvalidData).
					Detail("parse result type %q", r).
					Cause(err).
					Build()
			}
			sig.Results = append(sig.Results, t)
		}
	}

	return sig, nil
}

// parseType parses one WIT type. Constructor applications are assembled
// here; primitive leaves go through the wit package's own parser.
func parseType(s string) (wit.Type, error) {
	s = strings.TrimSpace(s)
	if s == "result" {
		return &wit.TypeDef{Kind: &wit.Result{}}, nil
	}

	head, inner, ok := splitConstructor(s)
	if !ok {
		return wit.ParseType(s)
	}

	switch head {
	case "list":
		elem, err := parseType(inner)
		if err != nil {
			return nil, err
		}
		return &wit.TypeDef{Kind: &wit.List{Type: elem}}, nil
	case "option":
		elem, err := parseType(inner)
		if err != nil {
			return nil, err
		}
		return &wit.TypeDef{Kind: &wit.Option{Type: elem}}, nil
	case "tuple":
		var types []wit.Type
		for _, part := range splitTypeList(inner) {
			t, err := parseType(part)
			if err != nil {
				return nil, err
			}
			types = append(types, t)
		}
		if len(types) == 0 {
			return nil, fmt.Errorf("tuple needs at least one type argument")
		}
		return &wit.TypeDef{Kind: &wit.Tuple{Types: types}}, nil
	case "result":
		parts := splitTypeList(inner)
		if len(parts) == 0 || len(parts) > 2 {
			return nil, fmt.Errorf("result takes one or two type arguments, got %d", len(parts))
		}
		r := &wit.Result{}
		if parts[0] != "_" {
			okType, err := parseType(parts[0])
			if err != nil {
				return nil, err
			}
			r.OK = okType
		}
		if len(parts) == 2 {
			errType, err := parseType(parts[1])
			if err != nil {
				return nil, err
			}
			r.Err = errType
		}
		return &wit.TypeDef{Kind: r}, nil
	default:
		return nil, fmt.Errorf("unknown type constructor %q", head)
	}
}

// splitConstructor recognizes "head<inner>" type text
func splitConstructor(s string) (head, inner string, ok bool) {
	open := strings.IndexByte(s, '<')
	if open < 1 || !strings.HasSuffix(s, ">") {
		return "", "", false
	}
	return s[:open], s[open+1 : len(s)-1], true
}

// splitTypeList splits a comma-separated type list, leaving commas nested
// in parens or angle brackets alone ("tuple<u32, string>" stays whole)
func splitTypeList(s string) []string {
	var result []string
	var current strings.Builder
	depth := 0

	for _, ch := range s {
		switch ch {
		case '(', '<':
			depth++
			current.WriteRune(ch)
		case ')', '>':
			depth--
			current.WriteRune(ch)
		case ',':
			if depth == 0 {
				if str := strings.TrimSpace(current.String()); str != "" {
					result = append(result, str)
				}
				current.Reset()
			} else {
				current.WriteRune(ch)
			}
		default:
			current.WriteRune(ch)
		}
	}

	if str := strings.TrimSpace(current.String()); str != "" {
		result = append(result, str)
	}

	return result
}

// Equal reports whether two signatures declare the same type
func (s *Signature) Equal(other *Signature) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s.Func != other.Func {
		return false
	}
	if len(s.Params) != len(other.Params) || len(s.Results) != len(other.Results) {
		return false
	}
	for i := range s.Params {
		if !TypeEqual(s.Params[i], other.Params[i]) {
			return false
		}
	}
	for i := range s.Results {
		if !TypeEqual(s.Results[i], other.Results[i]) {
			return false
		}
	}
	return true
}

// TypeEqual reports structural equality of two declared types. Named
// typedefs compare by shape; spelling a type inline or through a name
// makes no difference.
func TypeEqual(a, b wit.Type) bool {
	a = resolveAlias(a)
	b = resolveAlias(b)

	ad, aDef := a.(*wit.TypeDef)
	bd, bDef := b.(*wit.TypeDef)
	if aDef != bDef {
		return false
	}
	if !aDef {
		return a == b
	}
	if ad == bd {
		return true
	}
	return kindEqual(ad.Kind, bd.Kind)
}

// resolveAlias unwraps typedefs that merely rename another type
func resolveAlias(t wit.Type) wit.Type {
	for {
		td, ok := t.(*wit.TypeDef)
		if !ok {
			return t
		}
		inner, ok := td.Kind.(wit.Type)
		if !ok {
			return t
		}
		t = inner
	}
}

func kindEqual(a, b wit.TypeDefKind) bool {
	switch ak := a.(type) {
	case *wit.List:
		bk, ok := b.(*wit.List)
		return ok && TypeEqual(ak.Type, bk.Type)
	case *wit.Option:
		bk, ok := b.(*wit.Option)
		return ok && TypeEqual(ak.Type, bk.Type)
	case *wit.Tuple:
		bk, ok := b.(*wit.Tuple)
		if !ok || len(ak.Types) != len(bk.Types) {
			return false
		}
		for i := range ak.Types {
			if !TypeEqual(ak.Types[i], bk.Types[i]) {
				return false
			}
		}
		return true
	case *wit.Result:
		bk, ok := b.(*wit.Result)
		if !ok {
			return false
		}
		return optionalTypeEqual(ak.OK, bk.OK) && optionalTypeEqual(ak.Err, bk.Err)
	case *wit.Record:
		bk, ok := b.(*wit.Record)
		if !ok || len(ak.Fields) != len(bk.Fields) {
			return false
		}
		for i := range ak.Fields {
			if ak.Fields[i].Name != bk.Fields[i].Name {
				return false
			}
			if !TypeEqual(ak.Fields[i].Type, bk.Fields[i].Type) {
				return false
			}
		}
		return true
	case *wit.Enum:
		bk, ok := b.(*wit.Enum)
		if !ok || len(ak.Cases) != len(bk.Cases) {
			return false
		}
		for i := range ak.Cases {
			if ak.Cases[i].Name != bk.Cases[i].Name {
				return false
			}
		}
		return true
	case *wit.Flags:
		bk, ok := b.(*wit.Flags)
		if !ok || len(ak.Flags) != len(bk.Flags) {
			return false
		}
		for i := range ak.Flags {
			if ak.Flags[i].Name != bk.Flags[i].Name {
				return false
			}
		}
		return true
	case *wit.Variant:
		bk, ok := b.(*wit.Variant)
		if !ok || len(ak.Cases) != len(bk.Cases) {
			return false
		}
		for i := range ak.Cases {
			if ak.Cases[i].Name != bk.Cases[i].Name {
				return false
			}
			if !optionalTypeEqual(ak.Cases[i].Type, bk.Cases[i].Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func optionalTypeEqual(a, b wit.Type) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	if a == nil {
		return true
	}
	return TypeEqual(a, b)
}

// String renders the signature the way interface files spell it
func (s *Signature) String() string {
	if s == nil {
		return "<nil>"
	}
	if !s.Func {
		if len(s.Results) == 1 {
			return TypeString(s.Results[0])
		}
		return "<malformed>"
	}

	var b strings.Builder
	b.WriteString("func(")
	for i, p := range s.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(TypeString(p))
	}
	b.WriteByte(')')
	switch len(s.Results) {
	case 0:
	case 1:
		b.WriteString(" -> ")
		b.WriteString(TypeString(s.Results[0]))
	default:
		b.WriteString(" -> (")
		for i, r := range s.Results {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(TypeString(r))
		}
		b.WriteByte(')')
	}
	return b.String()
}

// TypeString renders one WIT type
func TypeString(t wit.Type) string {
	switch v := t.(type) {
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.S8:
		return "s8"
	case wit.U16:
		return "u16"
	case wit.S16:
		return "s16"
	case wit.U32:
		return "u32"
	case wit.S32:
		return "s32"
	case wit.U64:
		return "u64"
	case wit.S64:
		return "s64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	case wit.Char:
		return "char"
	case wit.String:
		return "string"
	case *wit.TypeDef:
		return typeDefString(v)
	default:
		return fmt.Sprintf("%T", t)
	}
}

func typeDefString(td *wit.TypeDef) string {
	switch k := td.Kind.(type) {
	case *wit.List:
		return "list<" + TypeString(k.Type) + ">"
	case *wit.Option:
		return "option<" + TypeString(k.Type) + ">"
	case *wit.Tuple:
		parts := make([]string, len(k.Types))
		for i, t := range k.Types {
			parts[i] = TypeString(t)
		}
		return "tuple<" + strings.Join(parts, ", ") + ">"
	case *wit.Result:
		switch {
		case k.OK == nil && k.Err == nil:
			return "result"
		case k.Err == nil:
			return "result<" + TypeString(k.OK) + ">"
		case k.OK == nil:
			return "result<_, " + TypeString(k.Err) + ">"
		default:
			return "result<" + TypeString(k.OK) + ", " + TypeString(k.Err) + ">"
		}
	case wit.Type:
		return TypeString(k)
	default:
		if td.Name != nil {
			return *td.Name
		}
		return "typedef"
	}
}
