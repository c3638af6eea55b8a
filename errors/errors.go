package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in plugin loading the error occurred
type Phase string

const (
	PhaseConfig Phase = "config" // session configuration
	PhaseMatch  Phase = "match"  // package matching
	PhaseIface  Phase = "iface"  // interface loading
	PhaseLoad   Phase = "load"   // value lookup
	PhaseLink   Phase = "link"   // module linking
)

// Kind categorizes the error
type Kind string

const (
	KindConfigMissing   Kind = "config_missing"
	KindVersionMismatch Kind = "version_mismatch"
	KindRegistry        Kind = "registry"
	KindInvalidData     Kind = "invalid_data"
	KindPackageNotFound Kind = "package_not_found"
	KindIfaceLoad       Kind = "iface_load"
	KindMissingEntity   Kind = "missing_entity"
	KindWrongKind       Kind = "wrong_kind"
	KindLinkFailed      Kind = "link_failed"
)

// Error is the structured error type used throughout the loader
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Unit   string
	Module string
	Symbol string
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if loc := e.location(); loc != "" {
		b.WriteString(" at ")
		b.WriteString(loc)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

func (e *Error) location() string {
	var parts []string
	if e.Unit != "" {
		parts = append(parts, e.Unit)
	}
	if e.Module != "" {
		parts = append(parts, e.Module)
	}
	if e.Symbol != "" {
		parts = append(parts, e.Symbol)
	}
	return strings.Join(parts, ":")
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Unit sets the package unit the error concerns
func (b *Builder) Unit(unit string) *Builder {
	b.err.Unit = unit
	return b
}

// Module sets the module path the error concerns
func (b *Builder) Module(module string) *Builder {
	b.err.Module = module
	return b
}

// Symbol sets the symbol occurrence name the error concerns
func (b *Builder) Symbol(symbol string) *Builder {
	b.err.Symbol = symbol
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// ConfigMissing reports an absent or unreadable native-root marker
func ConfigMissing(path string, cause error) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindConfigMissing,
		Detail: fmt.Sprintf("cannot read native toolchain marker %s", path),
		Cause:  cause,
	}
}

// VersionMismatch reports a native toolchain the cross build cannot load from
func VersionMismatch(want, got string) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindVersionMismatch,
		Detail: fmt.Sprintf("native toolchain reports version %s, this build requires %s", got, want),
	}
}

// Registry reports a package database that could not be read
func Registry(db string, cause error) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindRegistry,
		Detail: fmt.Sprintf("read package database %s", db),
		Cause:  cause,
	}
}

// PackageNotFound reports a symbol whose package has no native counterpart
func PackageNotFound(symbol, module, unit string) *Error {
	return &Error{
		Phase:  PhaseMatch,
		Kind:   KindPackageNotFound,
		Unit:   unit,
		Module: module,
		Symbol: symbol,
		Detail: fmt.Sprintf("%s is missing from the native type environment", symbol),
	}
}

// IfaceLoad reports a module interface that could not be located or parsed
func IfaceLoad(unit, module string, cause error) *Error {
	return &Error{
		Phase:  PhaseIface,
		Kind:   KindIfaceLoad,
		Unit:   unit,
		Module: module,
		Detail: "load module interface",
		Cause:  cause,
	}
}

// MissingEntity reports a matched symbol absent from its module's declarations
func MissingEntity(symbol, module, unit string) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindMissingEntity,
		Unit:   unit,
		Module: module,
		Symbol: symbol,
		Detail: fmt.Sprintf("%s is not declared by its native interface", symbol),
	}
}

// WrongKind reports a symbol that names something other than a value
func WrongKind(symbol, got string) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindWrongKind,
		Symbol: symbol,
		Detail: fmt.Sprintf("%s names a %s, not a value", symbol, got),
	}
}

// LinkFailed reports a module that could not be linked into the session
func LinkFailed(unit, module string, cause error) *Error {
	return &Error{
		Phase:  PhaseLink,
		Kind:   KindLinkFailed,
		Unit:   unit,
		Module: module,
		Detail: "link native module",
		Cause:  cause,
	}
}
