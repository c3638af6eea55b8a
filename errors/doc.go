// Package errors provides structured error types for the plugin loader.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type includes the package unit, module path, and
// symbol name involved, plus a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseLoad, errors.KindWrongKind).
//		Unit("acme-2.0-8f3c21ab").
//		Module("Acme.Frobnicate").
//		Symbol("frobnicate").
//		Detail("frobnicate names a type constructor").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.PackageNotFound("frobnicate", "Acme.Frobnicate", "acme-2.0-8f3c21ab")
//	err := errors.ConfigMissing("/opt/veldt-js/lib/native-root", cause)
//
// All errors implement the standard error interface and support errors.Is/As.
// Note that a declared-versus-expected type disagreement is not represented
// here at all: value lookup reports it as a no-match result, not an error.
package errors
