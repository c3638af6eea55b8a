// Package pluginhost loads plugins compiled by the native veldt toolchain
// into a veldt-js cross-compilation session.
//
// The cross compiler targets browsers and cannot execute the plugins it
// compiles against. Instead it keeps a native veldt installation beside
// itself and borrows values from there. Given a name and the type the
// compiler expects it to have, this library lazily starts the one native
// toolchain session, carries the name's package identity from the cross
// package universe into the native one, resolves the occurrence through
// the defining module's interface, verifies the declared type against the
// expectation, links the module's code into the session, and hands back a
// validated handle.
//
// # Architecture Overview
//
// The library is organized into packages with distinct responsibilities:
//
//	pluginhost/
//	├── names/             package units, module references, name occurrences
//	├── errors/            structured errors for every loading phase
//	├── registry/          installed-package databases: TOML conf files with
//	│                      an optional SQLite cache index, merged views
//	├── config/            cross and native configuration, the sanitizer,
//	│                      the native-root marker and settings
//	├── iface/             module interface files, WIT type signatures,
//	│                      export-list resolution
//	├── match/             the package-matching policy between universes
//	├── session/           the native toolchain session: wazero runtime,
//	│                      WASI host init, interface cache, module linking
//	├── loader/            validated value retrieval, the ValueHandle surface
//	└── cmd/veldt-plugins/ inspection CLI and interactive browser
//
// # Quick Start
//
// Retrieve an exported function whose declared type must match:
//
//	mgr := session.NewManager()
//	want, _ := iface.ParseSignature("func(x: u32) -> u32")
//
//	h, ok, err := loader.LookupExported(ctx, st, mgr, config.DefaultCross(),
//	    "acme-2.0-8f3c21ab", "Acme.Frob", "frobnicate", want)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !ok {
//	    // the installed package declares frobnicate at a different type
//	}
//	res, err := h.Func().Call(ctx, 21)
//
// A type mismatch is not an error: it reports ok=false so the caller can
// fall back the way it would for a name that is simply absent. Errors are
// reserved for broken installations: missing configuration, version skew,
// unreadable databases, stale interfaces, failed linking.
//
// # Thread Safety
//
// Manager, Environment, and the retrieval functions are safe for
// concurrent use. A Manager constructs at most one Environment no matter
// how many goroutines ask, and a module links at most once per session.
// Handles stay valid for the session lifetime; there is no unloading.
package pluginhost
