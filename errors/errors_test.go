package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseLoad,
				Kind:   KindWrongKind,
				Unit:   "acme-2.0-8f3c21ab",
				Module: "Acme.Frobnicate",
				Symbol: "frobnicate",
				Detail: "names a type constructor",
			},
			contains: []string{"[load]", "wrong_kind", "acme-2.0-8f3c21ab", "Acme.Frobnicate", "frobnicate", "names a type constructor"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseConfig,
				Kind:  KindConfigMissing,
			},
			contains: []string{"[config]", "config_missing"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseLink,
				Kind:   KindLinkFailed,
				Detail: "link native module",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[link]", "link_failed", "link native module", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseConfig,
		Kind:  KindRegistry,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase:  PhaseMatch,
		Kind:   KindPackageNotFound,
		Symbol: "frobnicate",
	}

	if !err.Is(&Error{Phase: PhaseMatch, Kind: KindPackageNotFound}) {
		t.Error("Is should match same phase and kind")
	}

	if err.Is(&Error{Phase: PhaseLoad, Kind: KindPackageNotFound}) {
		t.Error("Is should not match different phase")
	}

	if err.Is(&Error{Phase: PhaseMatch, Kind: KindRegistry}) {
		t.Error("Is should not match different kind")
	}

	target := &Error{Phase: PhaseMatch, Kind: KindPackageNotFound}
	if !errors.Is(err, target) {
		t.Error("errors.Is should match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseIface, KindIfaceLoad).
		Unit("acme-2.0").
		Module("Acme.Frobnicate").
		Symbol("frobnicate").
		Cause(cause).
		Detail("expected %s, found %s", "value", "class").
		Build()

	if err.Phase != PhaseIface {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseIface)
	}
	if err.Kind != KindIfaceLoad {
		t.Errorf("Kind = %v, want %v", err.Kind, KindIfaceLoad)
	}
	if err.Unit != "acme-2.0" {
		t.Errorf("Unit = %v, want 'acme-2.0'", err.Unit)
	}
	if err.Module != "Acme.Frobnicate" {
		t.Errorf("Module = %v, want 'Acme.Frobnicate'", err.Module)
	}
	if err.Symbol != "frobnicate" {
		t.Errorf("Symbol = %v, want 'frobnicate'", err.Symbol)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected value, found class" {
		t.Errorf("Detail = %v, want 'expected value, found class'", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("ConfigMissing", func(t *testing.T) {
		cause := errors.New("no such file")
		err := ConfigMissing("/opt/veldt-js/lib/native-root", cause)
		if err.Phase != PhaseConfig || err.Kind != KindConfigMissing {
			t.Errorf("Phase=%v Kind=%v", err.Phase, err.Kind)
		}
		if !strings.Contains(err.Detail, "native-root") {
			t.Errorf("Detail = %v, should name the marker path", err.Detail)
		}
		if !errors.Is(err, &Error{Phase: PhaseConfig, Kind: KindConfigMissing}) {
			t.Error("errors.Is should match")
		}
	})

	t.Run("VersionMismatch", func(t *testing.T) {
		err := VersionMismatch("9.4", "9.6.2")
		if err.Kind != KindVersionMismatch {
			t.Errorf("Kind = %v, want %v", err.Kind, KindVersionMismatch)
		}
		if !strings.Contains(err.Detail, "9.6.2") || !strings.Contains(err.Detail, "9.4") {
			t.Errorf("Detail = %v, should name both versions", err.Detail)
		}
	})

	t.Run("Registry", func(t *testing.T) {
		cause := errors.New("permission denied")
		err := Registry("/opt/veldt/lib/pkgdb", cause)
		if err.Kind != KindRegistry {
			t.Errorf("Kind = %v, want %v", err.Kind, KindRegistry)
		}
		if !errors.Is(err.Cause, cause) {
			t.Error("cause not preserved")
		}
	})

	t.Run("PackageNotFound", func(t *testing.T) {
		err := PackageNotFound("frobnicate", "Acme.Frobnicate", "acme-2.0-8f3c21ab")
		if err.Phase != PhaseMatch || err.Kind != KindPackageNotFound {
			t.Errorf("Phase=%v Kind=%v", err.Phase, err.Kind)
		}
		if !strings.Contains(err.Detail, "missing from the native type environment") {
			t.Errorf("Detail = %v", err.Detail)
		}
		if !strings.Contains(err.Error(), "frobnicate") {
			t.Errorf("rendering should name the symbol: %v", err)
		}
	})

	t.Run("IfaceLoad", func(t *testing.T) {
		cause := errors.New("toml: unexpected token")
		err := IfaceLoad("acme-2.0", "Acme.Frobnicate", cause)
		if err.Phase != PhaseIface || err.Kind != KindIfaceLoad {
			t.Errorf("Phase=%v Kind=%v", err.Phase, err.Kind)
		}
	})

	t.Run("MissingEntity", func(t *testing.T) {
		err := MissingEntity("frobnicate", "Acme.Frobnicate", "acme-2.0")
		if err.Phase != PhaseLoad || err.Kind != KindMissingEntity {
			t.Errorf("Phase=%v Kind=%v", err.Phase, err.Kind)
		}
	})

	t.Run("WrongKind", func(t *testing.T) {
		err := WrongKind("frobnicate", "class")
		if err.Kind != KindWrongKind {
			t.Errorf("Kind = %v, want %v", err.Kind, KindWrongKind)
		}
		if !strings.Contains(err.Detail, "class") {
			t.Errorf("Detail = %v, should name the actual kind", err.Detail)
		}
	})

	t.Run("LinkFailed", func(t *testing.T) {
		cause := errors.New("invalid magic number")
		err := LinkFailed("acme-2.0", "Acme.Frobnicate", cause)
		if err.Phase != PhaseLink || err.Kind != KindLinkFailed {
			t.Errorf("Phase=%v Kind=%v", err.Phase, err.Kind)
		}
		if !errors.Is(err.Cause, cause) {
			t.Error("cause not preserved")
		}
	})
}
