package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/coreos/go-semver/semver"
	"go.uber.org/zap"

	"github.com/veldtlang/pluginhost/errors"
)

const (
	// MarkerFile names the file in the cross toolchain's lib directory
	// that points at the native installation
	MarkerFile = "native-root"

	// SettingsFile is the per-installation settings file under lib/
	SettingsFile = "settings.toml"

	// PkgDBDirName is the global package database directory under lib/
	PkgDBDirName = "pkgdb"
)

// Settings identifies the cross toolchain installation itself: where its
// lib directory lives, its own version, and the native toolchain version
// it was built to load plugins from.
type Settings struct {
	LibDir      string
	ToolVersion string
	HostVersion string
}

// NativeSettings is the native installation's lib/settings.toml
type NativeSettings struct {
	Version string `toml:"version"`
	Target  string `toml:"target,omitempty"`
	PkgDB   string `toml:"pkgdb,omitempty"`
}

// NativeLibDir returns the lib directory of a native installation root
func NativeLibDir(root string) string {
	return filepath.Join(root, "lib")
}

// NativeRoot reads the native-root marker. A cross installation without a
// usable marker cannot load native plugins at all.
func NativeRoot(st *Settings) (string, error) {
	path := filepath.Join(st.LibDir, MarkerFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.ConfigMissing(path, err)
	}
	root := strings.TrimSpace(string(data))
	if root == "" {
		return "", errors.New(errors.PhaseConfig, errors.KindConfigMissing).
			Detail("native toolchain marker %s is empty", path).
			Build()
	}
	Logger().Debug("resolved native toolchain root",
		zap.String("marker", path), zap.String("root", root))
	return root, nil
}

// LoadNativeSettings reads <root>/lib/settings.toml
func LoadNativeSettings(root string) (*NativeSettings, error) {
	path := filepath.Join(NativeLibDir(root), SettingsFile)
	var ns NativeSettings
	if _, err := toml.DecodeFile(path, &ns); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigMissing(path, err)
		}
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidData).
			Detail("parse %s", path).
			Cause(err).
			Build()
	}
	return &ns, nil
}

// CheckHostVersion verifies the native toolchain is one this build can
// load plugins from: identical major and minor version, any patch level.
// A cross installation that records no host version accepts any native
// toolchain.
func CheckHostVersion(st *Settings, native *NativeSettings) error {
	if st.HostVersion == "" {
		return nil
	}
	want, err := semver.NewVersion(padVersion(st.HostVersion))
	if err != nil {
		return errors.New(errors.PhaseConfig, errors.KindInvalidData).
			Detail("cross toolchain records invalid host version %q", st.HostVersion).
			Cause(err).
			Build()
	}
	got, err := semver.NewVersion(padVersion(native.Version))
	if err != nil {
		return errors.New(errors.PhaseConfig, errors.KindInvalidData).
			Detail("native toolchain reports invalid version %q", native.Version).
			Cause(err).
			Build()
	}
	if want.Major != got.Major || want.Minor != got.Minor {
		return errors.VersionMismatch(st.HostVersion, native.Version)
	}
	return nil
}

// padVersion widens "9" or "9.6" to the three-component form semver wants
func padVersion(v string) string {
	switch strings.Count(v, ".") {
	case 0:
		return v + ".0.0"
	case 1:
		return v + ".0"
	}
	return v
}
