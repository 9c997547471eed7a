package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestVersion_DefaultValues(t *testing.T) {
	if Version == "" {
		t.Error("Version should have a default value")
	}
}

func TestColored_PlainWhenColorDisabled(t *testing.T) {
	orig := color.NoColor
	origVersion := Version
	color.NoColor = true
	defer func() {
		color.NoColor = orig
		Version = origVersion
	}()

	cases := map[string]string{
		"0.1.0-dev":            "0.1.0-dev",
		"1.2.3":                "1.2.3",
		"1.2.3-rc.1+build.123": "1.2.3-rc.1+build.123",
		"nightly":              "nightly",
		"  ":                   "dev",
	}
	for in, want := range cases {
		Version = in
		if got := Colored(); got != want {
			t.Errorf("Colored() with Version=%q = %q, want %q", in, got, want)
		}
	}
}

func TestColored_AddsEscapesWhenColorEnabled(t *testing.T) {
	orig := color.NoColor
	color.NoColor = false
	defer func() { color.NoColor = orig }()

	if got := Colored(); got == Version {
		t.Errorf("Colored() = %q, expected ANSI escapes", got)
	}
}
