package config

import (
	"bytes"
	"strings"
	"testing"

	"github.com/anthony-63/Ignis/pkg/cli"
)

func TestDefaults(t *testing.T) {
	cfg := NewConfig()
	features := map[Feature]bool{FeatGuardedWhile: false, FeatStrictTools: true, FeatIncludeOnce: true}
	for ft, want := range features {
		if got := cfg.IsFeatureEnabled(ft); got != want {
			t.Errorf("feature %s: got %v, want %v", cfg.Features[ft].Name, got, want)
		}
	}
	warnings := map[Warning]bool{WarnShadow: false, WarnOverflow: true, WarnTool: true, WarnPedantic: false, WarnExtra: true}
	for wt, want := range warnings {
		if got := cfg.IsWarningEnabled(wt); got != want {
			t.Errorf("warning %s: got %v, want %v", cfg.Warnings[wt].Name, got, want)
		}
	}
	if cfg.IRExt != ".ssa" || cfg.Linker != "cc" || cfg.WordSize != 8 {
		t.Errorf("unexpected defaults: ext %q linker %q word %d", cfg.IRExt, cfg.Linker, cfg.WordSize)
	}
}

func TestApplyFlag(t *testing.T) {
	cfg := NewConfig()
	for _, flag := range []string{"-Wshadow", "-Wno-extra", "-Fguarded-while", "-Fno-strict-tools"} {
		if err := cfg.ApplyFlag(flag); err != nil {
			t.Fatalf("%s: %v", flag, err)
		}
	}
	if !cfg.IsWarningEnabled(WarnShadow) || cfg.IsWarningEnabled(WarnExtra) {
		t.Errorf("warning flags not applied")
	}
	if !cfg.IsFeatureEnabled(FeatGuardedWhile) || cfg.IsFeatureEnabled(FeatStrictTools) {
		t.Errorf("feature flags not applied")
	}

	if err := cfg.ApplyFlag("-Wall"); err != nil {
		t.Fatal(err)
	}
	if !cfg.IsWarningEnabled(WarnExtra) || cfg.IsWarningEnabled(WarnPedantic) {
		t.Errorf("-Wall must enable everything but pedantic")
	}

	for _, bad := range []string{"-Wnope", "-Fnope", "-X", "-Qshadow"} {
		if err := cfg.ApplyFlag(bad); err == nil {
			t.Errorf("%s: expected an error", bad)
		}
	}
}

func TestFlagGroups(t *testing.T) {
	cfg := NewConfig()
	fs := cli.NewFlagSet("ignis")
	warnings, features := cfg.SetupFlagGroups(fs)
	if err := fs.Parse([]string{"-Wshadow", "-Wno-overflow", "-Fguarded-while", "-Fno-include-once", "input.ig"}); err != nil {
		t.Fatal(err)
	}
	cfg.ApplyFlagGroups(warnings, features)

	if !cfg.IsWarningEnabled(WarnShadow) || cfg.IsWarningEnabled(WarnOverflow) {
		t.Errorf("warning groups not applied")
	}
	if !cfg.IsFeatureEnabled(FeatGuardedWhile) || cfg.IsFeatureEnabled(FeatIncludeOnce) {
		t.Errorf("feature groups not applied")
	}
	if !cfg.IsFeatureEnabled(FeatStrictTools) {
		t.Errorf("untouched feature changed")
	}
	if args := fs.Args(); len(args) != 1 || args[0] != "input.ig" {
		t.Errorf("got args %v", args)
	}
}

func TestSetTarget(t *testing.T) {
	var log bytes.Buffer
	cfg := NewConfig()
	cfg.Log = &log

	cfg.SetTarget("linux", "arm", "rv32")
	if cfg.WordSize != 4 || cfg.QbeTarget != "rv32" {
		t.Errorf("rv32: word %d target %s", cfg.WordSize, cfg.QbeTarget)
	}
	cfg.SetTarget("linux", "amd64", "bogus")
	if cfg.WordSize != 8 || !strings.Contains(log.String(), "unsupported QBE target 'bogus'") {
		t.Errorf("unknown target not reported: %q", log.String())
	}
}
