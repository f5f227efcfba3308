package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/anthony-63/Ignis/pkg/cli"
	"modernc.org/libqbe"
)

type Feature int

const (
	FeatGuardedWhile Feature = iota
	FeatStrictTools
	FeatIncludeOnce
	FeatCount
)

type Warning int

const (
	WarnShadow Warning = iota
	WarnOverflow
	WarnTool
	WarnPedantic
	WarnExtra
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Features     map[Feature]Info
	Warnings     map[Warning]Info
	FeatureMap   map[string]Feature
	WarningMap   map[string]Warning
	QbeTarget    string
	TargetArch   string
	WordSize     int
	IncludePaths []string
	IRExt        string
	Emitter      string // empty selects the in-process QBE emitter
	Linker       string
	Log          io.Writer
}

func NewConfig() *Config {
	cfg := &Config{
		FeatureMap: make(map[string]Feature),
		WarningMap: make(map[string]Warning),
		IRExt:      ".ssa",
		Linker:     "cc",
		WordSize:   8,
		Log:        os.Stderr,
	}

	features := map[Feature]Info{
		FeatGuardedWhile: {"guarded-while", false, "Test a while loop's condition before its first iteration."},
		FeatStrictTools:  {"strict-tools", true, "Treat a failing emitter or linker as a fatal error."},
		FeatIncludeOnce:  {"include-once", true, "Compile each included file once per session and reuse its symbols."},
	}

	warnings := map[Warning]Info{
		WarnShadow:   {"shadow", false, "Warn when a declaration shadows a name from an enclosing scope."},
		WarnOverflow: {"overflow", true, "Warn when an integer constant does not fit its type."},
		WarnTool:     {"tool", true, "Warn when an external tool fails and -Fno-strict-tools is in effect."},
		WarnPedantic: {"pedantic", false, "Warn about constructs that are accepted but unusual."},
		WarnExtra:    {"extra", true, "Enable extra miscellaneous warnings."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
}

// SetTarget configures the compiler for a specific architecture and QBE target.
func (c *Config) SetTarget(goos, goarch, qbeTarget string) {
	if qbeTarget == "" {
		c.QbeTarget = libqbe.DefaultTarget(goos, goarch)
		c.Infof("no target specified, defaulting to host target '%s'", c.QbeTarget)
	} else {
		c.QbeTarget = qbeTarget
		c.Infof("using specified target '%s'", c.QbeTarget)
	}

	c.TargetArch = goarch

	switch c.QbeTarget {
	case "amd64_sysv", "amd64_apple", "arm64", "arm64_apple", "rv64":
		c.WordSize = 8
	case "arm", "rv32":
		c.WordSize = 4
	default:
		fmt.Fprintf(c.Log, "ignis: warning: unrecognized or unsupported QBE target '%s'.\n", c.QbeTarget)
		fmt.Fprintf(c.Log, "ignis: warning: defaulting to 64-bit properties. Compilation may fail.\n")
		c.WordSize = 8
	}
}

// Infof writes an "ignis: info:" line to the configured log stream.
func (c *Config) Infof(format string, args ...interface{}) {
	if c.Log == nil {
		return
	}
	fmt.Fprintf(c.Log, "ignis: info: "+format+"\n", args...)
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

// ApplyFlag handles a single -W/-F style switch such as "-Wno-shadow" or "-Fguarded-while".
func (c *Config) ApplyFlag(flag string) error {
	trimmed := strings.TrimPrefix(flag, "-")
	if len(trimmed) < 2 {
		return fmt.Errorf("malformed flag '%s'", flag)
	}
	kind, name := trimmed[0], trimmed[1:]
	enable := !strings.HasPrefix(name, "no-")
	name = strings.TrimPrefix(name, "no-")

	switch kind {
	case 'W':
		if name == "all" {
			for i := Warning(0); i < WarnCount; i++ {
				if i != WarnPedantic {
					c.SetWarning(i, enable)
				}
			}
			return nil
		}
		w, ok := c.WarningMap[name]
		if !ok {
			return fmt.Errorf("unknown warning '%s'", name)
		}
		c.SetWarning(w, enable)
	case 'F':
		f, ok := c.FeatureMap[name]
		if !ok {
			return fmt.Errorf("unknown feature '%s'", name)
		}
		c.SetFeature(f, enable)
	default:
		return fmt.Errorf("malformed flag '%s'", flag)
	}
	return nil
}

// SetupFlagGroups registers one -W/-F pair per warning and feature on fs.
// The returned entries are indexed by Warning and Feature respectively.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) ([]cli.FlagGroupEntry, []cli.FlagGroupEntry) {
	warningFlags := make([]cli.FlagGroupEntry, WarnCount)
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		enabled, disabled := info.Enabled, false
		warningFlags[i] = cli.FlagGroupEntry{
			Name: info.Name, Prefix: "W", Usage: info.Description,
			Enabled: &enabled, Disabled: &disabled,
		}
	}

	featureFlags := make([]cli.FlagGroupEntry, FeatCount)
	for i := Feature(0); i < FeatCount; i++ {
		info := c.Features[i]
		enabled, disabled := info.Enabled, false
		featureFlags[i] = cli.FlagGroupEntry{
			Name: info.Name, Prefix: "F", Usage: info.Description,
			Enabled: &enabled, Disabled: &disabled,
		}
	}

	fs.AddFlagGroup("Warning Flags", "Enable or disable specific warnings", "warning flag", "Available Warning Flags:", warningFlags)
	fs.AddFlagGroup("Feature Flags", "Enable or disable specific features", "feature flag", "Available feature flags:", featureFlags)
	return warningFlags, featureFlags
}

// ApplyFlagGroups copies the parsed state of the group entries back into the config.
// A "no-" switch wins over the enabling one.
func (c *Config) ApplyFlagGroups(warningFlags, featureFlags []cli.FlagGroupEntry) {
	for i, entry := range warningFlags {
		if entry.Enabled != nil {
			c.SetWarning(Warning(i), *entry.Enabled)
		}
		if entry.Disabled != nil && *entry.Disabled {
			c.SetWarning(Warning(i), false)
		}
	}
	for i, entry := range featureFlags {
		if entry.Enabled != nil {
			c.SetFeature(Feature(i), *entry.Enabled)
		}
		if entry.Disabled != nil && *entry.Disabled {
			c.SetFeature(Feature(i), false)
		}
	}
}
