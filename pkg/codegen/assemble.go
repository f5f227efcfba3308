package codegen

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/anthony-63/Ignis/pkg/config"
)

// Emitter turns one IR file into an object file.
type Emitter interface {
	EmitObject(irFile, objFile string) error
}

// Linker produces the final executable from object files and libraries.
type Linker interface {
	Link(output string, objects []string, libs []Library) error
}

// NewEmitter returns the external tool named by cfg.Emitter, or the built-in
// QBE emitter when none is configured.
func NewEmitter(cfg *config.Config) Emitter {
	if cfg.Emitter != "" {
		return &toolEmitter{tool: cfg.Emitter}
	}
	return newQBEEmitter(cfg)
}

func NewLinker(cfg *config.Config) Linker {
	return &ccLinker{cc: cfg.Linker}
}

// toolEmitter runs `tool --filetype=obj <ir> -o <obj>`.
type toolEmitter struct{ tool string }

func (e *toolEmitter) EmitObject(irFile, objFile string) error {
	return runTool(e.tool, "--filetype=obj", irFile, "-o", objFile)
}

type ccLinker struct{ cc string }

func (l *ccLinker) Link(output string, objects []string, libs []Library) error {
	return runTool(l.cc, LinkArgs(output, objects, libs)...)
}

// LinkArgs builds `-o <out> -no-pie <objs...> <libs...>`. Static libraries are
// passed by path and dynamic ones as -l<name>.
func LinkArgs(output string, objects []string, libs []Library) []string {
	args := []string{"-o", output, "-no-pie"}
	args = append(args, objects...)
	for _, lib := range libs {
		if lib.Static {
			args = append(args, lib.Name)
		} else {
			args = append(args, "-l"+lib.Name)
		}
	}
	return args
}

func runTool(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s command failed: %w\nOutput:\n%s", name, err, string(output))
	}
	return nil
}

func objectFile(irFile, irExt string) string {
	return strings.TrimSuffix(irFile, irExt) + ".o"
}

// assemble emits an object per IR file, links them and removes the objects.
func (d *Driver) assemble(unit *Unit, output string) error {
	if d.Emitter == nil {
		d.Emitter = NewEmitter(d.Config)
	}
	if d.Linker == nil {
		d.Linker = NewLinker(d.Config)
	}

	var objects []string
	defer func() {
		for _, obj := range objects {
			os.Remove(obj)
		}
	}()

	for _, irFile := range unit.Outputs {
		obj := objectFile(irFile, d.Config.IRExt)
		if err := d.toolFailure(d.Emitter.EmitObject(irFile, obj)); err != nil {
			return err
		}
		objects = append(objects, obj)
	}
	return d.toolFailure(d.Linker.Link(output, objects, unit.Libraries))
}

// toolFailure passes err through under strict-tools and downgrades it to a
// warning otherwise.
func (d *Driver) toolFailure(err error) error {
	if err == nil || d.Config.IsFeatureEnabled(config.FeatStrictTools) {
		return err
	}
	if d.Config.IsWarningEnabled(config.WarnTool) && d.Config.Log != nil {
		fmt.Fprintf(d.Config.Log, "ignis: \033[33mwarning:\033[0m %v [-Wtool]\n", err)
	}
	return nil
}
