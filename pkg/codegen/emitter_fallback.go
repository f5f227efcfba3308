//go:build windows

package codegen

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/anthony-63/Ignis/pkg/config"
)

// qbeEmitter shells out to the system qbe; the self-contained QBE is not
// available on Windows.
type qbeEmitter struct {
	target string
	cc     string
}

func newQBEEmitter(cfg *config.Config) Emitter {
	return &qbeEmitter{target: cfg.QbeTarget, cc: cfg.Linker}
}

func (e *qbeEmitter) EmitObject(irFile, objFile string) error {
	if _, err := exec.LookPath("qbe"); err != nil {
		return fmt.Errorf("QBE not found in PATH: %w", err)
	}

	asmFile := strings.TrimSuffix(objFile, ".o") + ".s"
	args := []string{"-o", asmFile}
	if e.target != "" {
		args = append(args, "-t", e.target)
	}
	if err := runTool("qbe", append(args, irFile)...); err != nil {
		return err
	}
	defer os.Remove(asmFile)

	return runTool(e.cc, "-c", asmFile, "-o", objFile)
}
