//go:build !windows

package codegen

import (
	"bytes"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/anthony-63/Ignis/pkg/config"
	"modernc.org/libqbe"
)

// qbeEmitter runs QBE in-process and hands the assembly to the C compiler.
type qbeEmitter struct {
	target string
	cc     string
}

func newQBEEmitter(cfg *config.Config) Emitter {
	target := cfg.QbeTarget
	if target == "" {
		target = libqbe.DefaultTarget(runtime.GOOS, runtime.GOARCH)
	}
	return &qbeEmitter{target: target, cc: cfg.Linker}
}

func (e *qbeEmitter) EmitObject(irFile, objFile string) error {
	qbeIR, err := os.ReadFile(irFile)
	if err != nil {
		return err
	}

	var asmBuf bytes.Buffer
	if err := libqbe.Main(e.target, irFile, bytes.NewReader(qbeIR), &asmBuf, nil); err != nil {
		return fmt.Errorf("\n--- QBE Compilation Failed ---\nIR file: %s\n\nlibqbe error: %w", irFile, err)
	}

	asmFile := strings.TrimSuffix(objFile, ".o") + ".s"
	if err := os.WriteFile(asmFile, asmBuf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write assembly for %s: %w", irFile, err)
	}
	defer os.Remove(asmFile)

	return runTool(e.cc, "-c", asmFile, "-o", objFile)
}
