package codegen

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anthony-63/Ignis/pkg/config"
	"github.com/google/go-cmp/cmp"
)

// fakeEmitter writes an empty object for every IR file it is given.
type fakeEmitter struct {
	inputs []string
	err    error
}

func (e *fakeEmitter) EmitObject(irFile, objFile string) error {
	e.inputs = append(e.inputs, filepath.Base(irFile))
	if e.err != nil {
		return e.err
	}
	return os.WriteFile(objFile, nil, 0o644)
}

type fakeLinker struct {
	output  string
	objects []string
	libs    []Library
	err     error
}

func (l *fakeLinker) Link(output string, objects []string, libs []Library) error {
	l.output, l.objects, l.libs = output, objects, libs
	return l.err
}

type stageEntry struct {
	File  string
	Stage Stage
}

func TestDriverStages(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lib.ig", `linkstatic "libfoo.a"; twice -> sub (x: i32) i32 { return x * 2; }`)
	main := writeFile(t, dir, "main.ig", `include "lib.ig"; main -> sub () i32 { return twice(21); }`)
	lib := filepath.Join(dir, "lib.ig")

	emitter, linker := &fakeEmitter{}, &fakeLinker{}
	var stages []stageEntry
	d := &Driver{
		Config:  testConfig(),
		Emitter: emitter,
		Linker:  linker,
		OnStage: func(file string, s Stage) { stages = append(stages, stageEntry{file, s}) },
	}
	out := filepath.Join(dir, "prog")
	if _, err := d.Compile(main, out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []stageEntry{
		{main, StageInit},
		{main, StageLowering},
		{lib, StageInit},
		{lib, StageLowering},
		{lib, StageEmit},
		{main, StageEmit},
		{main, StageAssemble},
	}
	if diff := cmp.Diff(want, stages); diff != "" {
		t.Errorf("stage sequence mismatch (-want +got):\n%s", diff)
	}

	if len(emitter.inputs) != 2 || !strings.HasPrefix(emitter.inputs[0], "prog.lib-") || emitter.inputs[1] != "prog.ssa" {
		t.Errorf("emitter saw %v", emitter.inputs)
	}
	if linker.output != out {
		t.Errorf("linked %s, want %s", linker.output, out)
	}
	if diff := cmp.Diff([]Library{{Name: "libfoo.a", Static: true}}, linker.libs); diff != "" {
		t.Errorf("libraries mismatch (-want +got):\n%s", diff)
	}
	for _, obj := range linker.objects {
		if _, err := os.Stat(obj); !os.IsNotExist(err) {
			t.Errorf("object %s was not removed after linking", obj)
		}
	}
}

func TestToolFailures(t *testing.T) {
	dir := t.TempDir()
	main := writeFile(t, dir, "main.ig", `main -> sub () { }`)
	boom := errors.New("boom")

	t.Run("strict", func(t *testing.T) {
		d := &Driver{Config: testConfig(), Emitter: &fakeEmitter{err: boom}, Linker: &fakeLinker{}}
		if _, err := d.Compile(main, filepath.Join(dir, "strict")); !errors.Is(err, boom) {
			t.Errorf("got %v, want the emitter error", err)
		}
	})

	t.Run("lenient", func(t *testing.T) {
		var log bytes.Buffer
		cfg := testConfig()
		cfg.Log = &log
		cfg.SetFeature(config.FeatStrictTools, false)
		d := &Driver{Config: cfg, Emitter: &fakeEmitter{}, Linker: &fakeLinker{err: boom}}
		if _, err := d.Compile(main, filepath.Join(dir, "lenient")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(log.String(), "boom [-Wtool]") {
			t.Errorf("missing tool warning in %q", log.String())
		}
	})
}

func TestSkipAssemble(t *testing.T) {
	dir := t.TempDir()
	main := writeFile(t, dir, "main.ig", `main -> sub () { }`)
	emitter := &fakeEmitter{}
	d := &Driver{Config: testConfig(), Emitter: emitter, Linker: &fakeLinker{}, SkipAssemble: true}
	unit, err := d.Compile(main, filepath.Join(dir, "main"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(emitter.inputs) != 0 {
		t.Errorf("emitter ran with SkipAssemble set: %v", emitter.inputs)
	}
	if diff := cmp.Diff([]string{filepath.Join(dir, "main.ssa")}, unit.Outputs); diff != "" {
		t.Errorf("outputs mismatch (-want +got):\n%s", diff)
	}
}

func TestLinkArgs(t *testing.T) {
	got := LinkArgs("a.out", []string{"x.o", "y.o"}, []Library{{Name: "m"}, {Name: "libs/libfoo.a", Static: true}})
	want := []string{"-o", "a.out", "-no-pie", "x.o", "y.o", "-lm", "libs/libfoo.a"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LinkArgs mismatch (-want +got):\n%s", diff)
	}
}

func TestStageString(t *testing.T) {
	var names []string
	for s := StageInit; s <= StageDone; s++ {
		names = append(names, s.String())
	}
	if diff := cmp.Diff([]string{"init", "lowering", "emit", "assemble", "done"}, names); diff != "" {
		t.Errorf("stage names mismatch (-want +got):\n%s", diff)
	}
}
