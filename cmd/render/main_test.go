package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/reyesvm/renderer/display"
	"github.com/reyesvm/renderer/internal/rlog"
	"github.com/reyesvm/renderer/scene"
	"github.com/reyesvm/renderer/svm"
)

const sampleShader = `
surface matte

init:
main:
push 1
castf2c
store Ci
`

func TestShaderBinderResolvesAndCaches(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "matte.slx"), []byte(sampleShader), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	b := newShaderBinder(dir)
	ref := &scene.ShaderRef{Name: "matte"}

	p1, err := b.resolve(ref)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p1.Type != svm.Surface || p1.Name != "matte" {
		t.Fatalf("program = %+v, want a surface shader named matte", p1)
	}

	p2, err := b.resolve(ref)
	if err != nil {
		t.Fatalf("resolve (cached): %v", err)
	}
	if p1 != p2 {
		t.Fatal("resolve should return the cached *svm.Program on a repeat call")
	}
}

func TestShaderBinderNilRefReturnsNil(t *testing.T) {
	b := newShaderBinder(t.TempDir())
	p, err := b.resolve(nil)
	if err != nil {
		t.Fatalf("resolve(nil): %v", err)
	}
	if p != nil {
		t.Fatalf("resolve(nil) = %v, want nil", p)
	}
}

func TestShaderBinderMissingFileErrors(t *testing.T) {
	b := newShaderBinder(t.TempDir())
	if _, err := b.resolve(&scene.ShaderRef{Name: "nope"}); err == nil {
		t.Fatal("expected an error for a missing shader file")
	}
}

func TestWriteOutputsSkipsDisplaysWithNoRegisteredImage(t *testing.T) {
	mgr, err := display.Listen(0, rlog.Background())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer mgr.Close()
	mgr.RegisterImage("beauty", 2, 2, 4)

	dir := t.TempDir()
	reqs := []display.Request{{Name: "beauty"}, {Name: "unregistered"}}
	if err := writeOutputs(mgr, reqs, dir); err != nil {
		t.Fatalf("writeOutputs: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "beauty.tif")); err != nil {
		t.Fatalf("expected beauty.tif to be written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "unregistered.tif")); err == nil {
		t.Fatal("expected no output file for a display with no registered image")
	}
}
