package main

import (
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ironsheep/gif-tools-mcp/internal/gifenc"
)

// writePNG writes a solid test image into dir
func writePNG(t *testing.T, dir, name string, c color.Color) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 12, 12))
	for y := 0; y < 12; y++ {
		for x := 0; x < 12; x++ {
			img.Set(x, y, c)
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("png.Encode failed: %v", err)
	}
	return path
}

func TestParseEncodeFlags(t *testing.T) {
	f, err := parseEncodeFlags([]string{"-o", "out.gif", "-delay", "5", "a.png", "b.png"}, io.Discard)
	if err != nil {
		t.Fatalf("parseEncodeFlags failed: %v", err)
	}
	if f.output != "out.gif" || len(f.frames) != 2 {
		t.Errorf("got output=%q frames=%v", f.output, f.frames)
	}
	if !f.set["delay"] || f.set["repeat"] {
		t.Errorf("set flags: got %v", f.set)
	}

	tests := []struct {
		name string
		args []string
	}{
		{"no output", []string{"a.png"}},
		{"no frames", []string{"-o", "out.gif"}},
		{"bad flag", []string{"-nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseEncodeFlags(tt.args, io.Discard); err == nil {
				t.Error("parseEncodeFlags should fail")
			}
		})
	}
}

func TestEncodeFlags_ProfileOverrides(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "gif.toml")
	cfg := "[profiles.loop]\nrepeat = 0\ndelay = 40\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	f, err := parseEncodeFlags([]string{"-config", cfgPath, "-profile", "loop", "-delay", "3", "-o", "x.gif", "a.png"}, io.Discard)
	if err != nil {
		t.Fatalf("parseEncodeFlags failed: %v", err)
	}
	opts, err := f.options()
	if err != nil {
		t.Fatalf("options failed: %v", err)
	}
	if opts.Repeat != 0 {
		t.Errorf("repeat: got %d, want 0 from profile", opts.Repeat)
	}
	if opts.Delay != 3 {
		t.Errorf("delay: got %d, want 3 from flag", opts.Delay)
	}
}

func TestEncodeFlags_OutOfRange(t *testing.T) {
	t.Setenv("GIF_MCP_CONFIG", "")
	tests := [][]string{
		{"-delay", "70000"},
		{"-repeat", "70000"},
		{"-colors", "1"},
	}

	for _, args := range tests {
		t.Run(args[0], func(t *testing.T) {
			f, err := parseEncodeFlags(append(args, "-o", "x.gif", "a.png"), io.Discard)
			if err != nil {
				t.Fatalf("parseEncodeFlags failed: %v", err)
			}
			if _, err := f.options(); !errors.Is(err, gifenc.ErrOptions) {
				t.Errorf("options: got %v, want gifenc.ErrOptions", err)
			}
		})
	}
}

func TestRunEncode(t *testing.T) {
	dir := t.TempDir()
	frames := []string{
		writePNG(t, dir, "a.png", color.RGBA{255, 0, 0, 255}),
		writePNG(t, dir, "b.png", color.RGBA{0, 0, 255, 255}),
	}
	out := filepath.Join(dir, "out.gif")
	t.Setenv("GIF_MCP_CONFIG", "")

	args := append([]string{"-o", out, "-repeat", "0", "-delay", "12"}, frames...)
	if err := runEncode(args, zerolog.Nop()); err != nil {
		t.Fatalf("runEncode failed: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()
	g, err := gif.DecodeAll(f)
	if err != nil {
		t.Fatalf("gif.DecodeAll failed: %v", err)
	}
	if len(g.Image) != 2 || g.LoopCount != 0 || g.Delay[0] != 12 {
		t.Errorf("decoded: frames=%d loop=%d delays=%v", len(g.Image), g.LoopCount, g.Delay)
	}
}

func TestRunEncode_MissingFrame(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.gif")
	t.Setenv("GIF_MCP_CONFIG", "")

	err := runEncode([]string{"-o", out, filepath.Join(dir, "missing.png")}, zerolog.Nop())
	if err == nil {
		t.Fatal("runEncode should fail for a missing frame")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("no output should be created when a frame cannot be loaded")
	}
}
