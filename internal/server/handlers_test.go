package server

import (
	"encoding/json"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ironsheep/gif-tools-mcp/internal/config"
	"github.com/ironsheep/gif-tools-mcp/internal/imaging"
	"github.com/ironsheep/gif-tools-mcp/internal/sink"
)

// createTestImageFile creates a test image file and returns its path
func createTestImageFile(t *testing.T, width, height int, c color.Color) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	tmpFile, err := os.CreateTemp(t.TempDir(), "handler-test-*.png")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer tmpFile.Close()

	if err := png.Encode(tmpFile, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}

	return tmpFile.Name()
}

// callTool sends a tools/call request and returns the response
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) *MCPResponse {
	t.Helper()

	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}
	paramsJSON, _ := json.Marshal(params)

	req := &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Params:  paramsJSON,
	}
	return s.handleToolsCall(req)
}

// decodeToolResult unmarshals the text content of a successful response
func decodeToolResult(t *testing.T, resp *MCPResponse, out interface{}) {
	t.Helper()

	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("content: got %v", result["content"])
	}
	text, _ := content[0]["text"].(string)
	if err := json.Unmarshal([]byte(text), out); err != nil {
		t.Fatalf("failed to decode tool result %q: %v", text, err)
	}
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 100, 80, color.RGBA{255, 0, 0, 255})

	var info imaging.ImageInfo
	decodeToolResult(t, callTool(t, s, "image_load", map[string]interface{}{"path": imgPath}), &info)

	if info.Width != 100 || info.Height != 80 {
		t.Errorf("size: got %dx%d, want 100x80", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("format: got %s, want png", info.Format)
	}
}

func TestHandleToolsCall_ImageDimensions(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 33, 44, color.White)

	var dims imaging.DimensionsResult
	decodeToolResult(t, callTool(t, s, "image_dimensions", map[string]interface{}{"path": imgPath}), &dims)

	if dims.Width != 33 || dims.Height != 44 {
		t.Errorf("got %dx%d, want 33x44", dims.Width, dims.Height)
	}
}

func TestHandleToolsCall_NonExistentFile(t *testing.T) {
	s := New()

	resp := callTool(t, s, "image_load", map[string]interface{}{"path": "/nonexistent/image.png"})
	if resp.Error == nil {
		t.Fatal("expected an error for a missing file")
	}
	if resp.Error.Code != -32000 {
		t.Errorf("Code: got %d, want -32000", resp.Error.Code)
	}
}

func TestHandleToolsCall_InvalidTool(t *testing.T) {
	s := New()

	resp := callTool(t, s, "nonexistent_tool", map[string]interface{}{})
	if resp.Error == nil {
		t.Fatal("expected an error for an unknown tool")
	}
	if data, _ := resp.Error.Data.(string); !strings.Contains(data, "unknown tool") {
		t.Errorf("Data: got %v", resp.Error.Data)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := New()

	req := &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Params:  json.RawMessage(`{invalid json`),
	}
	resp := s.handleToolsCall(req)

	if resp.Error == nil {
		t.Fatal("expected an error for invalid params")
	}
	if resp.Error.Code != -32602 {
		t.Errorf("Code: got %d, want -32602", resp.Error.Code)
	}
}

func TestHandleToolsCall_GIFPalette(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 20, 20, color.RGBA{0, 0, 255, 255})

	var result imaging.PaletteResult
	decodeToolResult(t, callTool(t, s, "gif_palette", map[string]interface{}{
		"path":   imgPath,
		"colors": 16,
		"sample": 1,
	}), &result)

	if result.Colors != 16 || result.TableSize != 16 {
		t.Errorf("colors/table: got %d/%d, want 16/16", result.Colors, result.TableSize)
	}
	if len(result.Entries) == 0 {
		t.Fatal("palette has no used entries")
	}
	if result.Entries[0].Percentage != 100 {
		t.Errorf("single-color image: top entry covers %.1f%%, want 100%%", result.Entries[0].Percentage)
	}
}

func TestHandleToolsCall_GIFEncode(t *testing.T) {
	s := New()
	frames := []string{
		createTestImageFile(t, 24, 16, color.RGBA{255, 0, 0, 255}),
		createTestImageFile(t, 24, 16, color.RGBA{0, 255, 0, 255}),
		createTestImageFile(t, 24, 16, color.RGBA{0, 0, 255, 255}),
	}
	output := filepath.Join(t.TempDir(), "out.gif")

	var result GIFEncodeResult
	decodeToolResult(t, callTool(t, s, "gif_encode", map[string]interface{}{
		"frames": frames,
		"output": output,
		"delay":  20,
		"repeat": 0,
	}), &result)

	if result.Frames != 3 || result.Width != 24 || result.Height != 16 {
		t.Errorf("result: got %+v", result)
	}
	if result.Compression != "none" || result.Bytes == 0 {
		t.Errorf("result: got %+v", result)
	}

	f, err := os.Open(output)
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer f.Close()
	g, err := gif.DecodeAll(f)
	if err != nil {
		t.Fatalf("output is not a valid GIF: %v", err)
	}
	if len(g.Image) != 3 || g.LoopCount != 0 || g.Delay[2] != 20 {
		t.Errorf("decoded: frames=%d loop=%d delays=%v", len(g.Image), g.LoopCount, g.Delay)
	}
}

func TestHandleToolsCall_GIFEncode_Profile(t *testing.T) {
	cfg, err := config.Parse(`
default_profile = "slow"

[profiles.slow]
delay = 100
repeat = 2
colors = 8
`)
	if err != nil {
		t.Fatalf("config.Parse failed: %v", err)
	}
	s := NewWithConfig(cfg, zerolog.Nop())

	frame := createTestImageFile(t, 8, 8, color.RGBA{200, 100, 50, 255})
	output := filepath.Join(t.TempDir(), "out.gif.gz")

	var result GIFEncodeResult
	decodeToolResult(t, callTool(t, s, "gif_encode", map[string]interface{}{
		"frames": []string{frame, frame},
		"output": output,
		"delay":  7,
	}), &result)

	if result.Compression != "gzip" {
		t.Errorf("compression: got %s, want gzip", result.Compression)
	}

	var info imaging.GIFInfo
	decodeToolResult(t, callTool(t, s, "gif_inspect", map[string]interface{}{"path": output}), &info)

	if info.Frames != 2 || info.LoopCount != 2 {
		t.Errorf("frames/loop: got %d/%d, want 2/2", info.Frames, info.LoopCount)
	}
	if info.Delays[0] != 7 {
		t.Errorf("explicit delay should override the profile: got %d", info.Delays[0])
	}
	if info.PaletteSizes[0] != 8 {
		t.Errorf("palette size: got %d, want 8 from profile colors", info.PaletteSizes[0])
	}
}

func TestHandleToolsCall_GIFEncode_Errors(t *testing.T) {
	s := New()
	frame := createTestImageFile(t, 4, 4, color.White)
	dir := t.TempDir()

	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{"no frames", map[string]interface{}{"frames": []string{}, "output": filepath.Join(dir, "a.gif")}, "at least one"},
		{"no output", map[string]interface{}{"frames": []string{frame}}, "output"},
		{"unknown profile", map[string]interface{}{"frames": []string{frame}, "output": filepath.Join(dir, "b.gif"), "profile": "nope"}, "unknown profile"},
		{"bad colors", map[string]interface{}{"frames": []string{frame}, "output": filepath.Join(dir, "c.gif"), "colors": 1}, "colors"},
		{"bad quality", map[string]interface{}{"frames": []string{frame}, "output": filepath.Join(dir, "d.gif"), "quality": 31}, "quality"},
		{"delay too long", map[string]interface{}{"frames": []string{frame}, "output": filepath.Join(dir, "g.gif"), "delay": 70000}, "delay"},
		{"bad color", map[string]interface{}{"frames": []string{frame}, "output": filepath.Join(dir, "e.gif"), "background": "nothex"}, "background"},
		{"missing frame", map[string]interface{}{"frames": []string{frame, "/nonexistent.png"}, "output": filepath.Join(dir, "f.gif")}, "frame 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, "gif_encode", tt.args)
			if resp.Error == nil {
				t.Fatal("expected an error")
			}
			if data, _ := resp.Error.Data.(string); !strings.Contains(data, tt.want) {
				t.Errorf("Data: got %q, want it to mention %q", data, tt.want)
			}
		})
	}
}

func TestHandleToolsCall_GIFInspect_Zstd(t *testing.T) {
	s := New()
	frame := createTestImageFile(t, 5, 5, color.Black)
	output := filepath.Join(t.TempDir(), "out.gif.zst")

	var result GIFEncodeResult
	decodeToolResult(t, callTool(t, s, "gif_encode", map[string]interface{}{
		"frames":      []string{frame},
		"output":      output,
		"transparent": "#000000",
	}), &result)

	r, err := sink.Open(output)
	if err != nil {
		t.Fatalf("sink.Open failed: %v", err)
	}
	r.Close()

	var info imaging.GIFInfo
	decodeToolResult(t, callTool(t, s, "gif_inspect", map[string]interface{}{"path": output}), &info)
	if info.Frames != 1 || info.LoopCount != -1 {
		t.Errorf("frames/loop: got %d/%d, want 1/-1", info.Frames, info.LoopCount)
	}
	if info.Disposals[0] != 2 {
		t.Errorf("transparent frame disposal: got %d, want 2", info.Disposals[0])
	}
}

func TestExecuteTool_AllTools(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 32, 32, color.RGBA{128, 128, 128, 255})
	output := filepath.Join(t.TempDir(), "all.gif")

	// Order matters: gif_inspect reads the file gif_encode writes.
	toolTests := []struct {
		name string
		args map[string]interface{}
	}{
		{"image_load", map[string]interface{}{"path": imgPath}},
		{"image_dimensions", map[string]interface{}{"path": imgPath}},
		{"gif_palette", map[string]interface{}{"path": imgPath}},
		{"gif_encode", map[string]interface{}{"frames": []string{imgPath}, "output": output}},
		{"gif_inspect", map[string]interface{}{"path": output}},
	}

	for _, tt := range toolTests {
		t.Run(tt.name, func(t *testing.T) {
			argsJSON, _ := json.Marshal(tt.args)
			result, err := s.executeTool(tt.name, argsJSON)
			if err != nil {
				t.Fatalf("executeTool(%s) failed: %v", tt.name, err)
			}
			if result == nil {
				t.Errorf("executeTool(%s) returned nil result", tt.name)
			}
		})
	}
}

func TestExecuteTool_UnknownTool(t *testing.T) {
	s := New()

	_, err := s.executeTool("unknown_tool", json.RawMessage(`{}`))
	if err == nil {
		t.Error("executeTool should fail for unknown tool")
	}
}

func TestExecuteTool_InvalidJSON(t *testing.T) {
	s := New()

	_, err := s.executeTool("image_load", json.RawMessage(`{invalid`))
	if err == nil {
		t.Error("executeTool should fail for invalid JSON")
	}
}
