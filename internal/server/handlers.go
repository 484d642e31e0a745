package server

import (
	"encoding/json"
	"fmt"
	"image/color"
	"os"

	"github.com/ironsheep/gif-tools-mcp/internal/gifenc"
	"github.com/ironsheep/gif-tools-mcp/internal/imaging"
	"github.com/ironsheep/gif-tools-mcp/internal/sink"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "gif_encode").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.log.Warn().Str("tool", params.Name).Err(err).Msg("tool execution failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Loads images from cache as needed
//  4. Calls the appropriate imaging/gifenc function
//  5. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Source Frame Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	// Palette
	case "gif_palette":
		return s.handleGIFPalette(args)

	// Encoding
	case "gif_encode":
		return s.handleGIFEncode(args)
	case "gif_inspect":
		return s.handleGIFInspect(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Source Frame Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

// === Palette Handlers ===

type gifPaletteArgs struct {
	Path   string `json:"path"`
	Colors int    `json:"colors"`
	Sample int    `json:"sample"`
}

func (s *Server) handleGIFPalette(args json.RawMessage) (interface{}, error) {
	var a gifPaletteArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.LearnPalette(img, a.Colors, a.Sample)
}

// === Encoding Handlers ===

// gifEncodeArgs holds gif_encode arguments. Pointer fields are optional and
// override the selected profile only when present.
type gifEncodeArgs struct {
	Frames           []string `json:"frames"`
	Output           string   `json:"output"`
	Profile          string   `json:"profile"`
	Delay            *int     `json:"delay"`
	Repeat           *int     `json:"repeat"`
	Disposal         *int     `json:"disposal"`
	Transparent      *string  `json:"transparent"`
	TransparentExact *bool    `json:"transparent_exact"`
	Background       *string  `json:"background"`
	Quality          *int     `json:"quality"`
	Colors           *int     `json:"colors"`
	Width            *int     `json:"width"`
	Height           *int     `json:"height"`
}

// GIFEncodeResult reports a finished encode.
type GIFEncodeResult struct {
	Output      string `json:"output"`
	Frames      int    `json:"frames"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Bytes       int64  `json:"bytes"`
	Compression string `json:"compression"`
}

func (s *Server) handleGIFEncode(args json.RawMessage) (interface{}, error) {
	var a gifEncodeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.Frames) == 0 {
		return nil, fmt.Errorf("frames must list at least one image")
	}
	if a.Output == "" {
		return nil, fmt.Errorf("output path is required")
	}

	opts, err := s.encodeOptions(&a)
	if err != nil {
		return nil, err
	}

	images, err := s.cache.LoadAll(a.Frames)
	if err != nil {
		return nil, err
	}
	var bg color.Color
	if opts.Background != nil {
		bg = *opts.Background
	}
	frames := make([]*gifenc.Frame, len(images))
	for i, img := range images {
		if frames[i], err = gifenc.NewFrame(img, bg); err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
	}

	if err := writeGIF(a.Output, frames, opts); err != nil {
		s.log.Error().Err(err).Str("output", a.Output).Msg("gif encode failed")
		return nil, err
	}
	s.cache.Evict(a.Output)

	stat, err := os.Stat(a.Output)
	if err != nil {
		return nil, fmt.Errorf("failed to stat output: %w", err)
	}

	width, height := opts.Width, opts.Height
	if width == 0 {
		width = frames[0].Width
	}
	if height == 0 {
		height = frames[0].Height
	}
	s.log.Info().
		Str("output", a.Output).
		Int("frames", len(frames)).
		Int64("bytes", stat.Size()).
		Msg("gif encoded")

	return &GIFEncodeResult{
		Output:      a.Output,
		Frames:      len(frames),
		Width:       width,
		Height:      height,
		Bytes:       stat.Size(),
		Compression: string(sink.CompressionFor(a.Output)),
	}, nil
}

// encodeOptions resolves the profile and applies explicit overrides.
func (s *Server) encodeOptions(a *gifEncodeArgs) (gifenc.Options, error) {
	opts, err := s.cfg.Options(a.Profile)
	if err != nil {
		return opts, err
	}
	opts.Logger = s.log

	if a.Delay != nil {
		opts.Delay = *a.Delay
	}
	if a.Repeat != nil {
		opts.Repeat = *a.Repeat
	}
	if a.Disposal != nil {
		opts.Disposal = gifenc.Disposal(*a.Disposal)
	}
	if a.Quality != nil {
		opts.Quality = *a.Quality
	}
	if a.Colors != nil {
		opts.Colors = *a.Colors
	}
	if a.Width != nil {
		opts.Width = *a.Width
	}
	if a.Height != nil {
		opts.Height = *a.Height
	}
	if err := opts.Validate(); err != nil {
		return opts, err
	}
	if a.Background != nil {
		c, err := imaging.ParseHexColor(*a.Background)
		if err != nil {
			return opts, fmt.Errorf("background: %w", err)
		}
		opts.Background = &c
	}
	if a.Transparent != nil {
		c, err := imaging.ParseHexColor(*a.Transparent)
		if err != nil {
			return opts, fmt.Errorf("transparent: %w", err)
		}
		opts.Transparent = &c
	}
	if a.TransparentExact != nil {
		opts.TransparentExact = *a.TransparentExact
	}
	return opts, nil
}

// writeGIF encodes frames into a new file at path. A partial file is
// removed on failure.
func writeGIF(path string, frames []*gifenc.Frame, opts gifenc.Options) error {
	w, err := sink.Create(path)
	if err != nil {
		return err
	}
	err = gifenc.EncodeAll(w, frames, opts)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

// === Inspection Handlers ===

func (s *Server) handleGIFInspect(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.InspectGIF(a.Path)
}
