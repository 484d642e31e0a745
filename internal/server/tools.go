package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// pathProperty is the schema shared by every tool that reads one file
var pathProperty = map[string]interface{}{
	"type":        "string",
	"description": "Absolute path to the image file",
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Source Frame Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format, color depth and alpha. The decoded image is cached for later encode calls.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},

		// Palette
		{
			Name:        "gif_palette",
			Description: "Learn the GIF palette NeuQuant would build for an image. Returns the palette entries pixels map to, with hex, RGB, HSL and coverage percentage.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"colors": map[string]interface{}{
						"type":        "integer",
						"description": "Palette size, 2-256. Default 256",
						"default":     256,
					},
					"sample": map[string]interface{}{
						"type":        "integer",
						"description": "Sampling factor, 1 (best quality) to 30 (fastest). Default 10",
						"default":     10,
					},
				},
				"required": []string{"path"},
			},
		},

		// Encoding
		{
			Name:        "gif_encode",
			Description: "Encode image files into an animated GIF. Frames are quantized to at most 256 colors each. Output paths ending in .gz or .zst are compressed.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"frames": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Absolute paths of the frame images, in display order",
					},
					"output": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path of the GIF to write",
					},
					"profile": map[string]interface{}{
						"type":        "string",
						"description": "Named encoder profile from the server config. Other arguments override it",
					},
					"delay": map[string]interface{}{
						"type":        "integer",
						"description": "Frame display time in hundredths of a second",
					},
					"repeat": map[string]interface{}{
						"type":        "integer",
						"description": "Loop count: -1 plays once, 0 loops forever, N plays N extra times",
					},
					"disposal": map[string]interface{}{
						"type":        "integer",
						"description": "Disposal method 0-3, or -1 to choose from transparency",
					},
					"transparent": map[string]interface{}{
						"type":        "string",
						"description": "Hex color (#RRGGBB) to mark transparent",
					},
					"transparent_exact": map[string]interface{}{
						"type":        "boolean",
						"description": "Require an exact palette match for the transparent color. Default false",
						"default":     false,
					},
					"background": map[string]interface{}{
						"type":        "string",
						"description": "Hex color (#RRGGBB) for padding and compositing translucent pixels",
					},
					"quality": map[string]interface{}{
						"type":        "integer",
						"description": "Sampling factor, 1 (best) to 30 (fastest)",
					},
					"colors": map[string]interface{}{
						"type":        "integer",
						"description": "Palette size per frame, 2-256",
					},
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Logical screen width. Default is the first frame's width",
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "Logical screen height. Default is the first frame's height",
					},
				},
				"required": []string{"frames", "output"},
			},
		},
		{
			Name:        "gif_inspect",
			Description: "Decode a GIF and report its frame count, loop count, per-frame delays and disposal methods.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the GIF (optionally .gz or .zst compressed)",
					},
				},
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
