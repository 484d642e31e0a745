// Package server implements the MCP (Model Context Protocol) server for GIF tools.
//
// This package provides a JSON-RPC 2.0 server that exposes the animated GIF
// encoder through the MCP protocol, so MCP clients can assemble frame images
// into GIFs and check the result.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Source Frame Information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//
// Palette:
//   - gif_palette: Learn the NeuQuant palette of an image
//
// Encoding:
//   - gif_encode: Encode frame images into an animated GIF
//   - gif_inspect: Report frame count, loop count, delays and disposal
//
// # Encoder Profiles
//
// gif_encode starts from a named profile of the server's config (see
// package config) or the encoder defaults, then applies any explicit
// arguments on top.
//
// # Image Caching
//
// The server maintains an in-memory cache of loaded images. Images are cached
// by path and reused across multiple tool calls, so a still that appears in
// many frames is decoded once. A path written by gif_encode is evicted.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
// The server is typically started by an MCP client:
//
//	srv := server.NewWithConfig(cfg, logger)
//	if err := srv.Run(); err != nil {
//	    logger.Fatal().Err(err).Msg("server error")
//	}
package server
