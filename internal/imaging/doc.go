// Package imaging turns source images into encoder frames and reports on
// images and finished GIFs for the MCP server.
//
// # Frame Normalization
//
// FlattenRGB renders any image.Image onto an opaque canvas and returns packed
// RGB triples, the pixel format the quantizer consumes. Images are anchored
// at the canvas origin, so (0,0) of the source lands on (0,0) of the frame.
// Larger images are cropped, smaller ones padded with the background color,
// and translucent pixels are composited over it.
//
// # Color Representation
//
// Palette colors are returned in multiple formats for flexibility:
//   - Hex: 6-character format "#rrggbb"
//   - RGB: 8-bit components (0-255)
//   - HSL: Hue (0-360), Saturation (0-100), Lightness (0-100)
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. The other functions are
// stateless and can be called concurrently.
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Non-positive canvas sizes
//   - Pixel buffers whose length does not match their size
//   - File I/O and decode errors during image loading
package imaging
