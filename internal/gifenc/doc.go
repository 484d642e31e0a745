// Package gifenc writes animated GIF89a files.
//
// Each frame is reduced to at most 256 colors with a NeuQuant network
// trained on that frame, mapped to palette indices, and compressed with the
// GIF variant of LZW. The first frame's palette becomes the global color
// table; later frames carry a local color table.
//
// # Stream Layout
//
//	"GIF89a"
//	logical screen descriptor + global color table    (first frame)
//	NETSCAPE2.0 looping extension                     (when Repeat >= 0)
//	per frame:
//	    graphic control extension
//	    image descriptor [+ local color table]
//	    LZW image data
//	trailer 0x3B
//
// # Usage
//
//	enc := gifenc.New(gifenc.DefaultOptions())
//	enc.SetRepeat(0)
//	enc.SetDelay(10)
//	if err := enc.StartFile("out.gif"); err != nil {
//	    return err
//	}
//	for _, img := range images {
//	    if err := enc.AddImage(img); err != nil {
//	        enc.Abort()
//	        return err
//	    }
//	}
//	return enc.Finish()
//
// EncodeAll does the same for a complete frame list and quantizes frames
// in parallel.
package gifenc
