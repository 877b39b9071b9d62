package raster

import (
	"fmt"
	"image"
	"io"
	"math"

	"golang.org/x/image/tiff"
)

// EncodeTIFF writes a band as a 16-bit grayscale TIFF. Samples are multiplied
// by scale, rounded and clamped to the uint16 range; surface reflectance
// exported with the sensor scale factor round-trips to the catalog's integer
// convention.
func EncodeTIFF(w io.Writer, band *Band, scale float64) error {
	if err := band.Validate(); err != nil {
		return err
	}

	img := image.NewGray16(image.Rect(0, 0, band.Width, band.Height))
	for y := 0; y < band.Height; y++ {
		for x := 0; x < band.Width; x++ {
			v := math.Round(band.At(x, y) * scale)
			if v < 0 {
				v = 0
			}
			if v > math.MaxUint16 {
				v = math.MaxUint16
			}
			u := uint16(v)
			// Gray16 stores big-endian samples.
			off := img.PixOffset(x, y)
			img.Pix[off] = uint8(u >> 8)
			img.Pix[off+1] = uint8(u)
		}
	}

	if err := tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		return fmt.Errorf("failed to encode band %s: %w", band.Name, err)
	}
	return nil
}
