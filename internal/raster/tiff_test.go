package raster

import (
	"bytes"
	"image"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/tiff"
)

func TestEncodeTIFF_RoundTrip(t *testing.T) {
	band := NewBand("B04", 3, 2)
	copy(band.Data, []float64{0, 0.25, 0.5, 0.75, 1.0, 1.2})

	var buf bytes.Buffer
	if err := EncodeTIFF(&buf, band, 10000); err != nil {
		t.Fatalf("EncodeTIFF() error = %v", err)
	}

	img, err := tiff.Decode(&buf)
	if err != nil {
		t.Fatalf("tiff.Decode() error = %v", err)
	}

	gray, ok := img.(*image.Gray16)
	if !ok {
		t.Fatalf("decoded image is %T, want *image.Gray16", img)
	}

	if gray.Bounds().Dx() != 3 || gray.Bounds().Dy() != 2 {
		t.Fatalf("decoded bounds = %v, want 3x2", gray.Bounds())
	}

	want := []uint16{0, 2500, 5000, 7500, 10000, 12000}
	i := 0
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			got := gray.Gray16At(x, y).Y
			if got != want[i] {
				t.Errorf("pixel (%d,%d) = %d, want %d", x, y, got, want[i])
			}
			i++
		}
	}
}

func TestEncodeTIFF_Clamping(t *testing.T) {
	band := NewBand("B08", 2, 1)
	copy(band.Data, []float64{-0.5, 10})

	var buf bytes.Buffer
	if err := EncodeTIFF(&buf, band, 10000); err != nil {
		t.Fatalf("EncodeTIFF() error = %v", err)
	}

	img, err := tiff.Decode(&buf)
	if err != nil {
		t.Fatalf("tiff.Decode() error = %v", err)
	}
	gray := img.(*image.Gray16)

	if got := gray.Gray16At(0, 0).Y; got != 0 {
		t.Errorf("negative sample clamped to %d, want 0", got)
	}
	if got := gray.Gray16At(1, 0).Y; got != 65535 {
		t.Errorf("overflowing sample clamped to %d, want 65535", got)
	}
}

func TestEncodeTIFF_InvalidBand(t *testing.T) {
	band := &Band{Name: "B02", Width: 2, Height: 2, Data: make([]float64, 3)}
	var buf bytes.Buffer
	if err := EncodeTIFF(&buf, band, 10000); err == nil {
		t.Fatal("EncodeTIFF should reject a band with mismatched sample count")
	}
}

func TestDirExporter(t *testing.T) {
	dir := t.TempDir()

	exporter, err := NewDirExporter(filepath.Join(dir, "out"), 10000)
	if err != nil {
		t.Fatalf("NewDirExporter() error = %v", err)
	}

	b1 := NewBand("B04", 2, 2)
	b2 := NewBand("B08", 2, 2)
	if err := exporter.Export("S2A_20160301", []*Band{b1, b2}); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	for _, name := range []string{"S2A_20160301_B04.tif", "S2A_20160301_B08.tif"} {
		path := filepath.Join(dir, "out", name)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected exported file %s: %v", name, err)
		}
	}
}
