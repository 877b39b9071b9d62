package raster

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirExporter writes corrected bands as TIFF files under a target directory,
// one file per (scene, band) named "<scene_id>_<band>.tif".
type DirExporter struct {
	dir   string
	scale float64
}

// NewDirExporter creates an exporter rooted at dir, creating it if needed.
func NewDirExporter(dir string, scale float64) (*DirExporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory %s: %w", dir, err)
	}
	return &DirExporter{dir: dir, scale: scale}, nil
}

// Export writes all bands of one scene.
func (e *DirExporter) Export(sceneID string, bands []*Band) error {
	for _, band := range bands {
		path := filepath.Join(e.dir, fmt.Sprintf("%s_%s.tif", sceneID, band.Name))
		if err := e.writeBand(path, band); err != nil {
			return err
		}
	}
	return nil
}

func (e *DirExporter) writeBand(path string, band *Band) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := EncodeTIFF(f, band, e.scale); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
