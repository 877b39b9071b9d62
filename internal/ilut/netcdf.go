package ilut

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fhs/go-netcdf/netcdf"

	"atmcorr-platform/internal/models"
)

const (
	gainVarName   = "gain"
	offsetVarName = "offset"
)

// BandFileName returns the table file name for a 1-based band number, e.g.
// "S2A_MSI_03.ilut.nc". Band numbers are zero-padded to two digits.
func BandFileName(sensor string, band int) string {
	return fmt.Sprintf("%s_%02d.ilut.nc", sensor, band)
}

// LoadDirectory loads one table per band from dir. The directory is expected
// to be parameterized upstream by sensor, atmospheric profile and viewing
// geometry; this loader only resolves the per-band file naming convention.
// A missing or corrupt file is a fatal ConfigurationError: the run cannot
// produce valid results for any scene without a complete table set.
func LoadDirectory(dir, sensor string, bandCount int) ([]Evaluator, error) {
	if bandCount <= 0 {
		return nil, &models.ConfigurationError{
			Component: "ilut",
			Message:   fmt.Sprintf("band count must be positive, got %d", bandCount),
		}
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, &models.ConfigurationError{
			Component: "ilut",
			Message:   fmt.Sprintf("table directory %s: %v", dir, err),
		}
	}

	tables := make([]Evaluator, 0, bandCount)
	for band := 1; band <= bandCount; band++ {
		path := filepath.Join(dir, BandFileName(sensor, band))
		table, err := LoadTable(path)
		if err != nil {
			return nil, &models.ConfigurationError{
				Component: "ilut",
				Message:   fmt.Sprintf("band %d table %s: %v", band, path, err),
			}
		}
		tables = append(tables, table)
	}
	return tables, nil
}

// LoadTable reads one band's grid table from a NetCDF file. The file carries
// the five axis variables named by AxisNames plus flat "gain" and "offset"
// data arrays in C order.
func LoadTable(path string) (*GridTable, error) {
	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("failed to open table file: %w", err)
	}
	defer func() { _ = nc.Close() }()

	table := &GridTable{}
	size := 1
	for i, name := range AxisNames {
		v, err := nc.Var(name)
		if err != nil {
			return nil, fmt.Errorf("axis variable %q not found: %w", name, err)
		}
		axis, err := readFloat64Var(v)
		if err != nil {
			return nil, fmt.Errorf("axis variable %q: %w", name, err)
		}
		table.Axes[i] = axis
		size *= len(axis)
	}

	table.Gain, err = readDataVar(nc, gainVarName, size)
	if err != nil {
		return nil, err
	}
	table.Offset, err = readDataVar(nc, offsetVarName, size)
	if err != nil {
		return nil, err
	}

	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("invalid table: %w", err)
	}
	return table, nil
}

// readDataVar reads a gain/offset variable and checks it matches the grid size.
func readDataVar(nc netcdf.Dataset, name string, size int) ([]float64, error) {
	v, err := nc.Var(name)
	if err != nil {
		return nil, fmt.Errorf("data variable %q not found: %w", name, err)
	}
	n, err := v.Len()
	if err != nil {
		return nil, fmt.Errorf("data variable %q: %w", name, err)
	}
	if n != uint64(size) {
		return nil, fmt.Errorf("data variable %q has %d values, grid needs %d", name, n, size)
	}
	return readFlatFloat64(v, int(n))
}

// readFloat64Var reads a 1D float64 array from a NetCDF variable.
func readFloat64Var(v netcdf.Var) ([]float64, error) {
	dims, err := v.Dims()
	if err != nil {
		return nil, fmt.Errorf("failed to get dimensions: %w", err)
	}
	if len(dims) != 1 {
		return nil, fmt.Errorf("expected 1D variable, got %dD", len(dims))
	}
	length, err := dims[0].Len()
	if err != nil {
		return nil, err
	}
	return readFlatFloat64(v, int(length))
}

// readFlatFloat64 reads a variable's values as float64 regardless of the
// stored width.
func readFlatFloat64(v netcdf.Var, length int) ([]float64, error) {
	t, err := v.Type()
	if err != nil {
		return nil, fmt.Errorf("failed to get var type: %w", err)
	}
	switch t {
	case netcdf.DOUBLE:
		data := make([]float64, length)
		if err := v.ReadFloat64s(data); err != nil {
			return nil, err
		}
		return data, nil
	case netcdf.FLOAT:
		tmp := make([]float32, length)
		if err := v.ReadFloat32s(tmp); err != nil {
			return nil, err
		}
		out := make([]float64, length)
		for i, val := range tmp {
			out[i] = float64(val)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported var type: %v", t)
	}
}
