package catalogue

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"stacksearch/domain/astro"
	"stacksearch/internal/errors"
)

// Loader reads a source catalogue from a tabular file. CSV and XLSX are
// supported, keyed on the file extension. Required columns: ra_deg,
// dec_deg, weight. Optional columns (name, redshift, extension_deg,
// ref_time_mjd, start_time_mjd, end_time_mjd) are picked up when present
// and ignored otherwise.
type Loader struct {
	filePath string
	fileType string // "xlsx" or "csv"
}

// NewLoader creates a loader for the given catalogue file path.
func NewLoader(filePath string) *Loader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "csv"
	if ext == ".xlsx" {
		fileType = "xlsx"
	}
	return &Loader{filePath: filePath, fileType: fileType}
}

// Load reads and validates the catalogue.
func Load(filePath string) (Catalogue, error) {
	return NewLoader(filePath).Load()
}

// Load reads and validates the catalogue.
func (l *Loader) Load() (Catalogue, error) {
	if _, err := os.Stat(l.filePath); os.IsNotExist(err) {
		return nil, errors.MissingFile(l.filePath)
	}

	var rows [][]string
	var err error
	switch l.fileType {
	case "xlsx":
		rows, err = l.readXLSX()
	default:
		rows, err = l.readCSV()
	}
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, errors.ConfigInvalidf("catalogue %s: need a header row and at least one source", l.filePath)
	}

	cat, err := parseRows(rows)
	if err != nil {
		return nil, errors.Wrapf(err, "catalogue %s", l.filePath)
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return cat, nil
}

func (l *Loader) readCSV() ([][]string, error) {
	f, err := os.Open(l.filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open catalogue %s", l.filePath)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse catalogue CSV %s", l.filePath)
	}
	return rows, nil
}

func (l *Loader) readXLSX() ([][]string, error) {
	f, err := excelize.OpenFile(l.filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open catalogue workbook %s", l.filePath)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read catalogue sheet in %s", l.filePath)
	}
	return rows, nil
}

// Column keys recognized in the header row. Matching is case-insensitive.
const (
	colName      = "name"
	colRA        = "ra_deg"
	colDec       = "dec_deg"
	colWeight    = "weight"
	colRedshift  = "redshift"
	colExtension = "extension_deg"
	colRefTime   = "ref_time_mjd"
	colStartTime = "start_time_mjd"
	colEndTime   = "end_time_mjd"
)

func parseRows(rows [][]string) (Catalogue, error) {
	header := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{colRA, colDec, colWeight} {
		if _, ok := header[required]; !ok {
			return nil, errors.ConfigInvalidf("missing required column %q", required)
		}
	}

	cat := make(Catalogue, 0, len(rows)-1)
	for rowIdx, row := range rows[1:] {
		get := func(key string) (float64, bool, error) {
			idx, ok := header[key]
			if !ok || idx >= len(row) || strings.TrimSpace(row[idx]) == "" {
				return 0, false, nil
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(row[idx]), 64)
			if err != nil {
				return 0, false, errors.ConfigInvalidf("row %d: column %q: %v", rowIdx+2, key, err)
			}
			return v, true, nil
		}

		src := Source{}
		if idx, ok := header[colName]; ok && idx < len(row) {
			src.Name = strings.TrimSpace(row[idx])
		}
		if src.Name == "" {
			src.Name = "src_" + strconv.Itoa(rowIdx)
		}

		raDeg, ok, err := get(colRA)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.ConfigInvalidf("row %d: missing ra_deg", rowIdx+2)
		}
		decDeg, ok, err := get(colDec)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.ConfigInvalidf("row %d: missing dec_deg", rowIdx+2)
		}
		weight, ok, err := get(colWeight)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.ConfigInvalidf("row %d: missing weight", rowIdx+2)
		}

		src.RA = astro.DegToRad(raDeg)
		src.Dec = astro.DegToRad(decDeg)
		src.Weight = weight

		if v, ok, err := get(colRedshift); err != nil {
			return nil, err
		} else if ok {
			src.Redshift = v
		}
		if v, ok, err := get(colExtension); err != nil {
			return nil, err
		} else if ok {
			src.Extension = astro.DegToRad(v)
		}
		if v, ok, err := get(colRefTime); err != nil {
			return nil, err
		} else if ok {
			src.RefTime = v
		}
		if v, ok, err := get(colStartTime); err != nil {
			return nil, err
		} else if ok {
			src.StartTime = v
		}
		if v, ok, err := get(colEndTime); err != nil {
			return nil, err
		} else if ok {
			src.EndTime = v
		}

		cat = append(cat, src)
	}
	return cat, nil
}
