package dataset

import (
	"encoding/csv"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"stacksearch/domain/astro"
	"stacksearch/domain/events"
	"stacksearch/internal/errors"
)

// Event table column keys. Angles on disk are degrees, energies are
// log10(E/GeV), times are MJD; loading converts angles to radians.
const (
	colEvRA      = "ra_deg"
	colEvDec     = "dec_deg"
	colEvAngErr  = "ang_err_deg"
	colEvLogE    = "log10_energy"
	colEvTime    = "time_mjd"
	colTrueRA    = "true_ra_deg"
	colTrueDec   = "true_dec_deg"
	colTrueE     = "true_energy_gev"
	colOneWeight = "one_weight"
)

// Effective-area table column keys, one row per (declination, energy)
// grid cell.
const (
	colEASinDecMin = "sin_dec_min"
	colEASinDecMax = "sin_dec_max"
	colEALogEMin   = "log_e_min"
	colEALogEMax   = "log_e_max"
	colEAArea      = "area_cm2"
	colEAAngErr    = "ang_err_deg"
)

// LoadExp reads an experimental event table from CSV.
func LoadExp(path string) (events.Sample, error) {
	rows, header, err := readTable(path)
	if err != nil {
		return nil, err
	}
	for _, key := range []string{colEvRA, colEvDec, colEvAngErr, colEvLogE, colEvTime} {
		if _, ok := header[key]; !ok {
			return nil, errors.ConfigInvalidf("event table %s: missing required column %q", path, key)
		}
	}

	out := make(events.Sample, 0, len(rows))
	for i, row := range rows {
		ev, err := parseEvent(header, row)
		if err != nil {
			return nil, errors.Wrapf(err, "event table %s row %d", path, i+2)
		}
		out = append(out, ev)
	}
	return out, nil
}

// LoadMC reads a simulated event table from CSV: the experimental schema
// plus truth columns.
func LoadMC(path string) ([]events.SimEvent, error) {
	rows, header, err := readTable(path)
	if err != nil {
		return nil, err
	}
	required := []string{
		colEvRA, colEvDec, colEvAngErr, colEvLogE, colEvTime,
		colTrueRA, colTrueDec, colTrueE, colOneWeight,
	}
	for _, key := range required {
		if _, ok := header[key]; !ok {
			return nil, errors.ConfigInvalidf("simulation table %s: missing required column %q", path, key)
		}
	}

	out := make([]events.SimEvent, 0, len(rows))
	for i, row := range rows {
		ev, err := parseEvent(header, row)
		if err != nil {
			return nil, errors.Wrapf(err, "simulation table %s row %d", path, i+2)
		}
		sim := events.SimEvent{Event: ev}
		fields := []struct {
			key string
			dst *float64
			deg bool
		}{
			{colTrueRA, &sim.TrueRA, true},
			{colTrueDec, &sim.TrueDec, true},
			{colTrueE, &sim.TrueEnergy, false},
			{colOneWeight, &sim.OneWeight, false},
		}
		for _, f := range fields {
			v, err := parseCell(header, row, f.key)
			if err != nil {
				return nil, errors.Wrapf(err, "simulation table %s row %d", path, i+2)
			}
			if f.deg {
				v = astro.DegToRad(v)
			}
			*f.dst = v
		}
		out = append(out, sim)
	}
	return out, nil
}

// LoadEffectiveArea reads a binned effective-area grid from CSV. The
// rows enumerate grid cells; bin edges are reconstructed from the
// distinct cell boundaries, which must tile a regular grid.
func LoadEffectiveArea(path string, logESmear float64) (*EffectiveArea, error) {
	rows, header, err := readTable(path)
	if err != nil {
		return nil, err
	}
	required := []string{colEASinDecMin, colEASinDecMax, colEALogEMin, colEALogEMax, colEAArea, colEAAngErr}
	for _, key := range required {
		if _, ok := header[key]; !ok {
			return nil, errors.ConfigInvalidf("effective area %s: missing required column %q", path, key)
		}
	}

	cells := make([]eaCell, 0, len(rows))
	for i, row := range rows {
		var c eaCell
		for _, f := range []struct {
			key string
			dst *float64
		}{
			{colEASinDecMin, &c.sdMin}, {colEASinDecMax, &c.sdMax},
			{colEALogEMin, &c.leMin}, {colEALogEMax, &c.leMax},
			{colEAArea, &c.area}, {colEAAngErr, &c.angErr},
		} {
			v, err := parseCell(header, row, f.key)
			if err != nil {
				return nil, errors.Wrapf(err, "effective area %s row %d", path, i+2)
			}
			*f.dst = v
		}
		cells = append(cells, c)
	}
	if len(cells) == 0 {
		return nil, errors.ConfigInvalidf("effective area %s: no grid cells", path)
	}

	sinDecEdges := collectEdges(cells, func(c eaCell) (float64, float64) { return c.sdMin, c.sdMax })
	logEEdges := collectEdges(cells, func(c eaCell) (float64, float64) { return c.leMin, c.leMax })
	nDec, nE := len(sinDecEdges)-1, len(logEEdges)-1

	area := make([][]float64, nDec)
	for i := range area {
		area[i] = make([]float64, nE)
	}
	angErr := make([]float64, nE)
	for _, c := range cells {
		di := edgeIndex(sinDecEdges, c.sdMin)
		ei := edgeIndex(logEEdges, c.leMin)
		if di < 0 || ei < 0 ||
			sinDecEdges[di+1] != c.sdMax || logEEdges[ei+1] != c.leMax {
			return nil, errors.ConfigInvalidf("effective area %s: cell [%g, %g)x[%g, %g) does not align with the grid", path, c.sdMin, c.sdMax, c.leMin, c.leMax)
		}
		area[di][ei] = c.area
		angErr[ei] = c.angErr
	}

	ea := &EffectiveArea{
		SinDecEdges: sinDecEdges,
		LogEEdges:   logEEdges,
		AreaCM2:     area,
		AngErrDeg:   angErr,
		LogESmear:   logESmear,
	}
	if err := ea.Validate(); err != nil {
		return nil, errors.Wrapf(err, "effective area %s", path)
	}
	return ea, nil
}

func readTable(path string) ([][]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errors.MissingFile(path)
		}
		return nil, nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to parse CSV %s", path)
	}
	if len(rows) < 1 {
		return nil, nil, errors.ConfigInvalidf("%s: missing header row", path)
	}

	header := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return rows[1:], header, nil
}

func parseEvent(header map[string]int, row []string) (events.Event, error) {
	var raDeg, decDeg, angErrDeg, logE, t float64
	for _, f := range []struct {
		key string
		dst *float64
	}{
		{colEvRA, &raDeg}, {colEvDec, &decDeg}, {colEvAngErr, &angErrDeg},
		{colEvLogE, &logE}, {colEvTime, &t},
	} {
		v, err := parseCell(header, row, f.key)
		if err != nil {
			return events.Event{}, err
		}
		*f.dst = v
	}

	dec := astro.DegToRad(decDeg)
	return events.Event{
		RA:        astro.DegToRad(raDeg),
		Dec:       dec,
		SinDec:    math.Sin(dec),
		AngErr:    astro.DegToRad(angErrDeg),
		LogEnergy: logE,
		Time:      t,
	}, nil
}

func parseCell(header map[string]int, row []string, key string) (float64, error) {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return 0, errors.ConfigInvalidf("missing value for column %q", key)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(row[idx]), 64)
	if err != nil {
		return 0, errors.ConfigInvalidf("column %q: %v", key, err)
	}
	return v, nil
}

// eaCell is one effective-area grid cell as stored on disk.
type eaCell struct {
	sdMin, sdMax, leMin, leMax, area, angErr float64
}

// collectEdges reconstructs sorted bin edges from per-cell boundaries.
func collectEdges(cells []eaCell, bounds func(c eaCell) (float64, float64)) []float64 {
	seen := make(map[float64]bool)
	for _, c := range cells {
		lo, hi := bounds(c)
		seen[lo] = true
		seen[hi] = true
	}
	edges := make([]float64, 0, len(seen))
	for e := range seen {
		edges = append(edges, e)
	}
	sort.Float64s(edges)
	return edges
}

func edgeIndex(edges []float64, lo float64) int {
	for i := 0; i < len(edges)-1; i++ {
		if edges[i] == lo {
			return i
		}
	}
	return -1
}
