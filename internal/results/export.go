package results

import (
	"github.com/xuri/excelize/v2"

	"stacksearch/internal/errors"
)

// FluxConverter turns a mean-signal scale into a flux normalization at
// the pivot energy; injectors provide one. The same shape converts a
// scale into an energy fluence when composed with the spectral model's
// fluence integral.
type FluxConverter func(scale float64) float64

// ExportXLSX writes the exceedance curves and bias diagnostics to a
// workbook: one sheet per curve plus a bias sheet. A nil flux converter
// leaves the flux column empty; a nil fluence converter drops the
// energy-fluence summary row.
func ExportXLSX(path string, h *Handler, curves map[string]*Curve, flux, fluence FluxConverter) error {
	f := excelize.NewFile()
	defer f.Close()

	first := true
	for name, curve := range curves {
		if err := writeCurveSheet(f, name, curve, flux, fluence, first); err != nil {
			return err
		}
		first = false
	}
	if err := writeBiasSheet(f, h.FitBias()); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return errors.StorageError("failed to write results workbook", err)
	}
	return nil
}

func writeCurveSheet(f *excelize.File, name string, curve *Curve, flux, fluence FluxConverter, reuseDefault bool) error {
	sheet := name
	if reuseDefault {
		// Rename the default sheet instead of leaving an empty Sheet1.
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return errors.StorageError("failed to rename sheet", err)
		}
	} else if _, err := f.NewSheet(sheet); err != nil {
		return errors.StorageError("failed to create sheet", err)
	}

	headers := []string{"scale", "flux", "fraction", "median_ts", "n_trials", "n_failures"}
	if err := writeRow(f, sheet, 1, toCells(headers)); err != nil {
		return err
	}
	for i, p := range curve.Points {
		var fluxVal interface{}
		if flux != nil {
			fluxVal = flux(p.Scale)
		}
		row := []interface{}{p.Scale, fluxVal, p.Fraction, p.MedianTS, p.NTrials, p.NFailures}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}

	// Summary block below the table.
	base := len(curve.Points) + 3
	summary := [][]interface{}{
		{"ts_threshold", curve.Threshold},
		{"target_fraction", curve.Target},
		{"interpolated_scale", curve.Scale},
	}
	if flux != nil {
		summary = append(summary, []interface{}{"interpolated_flux", flux(curve.Scale)})
	}
	if fluence != nil {
		summary = append(summary, []interface{}{"interpolated_fluence", fluence(curve.Scale)})
	}
	for i, row := range summary {
		if err := writeRow(f, sheet, base+i, row); err != nil {
			return err
		}
	}
	return nil
}

func writeBiasSheet(f *excelize.File, biases []Bias) error {
	sheet := "bias"
	if _, err := f.NewSheet(sheet); err != nil {
		return errors.StorageError("failed to create bias sheet", err)
	}
	if err := writeRow(f, sheet, 1, toCells([]string{"scale", "mean_ns", "pull"})); err != nil {
		return err
	}
	for i, b := range biases {
		if err := writeRow(f, sheet, i+2, []interface{}{b.Scale, b.MeanNS, b.Pull}); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, rowIdx int, values []interface{}) error {
	for c, v := range values {
		if v == nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(c+1, rowIdx)
		if err != nil {
			return errors.StorageError("failed to address cell", err)
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return errors.StorageError("failed to write cell", err)
		}
	}
	return nil
}

func toCells(headers []string) []interface{} {
	out := make([]interface{}, len(headers))
	for i, h := range headers {
		out[i] = h
	}
	return out
}
