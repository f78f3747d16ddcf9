package dataset

import (
	"stacksearch/internal/errors"
)

// Dataset is an ordered collection of seasons addressed by exact name.
type Dataset struct {
	Name    string
	seasons map[string]*Season
	order   []string
}

// NewDataset creates an empty dataset.
func NewDataset(name string) *Dataset {
	return &Dataset{
		Name:    name,
		seasons: make(map[string]*Season),
	}
}

// Add registers a season, replacing any season of the same name.
func (d *Dataset) Add(season *Season) {
	if _, exists := d.seasons[season.Name]; !exists {
		d.order = append(d.order, season.Name)
	}
	d.seasons[season.Name] = season
}

// GetSeasons selects seasons by exact name match. With no names, all
// seasons are returned in registration order. An unknown name fails with
// UnknownSeasonError.
func (d *Dataset) GetSeasons(names ...string) ([]*Season, error) {
	if len(names) == 0 {
		names = d.order
	}
	out := make([]*Season, 0, len(names))
	for _, name := range names {
		season, ok := d.seasons[name]
		if !ok {
			return nil, errors.UnknownSeason(name)
		}
		out = append(out, season)
	}
	return out, nil
}

// SeasonNames returns the registered season names in order.
func (d *Dataset) SeasonNames() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}
