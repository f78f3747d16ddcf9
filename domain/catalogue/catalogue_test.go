package catalogue

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stacksearch/internal/errors"
)

func TestValidateRejectsBadWeights(t *testing.T) {
	cat := Catalogue{{Name: "a", Weight: -1}}
	assert.Error(t, cat.Validate())

	cat = Catalogue{{Name: "a", Weight: 0}, {Name: "b", Weight: 0}}
	assert.Error(t, cat.Validate(), "all-zero weights have no normalization")

	cat = Catalogue{{Name: "a", Weight: 2}, {Name: "b", Weight: 0}}
	assert.NoError(t, cat.Validate())
}

func TestNormalizedWeights(t *testing.T) {
	cat := Catalogue{
		{Name: "a", Weight: 1},
		{Name: "b", Weight: 3},
	}
	w := cat.NormalizedWeights()
	require.Len(t, w, 2)
	assert.InDelta(t, 0.25, w[0], 1e-12)
	assert.InDelta(t, 0.75, w[1], 1e-12)
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cat.csv")
	csv := "name,ra_deg,dec_deg,weight,ref_time_mjd\n" +
		"TXS,77.36,5.69,1.0,56100\n" +
		",180.0,-30.0,2.5,\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0644))

	cat, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cat, 2)

	assert.Equal(t, "TXS", cat[0].Name)
	assert.InDelta(t, 77.36*math.Pi/180, cat[0].RA, 1e-12)
	assert.InDelta(t, 5.69*math.Pi/180, cat[0].Dec, 1e-12)
	assert.Equal(t, 1.0, cat[0].Weight)
	assert.Equal(t, 56100.0, cat[0].RefTime)

	// Missing name gets a generated one; missing optionals stay zero.
	assert.Equal(t, "src_1", cat[1].Name)
	assert.Equal(t, 0.0, cat[1].RefTime)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/cat.csv")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeMissingFile))
}

func TestLoadRejectsMissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cat.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,ra_deg\nTXS,77.36\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsEmptyTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cat.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,ra_deg,dec_deg,weight\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}
