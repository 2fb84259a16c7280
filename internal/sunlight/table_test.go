package sunlight

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solarfarm/internal/types"
)

const sampleCSV = `city_id,name,region,sunlight_hours
tucson,Tucson,AZ,6.6
seattle,Seattle,WA,3.6
boston,Boston,MA,4.2
`

func TestDefaultTable(t *testing.T) {
	table := DefaultTable()
	require.Greater(t, table.Len(), 10)

	hours, err := table.SunlightHours(context.Background(), "phoenix")
	require.NoError(t, err)
	assert.Equal(t, 6.6, hours)

	cities := table.Cities()
	for i := 1; i < len(cities); i++ {
		assert.Less(t, cities[i-1].ID, cities[i].ID, "cities must be sorted by id")
	}
}

func TestLoadTable(t *testing.T) {
	table, res, err := LoadTable(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Loaded)
	assert.Empty(t, res.Errors)

	ids := []string{}
	for _, c := range table.Cities() {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"boston", "seattle", "tucson"}, ids)

	c, err := table.City("TUCSON")
	require.NoError(t, err)
	assert.Equal(t, City{ID: "tucson", Name: "Tucson", Region: "AZ", SunlightHours: 6.6}, c)
}

func TestLoadTable_ColumnOrder(t *testing.T) {
	csv := "sunlight_hours,region,city_id,name,notes\n5.5,CA,sacramento,Sacramento,capital\n"
	table, _, err := LoadTable(strings.NewReader(csv))
	require.NoError(t, err)

	hours, err := table.SunlightHours(context.Background(), "sacramento")
	require.NoError(t, err)
	assert.Equal(t, 5.5, hours)
}

func TestLoadTable_BadRowsReported(t *testing.T) {
	csv := strings.Join([]string{
		"city_id,name,region,sunlight_hours",
		"tucson,Tucson,AZ,6.6",
		"Bad ID!,Nowhere,XX,5",
		"seattle,Seattle,WA,lots",
		"reno,Reno,NV,25",
		"tucson,Tucson again,AZ,6.0",
		"# a comment",
		"reno,Reno,NV,6.0",
	}, "\n")

	table, res, err := LoadTable(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Loaded)
	require.Len(t, res.Errors, 4)

	lines := make([]int, 0, len(res.Errors))
	for _, e := range res.Errors {
		lines = append(lines, e.Line)
	}
	assert.Equal(t, []int{3, 4, 5, 6}, lines)
	assert.Contains(t, res.Errors[3].Err, "duplicate")

	hours, err := table.SunlightHours(context.Background(), "tucson")
	require.NoError(t, err)
	assert.Equal(t, 6.6, hours, "first occurrence wins")
}

func TestLoadTable_Failures(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"missing column", "city_id,name,region\ntucson,Tucson,AZ\n"},
		{"no valid rows", "city_id,name,region,sunlight_hours\nX,Y,Z,nope\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := LoadTable(strings.NewReader(tt.input))
			var appErr *types.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, types.ErrCodeInternalSunlight, appErr.Code)
		})
	}
}

func TestTable_UnknownCity(t *testing.T) {
	table, _, err := LoadTable(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	_, err = table.SunlightHours(context.Background(), "atlantis")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 404, appErr.HTTPStatus())
	assert.Equal(t, "atlantis", appErr.Details["city_id"])
}

func TestLoadTableFile(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "cities.csv")
	require.NoError(t, os.WriteFile(plain, []byte(sampleCSV), 0o600))

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	require.NoError(t, err)
	compressed := filepath.Join(dir, "cities.csv.zst")
	require.NoError(t, os.WriteFile(compressed, enc.EncodeAll([]byte(sampleCSV), nil), 0o600))
	require.NoError(t, enc.Close())

	for _, path := range []string{plain, compressed} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			table, res, err := LoadTableFile(path)
			require.NoError(t, err)
			assert.Equal(t, 3, res.Loaded)
			assert.Equal(t, 3, table.Len())
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, _, err := LoadTableFile(filepath.Join(dir, "nope.csv"))
		var appErr *types.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, types.ErrCodeInternalSunlight, appErr.Code)
	})
}

func TestTable_HealthCheck(t *testing.T) {
	table := DefaultTable()
	assert.Equal(t, "sunlight_table", table.Name())
	assert.NoError(t, table.Check(context.Background()))
	assert.Error(t, (&Table{}).Check(context.Background()))
}
