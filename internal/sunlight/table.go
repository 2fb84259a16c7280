package sunlight

import (
	"bufio"
	"context"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"solarfarm/internal/types"
)

//go:embed data/cities.csv
var defaultCities string

// zstdMagic is the frame header of a zstd stream.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

var tableColumns = []string{"city_id", "name", "region", "sunlight_hours"}

// LineError describes a row that was skipped while loading a table.
type LineError struct {
	Line int    `json:"line"`
	Err  string `json:"error"`
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Err)
}

// LoadResult summarises a table load. Bad rows never abort the load; they
// are listed in Errors.
type LoadResult struct {
	Loaded int
	Errors []LineError
}

// Table is an immutable in-memory sunlight table.
type Table struct {
	cities map[string]City
	ids    []string
}

// DefaultTable returns the table compiled into the binary.
func DefaultTable() *Table {
	t, _, err := LoadTable(strings.NewReader(defaultCities))
	if err != nil {
		panic(fmt.Sprintf("embedded sunlight table is invalid: %v", err))
	}
	return t
}

// LoadTableFile reads a CSV table from path. The file may be zstd
// compressed; compression is detected from the frame header.
func LoadTableFile(path string) (*Table, *LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, types.NewAppError(types.ErrCodeInternalSunlight, "failed to open sunlight table", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	magic, _ := br.Peek(len(zstdMagic))
	if slices.Equal(magic, zstdMagic) || strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(br, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, nil, types.NewAppError(types.ErrCodeInternalSunlight, "failed to open zstd stream", err)
		}
		defer dec.Close()
		return LoadTable(dec)
	}
	return LoadTable(br)
}

// LoadTable parses CSV with a header row naming at least the columns
// city_id, name, region and sunlight_hours, in any order. Rows with an
// invalid id, a duplicate id or an hours value outside [0, 24] are skipped
// and reported. A missing header, a read failure or a table with no usable
// rows is an error.
func LoadTable(r io.Reader) (*Table, *LoadResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty table")
		}
		return nil, nil, types.NewAppError(types.ErrCodeInternalSunlight, "failed to read sunlight table header", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range tableColumns {
		if _, ok := col[name]; !ok {
			return nil, nil, types.NewAppError(
				types.ErrCodeInternalSunlight,
				fmt.Sprintf("sunlight table header is missing column %q", name),
				nil,
			)
		}
	}

	t := &Table{cities: make(map[string]City)}
	res := &LoadResult{}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				res.Errors = append(res.Errors, LineError{Line: perr.Line, Err: perr.Err.Error()})
				continue
			}
			return nil, nil, types.NewAppError(types.ErrCodeInternalSunlight, "failed to read sunlight table", err)
		}

		line, _ := cr.FieldPos(0)
		city, err := parseRow(rec, col)
		if err == nil {
			if _, dup := t.cities[city.ID]; dup {
				err = fmt.Errorf("duplicate city_id %q", city.ID)
			}
		}
		if err != nil {
			res.Errors = append(res.Errors, LineError{Line: line, Err: err.Error()})
			continue
		}

		t.cities[city.ID] = city
		t.ids = append(t.ids, city.ID)
	}

	if len(t.ids) == 0 {
		return nil, res, types.NewAppError(types.ErrCodeInternalSunlight, "sunlight table has no valid rows", nil)
	}

	slices.Sort(t.ids)
	res.Loaded = len(t.ids)
	return t, res, nil
}

func parseRow(rec []string, col map[string]int) (City, error) {
	field := func(name string) string {
		i := col[name]
		if i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	c := City{
		ID:     strings.ToLower(field("city_id")),
		Name:   field("name"),
		Region: field("region"),
	}
	if !cityIDPattern.MatchString(c.ID) {
		return City{}, fmt.Errorf("invalid city_id %q", c.ID)
	}

	raw := field("sunlight_hours")
	hours, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return City{}, fmt.Errorf("invalid sunlight_hours %q", raw)
	}
	if math.IsNaN(hours) || hours < 0 || hours > MaxSunlightHours {
		return City{}, fmt.Errorf("sunlight_hours %v outside [0, %d]", hours, MaxSunlightHours)
	}
	c.SunlightHours = hours
	if c.Name == "" {
		c.Name = c.ID
	}
	return c, nil
}

// SunlightHours implements Lookup.
func (t *Table) SunlightHours(_ context.Context, cityID string) (float64, error) {
	c, err := t.City(cityID)
	if err != nil {
		return 0, err
	}
	return c.SunlightHours, nil
}

// City returns the row for cityID.
func (t *Table) City(cityID string) (City, error) {
	c, ok := t.cities[strings.ToLower(cityID)]
	if !ok {
		return City{}, NotFound(cityID)
	}
	return c, nil
}

// Cities returns every row ordered by id.
func (t *Table) Cities() []City {
	out := make([]City, 0, len(t.ids))
	for _, id := range t.ids {
		out = append(out, t.cities[id])
	}
	return out
}

// Len returns the number of cities.
func (t *Table) Len() int {
	return len(t.ids)
}

// Name implements core.HealthChecker.
func (t *Table) Name() string { return "sunlight_table" }

// Check implements core.HealthChecker.
func (t *Table) Check(context.Context) error {
	if t.Len() == 0 {
		return errors.New("sunlight table is empty")
	}
	return nil
}
