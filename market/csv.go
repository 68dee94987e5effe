package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Accepted timestamp layouts for CSV bar files.
var csvTimeLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// LoadCSV reads a bar series from a CSV file with the header
// time,open,high,low,close,volume. The header row is optional.
func LoadCSV(path string) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV reads a bar series from CSV rows of
// time,open,high,low,close,volume.
func ReadCSV(r io.Reader) (*Series, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var bars []ObservedBar
	line := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++

		if line == 1 && len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "time") {
			continue
		}
		if len(row) == 0 {
			continue
		}
		ob, err := parseCSVRow(row)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		bars = append(bars, ob)
	}

	return NewSeries(bars)
}

func parseCSVRow(row []string) (ObservedBar, error) {
	if len(row) < 6 {
		return ObservedBar{}, fmt.Errorf("need 6 columns time,open,high,low,close,volume, got %d", len(row))
	}

	ts := strings.TrimSpace(row[0])
	var t time.Time
	var err error
	for _, layout := range csvTimeLayouts {
		if t, err = time.Parse(layout, ts); err == nil {
			break
		}
	}
	if err != nil {
		return ObservedBar{}, fmt.Errorf("bad time %q", row[0])
	}

	var px [4]float64
	for i := 1; i < 5; i++ {
		px[i-1], err = strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
		if err != nil {
			return ObservedBar{}, fmt.Errorf("bad price %q: %w", row[i], err)
		}
	}

	// Some sources export volume as a float; truncate toward zero.
	volF, err := strconv.ParseFloat(strings.TrimSpace(row[5]), 64)
	if err != nil {
		return ObservedBar{}, fmt.Errorf("bad volume %q: %w", row[5], err)
	}

	return ObservedBar{
		Time: t.UTC(),
		Bar: Bar{
			Open:   px[0],
			High:   px[1],
			Low:    px[2],
			Close:  px[3],
			Volume: int64(volF),
		},
	}, nil
}
