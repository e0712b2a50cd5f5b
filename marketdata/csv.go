package marketdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Accepted timestamp layouts for the date column, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// LoadCSV reads one symbol's close history from a CSV file with a header
// containing at least Date and Close columns (case-insensitive). Extra
// columns such as Open/High/Low/Volume are ignored.
func LoadCSV(path, symbol string) (Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return Series{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return Series{}, fmt.Errorf("read header of %s: %w", path, err)
	}

	dateCol, closeCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "date", "time", "timestamp":
			if dateCol < 0 {
				dateCol = i
			}
		case "close", "adj close", "adj_close":
			if closeCol < 0 {
				closeCol = i
			}
		}
	}
	if dateCol < 0 || closeCol < 0 {
		return Series{}, fmt.Errorf("%s: header must contain Date and Close columns, got %v", path, header)
	}

	s := Series{Symbol: symbol}
	line := 1
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Series{}, fmt.Errorf("%s line %d: %w", path, line+1, err)
		}
		line++

		ts, err := parseDate(rec[dateCol])
		if err != nil {
			return Series{}, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		close, err := strconv.ParseFloat(strings.TrimSpace(rec[closeCol]), 64)
		if err != nil {
			return Series{}, fmt.Errorf("%s line %d: bad close %q: %w", path, line, rec[closeCol], err)
		}
		s.Points = append(s.Points, SeriesPoint{Time: ts, Close: close})
	}

	if len(s.Points) == 0 {
		return Series{}, fmt.Errorf("%s: no data rows", path)
	}
	return s, nil
}

// LoadDir loads <dir>/<symbol>.csv for every symbol and merges them into one
// forward-filled table.
func LoadDir(dir string, symbols []string) (*Table, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("marketdata: no symbols requested")
	}
	series := make([]Series, 0, len(symbols))
	for _, sym := range symbols {
		s, err := LoadCSV(filepath.Join(dir, sym+".csv"), sym)
		if err != nil {
			return nil, err
		}
		series = append(series, s)
	}
	return Merge(series...)
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}
