// Package cache holds the local copies of fetched rates: the flat CSV file and in-memory figure memos.
package cache

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/damon-houk/fx-rate-dashboard/internal/domain/entity"
)

// CSVRateStore persists a rate table as a flat CSV file.
// A file already present at the path is trusted without validation.
type CSVRateStore struct {
	path string
}

// NewCSVRateStore creates a store backed by the file at path
func NewCSVRateStore(path string) *CSVRateStore {
	return &CSVRateStore{path: path}
}

// Path returns the cache file location
func (s *CSVRateStore) Path() string {
	return s.path
}

// Exists reports whether the cache file is present
func (s *CSVRateStore) Exists(ctx context.Context) (bool, error) {
	_, err := os.Stat(s.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat cache file: %w", err)
}

// Load reads the cache file into a table sorted by date
func (s *CSVRateStore) Load(ctx context.Context) (*entity.RateTable, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache file: %w", err)
	}
	defer f.Close()

	table, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file %s: %w", s.path, err)
	}
	return table, nil
}

// Save writes the table to a temp file next to the cache file and renames it
// into place, so the cache path holds either nothing or a complete table
func (s *CSVRateStore) Save(ctx context.Context, table *entity.RateTable) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	f, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	tmpPath := f.Name()

	if err := WriteCSV(f, table); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace cache file: %w", err)
	}

	return nil
}

// WriteCSV encodes the table with a date header column followed by one column per currency
func WriteCSV(w io.Writer, table *entity.RateTable) error {
	cw := csv.NewWriter(w)

	dateColumn := table.DateColumn
	if dateColumn == "" {
		dateColumn = entity.DateColumn
	}

	header := append([]string{dateColumn}, table.Currencies...)
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for i, date := range table.Dates {
		record[0] = date.Format(entity.DateLayout)
		for j, v := range table.Rates[i] {
			if math.IsNaN(v) {
				record[j+1] = ""
			} else {
				record[j+1] = strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV decodes a table written by WriteCSV. The first column is the date,
// whatever its header; it is renamed to Date unless it is Week_start.
func ReadCSV(r io.Reader) (*entity.RateTable, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("header needs a date column and at least one currency, got %v", header)
	}

	currencies := make([]string, len(header)-1)
	for i, h := range header[1:] {
		currencies[i] = strings.TrimSpace(h)
	}

	table := entity.NewRateTable(strings.TrimSpace(header[0]), "", currencies)

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		date, err := parseDate(record[0])
		if err != nil {
			return nil, err
		}

		row := make([]float64, len(currencies))
		for j := range currencies {
			cell := strings.TrimSpace(record[j+1])
			if cell == "" {
				row[j] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid rate %q for %s on %s: %w", cell, currencies[j], record[0], err)
			}
			row[j] = v
		}

		if err := table.AppendRow(date, row); err != nil {
			return nil, err
		}
	}

	table.SortByDate()
	if strings.EqualFold(table.DateColumn, entity.WeekStartColumn) {
		table.RenameDateColumn(entity.WeekStartColumn)
	} else {
		table.RenameDateColumn(entity.DateColumn)
	}
	return table, nil
}

// parseDate accepts plain dates and the timestamp form some tools write for index columns
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{entity.DateLayout, "2006-01-02 15:04:05", time.RFC3339} {
		if d, err := time.Parse(layout, s); err == nil {
			return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}
