// Package db internal/infrastructure/db/badger_rate_store.go
package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/damon-houk/fx-rate-dashboard/internal/domain/entity"
	"github.com/dgraph-io/badger/v3"
)

const (
	metaKey    = "meta:table"
	ratePrefix = "rate:"
)

// tableMeta is stored once per table
type tableMeta struct {
	DateColumn string   `json:"date_column"`
	Base       string   `json:"base"`
	Currencies []string `json:"currencies"`
}

// rateRow is stored under rate:<date>; nil marks a missing rate
type rateRow struct {
	Date  string     `json:"date"`
	Rates []*float64 `json:"rates"`
}

// BadgerRateStore implements the rate store interface using BadgerDB
type BadgerRateStore struct {
	db *badger.DB
}

// NewBadgerRateStore creates a new BadgerDB rate store
func NewBadgerRateStore(db *badger.DB) *BadgerRateStore {
	return &BadgerRateStore{db: db}
}

// OpenBadger opens a BadgerDB directory with Badger's own logger disabled
func OpenBadger(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// Exists reports whether a table has been saved
func (s *BadgerRateStore) Exists(ctx context.Context) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(metaKey))
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check rate table: %w", err)
	}
	return true, nil
}

// Save stores the table metadata and one entry per date in a single transaction
func (s *BadgerRateStore) Save(ctx context.Context, table *entity.RateTable) error {
	meta, err := json.Marshal(tableMeta{
		DateColumn: table.DateColumn,
		Base:       table.Base,
		Currencies: table.Currencies,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal table metadata: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		for i, date := range table.Dates {
			key := date.Format(entity.DateLayout)
			data, err := json.Marshal(rateRow{Date: key, Rates: toNullable(table.Rates[i])})
			if err != nil {
				return fmt.Errorf("failed to marshal rates for %s: %w", key, err)
			}
			if err := txn.Set([]byte(ratePrefix+key), data); err != nil {
				return err
			}
		}
		return txn.Set([]byte(metaKey), meta)
	})

	if err != nil {
		return fmt.Errorf("failed to store rate table: %w", err)
	}
	return nil
}

// Load reads the table back; keys sort lexicographically, which is date order
func (s *BadgerRateStore) Load(ctx context.Context) (*entity.RateTable, error) {
	var table *entity.RateTable

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(metaKey))
		if err != nil {
			return err
		}

		var meta tableMeta
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		}); err != nil {
			return err
		}

		table = entity.NewRateTable(meta.DateColumn, meta.Base, meta.Currencies)

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(ratePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var row rateRow
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &row)
			}); err != nil {
				return err
			}

			date, err := time.Parse(entity.DateLayout, row.Date)
			if err != nil {
				return fmt.Errorf("invalid stored date %q: %w", row.Date, err)
			}
			if err := table.AppendRow(date, fromNullable(row.Rates)); err != nil {
				return err
			}
		}
		return nil
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("rate table not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load rate table: %w", err)
	}

	table.SortByDate()
	return table, nil
}

func toNullable(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i := range values {
		if math.IsNaN(values[i]) {
			continue
		}
		v := values[i]
		out[i] = &v
	}
	return out
}

func fromNullable(values []*float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if v == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *v
	}
	return out
}
