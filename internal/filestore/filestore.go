package filestore

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/shopspring/decimal"

	"niftyfetcher/internal/fetcher"
	"niftyfetcher/internal/yahoo"
)

const timeLayout = "2006-01-02 15:04:05-07:00"

var (
	liveHeader       = []string{"Datetime", "Open", "High", "Low", "Close", "Volume"}
	historicalHeader = []string{"Date", "Open", "High", "Low", "Close", "Volume"}
)

// Store writes per-ticker output files under the live and historical roots.
// Each ticker gets its own directory, so concurrent writers for different
// tickers never touch the same path.
type Store struct {
	LiveDir       string
	HistoricalDir string
}

// New creates a store rooted at the two directories
func New(liveDir, historicalDir string) *Store {
	return &Store{LiveDir: liveDir, HistoricalDir: historicalDir}
}

// Init creates both root directories
func (s *Store) Init() error {
	for _, dir := range []string{s.LiveDir, s.HistoricalDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory %s: %w", dir, err)
		}
	}
	return nil
}

// LivePaths returns the CSV and JSON paths for ticker's live data
func (s *Store) LivePaths(ticker string) (csvPath, jsonPath string) {
	dir := filepath.Join(s.LiveDir, ticker)
	return filepath.Join(dir, ticker+"_live_data.csv"), filepath.Join(dir, ticker+"_live_info.json")
}

// HistoricalPath returns the CSV path for ticker's price history
func (s *Store) HistoricalPath(ticker string) string {
	return filepath.Join(s.HistoricalDir, ticker, ticker+"_historical_data.csv")
}

// WriteLive replaces ticker's intraday bars and quote snapshot
func (s *Store) WriteLive(ticker string, series *yahoo.Series, quote *yahoo.Quote) error {
	csvPath, jsonPath := s.LivePaths(ticker)
	if err := writeFile(csvPath, func(w io.Writer) error {
		return writeBars(w, liveHeader, series)
	}); err != nil {
		return err
	}
	return writeFile(jsonPath, func(w io.Writer) error {
		return json.NewEncoder(w).Encode(quote)
	})
}

// WriteHistorical replaces ticker's full price history
func (s *Store) WriteHistorical(ticker string, series *yahoo.Series) error {
	return writeFile(s.HistoricalPath(ticker), func(w io.Writer) error {
		return writeBars(w, historicalHeader, series)
	})
}

// writeFile renders into a temp file next to path and renames it into place
func writeFile(path string, render func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fetcher.NewStorageError(path, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fetcher.NewStorageError(path, err)
	}
	defer os.Remove(tmp.Name())

	if err := render(tmp); err != nil {
		tmp.Close()
		return fetcher.NewStorageError(path, err)
	}
	if err := tmp.Close(); err != nil {
		return fetcher.NewStorageError(path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fetcher.NewStorageError(path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fetcher.NewStorageError(path, err)
	}
	return nil
}

func writeBars(w io.Writer, header []string, series *yahoo.Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if series != nil {
		for _, bar := range series.Bars {
			record := []string{
				bar.Time.Format(timeLayout),
				cell(bar.Open),
				cell(bar.High),
				cell(bar.Low),
				cell(bar.Close),
				"",
			}
			if bar.Volume != nil {
				record[5] = strconv.FormatInt(*bar.Volume, 10)
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func cell(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}
