package tickers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// SymbolColumn is the header of the column holding bare exchange symbols
const SymbolColumn = "Symbol"

// Registry is the immutable set of provider tickers the service knows.
// It is safe for concurrent use.
type Registry struct {
	symbols []string
	index   map[string]struct{}
}

// New builds a registry from already-qualified tickers, dropping blanks and duplicates
func New(tickers ...string) *Registry {
	r := &Registry{index: make(map[string]struct{}, len(tickers))}
	for _, t := range tickers {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := r.index[t]; dup {
			continue
		}
		r.index[t] = struct{}{}
		r.symbols = append(r.symbols, t)
	}
	return r
}

// Load reads the ticker list at path and appends suffix to each symbol
func Load(path, suffix string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening ticker list: %w", err)
	}
	defer f.Close()

	r, err := Parse(f, suffix)
	if err != nil {
		return nil, fmt.Errorf("reading ticker list %s: %w", path, err)
	}
	return r, nil
}

// Parse reads a CSV table with a Symbol column
func Parse(src io.Reader, suffix string) (*Registry, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, err
	}

	col := -1
	for i, name := range header {
		if strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) == SymbolColumn {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("missing %q column", SymbolColumn)
	}

	var symbols []string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if col >= len(record) {
			continue
		}
		if s := strings.TrimSpace(record[col]); s != "" {
			symbols = append(symbols, s+suffix)
		}
	}
	return New(symbols...), nil
}

// Symbols returns the tickers in file order
func (r *Registry) Symbols() []string {
	out := make([]string, len(r.symbols))
	copy(out, r.symbols)
	return out
}

// Contains reports whether ticker is registered
func (r *Registry) Contains(ticker string) bool {
	_, ok := r.index[ticker]
	return ok
}

// Len returns the number of registered tickers
func (r *Registry) Len() int {
	return len(r.symbols)
}
