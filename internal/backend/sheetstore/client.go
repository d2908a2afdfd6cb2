// Package sheetstore adapts a row-major spreadsheet to named-range reads and
// writes. It has no query language and no transactions: callers scan rows
// and issue independent writes.
package sheetstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrPermissionDenied = errors.New("spreadsheet permission denied")
	ErrNotFound         = errors.New("spreadsheet not found")
	ErrTableNotFound    = errors.New("sheet tab not found")
	ErrTableExists      = errors.New("sheet tab already exists")
	ErrBadRange         = errors.New("invalid A1 range")
)

// Client is the range-addressed contract both implementations satisfy.
//
// Get returns nil rows (not an empty slice) when the tab does not exist, and
// an empty non-nil slice when it exists but holds nothing in the range.
type Client interface {
	Get(ctx context.Context, rng string) ([][]string, error)
	Update(ctx context.Context, rng string, rows [][]string) error
	Append(ctx context.Context, rng string, rows [][]string) error
	Clear(ctx context.Context, rng string) error
	CreateTable(ctx context.Context, name string) error
}

// Range joins a tab name and an A1 reference.
func Range(tab, a1 string) string {
	if a1 == "" {
		return tab
	}
	return tab + "!" + a1
}

// ColumnLetter converts a zero-based column index to its A1 letters.
func ColumnLetter(col int) string {
	var out []byte
	for n := col + 1; n > 0; n = (n - 1) / 26 {
		out = append([]byte{byte('A' + (n-1)%26)}, out...)
	}
	return string(out)
}

// A1Range is a parsed range. End fields are -1 when unbounded.
// Rows and columns are zero-based.
type A1Range struct {
	Tab      string
	StartCol int
	StartRow int
	EndCol   int
	EndRow   int
}

// ParseRange parses "Tab", "Tab!A2:R", "Tab!A:Z" or "Tab!B3".
func ParseRange(rng string) (A1Range, error) {
	r := A1Range{EndCol: -1, EndRow: -1}
	tab, ref, hasRef := strings.Cut(rng, "!")
	r.Tab = strings.Trim(tab, "'")
	if r.Tab == "" {
		return r, fmt.Errorf("%w: %q", ErrBadRange, rng)
	}
	if !hasRef || ref == "" {
		return r, nil
	}

	start, end, hasEnd := strings.Cut(ref, ":")
	sc, sr, err := parseCell(start)
	if err != nil {
		return r, fmt.Errorf("%w: %q", ErrBadRange, rng)
	}
	if sc >= 0 {
		r.StartCol = sc
	}
	if sr >= 0 {
		r.StartRow = sr
	}
	if !hasEnd {
		r.EndCol, r.EndRow = sc, sr
		return r, nil
	}
	r.EndCol, r.EndRow, err = parseCell(end)
	if err != nil {
		return r, fmt.Errorf("%w: %q", ErrBadRange, rng)
	}
	return r, nil
}

// parseCell returns (col, row), each -1 when the part is absent.
func parseCell(ref string) (int, int, error) {
	ref = strings.ToUpper(strings.TrimSpace(ref))
	i := 0
	col := 0
	for i < len(ref) && ref[i] >= 'A' && ref[i] <= 'Z' {
		col = col*26 + int(ref[i]-'A'+1)
		i++
	}
	c, r := col-1, -1
	if i < len(ref) {
		n, err := strconv.Atoi(ref[i:])
		if err != nil || n < 1 {
			return 0, 0, ErrBadRange
		}
		r = n - 1
	}
	if i == 0 && r < 0 {
		return 0, 0, ErrBadRange
	}
	return c, r, nil
}
