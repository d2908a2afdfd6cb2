package sheetstore

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-process spreadsheet with the same range semantics as the
// Google implementation. Used by tests and the "memory" backend.
type Memory struct {
	mu   sync.Mutex
	tabs map[string][][]string

	// Calls counts write calls per method, for tests asserting chunking.
	Calls map[string]int
	// FailOn makes the named method fail for ranges on the given tab.
	FailOn map[string]string
}

var _ Client = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		tabs:   map[string][][]string{},
		Calls:  map[string]int{},
		FailOn: map[string]string{},
	}
}

func (m *Memory) fail(method, tab string) error {
	if t, ok := m.FailOn[method]; ok && (t == "" || t == tab) {
		return fmt.Errorf("injected %s failure on %s", method, tab)
	}
	return nil
}

func (m *Memory) Get(ctx context.Context, rng string) ([][]string, error) {
	r, err := ParseRange(rng)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("Get", r.Tab); err != nil {
		return nil, err
	}

	grid, ok := m.tabs[r.Tab]
	if !ok {
		return nil, nil
	}

	out := [][]string{}
	last := len(grid) - 1
	if r.EndRow >= 0 && r.EndRow < last {
		last = r.EndRow
	}
	for i := r.StartRow; i <= last; i++ {
		src := grid[i]
		end := len(src) - 1
		if r.EndCol >= 0 && r.EndCol < end {
			end = r.EndCol
		}
		row := []string{}
		for j := r.StartCol; j <= end; j++ {
			row = append(row, src[j])
		}
		out = append(out, trimRow(row))
	}
	for len(out) > 0 && len(out[len(out)-1]) == 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (m *Memory) Update(ctx context.Context, rng string, rows [][]string) error {
	r, err := ParseRange(rng)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["Update"]++
	if err := m.fail("Update", r.Tab); err != nil {
		return err
	}
	if _, ok := m.tabs[r.Tab]; !ok {
		return fmt.Errorf("%w: %s", ErrTableNotFound, r.Tab)
	}
	m.write(r.Tab, r.StartRow, r.StartCol, rows)
	return nil
}

func (m *Memory) Append(ctx context.Context, rng string, rows [][]string) error {
	r, err := ParseRange(rng)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["Append"]++
	if err := m.fail("Append", r.Tab); err != nil {
		return err
	}
	grid, ok := m.tabs[r.Tab]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTableNotFound, r.Tab)
	}

	next := r.StartRow
	for i := len(grid) - 1; i >= r.StartRow; i-- {
		if len(trimRow(grid[i])) > 0 {
			next = i + 1
			break
		}
	}
	m.write(r.Tab, next, r.StartCol, rows)
	return nil
}

func (m *Memory) Clear(ctx context.Context, rng string) error {
	r, err := ParseRange(rng)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["Clear"]++
	if err := m.fail("Clear", r.Tab); err != nil {
		return err
	}
	grid, ok := m.tabs[r.Tab]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTableNotFound, r.Tab)
	}
	for i := r.StartRow; i < len(grid) && (r.EndRow < 0 || i <= r.EndRow); i++ {
		for j := r.StartCol; j < len(grid[i]) && (r.EndCol < 0 || j <= r.EndCol); j++ {
			grid[i][j] = ""
		}
	}
	return nil
}

func (m *Memory) CreateTable(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["CreateTable"]++
	if err := m.fail("CreateTable", name); err != nil {
		return err
	}
	if _, ok := m.tabs[name]; ok {
		return fmt.Errorf("%w: %s", ErrTableExists, name)
	}
	m.tabs[name] = [][]string{}
	return nil
}

func (m *Memory) write(tab string, row, col int, rows [][]string) {
	grid := m.tabs[tab]
	for len(grid) < row+len(rows) {
		grid = append(grid, []string{})
	}
	for i, values := range rows {
		target := grid[row+i]
		for len(target) < col+len(values) {
			target = append(target, "")
		}
		copy(target[col:], values)
		grid[row+i] = target
	}
	m.tabs[tab] = grid
}

func trimRow(row []string) []string {
	end := len(row)
	for end > 0 && row[end-1] == "" {
		end--
	}
	return row[:end]
}
