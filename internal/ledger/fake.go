package ledger

import (
	"context"
	"fmt"
	"sync"
)

// Fake is an in-memory Gateway used by tests. It stores each sheet as a
// grid of strings with the header row first, mirroring the spreadsheet
// semantics the core depends on (positional columns, append after table,
// targeted cell writes).
type Fake struct {
	mu    sync.Mutex
	grids map[string][][]string

	// Err, when set, makes every call fail with it. Used to simulate an
	// unreachable backend.
	Err error
}

var _ Gateway = (*Fake)(nil)

// NewFake returns a Fake seeded with the four ledger sheets and their
// header rows.
func NewFake() *Fake {
	return &Fake{
		grids: map[string][][]string{
			UserSheet:  {append([]string{}, UserColumns...)},
			ItemSheet:  {append([]string{}, ItemColumns...)},
			OrderSheet: {append([]string{}, OrderColumns...)},
			AdminSheet: {{"dinner_price", "dinner_signup_deadline", "breakfast_signup_deadline"}},
		},
	}
}

// AddRow appends a raw row to a sheet, bypassing the Gateway contract.
// Test setup helper.
func (f *Fake) AddRow(sheet string, values ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grids[sheet] = append(f.grids[sheet], values)
}

// Grid returns a copy of a sheet's grid for assertions.
func (f *Fake) Grid(sheet string) [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	grid := make([][]string, len(f.grids[sheet]))
	for i, row := range f.grids[sheet] {
		grid[i] = append([]string{}, row...)
	}
	return grid
}

func (f *Fake) ReadRows(_ context.Context, sheet string, expected []string) ([]map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	grid, ok := f.grids[sheet]
	if !ok || len(grid) == 0 {
		return nil, fmt.Errorf("sheet %s has no header row", sheet)
	}
	headers := grid[0]
	for _, want := range expected {
		if !contains(headers, want) {
			return nil, fmt.Errorf("sheet %s is missing expected column %q", sheet, want)
		}
	}
	rows := make([]map[string]string, 0, len(grid)-1)
	for _, raw := range grid[1:] {
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(raw) {
				row[h] = raw[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (f *Fake) AppendRow(_ context.Context, sheet string, values []any, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	row := make([]string, len(values))
	for i, v := range values {
		row[i] = fmt.Sprint(v)
	}
	f.grids[sheet] = append(f.grids[sheet], row)
	return nil
}

func (f *Fake) UpdateCells(_ context.Context, sheet string, cells []Cell) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	grid := f.grids[sheet]
	for _, c := range cells {
		for len(grid) < c.Row {
			grid = append(grid, []string{})
		}
		row := grid[c.Row-1]
		for len(row) < c.Col {
			row = append(row, "")
		}
		row[c.Col-1] = fmt.Sprint(c.Value)
		grid[c.Row-1] = row
	}
	f.grids[sheet] = grid
	return nil
}

func (f *Fake) FindCell(_ context.Context, sheet, value string) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return 0, 0, f.Err
	}
	for r, row := range f.grids[sheet] {
		for c, cell := range row {
			if cell == value {
				return r + 1, c + 1, nil
			}
		}
	}
	return 0, 0, fmt.Errorf("value %q not found in sheet %s", value, sheet)
}
