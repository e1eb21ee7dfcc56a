// Package board holds the authoritative local game state: an ordered set of named cells
// whose content is pending until the end of the turn commits it.
package board

import (
	"fmt"

	"github.com/rocketscienceinc/turnarbiter/internal/apperror"
)

const EmptyCell = ""

type Cell struct {
	Name      string `json:"name"`
	Content   string `json:"content"`
	Committed bool   `json:"committed"`
}

func (that Cell) IsEmpty() bool {
	return that.Content == EmptyCell
}

// Board is not safe for concurrent use; the arbiter owns it.
type Board struct {
	cells []Cell
	index map[string]int
}

func New(names ...string) *Board {
	that := &Board{
		cells: make([]Cell, 0, len(names)),
		index: make(map[string]int, len(names)),
	}

	for _, name := range names {
		that.Add(name)
	}

	return that
}

// NewGrid - builds a size x size board named row-major as A1, A2, ..., B1, ...
func NewGrid(size int) *Board {
	return New(GridNames(size)...)
}

func GridNames(size int) []string {
	names := make([]string, 0, size*size)
	for row := 0; row < size; row++ {
		for col := 1; col <= size; col++ {
			names = append(names, fmt.Sprintf("%c%d", 'A'+row, col))
		}
	}

	return names
}

// Add appends an empty cell. It reports false when the name is already taken.
func (that *Board) Add(name string) bool {
	if _, ok := that.index[name]; ok {
		return false
	}

	that.index[name] = len(that.cells)
	that.cells = append(that.cells, Cell{Name: name})

	return true
}

// Apply places mark on the named cell. Only one cell holds pending content at a time:
// the latest move of the turn wins and earlier pending marks are cleared.
func (that *Board) Apply(name, mark string) error {
	i, ok := that.index[name]
	if !ok {
		return fmt.Errorf("%w: %s", apperror.ErrUnknownCell, name)
	}

	if that.cells[i].Committed {
		return fmt.Errorf("%w: %s", apperror.ErrCellCommitted, name)
	}

	that.DiscardPending()
	that.cells[i].Content = mark

	return nil
}

// CommitPending freezes every non-empty pending cell and returns the cells it froze.
func (that *Board) CommitPending() []Cell {
	var committed []Cell

	for i := range that.cells {
		if that.cells[i].Committed || that.cells[i].IsEmpty() {
			continue
		}

		that.cells[i].Committed = true
		committed = append(committed, that.cells[i])
	}

	return committed
}

// DiscardPending clears every uncommitted cell.
func (that *Board) DiscardPending() {
	for i := range that.cells {
		if !that.cells[i].Committed {
			that.cells[i].Content = EmptyCell
		}
	}
}

func (that *Board) Cell(name string) (Cell, bool) {
	i, ok := that.index[name]
	if !ok {
		return Cell{}, false
	}

	return that.cells[i], true
}

// Cells returns a copy in board order.
func (that *Board) Cells() []Cell {
	cells := make([]Cell, len(that.cells))
	copy(cells, that.cells)

	return cells
}

func (that *Board) Len() int {
	return len(that.cells)
}

// Open returns the names of cells that are not committed, in board order.
func (that *Board) Open() []string {
	var names []string
	for _, cell := range that.cells {
		if !cell.Committed {
			names = append(names, cell.Name)
		}
	}

	return names
}

func (that *Board) IsFull() bool {
	for _, cell := range that.cells {
		if !cell.Committed {
			return false
		}
	}

	return true
}
