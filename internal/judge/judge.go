// Package judge decides whether a grid game is won, drawn or still running.
// Judges only look at committed cells.
package judge

import (
	"github.com/rocketscienceinc/turnarbiter/internal/board"
	"github.com/rocketscienceinc/turnarbiter/internal/entity"
)

type Judge interface {
	Evaluate(cells []board.Cell) entity.Outcome
}

// Lines checks every row, column and both diagonals of a size x size grid.
type Lines struct {
	size  int
	lines [][]int
}

func NewLines(size int) *Lines {
	return &Lines{
		size:  size,
		lines: winLines(size),
	}
}

func (that *Lines) Evaluate(cells []board.Cell) entity.Outcome {
	for _, line := range that.lines {
		if mark, ok := lineOwner(cells, line); ok {
			return entity.Win(mark)
		}
	}

	// the game will continue until all the cells are committed
	if len(cells) < that.size*that.size {
		return entity.Ongoing()
	}

	for _, cell := range cells {
		if !cell.Committed {
			return entity.Ongoing()
		}
	}

	return entity.Draw()
}

// MiddleRow is the legacy judge: only the middle row can win and the game never draws.
type MiddleRow struct {
	size int
}

func NewMiddleRow(size int) *MiddleRow {
	return &MiddleRow{size: size}
}

func (that *MiddleRow) Evaluate(cells []board.Cell) entity.Outcome {
	row := that.size / 2

	line := make([]int, 0, that.size)
	for col := 0; col < that.size; col++ {
		line = append(line, row*that.size+col)
	}

	if mark, ok := lineOwner(cells, line); ok {
		return entity.Win(mark)
	}

	return entity.Ongoing()
}

func lineOwner(cells []board.Cell, line []int) (string, bool) {
	var mark string

	for i, idx := range line {
		if idx >= len(cells) {
			return "", false
		}

		cell := cells[idx]
		if !cell.Committed || cell.IsEmpty() {
			return "", false
		}

		if i == 0 {
			mark = cell.Content
			continue
		}

		if cell.Content != mark {
			return "", false
		}
	}

	return mark, mark != ""
}

func winLines(size int) [][]int {
	lines := make([][]int, 0, 2*size+2)

	for row := 0; row < size; row++ {
		line := make([]int, 0, size)
		for col := 0; col < size; col++ {
			line = append(line, row*size+col)
		}
		lines = append(lines, line)
	}

	for col := 0; col < size; col++ {
		line := make([]int, 0, size)
		for row := 0; row < size; row++ {
			line = append(line, row*size+col)
		}
		lines = append(lines, line)
	}

	diagonal := make([]int, 0, size)
	antiDiagonal := make([]int, 0, size)
	for i := 0; i < size; i++ {
		diagonal = append(diagonal, i*size+i)
		antiDiagonal = append(antiDiagonal, i*size+size-1-i)
	}

	return append(lines, diagonal, antiDiagonal)
}

// Tally decides a scene once every cell is committed: the mark holding the most cells
// wins, equal counts draw.
type Tally struct{}

func NewTally() *Tally {
	return &Tally{}
}

func (that *Tally) Evaluate(cells []board.Cell) entity.Outcome {
	counts := make(map[string]int)

	for _, cell := range cells {
		if !cell.Committed {
			return entity.Ongoing()
		}

		if !cell.IsEmpty() {
			counts[cell.Content]++
		}
	}

	var (
		leader string
		best   int
		tied   bool
	)

	for mark, count := range counts {
		switch {
		case count > best:
			leader, best, tied = mark, count, false
		case count == best:
			tied = true
		}
	}

	if leader == "" || tied {
		return entity.Draw()
	}

	return entity.Win(leader)
}
