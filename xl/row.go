package xl

import (
	"cmp"
	"math"
	"slices"
)

type Row struct {
	Cells []*Cell // ordered by column

	Height float32 // when Height=0, the default height applies

	index   RowNum
	nextCol ColNum // incremented as we add cells
}

// Index returns the zero-based row index.
func (r *Row) Index() RowNum { return r.index }

// AddCell appends a cell to the right of the last one. Once the last
// column is taken it keeps returning that cell.
func (r *Row) AddCell() *Cell {
	return r.Cell(r.nextCol)
}

// Cell returns the cell at col, creating it when missing.
func (r *Row) Cell(col ColNum) *Cell {
	i, found := slices.BinarySearchFunc(r.Cells, col, func(c *Cell, col ColNum) int {
		return cmp.Compare(c.col, col)
	})
	if found {
		return r.Cells[i]
	}
	c := newCell(r.index, col)
	r.Cells = slices.Insert(r.Cells, i, c)
	if col >= r.nextCol {
		r.nextCol = min(col, math.MaxUint16-1) + 1
	}
	return c
}
