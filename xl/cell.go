package xl

import (
	"strconv"
)

type Cell struct {
	row   RowNum
	col   ColNum
	coord string // A1 reference
	typ   CellType
	v     string
}

// CellType is the type of cell value type.
type CellType int

// Cell value types enumeration.
const (
	CellTypeUnset CellType = iota
	CellTypeBool
	CellTypeError
	CellTypeFormula
	CellTypeInlineString
	CellTypeNumber
	CellTypeSharedString
)

func newCell(row RowNum, col ColNum) *Cell {
	return &Cell{
		row:   row,
		col:   col,
		coord: RowColToCell(row, col),
	}
}

// Row returns the zero-based row index.
func (c *Cell) Row() RowNum { return c.row }

// Col returns the zero-based column index.
func (c *Cell) Col() ColNum { return c.col }

// Coord returns the A1 style reference of the cell.
func (c *Cell) Coord() string { return c.coord }

func (c *Cell) Type() CellType { return c.typ }

func (c *Cell) SetBool(v bool) {
	c.typ = CellTypeBool
	if v {
		c.v = "1"
	} else {
		c.v = "0"
	}
}

func (c *Cell) SetInt(v int64) {
	c.typ = CellTypeNumber
	c.v = strconv.FormatInt(v, 10)
}

func (c *Cell) SetFloat(v float64) {
	c.typ = CellTypeNumber
	c.v = strconv.FormatFloat(v, 'g', -1, 64)
}

func (c *Cell) SetStr(v string) {
	c.typ = CellTypeSharedString
	c.v = v
}

func (c *Cell) SetInlineStr(v string) {
	c.typ = CellTypeInlineString
	c.v = v
}

// SetFormula stores a formula; a leading '=' is accepted and dropped.
func (c *Cell) SetFormula(f string) {
	c.typ = CellTypeFormula
	c.v = formulaText(f)
}

// SetError stores an error literal such as "#N/A".
func (c *Cell) SetError(v string) {
	c.typ = CellTypeError
	c.v = v
}

// displayText approximates what the host application shows in the cell.
// Formulas have no cached value and display as empty.
func (c *Cell) displayText() string {
	switch c.typ {
	case CellTypeBool:
		if c.v == "1" {
			return "TRUE"
		}
		return "FALSE"
	case CellTypeFormula, CellTypeUnset:
		return ""
	}
	return c.v
}
