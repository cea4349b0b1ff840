package xl

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/google/uuid"
)

type Sheet struct {
	Name    string
	Rows    []*Row             // ordered by index
	Columns map[ColNum]*Column // zero-based

	nextRow    RowNum // incremented as we add rows
	protection *sheetProtection
	autoFilter *Area
}

type Column struct {
	Width float64 // in characters of the default font
}

// Area is a rectangular block of cells, corners inclusive.
type Area struct {
	FirstRow RowNum
	FirstCol ColNum
	LastRow  RowNum
	LastCol  ColNum
}

// Ref returns the area as an A1:B2 range.
func (a Area) Ref() string {
	return CellRange(a.FirstRow, a.FirstCol, a.LastRow, a.LastCol)
}

type sheetProtection struct {
	hash uint16 // 0 when no password was given
}

// maxColumnWidth is the widest column the host application accepts.
const maxColumnWidth = 255

// autofitPadding is added to the widest text so it is not clipped.
const autofitPadding = 7

// sheetUIDSpace seeds the worksheet revision identifiers.
var sheetUIDSpace = uuid.MustParse("5c9e0a9d-6b0e-4f57-9c0e-1f2d7b6a3e41")

// AddRow appends a row below the last one. Once the last row index is
// taken it keeps returning that row.
func (s *Sheet) AddRow() *Row {
	return s.Row(s.nextRow)
}

// Row returns the row at index, creating it when missing.
func (s *Sheet) Row(index RowNum) *Row {
	i, found := slices.BinarySearchFunc(s.Rows, index, func(r *Row, index RowNum) int {
		return cmp.Compare(r.index, index)
	})
	if found {
		return s.Rows[i]
	}
	r := &Row{index: index}
	s.Rows = slices.Insert(s.Rows, i, r)
	if index >= s.nextRow {
		s.nextRow = min(index, math.MaxUint32-1) + 1
	}
	return r
}

// Cell returns the cell at (row, col), creating it when missing.
func (s *Sheet) Cell(row RowNum, col ColNum) *Cell {
	return s.Row(row).Cell(col)
}

func (s *Sheet) SetColumnWidth(col ColNum, w float64) {
	if w <= 0.0 {
		delete(s.Columns, col)
		return
	}
	c, exists := s.Columns[col]
	if !exists {
		c = &Column{}
		s.Columns[col] = c
	}
	c.Width = math.Min(w, maxColumnWidth)
}

// Autofit sizes every column that holds text to the widest displayed value.
// Widths are estimated from character metrics, not measured.
func (s *Sheet) Autofit() {
	widest := map[ColNum]uint16{}
	for _, r := range s.Rows {
		for _, c := range r.Cells {
			if px := PixelWidth(c.displayText()); px > widest[c.col] {
				widest[c.col] = px
			}
		}
	}
	for col, px := range widest {
		s.SetColumnWidth(col, pixelsToWidth(uint32(px)+autofitPadding))
	}
}

// pixelsToWidth converts a pixel count into a column width in characters,
// rounded to two decimals.
func pixelsToWidth(px uint32) float64 {
	const maxDigitWidth = 7.0
	const padding = 5.0
	p := float64(px)
	var w float64
	if p <= 12 {
		w = p / (maxDigitWidth + padding)
	} else {
		w = (p - padding) / maxDigitWidth
	}
	return math.Round(w*100) / 100
}

// Protect locks the sheet. An empty password protects without one.
func (s *Sheet) Protect(password string) {
	s.protection = &sheetProtection{hash: HashPassword(password)}
}

// Unprotect removes sheet protection.
func (s *Sheet) Unprotect() {
	s.protection = nil
}

// SetAutoFilter places an autofilter over the given area, header row first.
func (s *Sheet) SetAutoFilter(firstRow RowNum, firstCol ColNum, lastRow RowNum, lastCol ColNum) {
	s.autoFilter = &Area{
		FirstRow: min(firstRow, lastRow),
		FirstCol: min(firstCol, lastCol),
		LastRow:  max(firstRow, lastRow),
		LastCol:  max(firstCol, lastCol),
	}
}

// filterDatabase returns the hidden name formula backing the autofilter.
func (s *Sheet) filterDatabase() string {
	a := s.autoFilter
	return ChartRangeAbs(s.Name, a.FirstRow, a.FirstCol, a.LastRow, a.LastCol)
}

// Dimension returns the range spanning all cells in use, "A1" when empty.
func (s *Sheet) Dimension() string {
	var a Area
	seen := false
	for _, r := range s.Rows {
		if len(r.Cells) == 0 {
			continue
		}
		first, last := r.Cells[0].col, r.Cells[len(r.Cells)-1].col
		if !seen {
			a = Area{r.index, first, r.index, last}
			seen = true
			continue
		}
		a.LastRow = r.index
		a.FirstCol = min(a.FirstCol, first)
		a.LastCol = max(a.LastCol, last)
	}
	return a.Ref()
}

// uid returns a stable revision identifier derived from the sheet name.
func (s *Sheet) uid() string {
	id := uuid.NewSHA1(sheetUIDSpace, []byte(s.Name))
	return "{" + strings.ToUpper(id.String()) + "}"
}
