package xl

import (
	"errors"
	"fmt"
	"strings"
)

type Workbook struct {
	AppName string
	Font    Font // default font, see styles.xml
	Sheets  []*Sheet

	sheetMap   map[string]*Sheet // keyed by lowercased name
	protection *workbookProtection
	names      map[string]string // defined name -> formula
}

type workbookProtection struct {
	hash uint16
}

func NewWorkbook() *Workbook {
	return &Workbook{
		sheetMap: map[string]*Sheet{},
		names:    map[string]string{},
	}
}

// AddSheet appends a new sheet. Names are validated and must be unique
// regardless of case.
func (wb *Workbook) AddSheet(name string) (*Sheet, error) {
	if err := ValidateSheetName(name, "Workbook.AddSheet"); err != nil {
		return nil, err
	}

	key := strings.ToLower(name)
	if _, exists := wb.sheetMap[key]; exists {
		return nil, fmt.Errorf("duplicate sheet name '%s'", name)
	}

	sheet := &Sheet{
		Name:    name,
		Columns: map[ColNum]*Column{},
	}

	wb.Sheets = append(wb.Sheets, sheet)
	wb.sheetMap[key] = sheet

	return sheet, nil
}

// SheetByName looks a sheet up, ignoring case.
func (wb *Workbook) SheetByName(name string) (*Sheet, bool) {
	s, ok := wb.sheetMap[strings.ToLower(name)]
	return s, ok
}

// Protect locks the workbook structure with a password.
func (wb *Workbook) Protect(password string) {
	wb.protection = &workbookProtection{hash: HashPassword(password)}
}

// DefineName adds a workbook level name referring to an area of a sheet.
func (wb *Workbook) DefineName(name, sheet string, firstRow RowNum, firstCol ColNum, lastRow RowNum, lastCol ColNum) error {
	if name == "" {
		return errors.New("defined name cannot be blank")
	}
	if strings.HasPrefix(name, "_xlnm.") {
		return fmt.Errorf("defined name '%s' uses the reserved _xlnm prefix", name)
	}
	s, ok := wb.SheetByName(sheet)
	if !ok {
		return fmt.Errorf("defined name '%s': unknown sheet '%s'", name, sheet)
	}
	wb.names[name] = ChartRangeAbs(s.Name, firstRow, firstCol, lastRow, lastCol)
	return nil
}
