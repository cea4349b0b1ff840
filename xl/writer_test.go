package xl

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type xmlWorkbook struct {
	Protection *struct {
		Password      string `xml:"workbookPassword,attr"`
		LockStructure string `xml:"lockStructure,attr"`
	} `xml:"workbookProtection"`
	Sheets []struct {
		Name    string `xml:"name,attr"`
		SheetID int    `xml:"sheetId,attr"`
		RID     string `xml:"id,attr"`
	} `xml:"sheets>sheet"`
	DefinedNames []struct {
		Name         string `xml:"name,attr"`
		LocalSheetID string `xml:"localSheetId,attr"`
		Hidden       string `xml:"hidden,attr"`
		Formula      string `xml:",chardata"`
	} `xml:"definedNames>definedName"`
}

type xmlWorksheet struct {
	UID       string `xml:"uid,attr"`
	Ignorable string `xml:"Ignorable,attr"`
	Dimension struct {
		Ref string `xml:"ref,attr"`
	} `xml:"dimension"`
	Cols []struct {
		Min   int     `xml:"min,attr"`
		Max   int     `xml:"max,attr"`
		Width float64 `xml:"width,attr"`
	} `xml:"cols>col"`
	Rows []struct {
		R     int `xml:"r,attr"`
		Cells []struct {
			R      string `xml:"r,attr"`
			T      string `xml:"t,attr"`
			V      string `xml:"v"`
			F      string `xml:"f"`
			Inline string `xml:"is>t"`
		} `xml:"c"`
	} `xml:"sheetData>row"`
	Protection *struct {
		Password string `xml:"password,attr"`
		Sheet    string `xml:"sheet,attr"`
	} `xml:"sheetProtection"`
	AutoFilter *struct {
		Ref string `xml:"ref,attr"`
	} `xml:"autoFilter"`
}

type xmlRels struct {
	Rels []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

type xmlSST struct {
	Count       int      `xml:"count,attr"`
	UniqueCount int      `xml:"uniqueCount,attr"`
	Items       []string `xml:"si>t"`
}

type xmlStyles struct {
	Fonts []struct {
		Bold *struct{} `xml:"b"`
		Size struct {
			Val float64 `xml:"val,attr"`
		} `xml:"sz"`
		Name struct {
			Val string `xml:"val,attr"`
		} `xml:"name"`
	} `xml:"fonts>font"`
}

func decodePart(t *testing.T, ms *MemStorage, path string, v any) {
	t.Helper()
	b, ok := ms.Part(path)
	require.True(t, ok, "missing part %s", path)
	require.NoError(t, xml.Unmarshal(b, v), "part %s", path)
}

func sampleWorkbook(t *testing.T) *Workbook {
	t.Helper()
	wb := NewWorkbook()
	wb.AppName = "xlref"
	wb.Font.Bold = true

	s, err := wb.AddSheet("Sales Data")
	require.NoError(t, err)

	hdr := s.AddRow()
	hdr.AddCell().SetStr("Region")
	hdr.AddCell().SetStr("Total")

	for _, region := range []string{"North", "South"} {
		r := s.AddRow()
		r.AddCell().SetStr(region)
		r.AddCell().SetInt(100)
	}
	s.Cell(3, 1).SetFormula("=SUM(B2:B3)")
	s.Cell(3, 0).SetInlineStr("Sum & total")
	s.Autofit()
	s.SetAutoFilter(0, 0, 2, 1)
	s.Protect("password")

	other, err := wb.AddSheet("Notes")
	require.NoError(t, err)
	other.Cell(0, 0).SetStr("North")
	other.Cell(0, 1).SetBool(true)

	require.NoError(t, wb.DefineName("Totals", "Sales Data", 1, 1, 2, 1))
	wb.Protect("password")
	return wb
}

func TestWriterParts(t *testing.T) {
	ms := NewMemStorage()
	require.NoError(t, NewWriter(ms, WriterOptions{}).Write(sampleWorkbook(t)))

	assert.Equal(t, []string{
		"[Content_Types].xml",
		"_rels/.rels",
		"docProps/app.xml",
		"docProps/core.xml",
		"xl/_rels/workbook.xml.rels",
		"xl/sharedStrings.xml",
		"xl/styles.xml",
		"xl/workbook.xml",
		"xl/worksheets/sheet1.xml",
		"xl/worksheets/sheet2.xml",
	}, ms.Paths())

	var wbx xmlWorkbook
	decodePart(t, ms, "xl/workbook.xml", &wbx)
	require.NotNil(t, wbx.Protection)
	assert.Equal(t, "83AF", wbx.Protection.Password)
	require.Len(t, wbx.Sheets, 2)
	assert.Equal(t, "Sales Data", wbx.Sheets[0].Name)
	assert.Equal(t, "Notes", wbx.Sheets[1].Name)
	require.Len(t, wbx.DefinedNames, 2)
	assert.Equal(t, "_xlnm._FilterDatabase", wbx.DefinedNames[0].Name)
	assert.Equal(t, "0", wbx.DefinedNames[0].LocalSheetID)
	assert.Equal(t, "'Sales Data'!$A$1:$B$3", wbx.DefinedNames[0].Formula)
	assert.Equal(t, "Totals", wbx.DefinedNames[1].Name)
	assert.Equal(t, "'Sales Data'!$B$2:$B$3", wbx.DefinedNames[1].Formula)

	var sh xmlWorksheet
	decodePart(t, ms, "xl/worksheets/sheet1.xml", &sh)
	assert.Equal(t, "A1:B4", sh.Dimension.Ref)
	assert.NotEmpty(t, sh.UID)
	assert.Equal(t, "xr", sh.Ignorable)
	require.Len(t, sh.Rows, 4)
	assert.Equal(t, 1, sh.Rows[0].R)
	assert.Equal(t, "A1", sh.Rows[0].Cells[0].R)
	assert.Equal(t, "s", sh.Rows[0].Cells[0].T)
	assert.Equal(t, "B2", sh.Rows[1].Cells[1].R)
	assert.Equal(t, "100", sh.Rows[1].Cells[1].V)
	assert.Equal(t, "inlineStr", sh.Rows[3].Cells[0].T)
	assert.Equal(t, "Sum & total", sh.Rows[3].Cells[0].Inline)
	assert.Equal(t, "B4", sh.Rows[3].Cells[1].R)
	assert.Equal(t, "SUM(B2:B3)", sh.Rows[3].Cells[1].F)
	require.NotNil(t, sh.Protection)
	assert.Equal(t, "83AF", sh.Protection.Password)
	require.NotNil(t, sh.AutoFilter)
	assert.Equal(t, "A1:B3", sh.AutoFilter.Ref)
	require.Len(t, sh.Cols, 2)
	assert.Equal(t, 1, sh.Cols[0].Min)
	// "Sum & total" is the widest text in column A
	assert.InDelta(t, pixelsToWidth(uint32(PixelWidth("Sum & total"))+autofitPadding), sh.Cols[0].Width, 0.01)

	var sh2 xmlWorksheet
	decodePart(t, ms, "xl/worksheets/sheet2.xml", &sh2)
	assert.Nil(t, sh2.Protection)
	assert.Nil(t, sh2.AutoFilter)
	assert.Equal(t, "A1:B1", sh2.Dimension.Ref)
	assert.Equal(t, "b", sh2.Rows[0].Cells[1].T)
	assert.NotEqual(t, sh.UID, sh2.UID)

	var sst xmlSST
	decodePart(t, ms, "xl/sharedStrings.xml", &sst)
	assert.Equal(t, 5, sst.Count)
	assert.Equal(t, 4, sst.UniqueCount)
	assert.Equal(t, []string{"Region", "Total", "North", "South"}, sst.Items)

	var st xmlStyles
	decodePart(t, ms, "xl/styles.xml", &st)
	require.Len(t, st.Fonts, 1)
	assert.NotNil(t, st.Fonts[0].Bold)
	assert.InDelta(t, 11.0, st.Fonts[0].Size.Val, 1e-9)
	assert.Equal(t, "Calibri", st.Fonts[0].Name.Val)
}

func TestWriterReuse(t *testing.T) {
	wb := NewWorkbook()
	s, err := wb.AddSheet("Sheet1")
	require.NoError(t, err)
	s.Cell(0, 0).SetStr("only")

	ms := NewMemStorage()
	w := NewWriter(ms, WriterOptions{})
	require.NoError(t, w.Write(wb))
	require.NoError(t, w.Write(wb))

	var rels xmlRels
	decodePart(t, ms, "xl/_rels/workbook.xml.rels", &rels)
	assert.Len(t, rels.Rels, 3)

	var global xmlRels
	decodePart(t, ms, "_rels/.rels", &global)
	assert.Len(t, global.Rels, 3)

	var sst xmlSST
	decodePart(t, ms, "xl/sharedStrings.xml", &sst)
	assert.Equal(t, 1, sst.Count)
	assert.Equal(t, 1, sst.UniqueCount)
}

func TestWriterRelationshipOrder(t *testing.T) {
	wb := NewWorkbook()
	for i := 1; i <= 10; i++ {
		_, err := wb.AddSheet(fmt.Sprintf("Sheet%d", i))
		require.NoError(t, err)
	}

	ms := NewMemStorage()
	require.NoError(t, NewWriter(ms, WriterOptions{}).Write(wb))

	var rels xmlRels
	decodePart(t, ms, "xl/_rels/workbook.xml.rels", &rels)
	require.Len(t, rels.Rels, 11)
	for i, r := range rels.Rels {
		assert.Equal(t, fmt.Sprintf("rId%d", i+1), r.ID)
	}
	assert.Equal(t, "worksheets/sheet2.xml", rels.Rels[1].Target)
	assert.Equal(t, "worksheets/sheet10.xml", rels.Rels[9].Target)
	assert.Equal(t, "styles.xml", rels.Rels[10].Target)
}

func TestCompareRelIDs(t *testing.T) {
	assert.Negative(t, compareRelIDs("rId2", "rId10"))
	assert.Positive(t, compareRelIDs("rId10", "rId9"))
	assert.Zero(t, compareRelIDs("rId3", "rId3"))
}

func TestWriterNoSheets(t *testing.T) {
	err := NewWriter(NewMemStorage(), WriterOptions{}).Write(NewWorkbook())
	assert.Error(t, err)
}

func TestWriterEmptyPasswordProtection(t *testing.T) {
	wb := NewWorkbook()
	s, _ := wb.AddSheet("Locked")
	s.Protect("")

	ms := NewMemStorage()
	require.NoError(t, NewWriter(ms, WriterOptions{}).Write(wb))

	var sh xmlWorksheet
	decodePart(t, ms, "xl/worksheets/sheet1.xml", &sh)
	require.NotNil(t, sh.Protection)
	assert.Empty(t, sh.Protection.Password)
	assert.Equal(t, "1", sh.Protection.Sheet)

	_, ok := ms.Part("xl/sharedStrings.xml")
	assert.False(t, ok)
}

func TestWriterLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	wb := NewWorkbook()
	_, err := wb.AddSheet("Sheet1")
	require.NoError(t, err)
	require.NoError(t, NewWriter(NewMemStorage(), WriterOptions{Logger: &logger}).Write(wb))

	out := buf.String()
	assert.Contains(t, out, `"part":"/xl/workbook.xml"`)
	assert.Contains(t, out, `"message":"workbook written"`)
}

type failingStorage struct{}

var errDiskFull = errors.New("disk full")

func (failingStorage) WriteBlob(string, []byte) error { return errDiskFull }

func TestWriterStorageError(t *testing.T) {
	wb := NewWorkbook()
	_, err := wb.AddSheet("Sheet1")
	require.NoError(t, err)

	err = NewWriter(failingStorage{}, WriterOptions{}).Write(wb)
	assert.ErrorIs(t, err, errDiskFull)
	assert.ErrorContains(t, err, "sheet1.xml")
}

func TestZipStorage(t *testing.T) {
	wb := NewWorkbook()
	s, err := wb.AddSheet("Sheet1")
	require.NoError(t, err)
	s.Cell(0, 0).SetStr("hello")

	var buf bytes.Buffer
	zs := NewZipStorage(&buf)
	require.NoError(t, NewWriter(zs, WriterOptions{Indent: true}).Write(wb))
	require.NoError(t, zs.Close())

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "xl/workbook.xml")
	assert.Contains(t, names, "xl/worksheets/sheet1.xml")
	assert.Contains(t, names, "[Content_Types].xml")
}

func TestDirStorage(t *testing.T) {
	dir := t.TempDir()
	ds := NewDirStorage(dir)
	require.NoError(t, ds.WriteBlob("/xl/worksheets/sheet1.xml", []byte("<worksheet/>")))

	b, err := os.ReadFile(filepath.Join(dir, "xl", "worksheets", "sheet1.xml"))
	require.NoError(t, err)
	assert.Equal(t, "<worksheet/>", string(b))
}
