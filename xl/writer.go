package xl

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/adnsv/srw/xml"
	"github.com/rs/zerolog"

	"golang.org/x/exp/constraints"
	"golang.org/x/exp/maps"
)

type Writer struct {
	out            Storage
	log            zerolog.Logger
	cfg            xml.WriterConfig
	lastGlobalId   int
	lastWorkbookId int
	parts          int

	GlobalRels          map[string]RelInfo // maps id to absolute path
	WorkbookRels        map[string]RelInfo // maps id to absolute paths
	DefaultContentTypes map[string]string  // maps path extension to content-type
	PartContentTypes    map[string]string  // maps path partname to content-type

	sharedStrings   []string
	sharedStringMap map[string]int // 0-based index into sharedStrings
	sharedRefs      int            // total shared string cells
}

// WriterOptions configures a Writer. The zero value writes compact XML and
// logs nothing.
type WriterOptions struct {
	Indent bool
	Logger *zerolog.Logger
}

type RelInfo struct {
	Type   string // url to schema type
	Target string // relative path
}

func NewWriter(s Storage, opts WriterOptions) *Writer {
	w := &Writer{
		out: s,
		log: zerolog.Nop(),
	}
	if opts.Logger != nil {
		w.log = *opts.Logger
	}
	if opts.Indent {
		w.cfg.Indent = xml.Indent2Spaces
	}
	w.reset()
	return w
}

// reset clears the package state so a Writer can be reused for another
// workbook.
func (w *Writer) reset() {
	w.lastGlobalId = 0
	w.lastWorkbookId = 0
	w.parts = 0

	w.GlobalRels = map[string]RelInfo{}
	w.WorkbookRels = map[string]RelInfo{}
	w.DefaultContentTypes = map[string]string{
		"xml":  "application/xml",
		"rels": "application/vnd.openxmlformats-package.relationships+xml",
	}
	w.PartContentTypes = map[string]string{}

	w.sharedStrings = nil
	w.sharedStringMap = map[string]int{}
	w.sharedRefs = 0
}

func (w *Writer) SharedString(s string) int {
	w.sharedRefs++
	if i, ok := w.sharedStringMap[s]; ok {
		return i
	}
	i := len(w.sharedStrings)
	w.sharedStrings = append(w.sharedStrings, s)
	w.sharedStringMap[s] = i
	return i
}

func (w *Writer) nextGlobalID() (int, string) {
	w.lastGlobalId++
	return w.lastGlobalId, fmt.Sprintf("rId%d", w.lastGlobalId)
}
func (w *Writer) nextWorkbookID() (int, string) {
	w.lastWorkbookId++
	return w.lastWorkbookId, fmt.Sprintf("rId%d", w.lastWorkbookId)
}

func (w *Writer) put(path string, bb *bytes.Buffer) error {
	if err := w.out.WriteBlob(path, bb.Bytes()); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	w.parts++
	w.log.Debug().Str("part", path).Int("bytes", bb.Len()).Msg("part written")
	return nil
}

func (w *Writer) Write(wb *Workbook) error {
	if len(wb.Sheets) == 0 {
		return errors.New("workbook has no sheets")
	}
	w.reset()

	steps := []func() error{
		func() error { return w.writeWorkbook(wb) },
		w.writeCoreProperties,
		func() error { return w.writeExtendedProperties(wb.AppName) },
		func() error { return w.writeStyles(wb) },
		func() error {
			if len(w.sharedStrings) == 0 {
				return nil
			}
			return w.writeSharedStrings()
		},
		func() error { return w.writeRels("/xl/_rels/workbook.xml.rels", w.WorkbookRels) },
		func() error { return w.writeRels("/_rels/.rels", w.GlobalRels) },
		w.writeContentTypes,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	w.log.Info().Int("parts", w.parts).Int("sheets", len(wb.Sheets)).Msg("workbook written")
	return nil
}

func (w *Writer) writeCoreProperties() error {
	_, rid := w.nextGlobalID()

	relpath := "docProps/core.xml"
	abspath := "/" + relpath

	w.PartContentTypes[abspath] = "application/vnd.openxmlformats-package.core-properties+xml"
	w.GlobalRels[rid] = RelInfo{
		Type:   "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties",
		Target: relpath,
	}

	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, w.cfg)
	x.XmlStandaloneDecl()

	x.OTag("cp:coreProperties")
	x.Attr("xmlns:cp", "http://schemas.openxmlformats.org/package/2006/metadata/core-properties")
	x.Attr("xmlns:dc", "http://purl.org/dc/elements/1.1/")
	x.Attr("xmlns:dcterms", "http://purl.org/dc/terms/")
	x.Attr("xmlns:dcmitype", "http://purl.org/dc/dcmitype/")
	x.Attr("xmlns:xsi", "http://www.w3.org/2001/XMLSchema-instance")

	x.OTag("+dcterms:created")
	x.Attr("xsi:type", "dcterms:W3CDTF")
	x.Write(time.Now().UTC().Format(time.RFC3339))
	x.CTag()

	x.CTag()

	return w.put(abspath, &bb)
}

func (w *Writer) writeExtendedProperties(appname string) error {
	_, rid := w.nextGlobalID()

	relpath := "docProps/app.xml"
	abspath := "/" + relpath

	w.PartContentTypes[abspath] = "application/vnd.openxmlformats-officedocument.extended-properties+xml"
	w.GlobalRels[rid] = RelInfo{
		Type:   "http://schemas.openxmlformats.org/officeDocument/2006/relationships/extended-properties",
		Target: relpath,
	}

	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, w.cfg)
	x.XmlStandaloneDecl()

	x.OTag("Properties")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/officeDocument/2006/extended-properties")
	x.Attr("xmlns:vt", "http://schemas.openxmlformats.org/officeDocument/2006/docPropsVTypes")

	if appname != "" {
		x.OTag("+Application").String(appname).CTag()
	}

	x.CTag()

	return w.put(abspath, &bb)
}

func (w *Writer) writeContentTypes() error {
	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, w.cfg)
	x.XmlStandaloneDecl()

	x.OTag("Types")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/package/2006/content-types")
	enumerate(w.DefaultContentTypes, func(ext, ctype string) error {
		x.OTag("+Default").Attr("Extension", ext).Attr("ContentType", ctype).CTag()
		return nil
	})
	enumerate(w.PartContentTypes, func(abspath, ctype string) error {
		x.OTag("+Override").Attr("PartName", abspath).Attr("ContentType", ctype).CTag()
		return nil
	})

	x.CTag()

	return w.put("[Content_Types].xml", &bb)
}

// writeStyles emits a single cell format built on the workbook font.
func (w *Writer) writeStyles(wb *Workbook) error {
	_, rid := w.nextWorkbookID()

	relpath := "styles.xml"
	abspath := "/xl/" + relpath

	w.PartContentTypes[abspath] = "application/vnd.openxmlformats-officedocument.spreadsheetml.styles+xml"
	w.WorkbookRels[rid] = RelInfo{
		Type:   "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles",
		Target: relpath,
	}

	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, w.cfg)
	x.XmlStandaloneDecl()

	x.OTag("styleSheet")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/spreadsheetml/2006/main")

	f := &wb.Font
	x.OTag("+fonts").Attr("count", 1)
	x.OTag("+font")
	if f.Bold {
		x.OTag("b").CTag()
	}
	if f.Italic {
		x.OTag("i").CTag()
	}
	if f.Strikethrough {
		x.OTag("strike").CTag()
	}
	if f.Underline != UnderlineNone {
		x.OTag("u")
		if f.Underline != UnderlineSingle {
			x.Attr("val", string(f.Underline))
		}
		x.CTag()
	}
	x.OTag("sz").Attr("val", f.size()).CTag()
	x.OTag("name").Attr("val", f.name()).CTag()
	x.OTag("family").Attr("val", 2).CTag()
	x.CTag() // font
	x.CTag() // fonts

	x.OTag("+fills").Attr("count", 2)
	x.OTag("+fill").OTag("patternFill").Attr("patternType", "none").CTag().CTag()
	x.OTag("+fill").OTag("patternFill").Attr("patternType", "gray125").CTag().CTag()
	x.CTag()

	x.OTag("+borders").Attr("count", 1)
	x.OTag("+border")
	x.OTag("left").CTag()
	x.OTag("right").CTag()
	x.OTag("top").CTag()
	x.OTag("bottom").CTag()
	x.OTag("diagonal").CTag()
	x.CTag()
	x.CTag()

	x.OTag("+cellStyleXfs").Attr("count", 1)
	x.OTag("+xf").Attr("numFmtId", 0).Attr("fontId", 0).Attr("fillId", 0).Attr("borderId", 0).CTag()
	x.CTag()

	x.OTag("+cellXfs").Attr("count", 1)
	x.OTag("+xf").Attr("numFmtId", 0).Attr("fontId", 0).Attr("fillId", 0).Attr("borderId", 0).Attr("xfId", 0).CTag()
	x.CTag()

	x.OTag("+cellStyles").Attr("count", 1)
	x.OTag("+cellStyle").Attr("name", "Normal").Attr("xfId", 0).Attr("builtinId", 0).CTag()
	x.CTag()

	x.CTag()

	return w.put(abspath, &bb)
}

func (w *Writer) writeWorkbook(wb *Workbook) error {
	_, rid := w.nextGlobalID()

	relpath := "xl/workbook.xml"
	abspath := "/" + relpath

	w.PartContentTypes[abspath] = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"
	w.GlobalRels[rid] = RelInfo{
		Type:   "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument",
		Target: relpath,
	}

	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, w.cfg)
	x.XmlStandaloneDecl()

	x.OTag("workbook")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/spreadsheetml/2006/main")
	x.Attr("xmlns:r", "http://schemas.openxmlformats.org/officeDocument/2006/relationships")

	if wb.protection != nil {
		x.OTag("+workbookProtection")
		if wb.protection.hash != 0 {
			x.Attr("workbookPassword", fmt.Sprintf("%04X", wb.protection.hash))
		}
		x.Attr("lockStructure", 1)
		x.CTag()
	}

	x.OTag("+sheets")
	for i, sheet := range wb.Sheets {
		sheet_id, sheet_rid := w.nextWorkbookID()
		{
			x.OTag("+sheet")
			x.Attr("name", sheet.Name)
			x.Attr("sheetId", sheet_id)
			x.Attr("r:id", sheet_rid)
			x.CTag()
		}

		err := w.writeSheet(sheet, i+1, sheet_rid)
		if err != nil {
			return err
		}
	}
	x.CTag()

	if len(wb.names) > 0 || hasAutoFilter(wb) {
		x.OTag("+definedNames")
		for i, sheet := range wb.Sheets {
			if sheet.autoFilter == nil {
				continue
			}
			x.OTag("+definedName")
			x.Attr("name", "_xlnm._FilterDatabase")
			x.Attr("localSheetId", i)
			x.Attr("hidden", 1)
			x.String(sheet.filterDatabase())
			x.CTag()
		}
		enumerate(wb.names, func(name, formula string) error {
			x.OTag("+definedName").Attr("name", name).String(formula).CTag()
			return nil
		})
		x.CTag()
	}

	x.CTag()

	return w.put(abspath, &bb)
}

func hasAutoFilter(wb *Workbook) bool {
	return slices.ContainsFunc(wb.Sheets, func(s *Sheet) bool { return s.autoFilter != nil })
}

func (w *Writer) writeSheet(sh *Sheet, n int, rid string) error {
	relpath := fmt.Sprintf("worksheets/sheet%d.xml", n)
	abspath := "/xl/" + relpath

	w.PartContentTypes[abspath] = "application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"
	w.WorkbookRels[rid] = RelInfo{
		Type:   "http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet",
		Target: relpath,
	}

	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, w.cfg)
	x.XmlStandaloneDecl()

	x.OTag("worksheet")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/spreadsheetml/2006/main")
	x.Attr("xmlns:r", "http://schemas.openxmlformats.org/officeDocument/2006/relationships")
	x.Attr("xmlns:mc", "http://schemas.openxmlformats.org/markup-compatibility/2006")
	x.Attr("xmlns:xr", "http://schemas.microsoft.com/office/spreadsheetml/2014/revision")
	x.Attr("mc:Ignorable", "xr")
	x.Attr("xr:uid", sh.uid())

	x.OTag("+dimension").Attr("ref", sh.Dimension()).CTag()

	if len(sh.Columns) > 0 {
		x.OTag("+cols")
		enumerate(sh.Columns, func(col ColNum, v *Column) error {
			x.OTag("+col").Attr("min", int(col)+1).Attr("max", int(col)+1)
			x.Attr("width", v.Width).Attr("customWidth", 1)
			x.CTag()
			return nil
		})
		x.CTag()
	}

	x.OTag("+sheetData")
	for _, row := range sh.Rows {
		x.OTag("+row").Attr("r", int(row.index)+1)
		if row.Height > 0 {
			x.Attr("ht", row.Height).Attr("customHeight", 1)
		}

		for _, cell := range row.Cells {
			x.OTag("+c").Attr("r", cell.coord)

			switch cell.typ {
			case CellTypeBool:
				x.Attr("t", "b")
				x.OTag("v").Write(cell.v).CTag()
			case CellTypeNumber:
				x.Attr("t", "n")
				x.OTag("v").Write(cell.v).CTag()
			case CellTypeError:
				x.Attr("t", "e")
				x.OTag("v").String(cell.v).CTag()
			case CellTypeFormula:
				x.OTag("f").String(cell.v).CTag()
			case CellTypeInlineString:
				x.Attr("t", "inlineStr")
				x.OTag("is").OTag("t").String(cell.v).CTag().CTag()
			case CellTypeSharedString:
				x.Attr("t", "s")
				x.OTag("v").Write(w.SharedString(cell.v)).CTag()
			}
			x.CTag() // c
		}

		x.CTag() // row
	}
	x.CTag() // sheetData

	if p := sh.protection; p != nil {
		x.OTag("+sheetProtection")
		if p.hash != 0 {
			x.Attr("password", fmt.Sprintf("%04X", p.hash))
		}
		x.Attr("sheet", 1).Attr("objects", 1).Attr("scenarios", 1)
		x.CTag()
	}

	if sh.autoFilter != nil {
		x.OTag("+autoFilter").Attr("ref", sh.autoFilter.Ref()).CTag()
	}

	x.CTag() // worksheet

	return w.put(abspath, &bb)
}

func (w *Writer) writeSharedStrings() error {
	_, rid := w.nextWorkbookID()

	relpath := "sharedStrings.xml"
	abspath := "/xl/" + relpath

	w.PartContentTypes[abspath] = "application/vnd.openxmlformats-officedocument.spreadsheetml.sharedStrings+xml"
	w.WorkbookRels[rid] = RelInfo{
		Type:   "http://schemas.openxmlformats.org/officeDocument/2006/relationships/sharedStrings",
		Target: relpath,
	}

	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, w.cfg)
	x.XmlStandaloneDecl()

	x.OTag("sst")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/spreadsheetml/2006/main")
	x.Attr("count", w.sharedRefs)
	x.Attr("uniqueCount", len(w.sharedStrings))

	for _, s := range w.sharedStrings {
		x.OTag("+si")
		x.OTag("t").String(s).CTag()
		x.CTag()
	}

	x.CTag()

	return w.put(abspath, &bb)
}

func (w *Writer) writeRels(path string, rels map[string]RelInfo) error {
	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, w.cfg)
	x.XmlStandaloneDecl()

	x.OTag("Relationships")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/package/2006/relationships")
	ids := maps.Keys(rels)
	slices.SortFunc(ids, compareRelIDs)
	for _, rid := range ids {
		info := rels[rid]
		x.OTag("+Relationship").Attr("Id", rid).Attr("Type", info.Type).Attr("Target", info.Target)
		x.CTag()
	}
	x.CTag()

	return w.put(path, &bb)
}

// compareRelIDs orders rId2 before rId10.
func compareRelIDs(a, b string) int {
	if c := cmp.Compare(len(a), len(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

func enumerate[M ~map[K]V, K constraints.Ordered, V any](m M, callback func(k K, v V) error) error {
	keys := maps.Keys(m)
	slices.Sort(keys)
	for _, k := range keys {
		err := callback(k, m[k])
		if err != nil {
			return err
		}
	}
	return nil
}
