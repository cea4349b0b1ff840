package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/adnsv/go-xlref/xl"
	"github.com/rs/zerolog"
)

// runBook reads CSV from stdin and writes it as a single sheet workbook.
// Fields that parse as numbers become numeric cells; fields starting with
// '=' become formulas.
func runBook(args []string, stdin io.Reader, stdout, stderr io.Writer, log *zerolog.Logger) (err error) {
	fs := flag.NewFlagSet("book", flag.ContinueOnError)
	fs.SetOutput(stderr)
	out := fs.String("o", "", "output file (default stdout)")
	sheetName := fs.String("sheet", "Sheet1", "sheet name")
	password := fs.String("password", "", "protect the sheet with a password")
	autofit := fs.Bool("autofit", false, "size columns to their content")
	filter := fs.Bool("filter", false, "add an autofilter over the data")
	if err := fs.Parse(args); err != nil {
		return flagError(err)
	}
	if fs.NArg() != 0 {
		return usagef("unexpected arguments %v", fs.Args())
	}

	wb := xl.NewWorkbook()
	wb.AppName = "xlref " + version
	sheet, err := wb.AddSheet(*sheetName)
	if err != nil {
		return err
	}

	cr := csv.NewReader(stdin)
	cr.FieldsPerRecord = -1
	var lastCol xl.ColNum
	var rows xl.RowNum
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read csv: %w", err)
		}
		row := sheet.AddRow()
		for _, field := range rec {
			setValue(row.AddCell(), field)
		}
		if n := len(rec); n > 0 && xl.ColNum(n-1) > lastCol {
			lastCol = xl.ColNum(n - 1)
		}
		rows++
	}
	log.Debug().Uint32("rows", rows).Str("dimension", sheet.Dimension()).Msg("csv loaded")

	if *autofit {
		sheet.Autofit()
	}
	if *filter && rows > 0 {
		sheet.SetAutoFilter(0, 0, rows-1, lastCol)
	}
	if *password != "" {
		sheet.Protect(*password)
	}

	dst := stdout
	if *out != "" {
		f, ferr := os.Create(*out)
		if ferr != nil {
			return ferr
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		dst = f
	}

	zs := xl.NewZipStorage(dst)
	if err := xl.NewWriter(zs, xl.WriterOptions{Logger: log}).Write(wb); err != nil {
		return err
	}
	return zs.Close()
}

func setValue(c *xl.Cell, field string) {
	if len(field) > 1 && field[0] == '=' {
		c.SetFormula(field)
		return
	}
	if i, err := strconv.ParseInt(field, 10, 64); err == nil {
		c.SetInt(i)
		return
	}
	if f, err := strconv.ParseFloat(field, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		c.SetFloat(f)
		return
	}
	switch field {
	case "TRUE", "true":
		c.SetBool(true)
	case "FALSE", "false":
		c.SetBool(false)
	case "":
		// leave empty cells unset
	default:
		c.SetStr(field)
	}
}
