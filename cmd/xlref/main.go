package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/adnsv/go-xlref/xl"
	"github.com/rs/zerolog"
)

var version = "dev"

const (
	exitOK      = 0
	exitFailed  = 1
	exitUsage   = 2
	usageHeader = `usage: xlref [-v] <command> [args]

commands:
  col <n|NAME>                       convert a zero-based column index to its name or back
  cell [-abs] <row> <col>            format a zero-based cell reference
  range [-abs] [-sheet NAME] <r1> <c1> <r2> <c2>
                                     format a cell range
  quote <name>                       quote a sheet name for formulas
  validate <name>                    check a sheet name
  hash <password>                    legacy sheet protection hash
  width <text>                       estimated pixel width
  book [-o FILE] [-sheet NAME] [-password PW] [-autofit] [-filter]
                                     convert CSV on stdin to a workbook
  version                            print version
`
)

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return usageError{fmt.Sprintf(format, args...)}
}

// flagError reports bad flags as usage errors.
func flagError(err error) error {
	if errors.Is(err, flag.ErrHelp) {
		return err
	}
	return usageError{err.Error()}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("xlref", flag.ContinueOnError)
	fs.SetOutput(stderr)
	verbose := fs.Bool("v", false, "verbose logging")
	fs.Usage = func() { fmt.Fprint(stderr, usageHeader) }
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: stderr, NoColor: true}).
		Level(level).With().Timestamp().Logger()

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return exitUsage
	}

	cmd, cmdArgs := rest[0], rest[1:]
	var err error
	switch cmd {
	case "col":
		err = runCol(cmdArgs, stdout)
	case "cell":
		err = runCell(cmdArgs, stdout, stderr)
	case "range":
		err = runRange(cmdArgs, stdout, stderr)
	case "quote":
		err = runQuote(cmdArgs, stdout)
	case "validate":
		err = runValidate(cmdArgs, stdout)
	case "hash":
		err = runHash(cmdArgs, stdout)
	case "width":
		err = runWidth(cmdArgs, stdout)
	case "book":
		err = runBook(cmdArgs, stdin, stdout, stderr, &log)
	case "version":
		fmt.Fprintln(stdout, version)
	default:
		err = usagef("unknown command %q", cmd)
	}

	var uerr usageError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &uerr):
		fmt.Fprintf(stderr, "xlref %s: %v\n", cmd, err)
		return exitUsage
	case errors.Is(err, flag.ErrHelp):
		return exitUsage
	default:
		log.Error().Err(err).Str("command", cmd).Msg("failed")
		return exitFailed
	}
}

func parseRow(s string) (xl.RowNum, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil || n > 1048576 {
		return 0, usagef("invalid row %q", s)
	}
	return xl.RowNum(n), nil
}

func parseCol(s string) (xl.ColNum, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil || n > 16384 {
		return 0, usagef("invalid column %q", s)
	}
	return xl.ColNum(n), nil
}

func isColumnName(s string) bool {
	if s == "" || len(s) > 3 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}

func exactArgs(args []string, n int, what string) error {
	if len(args) != n {
		return usagef("expected %s", what)
	}
	return nil
}

func runCol(args []string, stdout io.Writer) error {
	if err := exactArgs(args, 1, "<n|NAME>"); err != nil {
		return err
	}
	arg := args[0]
	if upper := strings.ToUpper(arg); isColumnName(upper) {
		fmt.Fprintln(stdout, xl.ColumnNameToNumber(upper))
		return nil
	}
	col, err := parseCol(arg)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, xl.ColumnNumberToName(col))
	return nil
}

func runCell(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("cell", flag.ContinueOnError)
	fs.SetOutput(stderr)
	abs := fs.Bool("abs", false, "absolute reference")
	if err := fs.Parse(args); err != nil {
		return flagError(err)
	}
	if err := exactArgs(fs.Args(), 2, "<row> <col>"); err != nil {
		return err
	}
	row, err := parseRow(fs.Arg(0))
	if err != nil {
		return err
	}
	col, err := parseCol(fs.Arg(1))
	if err != nil {
		return err
	}
	if *abs {
		fmt.Fprintln(stdout, xl.RowColToCellAbsolute(row, col))
	} else {
		fmt.Fprintln(stdout, xl.RowColToCell(row, col))
	}
	return nil
}

func runRange(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("range", flag.ContinueOnError)
	fs.SetOutput(stderr)
	abs := fs.Bool("abs", false, "absolute references")
	sheet := fs.String("sheet", "", "qualify with a sheet name (implies -abs)")
	if err := fs.Parse(args); err != nil {
		return flagError(err)
	}
	if err := exactArgs(fs.Args(), 4, "<r1> <c1> <r2> <c2>"); err != nil {
		return err
	}
	r1, err := parseRow(fs.Arg(0))
	if err != nil {
		return err
	}
	c1, err := parseCol(fs.Arg(1))
	if err != nil {
		return err
	}
	r2, err := parseRow(fs.Arg(2))
	if err != nil {
		return err
	}
	c2, err := parseCol(fs.Arg(3))
	if err != nil {
		return err
	}
	switch {
	case *sheet != "":
		fmt.Fprintln(stdout, xl.ChartRangeAbs(*sheet, r1, c1, r2, c2))
	case *abs:
		fmt.Fprintln(stdout, xl.CellRangeAbsolute(r1, c1, r2, c2))
	default:
		fmt.Fprintln(stdout, xl.CellRange(r1, c1, r2, c2))
	}
	return nil
}

func runQuote(args []string, stdout io.Writer) error {
	if err := exactArgs(args, 1, "<name>"); err != nil {
		return err
	}
	fmt.Fprintln(stdout, xl.QuoteSheetName(args[0]))
	return nil
}

func runValidate(args []string, stdout io.Writer) error {
	if err := exactArgs(args, 1, "<name>"); err != nil {
		return err
	}
	if err := xl.ValidateSheetName(args[0], "validate"); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "ok")
	return nil
}

func runHash(args []string, stdout io.Writer) error {
	if err := exactArgs(args, 1, "<password>"); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%04X\n", xl.HashPassword(args[0]))
	return nil
}

func runWidth(args []string, stdout io.Writer) error {
	if err := exactArgs(args, 1, "<text>"); err != nil {
		return err
	}
	fmt.Fprintln(stdout, xl.PixelWidth(args[0]))
	return nil
}
