package xl

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// RowNum is a zero-based row index (0..1048576).
type RowNum = uint32

// ColNum is a zero-based column index (0..16384).
type ColNum = uint16

// ColumnNumberToName converts a zero-based column index to its letter form:
// 0 -> "A", 25 -> "Z", 26 -> "AA", 16383 -> "XFD".
//
// The host format's ceiling is not enforced here.
func ColumnNumberToName(col ColNum) string {
	var buf [4]byte
	i := len(buf)
	n := uint32(col) + 1
	for n > 0 {
		rem := n % 26
		if rem == 0 {
			rem = 26
		}
		i--
		buf[i] = byte('A' + rem - 1)
		n = (n - 1) / 26
	}
	return string(buf[i:])
}

// ColumnNameToNumber converts a column name such as "XFD" back to its
// zero-based index.
//
// The name must consist of uppercase letters A-Z only. Nothing is validated;
// other input produces an unspecified value, and the empty string wraps
// around to the maximum ColNum.
func ColumnNameToNumber(name string) ColNum {
	var n ColNum
	for i := 0; i < len(name); i++ {
		n = n*26 + ColNum(name[i]-'A'+1)
	}
	return n - 1
}

// RowColToCell returns the A1 style reference of a zero-based cell.
func RowColToCell(row RowNum, col ColNum) string {
	return ColumnNumberToName(col) + strconv.FormatUint(uint64(row)+1, 10)
}

// RowColToCellAbsolute returns the $A$1 style reference of a zero-based cell.
func RowColToCellAbsolute(row RowNum, col ColNum) string {
	return "$" + ColumnNumberToName(col) + "$" + strconv.FormatUint(uint64(row)+1, 10)
}

// CellRange returns an A1:B2 style range. When both corners format to the
// same reference, the single reference is returned.
func CellRange(firstRow RowNum, firstCol ColNum, lastRow RowNum, lastCol ColNum) string {
	return joinRange(RowColToCell(firstRow, firstCol), RowColToCell(lastRow, lastCol))
}

// CellRangeAbsolute is the $A$1:$B$2 counterpart of CellRange.
func CellRangeAbsolute(firstRow RowNum, firstCol ColNum, lastRow RowNum, lastCol ColNum) string {
	return joinRange(RowColToCellAbsolute(firstRow, firstCol), RowColToCellAbsolute(lastRow, lastCol))
}

func joinRange(first, last string) string {
	if first == last {
		return first
	}
	return first + ":" + last
}

// ChartRangeAbs returns a sheet qualified absolute range such as
// 'Sheet 1'!$A$1:$B$2, as used in defined names and chart series.
func ChartRangeAbs(sheet string, firstRow RowNum, firstCol ColNum, lastRow RowNum, lastCol ColNum) string {
	return QuoteSheetName(sheet) + "!" + CellRangeAbsolute(firstRow, firstCol, lastRow, lastCol)
}

// QuoteSheetName quotes a sheet name for use in formula text. Names that
// already start with an apostrophe are returned as is.
func QuoteSheetName(name string) string {
	if strings.HasPrefix(name, "'") {
		return name
	}
	name = strings.ReplaceAll(name, "'", "''")
	if strings.ContainsAny(name, " !'") {
		name = "'" + name + "'"
	}
	return name
}

// MaxSheetNameLength is the host application's limit, in characters.
const MaxSheetNameLength = 31

const invalidSheetNameChars = `*?:[]\/`

// ValidateSheetName checks a sheet name against the host application's
// naming rules. The first failing rule is reported; context names the
// operation that requested the check and is carried in the returned
// *SheetNameError.
func ValidateSheetName(name, context string) error {
	var err error
	switch {
	case name == "":
		err = ErrSheetnameCannotBeBlank
	case utf8.RuneCountInString(name) > MaxSheetNameLength:
		err = ErrSheetnameLengthExceeded
	case strings.ContainsAny(name, invalidSheetNameChars):
		err = ErrSheetnameContainsInvalidCharacter
	case strings.HasPrefix(name, "'") || strings.HasSuffix(name, "'"):
		err = ErrSheetnameStartsOrEndsWithApostrophe
	default:
		return nil
	}
	return &SheetNameError{Context: context, Name: name, Err: err}
}

// PixelWidth estimates the rendered width of s in pixels using the default
// font's character widths. Characters outside the table count as 8.
// The sum wraps on overflow.
func PixelWidth(s string) uint16 {
	var w uint16
	for _, r := range s {
		w += glyphWidth(r)
	}
	return w
}

func glyphWidth(r rune) uint16 {
	switch r {
	case ' ', '\'':
		return 3
	case ',', '.', ':', ';', 'I', '`', 'i', 'j', 'l':
		return 4
	case '!', '(', ')', '-', 'J', '[', ']', 'f', 'r', 't', '{', '}':
		return 5
	case '"', '/', 'L', '\\', 'c', 's', 'z':
		return 6
	case '#', '$', '*', '+', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9',
		'<', '=', '>', '?', 'E', 'F', 'S', 'T', 'Y', 'Z', '^', '_', 'a', 'g',
		'k', 'v', 'x', 'y', '|', '~':
		return 7
	case 'B', 'C', 'K', 'P', 'R', 'X', 'b', 'd', 'e', 'h', 'n', 'o', 'p', 'q', 'u':
		return 8
	case 'A', 'D', 'G', 'H', 'U', 'V':
		return 9
	case '&', 'N', 'O', 'Q':
		return 10
	case '%', 'w':
		return 11
	case 'M', 'm':
		return 12
	case '@', 'W':
		return 13
	}
	return 8
}

// HashPassword computes the legacy 16-bit protection hash of a password
// (ECMA-376 Part 4, workbookProtection). The empty password hashes to 0.
func HashPassword(password string) uint16 {
	if password == "" {
		return 0
	}
	var hash uint16
	for i := len(password) - 1; i >= 0; i-- {
		hash = rotl15(hash)
		hash ^= uint16(password[i])
	}
	hash = rotl15(hash)
	hash ^= uint16(len(password))
	hash ^= 0xCE4B
	return hash
}

// rotl15 rotates the low 15 bits of h left by one.
func rotl15(h uint16) uint16 {
	return ((h >> 14) & 0x01) | ((h << 1) & 0x7fff)
}

// formulaText strips one leading '=' from a formula.
func formulaText(f string) string {
	return strings.TrimPrefix(f, "=")
}
