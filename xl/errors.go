package xl

import "errors"

// Sheet name validation failures, reported by ValidateSheetName wrapped in a
// *SheetNameError.
var (
	ErrSheetnameCannotBeBlank              = errors.New("sheet name cannot be blank")
	ErrSheetnameLengthExceeded             = errors.New("sheet name exceeds the 31 character limit")
	ErrSheetnameContainsInvalidCharacter   = errors.New(`sheet name cannot contain any of the characters *?:[]\/`)
	ErrSheetnameStartsOrEndsWithApostrophe = errors.New("sheet name cannot start or end with an apostrophe")
)

// SheetNameError carries the rejected name and the operation that asked for
// the check.
type SheetNameError struct {
	Context string
	Name    string
	Err     error
}

func (e *SheetNameError) Error() string {
	if e.Context == "" {
		return e.Err.Error() + ": '" + e.Name + "'"
	}
	return e.Context + ": " + e.Err.Error() + ": '" + e.Name + "'"
}

func (e *SheetNameError) Unwrap() error {
	return e.Err
}
