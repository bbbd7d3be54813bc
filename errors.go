package otplc

import "errors"

// Sentinel errors for conditions callers may need to handle differently.
var (
	// ErrColumnName indicates a colspec header used an unknown role name.
	ErrColumnName = errors.New("otplc: illegal column name")

	// ErrDuplicateColumn indicates a single-column role was assigned twice.
	ErrDuplicateColumn = errors.New("otplc: column role already assigned")

	// ErrMissingReference indicates a RELATION column without a reference
	// column immediately to its left.
	ErrMissingReference = errors.New("otplc: relation column has no reference")

	// ErrInvalidTarget indicates a ":N" override pointed at a column that is
	// not a valid reference or property target.
	ErrInvalidTarget = errors.New("otplc: invalid target column")

	// ErrNoTarget indicates the nearest-left target scan hit a column that
	// can neither be skipped nor serve as a target.
	ErrNoTarget = errors.New("otplc: column has no target")

	// ErrMissingTarget indicates the nearest-left target scan exhausted all
	// columns without finding a target.
	ErrMissingTarget = errors.New("otplc: column with no target")

	// ErrColumnMapped indicates a column was registered as a target-bearing
	// column more than once.
	ErrColumnMapped = errors.New("otplc: column already mapped")

	// ErrEventReferences indicates an EVENT column preceded by fewer than
	// two contiguous reference columns.
	ErrEventReferences = errors.New("otplc: event column has less than two references")

	// ErrFormat indicates illegal content in an OTPL file, such as rows
	// with varying column counts.
	ErrFormat = errors.New("otplc: data format error")

	// ErrNoSeparator indicates the field separator could not be detected.
	ErrNoSeparator = errors.New("otplc: no field separator detected")

	// ErrGuessFailed indicates column type inference did not reach a usable
	// column specification.
	ErrGuessFailed = errors.New("otplc: colspec guessing failed")

	// ErrNoColspec indicates a conversion was attempted without a colspec.
	ErrNoColspec = errors.New("otplc: no column specification set")

	// ErrTokenNotFound indicates an OTPL token is absent from the text file
	// at or after the current search offset.
	ErrTokenNotFound = errors.New("otplc: token not found in text")

	// ErrUnresolvedReference indicates a numeric reference that has no
	// registered annotation in its target column.
	ErrUnresolvedReference = errors.New("otplc: unresolved reference")

	// ErrIllegalName indicates an annotation type or database name that brat
	// cannot represent, even after remapping.
	ErrIllegalName = errors.New("otplc: illegal annotation name")
)
