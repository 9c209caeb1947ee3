package permute

import "errors"

var (
	// ErrUnknownGenotypeCode is returned when Update sees a packed code
	// outside the nine the radix sort's symbol table recognizes.
	ErrUnknownGenotypeCode = errors.New("vcol/permute: unrecognized packed genotype code")
	// ErrBinCountMismatch is returned when the nine scratch bins don't sum
	// back to N samples after a pass, signaling caller misuse (wrong-length
	// codes slice).
	ErrBinCountMismatch = errors.New("vcol/permute: bin counts do not sum to sample count")
)
