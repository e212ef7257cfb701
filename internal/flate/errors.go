package flate

import "errors"

// The error kinds a Reader can surface. Every one is fatal to the stream:
// there is no retry, and whatever has already reached the sink is not
// rewound.
var (
	// ErrInvalidRepeat is returned when code-length symbol 16 (repeat
	// previous) appears as the very first code-length value; there is no
	// previous value to repeat.
	ErrInvalidRepeat = errors.New("flate: repeat code with no previous length")

	// ErrLengthsOverflow is returned when a run of repeated code lengths
	// would decode more entries than HLIT+HDIST+258 calls for.
	ErrLengthsOverflow = errors.New("flate: code length repeat overflows table")

	// ErrReservedBlockType is returned for BTYPE == 0b11.
	ErrReservedBlockType = errors.New("flate: reserved block type")

	// ErrStoredBlockLengthMismatch is returned when a stored block's NLEN
	// field is not the one's complement of LEN.
	ErrStoredBlockLengthMismatch = errors.New("flate: stored block length mismatch")

	// ErrInvalidLengthSymbol is returned when a literal/length symbol is
	// 286, 287, or otherwise outside the defined alphabet.
	ErrInvalidLengthSymbol = errors.New("flate: invalid length symbol")

	// ErrInvalidDistance is returned when a back-reference distance is
	// zero or reaches further back than any byte emitted so far.
	ErrInvalidDistance = errors.New("flate: invalid distance")
)
