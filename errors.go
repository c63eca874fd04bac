package verfs

import "errors"

var (
	// ErrNotADirectory is returned when narrowing a file node to a directory.
	ErrNotADirectory = errors.New("verfs: not a directory")

	// ErrNotAFile is returned when narrowing a directory node to a file.
	ErrNotAFile = errors.New("verfs: not a file")

	// ErrNotFound is returned when the block store has no entry for a CID.
	ErrNotFound = errors.New("verfs: not found")

	// ErrDecode is returned when stored bytes do not match the tagged node
	// wire format.
	ErrDecode = errors.New("verfs: invalid node encoding")
)

var errEmptyNode = errors.New("verfs: empty node handle")
