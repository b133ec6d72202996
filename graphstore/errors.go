package graphstore

import (
	"strconv"

	"github.com/loglattice/orchestrator/types"
)

// ErrNotFound is returned when an operation references a node or edge
// endpoint that does not exist at commit time (I2).
func ErrNotFound(msg string) *types.Error {
	return types.NewError(types.ErrNotFound, msg)
}

// ErrDuplicateName is returned on an I1 collision: (kind, name) already exists.
func ErrDuplicateName(kind NodeKind, name string) *types.Error {
	return types.NewError(types.ErrDuplicateName, "node already exists: "+string(kind)+":"+name)
}

// ErrDimensionMismatch is returned when a supplied embedding's length does
// not equal the configured dimension D (I3).
func ErrDimensionMismatch(got, want int) *types.Error {
	return types.NewError(types.ErrDimensionMismatch, "embedding dimension mismatch").
		WithCause(dimensionError{got: got, want: want})
}

type dimensionError struct{ got, want int }

func (e dimensionError) Error() string {
	return "got " + strconv.Itoa(e.got) + " floats, want " + strconv.Itoa(e.want)
}

// ErrBackendError wraps an underlying storage failure.
func ErrBackendError(msg string, cause error) *types.Error {
	return types.NewError(types.ErrBackendError, msg).WithCause(cause).WithRetryable(true)
}

// ErrInvalidArguments is returned for malformed caller input (e.g. both
// Delete and Fields set on AlterOpts, or an unknown NodeKind).
func ErrInvalidArguments(msg string) *types.Error {
	return types.NewError(types.ErrInvalidArguments, msg)
}
