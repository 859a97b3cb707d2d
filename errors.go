package modpack

import "errors"

// Sentinel errors for the failure kinds named in the format specs. Callers
// that need to distinguish a kind use errors.Is; most codec errors wrap one
// of these with fmt.Errorf("...: %w", ...) to carry the offending offset or
// field name.
var (
	// ErrShortBuffer means the input ended before a required structure
	// (header, pattern, sample table entry, ...) was fully present.
	ErrShortBuffer = errors.New("modpack: short buffer")

	// ErrMalformed means a structural invariant was violated: P61A song
	// positions without a terminator, a back-reference before the start of
	// the tracks region, or a P61A recursion or row overflow. A period with
	// no entry in the note table is not reported: the P61A encoder writes
	// it as an event without a note.
	ErrMalformed = errors.New("modpack: malformed data")

	// ErrUnsupportedFormat means an unrecognized MOD magic or an unknown
	// codec name was requested.
	ErrUnsupportedFormat = errors.New("modpack: unsupported format")

	// ErrUnimplemented is returned by the sample-compression option paths
	// (4-bit packing, delta encoding) that the original tool declares in
	// its option surface but never implements.
	ErrUnimplemented = errors.New("modpack: unimplemented")

	// ErrOutOfMemory exists for ByteBuffer API completeness with the
	// spec's C1 contract. Go's allocator panics rather than returning an
	// error on exhaustion, so no path in this package actually produces
	// it.
	ErrOutOfMemory = errors.New("modpack: out of memory")
)
