package modpack

// ByteBuffer is a growable, owned byte sequence with random-access reads
// and positional appends. It is the C1 component the codecs are built
// against: loaders borrow one to read from, savers append to one to
// produce output. Grounded on the bytes.Reader / bytes.Buffer idioms the
// teacher's MOD and S3M loaders use throughout.
type ByteBuffer struct {
	data []byte
}

// NewByteBuffer returns an empty buffer suitable for a saver.
func NewByteBuffer() *ByteBuffer {
	return &ByteBuffer{}
}

// NewByteBufferFrom wraps an existing byte slice for reading. The slice is
// copied so later appends to either side stay independent.
func NewByteBufferFrom(b []byte) *ByteBuffer {
	return &ByteBuffer{data: append([]byte(nil), b...)}
}

// Len returns the number of bytes currently held.
func (b *ByteBuffer) Len() int {
	return len(b.data)
}

// Bytes returns the full contents. The caller must not mutate the result.
func (b *ByteBuffer) Bytes() []byte {
	return b.data
}

// Append adds p to the end of the buffer.
func (b *ByteBuffer) Append(p []byte) {
	b.data = append(b.data, p...)
}

// AppendByte adds a single byte to the end of the buffer.
func (b *ByteBuffer) AppendByte(v byte) {
	b.data = append(b.data, v)
}

// At returns the n bytes starting at offset. It fails with ErrShortBuffer
// if that range isn't fully present.
func (b *ByteBuffer) At(offset, n int) ([]byte, error) {
	if offset < 0 || n < 0 || offset+n > len(b.data) {
		return nil, ErrShortBuffer
	}
	return b.data[offset : offset+n], nil
}
