package modpack

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newSparseSampleModule() *Module {
	mod := NewModule()
	mod.Order.Length = 1
	mod.Order.Positions[0] = 0

	// Slots 2 and 6 (0-based) are used; everything else stays empty, so
	// the P61A writer must compact them densely.
	mod.Samples[2] = Sample{Name: "a", Length: 3, Volume: 40, Data: []int8{1, 2, 3, 4, 5, 6}}
	mod.Samples[6] = Sample{Name: "b", Length: 2, Volume: 64, Data: []int8{-1, -2, -3, -4}}

	pat := &Pattern{}
	pat.Rows[0][0] = ChannelEvent{Sample: 3, Period: 428} // references slot 2 (0-based)
	pat.Rows[1][1] = ChannelEvent{Sample: 7, Period: 214} // references slot 6 (0-based)
	mod.Patterns = []*Pattern{pat}

	return mod
}

func TestSaveP61ARoundTrip(t *testing.T) {
	mod := newSparseSampleModule()

	buf := NewByteBuffer()
	report, err := SaveP61A(buf, mod, ParseOptions(""))
	require.NoError(t, err)
	require.NotNil(t, report)

	loaded, err := LoadP61A(NewByteBufferFrom(buf.Bytes()))
	require.NoError(t, err)

	require.Len(t, loaded.Patterns, 1)

	// Dense compaction renumbers slot 2 -> MOD slot 1, slot 6 -> MOD slot 2,
	// in order of first reference (row 0 channel 0, then row 1 channel 1).
	require.Equal(t, uint8(1), loaded.Patterns[0].Rows[0][0].Sample)
	require.Equal(t, uint8(2), loaded.Patterns[0].Rows[1][1].Sample)

	require.Equal(t, 3, loaded.Samples[0].Length)
	require.Equal(t, 40, loaded.Samples[0].Volume)
	require.Equal(t, 2, loaded.Samples[1].Length)
	require.Equal(t, 64, loaded.Samples[1].Volume)
}

func TestSaveP61AEmptySampleCanonicalized(t *testing.T) {
	mod := newSparseSampleModule()
	buf := NewByteBuffer()
	_, err := SaveP61A(buf, mod, ParseOptions(""))
	require.NoError(t, err)

	rec := encodeP61ASampleHeader(&Sample{})
	require.Equal(t, []byte{0x00, 0x01, 0x00, 0x00, 0xFF, 0xFF}, rec)
}

func TestSaveP61ASignatureOption(t *testing.T) {
	mod := newSparseSampleModule()

	buf := NewByteBuffer()
	_, err := SaveP61A(buf, mod, ParseOptions("sign"))
	require.NoError(t, err)
	require.Equal(t, "P61A", string(buf.Bytes()[:4]))

	buf2 := NewByteBuffer()
	_, err = SaveP61A(buf2, mod, ParseOptions(""))
	require.NoError(t, err)
	require.NotEqual(t, "P61A", string(buf2.Bytes()[:4]))
}

func TestSaveP61ASongSamplesSplit(t *testing.T) {
	mod := newSparseSampleModule()

	songBuf := NewByteBuffer()
	_, err := SaveP61A(songBuf, mod, ParseOptions("-samples"))
	require.NoError(t, err)

	samplesBuf := NewByteBuffer()
	_, err = SaveP61A(samplesBuf, mod, ParseOptions("-song"))
	require.NoError(t, err)

	require.NotZero(t, songBuf.Len())
	require.NotZero(t, samplesBuf.Len())

	loaded, err := LoadP61A(NewByteBufferFrom(songBuf.Bytes()))
	require.NoError(t, err)
	require.Len(t, loaded.Patterns, 1)
}

func TestSaveP61ADeltaUnimplemented(t *testing.T) {
	mod := newSparseSampleModule()
	buf := NewByteBuffer()
	_, err := SaveP61A(buf, mod, ParseOptions("delta"))
	require.ErrorIs(t, err, ErrUnimplemented)
}

func TestSaveP61A4BitRangeUnimplemented(t *testing.T) {
	mod := newSparseSampleModule()
	buf := NewByteBuffer()
	_, err := SaveP61A(buf, mod, ParseOptions("4bit[3]"))
	require.ErrorIs(t, err, ErrUnimplemented)
}

func TestSaveP61ALoopTruncatesLength(t *testing.T) {
	mod := NewModule()
	mod.Order.Length = 1
	mod.Samples[0] = Sample{
		Length:       10,
		RepeatOffset: 2,
		RepeatLength: 3,
		Volume:       64,
		Data:         make([]int8, 20),
	}
	mod.Patterns = []*Pattern{{}}
	mod.Patterns[0].Rows[0][0] = ChannelEvent{Sample: 1, Period: 428}

	rec := encodeP61ASampleHeader(&mod.Samples[0])
	length := int(rec[0])<<8 | int(rec[1])
	require.Equal(t, 5, length) // repeat_offset(2) + repeat_length(3)
}
