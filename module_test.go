package modpack

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNoteIndexPeriodRoundTrip(t *testing.T) {
	for idx := uint8(1); idx <= 36; idx++ {
		period := PeriodFromNoteIndex(idx)
		require.NotZero(t, period)
		require.Equal(t, idx, NoteIndexFromPeriod(period))
	}
}

func TestNoteIndexFromUnknownPeriod(t *testing.T) {
	require.Equal(t, uint8(0), NoteIndexFromPeriod(1))
	require.Equal(t, uint16(0), PeriodFromNoteIndex(0))
	require.Equal(t, uint16(0), PeriodFromNoteIndex(37))
}

func TestChannelEventEncodeDecodeRoundTrip(t *testing.T) {
	ev := ChannelEvent{Sample: 17, Period: 428, Effect: Effect{Command: 0xC, Argument: 0x30}}
	enc := ev.encode()
	got := decodeChannelEvent(enc[:])
	require.Equal(t, ev, got)
}

func TestChannelEventIsEmpty(t *testing.T) {
	require.True(t, ChannelEvent{}.IsEmpty())
	require.False(t, ChannelEvent{Sample: 1}.IsEmpty())
	require.False(t, ChannelEvent{Period: 428}.IsEmpty())
	require.False(t, ChannelEvent{Effect: Effect{Command: 0xF, Argument: 6}}.IsEmpty())
}

func TestEffectExtendedRoundTrip(t *testing.T) {
	arg := MakeExtended(0x8, 0x3)
	e := Effect{Command: CmdExtended, Argument: arg}
	cmd, val := e.Extended()
	require.Equal(t, uint8(0x8), cmd)
	require.Equal(t, uint8(0x3), val)
}

func TestModuleUsedPatternsAndSamples(t *testing.T) {
	mod := NewModule()
	mod.Patterns = []*Pattern{{}, {}, {}}
	mod.Patterns[1].Rows[0][0] = ChannelEvent{Sample: 5, Period: 428}
	mod.Order.Length = 2
	mod.Order.Positions[0] = 1
	mod.Order.Positions[1] = 1 // pattern 0 and 2 never visited

	used := mod.UsedPatterns()
	require.Equal(t, []bool{false, true, false}, used)

	usedSamples := mod.UsedSamples()
	require.True(t, usedSamples[4])
	for i, u := range usedSamples {
		if i != 4 {
			require.False(t, u)
		}
	}
}

func TestModuleClone(t *testing.T) {
	mod := NewModule()
	mod.SongName = "test"
	mod.Patterns = []*Pattern{{}}
	mod.Patterns[0].Rows[0][0] = ChannelEvent{Sample: 3}
	mod.Samples[0] = Sample{Name: "snare", Length: 4, Data: []int8{1, 2, 3, 4}}

	clone := mod.Clone()
	clone.SongName = "changed"
	clone.Patterns[0].Rows[0][0].Sample = 9
	clone.Samples[0].Data[0] = 99

	require.Equal(t, "test", mod.SongName)
	require.Equal(t, uint8(3), mod.Patterns[0].Rows[0][0].Sample)
	require.Equal(t, int8(1), mod.Samples[0].Data[0])
}

func TestSampleEmptyAndLooping(t *testing.T) {
	require.True(t, Sample{}.Empty())
	require.False(t, Sample{Length: 4}.Empty())

	require.False(t, Sample{Length: 4, RepeatLength: 1}.Looping())
	require.True(t, Sample{Length: 4, RepeatLength: 2}.Looping())
}

func TestForEachEventVisitsAllCells(t *testing.T) {
	mod := NewModule()
	mod.Patterns = []*Pattern{{}, {}}

	count := 0
	mod.ForEachEvent(func(p, r, c int, ev *ChannelEvent) {
		count++
		ev.Sample = uint8(p + 1)
	})
	require.Equal(t, 2*RowsPerPattern*NumChannels, count)
	require.Equal(t, uint8(2), mod.Patterns[1].Rows[0][0].Sample)
}
