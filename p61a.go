package modpack

import (
	"encoding/binary"
	"fmt"
)

const (
	p61aHeaderSize       = 4
	p61aSampleRecordSize = 6 // length u16BE, finetone u8, volume u8, repeat_offset u16BE
	p61aOffsetRecordSize = 8 // 4 channels * u16BE
	p61aSignature        = "P61A"
)

// P61ASaveReport carries the diagnostic value the source logs but never
// writes to the wire: the accumulated effect use-code (spec.md §4.5.1,
// Glossary "Use-code").
type P61ASaveReport struct {
	UseCode uint32
}

// SaveP61A writes mod in Player 6.1A format to buf. opts controls the
// optional signature, pattern compression, and which of the song/samples
// halves are emitted (spec.md §4.6).
func SaveP61A(buf *ByteBuffer, mod *Module, opts *OptionSet) (*P61ASaveReport, error) {
	if opts.Has("delta", false) {
		return nil, fmt.Errorf("%w: delta sample encoding", ErrUnimplemented)
	}

	usedSlots := make([]int, 0, NumSamples)
	for i := range mod.Samples {
		if !mod.Samples[i].Empty() {
			if opts.HasRange("4bit") && opts.InRange("4bit", i+1) {
				return nil, fmt.Errorf("%w: 4-bit sample packing (sample %d)", ErrUnimplemented, i+1)
			}
			usedSlots = append(usedSlots, i)
		}
	}

	slotToDense := make(map[int]uint8, len(usedSlots)) // 0-based mod slot -> 1-based dense index
	for dense, slot := range usedSlots {
		slotToDense[slot] = uint8(dense + 1)
	}

	var useCode uint32
	for _, slot := range usedSlots {
		if mod.Samples[slot].FineTune != 0 {
			useCode |= 1
		}
	}

	patterns := make([]*Pattern, len(mod.Patterns))
	for pi, pat := range mod.Patterns {
		remapped := *pat
		for r := range remapped.Rows {
			for c := range remapped.Rows[r] {
				ev := &remapped.Rows[r][c]
				if ev.Sample >= 1 && int(ev.Sample) <= NumSamples {
					ev.Sample = slotToDense[int(ev.Sample)-1]
				}
			}
		}
		patterns[pi] = &remapped
	}

	compress := opts.Has("compress_patterns", true)

	// Tracks are built channel-major, pattern-minor (spec.md §4.6), each
	// channel's offset recorded relative to the start of this blob.
	var tracksBlob []byte
	offsets := make([][NumChannels]uint16, len(patterns))
	for ch := 0; ch < NumChannels; ch++ {
		for pi, pat := range patterns {
			offsets[pi][ch] = uint16(len(tracksBlob))
			tracksBlob = append(tracksBlob, EncodeTrack(pat, ch, compress, &useCode)...)
		}
	}

	writeSong := opts.Has("song", true)
	writeSamples := opts.Has("samples", true)

	if writeSong {
		if opts.Has("sign", false) {
			buf.Append([]byte(p61aSignature))
		}

		sampleOffset := p61aHeaderSize +
			len(usedSlots)*p61aSampleRecordSize +
			len(patterns)*p61aOffsetRecordSize +
			mod.Order.Length + 1 + // positions + terminator
			len(tracksBlob)
		if sampleOffset%2 != 0 {
			sampleOffset++
		}

		var header [p61aHeaderSize]byte
		binary.BigEndian.PutUint16(header[0:2], uint16(sampleOffset))
		header[2] = uint8(len(patterns))
		header[3] = uint8(len(usedSlots))
		buf.Append(header[:])

		for _, slot := range usedSlots {
			buf.Append(encodeP61ASampleHeader(&mod.Samples[slot]))
		}

		for pi := range patterns {
			var rec [p61aOffsetRecordSize]byte
			for ch := 0; ch < NumChannels; ch++ {
				binary.BigEndian.PutUint16(rec[ch*2:ch*2+2], offsets[pi][ch])
			}
			buf.Append(rec[:])
		}

		buf.Append(mod.Order.Live())
		buf.AppendByte(0xFF)

		buf.Append(tracksBlob)

		if buf.Len()%2 != 0 {
			buf.AppendByte(0)
		}
	}

	if writeSamples {
		for _, slot := range usedSlots {
			s := &mod.Samples[slot]
			n := sampleByteLength(s)
			raw := make([]byte, n)
			for j := 0; j < n && j < len(s.Data); j++ {
				raw[j] = byte(s.Data[j])
			}
			buf.Append(raw)
		}
	}

	return &P61ASaveReport{UseCode: useCode}, nil
}

// sampleByteLength returns the number of payload bytes a sample
// contributes to a P61A save, truncating a looping sample's trailing,
// unreachable audio the same way the header length is truncated
// (original_source/src/player61a.c build_samples).
func sampleByteLength(s *Sample) int {
	if s.Empty() {
		return 0
	}
	length := s.Length
	if s.Looping() {
		length = s.RepeatOffset + s.RepeatLength
	}
	return length * 2
}

// encodeP61ASampleHeader builds one 6-byte P61A sample record, truncating
// a looping sample's length to its loop region and canonicalizing empty
// samples to 00 01 00 00 FF FF (spec.md §8 property 6).
func encodeP61ASampleHeader(s *Sample) []byte {
	var rec [p61aSampleRecordSize]byte
	if s.Empty() {
		binary.BigEndian.PutUint16(rec[0:2], 1)
		rec[2] = 0
		rec[3] = 0
		binary.BigEndian.PutUint16(rec[4:6], 0xFFFF)
		return rec[:]
	}

	volume := s.Volume
	if volume > 64 {
		volume = 64
	}

	if s.Looping() {
		length := s.RepeatOffset + s.RepeatLength
		binary.BigEndian.PutUint16(rec[0:2], uint16(length))
		rec[2] = uint8(s.FineTune) & 0x0F
		rec[3] = uint8(volume)
		binary.BigEndian.PutUint16(rec[4:6], uint16(s.RepeatOffset))
	} else {
		binary.BigEndian.PutUint16(rec[0:2], uint16(s.Length))
		rec[2] = uint8(s.FineTune) & 0x0F
		rec[3] = uint8(volume)
		binary.BigEndian.PutUint16(rec[4:6], 0xFFFF)
	}
	return rec[:]
}

// LoadP61A parses a Player 6.1A module. An optional "P61A" signature is
// detected and skipped automatically.
func LoadP61A(buf *ByteBuffer) (*Module, error) {
	data := buf.Bytes()

	if len(data) >= len(p61aSignature) && string(data[:len(p61aSignature)]) == p61aSignature {
		data = data[len(p61aSignature):]
	}

	if len(data) < p61aHeaderSize {
		return nil, fmt.Errorf("%w: header", ErrShortBuffer)
	}
	sampleOffset := int(binary.BigEndian.Uint16(data[0:2]))
	patternCount := int(data[2])
	sampleCount := int(data[3])
	pos := p61aHeaderSize

	tableSamples := make([]Sample, sampleCount)
	for i := 0; i < sampleCount; i++ {
		if pos+p61aSampleRecordSize > len(data) {
			return nil, fmt.Errorf("%w: sample %d header", ErrShortBuffer, i+1)
		}
		rec := data[pos : pos+p61aSampleRecordSize]
		pos += p61aSampleRecordSize

		length := int(binary.BigEndian.Uint16(rec[0:2]))
		finetone := fineTuneFromNibble(rec[2])
		volume := int(rec[3])
		repeatOffset := int(binary.BigEndian.Uint16(rec[4:6]))

		s := Sample{Length: length, FineTune: finetone, Volume: volume}
		if repeatOffset == 0xFFFF {
			s.RepeatOffset = 0
			s.RepeatLength = 1
		} else {
			s.RepeatOffset = repeatOffset
			if length >= repeatOffset {
				s.RepeatLength = length - repeatOffset
			}
		}
		tableSamples[i] = s
	}

	type offsetRecord [NumChannels]uint16
	patOffsets := make([]offsetRecord, patternCount)
	for i := 0; i < patternCount; i++ {
		if pos+p61aOffsetRecordSize > len(data) {
			return nil, fmt.Errorf("%w: pattern %d offsets", ErrShortBuffer, i)
		}
		rec := data[pos : pos+p61aOffsetRecordSize]
		pos += p61aOffsetRecordSize
		var o offsetRecord
		for ch := 0; ch < NumChannels; ch++ {
			o[ch] = binary.BigEndian.Uint16(rec[ch*2 : ch*2+2])
		}
		patOffsets[i] = o
	}

	var order SongOrder
	terminated := false
	for order.Length < NumPositions {
		if pos >= len(data) {
			return nil, fmt.Errorf("%w: song positions", ErrShortBuffer)
		}
		b := data[pos]
		pos++
		if b == 0xFF {
			terminated = true
			break
		}
		order.Positions[order.Length] = b
		order.Length++
	}
	if !terminated {
		return nil, fmt.Errorf("%w: song positions missing terminator", ErrMalformed)
	}

	tracksStart := pos

	patterns := make([]*Pattern, patternCount)
	for i := 0; i < patternCount; i++ {
		pat := &Pattern{}
		for ch := 0; ch < NumChannels; ch++ {
			if err := DecodeTrack(pat, ch, data[tracksStart:], int(patOffsets[i][ch])); err != nil {
				return nil, fmt.Errorf("%w: pattern %d channel %d: %v", ErrMalformed, i, ch, err)
			}
		}
		patterns[i] = pat
	}

	mod := NewModule()
	mod.Order = order
	mod.Patterns = patterns

	// Sample identity is lost in the dense P61A table; reconstruct MOD
	// slot numbers from the order samples first appear across patterns
	// (spec.md §9, "Sample-count field reuse"), falling back to table
	// order for any sample never actually triggered by a note.
	seen := make([]bool, sampleCount)
	denseToModSlot := make([]uint8, sampleCount)
	nextSlot := uint8(1)
	for _, pat := range patterns {
		for r := range pat.Rows {
			for c := range pat.Rows[r] {
				s := pat.Rows[r][c].Sample
				if s >= 1 && int(s) <= sampleCount && !seen[s-1] {
					seen[s-1] = true
					denseToModSlot[s-1] = nextSlot
					nextSlot++
				}
			}
		}
	}
	for i := 0; i < sampleCount; i++ {
		if !seen[i] {
			denseToModSlot[i] = nextSlot
			nextSlot++
		}
	}

	for i := 0; i < sampleCount && i < NumSamples; i++ {
		slot := denseToModSlot[i]
		if int(slot) <= NumSamples {
			mod.Samples[slot-1] = tableSamples[i]
		}
	}

	for _, pat := range patterns {
		for r := range pat.Rows {
			for c := range pat.Rows[r] {
				ev := &pat.Rows[r][c]
				if ev.Sample >= 1 && int(ev.Sample) <= sampleCount {
					ev.Sample = denseToModSlot[ev.Sample-1]
				} else {
					ev.Sample = 0
				}
			}
		}
	}

	if sampleOffset > 0 && sampleOffset < len(data) {
		samplesBlob := data[sampleOffset:]
		off := 0
		for i := 0; i < sampleCount && i < NumSamples; i++ {
			slot := denseToModSlot[i]
			if int(slot) > NumSamples {
				continue
			}
			s := &mod.Samples[slot-1]
			n := s.Length * 2
			if off+n > len(samplesBlob) {
				n = len(samplesBlob) - off
			}
			if n <= 0 {
				continue
			}
			s.Data = make([]int8, n)
			for j := 0; j < n; j++ {
				s.Data[j] = int8(samplesBlob[off+j])
			}
			off += n
		}
	}

	return mod, nil
}
