package modpack

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"strings"
)

const (
	modSongNameLen    = 20
	modSampleNameLen  = 22
	modSampleHeaderSz = 30
	modPatternSize    = NumChannels * 4 * RowsPerPattern
)

// modMagics maps the 4-channel MOD signatures this codec recognizes to
// their channel count. Every value here is NumChannels (4) -- the core
// only supports 4-channel modules, per spec.md §4.4.
var modMagics = map[string]int{
	"M.K.": NumChannels,
	"M!K!": NumChannels,
	"FLT4": NumChannels,
	"4CHN": NumChannels,
}

// LoadProTracker parses a ProTracker MOD file.
func LoadProTracker(buf *ByteBuffer, logger *log.Logger) (*Module, error) {
	if logger == nil {
		logger = discardLogger
	}

	r := bytes.NewReader(buf.Bytes())

	name := make([]byte, modSongNameLen)
	if _, err := io.ReadFull(r, name); err != nil {
		return nil, fmt.Errorf("%w: song name: %v", ErrShortBuffer, err)
	}

	mod := NewModule()
	mod.SongName = strings.TrimRight(string(name), "\x00")

	for i := 0; i < NumSamples; i++ {
		s, err := readMODSampleHeader(r)
		if err != nil {
			return nil, fmt.Errorf("%w: sample %d header: %v", ErrShortBuffer, i+1, err)
		}
		normalizeSampleHeader(s, logger, fmt.Sprintf("#%d", i+1))
		mod.Samples[i] = *s
	}

	var order struct {
		Length  uint8
		Restart uint8
		Data    [NumPositions]uint8
	}
	if err := binary.Read(r, binary.BigEndian, &order); err != nil {
		return nil, fmt.Errorf("%w: song order: %v", ErrShortBuffer, err)
	}
	mod.Order.Length = int(order.Length)
	mod.Order.Restart = order.Restart
	mod.Order.Positions = order.Data

	magic := make([]byte, 4)
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("%w: magic: %v", ErrShortBuffer, err)
	}
	if _, ok := modMagics[string(magic)]; !ok {
		return nil, fmt.Errorf("%w: magic %q", ErrUnsupportedFormat, magic)
	}

	numPatterns := 0
	for _, p := range order.Data {
		if int(p) >= numPatterns {
			numPatterns = int(p) + 1
		}
	}

	mod.Patterns = make([]*Pattern, numPatterns)
	scratch := make([]byte, modPatternSize)
	for i := 0; i < numPatterns; i++ {
		if _, err := io.ReadFull(r, scratch); err != nil {
			return nil, fmt.Errorf("%w: pattern %d: %v", ErrShortBuffer, i, err)
		}
		pat := &Pattern{}
		for row := 0; row < RowsPerPattern; row++ {
			for ch := 0; ch < NumChannels; ch++ {
				off := (row*NumChannels + ch) * 4
				pat.Rows[row][ch] = decodeChannelEvent(scratch[off : off+4])
			}
		}
		mod.Patterns[i] = pat
	}

	for i := range mod.Samples {
		s := &mod.Samples[i]
		byteLen := s.Length * 2
		if byteLen == 0 {
			continue
		}
		data := make([]byte, byteLen)
		n, err := io.ReadFull(r, data)
		if err != nil && n == 0 {
			return nil, fmt.Errorf("%w: sample %d data: %v", ErrShortBuffer, i+1, err)
		}
		// Some MOD files hold less sample data than the header length
		// states; a sample cut short keeps the bytes that are present and
		// its length shrinks to match. Only a sample with no bytes left at
		// all fails the load.
		s.Data = make([]int8, n)
		for j := 0; j < n; j++ {
			s.Data[j] = int8(data[j])
		}
		if n < byteLen {
			s.Length = n / 2
		}
	}

	return mod, nil
}

func readMODSampleHeader(r io.Reader) (*Sample, error) {
	var raw struct {
		Name         [modSampleNameLen]byte
		Length       uint16
		FineTune     uint8
		Volume       uint8
		RepeatOffset uint16
		RepeatLength uint16
	}
	if err := binary.Read(r, binary.BigEndian, &raw); err != nil {
		return nil, err
	}
	return &Sample{
		Name:         strings.TrimRight(string(raw.Name[:]), "\x00"),
		Length:       int(raw.Length),
		FineTune:     fineTuneFromNibble(raw.FineTune),
		Volume:       int(raw.Volume),
		RepeatOffset: int(raw.RepeatOffset),
		RepeatLength: int(raw.RepeatLength),
	}, nil
}

// fineTuneFromNibble decodes the signed 4-bit finetune value stored in the
// low nibble of the wire byte (values 8..15 are negative).
func fineTuneFromNibble(b uint8) int8 {
	n := b & 0x0F
	if n >= 8 {
		return int8(n) - 16
	}
	return int8(n)
}

func fineTuneToNibble(v int8) uint8 {
	return uint8(v) & 0x0F
}

// normalizeSampleHeader enforces the Module-level sample invariants from
// spec.md §3: volume is clamped to 64, and a loop that would read past the
// sample's own length is shrunk to fit. Both are warnings, never load
// failures.
func normalizeSampleHeader(s *Sample, logger *log.Logger, label string) {
	if s.Volume > 64 {
		logger.Printf("sample %s: volume %d clamped to 64", label, s.Volume)
		s.Volume = 64
	}
	if s.Looping() && s.RepeatOffset+s.RepeatLength > s.Length {
		truncated := s.Length - s.RepeatOffset
		if truncated < 0 {
			truncated = 0
		}
		logger.Printf("sample %s: loop truncated (repeat_length %d -> %d)", label, s.RepeatLength, truncated)
		s.RepeatLength = truncated
	}
}

// SaveProTracker writes the module as a ProTracker MOD file, appending the
// result to buf. The magic written is always "M.K.", and unused sample
// slots are skipped when writing payloads, per spec.md §4.4.
func SaveProTracker(buf *ByteBuffer, mod *Module) error {
	var name [modSongNameLen]byte
	copy(name[:], mod.SongName)
	buf.Append(name[:])

	for i := range mod.Samples {
		s := &mod.Samples[i]
		var raw struct {
			Name         [modSampleNameLen]byte
			Length       uint16
			FineTune     uint8
			Volume       uint8
			RepeatOffset uint16
			RepeatLength uint16
		}
		copy(raw.Name[:], s.Name)
		raw.Length = uint16(s.Length)
		raw.FineTune = fineTuneToNibble(s.FineTune)
		raw.Volume = uint8(s.Volume)
		raw.RepeatOffset = uint16(s.RepeatOffset)
		raw.RepeatLength = uint16(s.RepeatLength)

		var b bytes.Buffer
		if err := binary.Write(&b, binary.BigEndian, &raw); err != nil {
			return err
		}
		buf.Append(b.Bytes())
	}

	buf.AppendByte(uint8(mod.Order.Length))
	buf.AppendByte(mod.Order.Restart)
	buf.Append(mod.Order.Positions[:])

	buf.Append([]byte("M.K."))

	scratch := make([]byte, modPatternSize)
	for _, pat := range mod.Patterns {
		for row := 0; row < RowsPerPattern; row++ {
			for ch := 0; ch < NumChannels; ch++ {
				off := (row*NumChannels + ch) * 4
				enc := pat.Rows[row][ch].encode()
				copy(scratch[off:off+4], enc[:])
			}
		}
		buf.Append(scratch)
	}

	for i := range mod.Samples {
		s := &mod.Samples[i]
		if s.Empty() {
			continue
		}
		raw := make([]byte, len(s.Data))
		for j, v := range s.Data {
			raw[j] = byte(v)
		}
		buf.Append(raw)
	}

	return nil
}

var discardLogger = log.New(io.Discard, "", 0)
