package column

import (
	"encoding/binary"
	"math"

	"github.com/colblock/vcol/checksum"
	"github.com/colblock/vcol/compress"
	"github.com/colblock/vcol/format"
)

// Update performs finalize (§4.2) in this order: integer width shrinking
// (signed int32 columns only, skipped for literal columns), uniformity
// detection on the shrunk bytes, stride reformat, then checksumming. Width
// shrinking is not skipped for uniform columns: a uniform column keeps its
// single row at the shrunk width. It is
// idempotent: calling Update again on an already-finalized column with no
// further appends produces byte-identical output.
func (c *Column) Update() error {
	c.n_entries = max(c.n_entries, uint32(len(c.ints))+uint32(len(c.floats))+uint32(len(c.chars)))

	data, width, sign, encoding := c.shrinkOrRaw()

	if uniform, collapsed := c.detectUniform(data, width); uniform {
		c.uniform = true
		data = collapsed
	}

	c.sign = sign

	var strideData []byte
	var strideWidth int
	if c.mixedStride {
		strideData, strideWidth = c.reformatStride()
	}

	cData, uLen, cLen, err := compress.CompressFramed(c.codec, data)
	if err != nil {
		return err
	}

	c.dataOut = cData
	c.fingerprint = checksum.Fingerprint64(data)

	var strideCRC uint32
	var strideCLen, strideULen uint32

	if c.mixedStride {
		cStride, sULen, sCLen, err := compress.CompressFramed(c.codec, strideData)
		if err != nil {
			return err
		}

		c.strideOut = cStride
		strideULen = sULen
		strideCLen = sCLen
		strideCRC = checksum.CRC32(strideData)
	}

	typ := byteWidthToType(width, c.typ)

	c.header = Header{
		Controller: newController(typ, encoding, sign, c.uniform, c.mixedStride),
		Stride:     c.fixedStride,
		CLength:    cLen,
		ULength:    uLen,
		CRC:        checksum.CRC32(data),
	}

	if c.mixedStride {
		c.header.Extra = encodeStrideHeader(strideCLen, strideULen, strideCRC, strideWidth)
	}

	return nil
}

// shrinkOrRaw returns the uncompressed data buffer to checksum/compress,
// along with the byte width and signedness it ultimately uses. Float, char,
// non-int32, unsigned and literal columns are emitted at their declared
// width with no shrinking.
func (c *Column) shrinkOrRaw() (data []byte, width int, sign format.Signedness, enc format.ColumnEncoding) {
	switch {
	case len(c.floats) > 0:
		return encodeFloats(c.floats, c.typ), c.typ.ByteWidth(), format.Unsigned, format.EncodingNone
	case len(c.chars) > 0:
		return encodeChars(c.chars), 1, format.Unsigned, format.EncodingNone
	case c.typ == format.TypeInt32 && c.sign == format.Signed && !c.literal:
		return c.shrinkInts()
	default:
		return encodeInts(c.ints, c.typ.ByteWidth()), c.typ.ByteWidth(), c.sign, format.EncodingNone
	}
}

// shrinkInts implements step 2 of §4.2: scan min/max and sentinel
// presence, pick the narrowest width w in {1,2,4,8} that fits [min,max]
// with room for its own sentinels if sentinels are present, then re-emit
// remapping sentinels to width w's sentinel bit patterns.
func (c *Column) shrinkInts() ([]byte, int, format.Signedness, format.ColumnEncoding) {
	var min, max int64
	hasMissing, hasEOV, hasNegative, seenReal := false, false, false, false

	for _, v := range c.ints {
		switch v {
		case int64(MissingInt32):
			hasMissing = true
			continue
		case int64(EOVInt32):
			hasEOV = true
			continue
		}

		if v < 0 {
			hasNegative = true
		}

		if !seenReal || v < min {
			min = v
		}

		if !seenReal || v > max {
			max = v
		}

		seenReal = true
	}

	hasSentinel := hasMissing || hasEOV
	width := chooseWidth(min, max, hasSentinel)

	out := make([]byte, 0, len(c.ints)*width)
	for _, v := range c.ints {
		switch v {
		case int64(MissingInt32):
			v = MissingSentinel(width)
		case int64(EOVInt32):
			v = EOVSentinel(width)
		}

		out = appendWidth(out, v, width)
	}

	sign := format.Unsigned
	if hasNegative || hasSentinel {
		sign = format.Signed
	}

	return out, width, sign, format.EncodingNone
}

// chooseWidth returns the smallest width in {1,2,4,8} that can represent
// every value in [min,max] while leaving its own sentinel bit patterns
// (MSB-only and MSB|1) free for MISSING/EOV, if sentinels are present.
func chooseWidth(min, max int64, hasSentinel bool) int {
	for _, w := range []int{1, 2, 4, 8} {
		bits := w * 8
		var lo, hi int64
		if hasSentinel {
			// Reserve the two lowest values (MSB only, MSB|1) for the
			// sentinels: usable signed range shrinks by two at the bottom.
			lo = -(int64(1) << uint(bits-1)) + 2
			hi = int64(1)<<uint(bits-1) - 1
		} else {
			lo = -(int64(1) << uint(bits-1))
			hi = int64(1)<<uint(bits-1) - 1
		}

		if min >= lo && max <= hi {
			return w
		}
	}

	return 8
}

func appendWidth(out []byte, v int64, width int) []byte {
	switch width {
	case 1:
		return append(out, byte(v))
	case 2:
		return binary.LittleEndian.AppendUint16(out, uint16(v))
	case 4:
		return binary.LittleEndian.AppendUint32(out, uint32(v))
	default:
		return binary.LittleEndian.AppendUint64(out, uint64(v))
	}
}

func encodeInts(vals []int64, width int) []byte {
	out := make([]byte, 0, len(vals)*width)
	for _, v := range vals {
		out = appendWidth(out, v, width)
	}

	return out
}

func encodeFloats(vals []float64, typ format.ColumnType) []byte {
	if typ == format.TypeFloat32 {
		out := make([]byte, 0, len(vals)*4)
		for _, v := range vals {
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(float32(v)))
		}

		return out
	}

	out := make([]byte, 0, len(vals)*8)
	for _, v := range vals {
		out = binary.LittleEndian.AppendUint64(out, math.Float64bits(v))
	}

	return out
}

func encodeChars(vals [][]byte) []byte {
	var out []byte
	for _, v := range vals {
		out = append(out, v...)
	}

	return out
}

// detectUniform implements step 1 of §4.2: if stride is fixed and positive
// and every logical row's byte range hashes equal, collapse to one row.
func (c *Column) detectUniform(data []byte, width int) (bool, []byte) {
	if c.mixedStride || c.fixedStride <= 0 || len(data) == 0 {
		return false, nil
	}

	rowWidth := int(c.fixedStride) * width
	if rowWidth <= 0 || len(data)%rowWidth != 0 {
		return false, nil
	}

	first := data[:rowWidth]
	fp := checksumFingerprint(first)

	for off := rowWidth; off < len(data); off += rowWidth {
		if checksumFingerprint(data[off:off+rowWidth]) != fp {
			return false, nil
		}
	}

	return true, first
}

func checksumFingerprint(b []byte) uint64 {
	return checksum.Fingerprint64(b)
}

// reformatStride implements step 3 of §4.2: shrink the stride-value width
// to the smallest unsigned width that fits max(strides).
func (c *Column) reformatStride() ([]byte, int) {
	var max int32
	for i, s := range c.strides {
		if i == 0 || s > max {
			max = s
		}
	}

	width := 1
	switch {
	case max > 0xFFFFFF:
		width = 4
	case max > 0xFFFF:
		width = 4
	case max > 0xFF:
		width = 2
	}

	out := make([]byte, 0, len(c.strides)*width)
	for _, s := range c.strides {
		out = appendWidth(out, int64(s), width)
	}

	return out, width
}

// encodeStrideHeader packs the stride sub-header the column header's Extra
// field carries when mixedStride is set. The trailing width byte is not
// named by the core spec; without it a reader has no way to recover the
// shrunk stride width chosen by reformatStride, so it is recorded here and
// read back by parseStrideHeader.
func encodeStrideHeader(cLen, uLen, crc uint32, width int) []byte {
	b := make([]byte, 13)
	binary.LittleEndian.PutUint32(b[0:4], cLen)
	binary.LittleEndian.PutUint32(b[4:8], uLen)
	binary.LittleEndian.PutUint32(b[8:12], crc)
	b[12] = byte(width)

	return b
}

// byteWidthToType maps a shrunk byte width back to a ColumnType, preserving
// float/char types untouched (only int32 columns are ever shrunk).
func byteWidthToType(width int, original format.ColumnType) format.ColumnType {
	if original == format.TypeFloat32 || original == format.TypeFloat64 || original == format.TypeChar {
		return original
	}

	switch width {
	case 1:
		return format.TypeInt8
	case 2:
		return format.TypeInt16
	case 4:
		return format.TypeInt32
	default:
		return format.TypeInt64
	}
}
