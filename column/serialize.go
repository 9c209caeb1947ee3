package column

import (
	"math"

	"github.com/colblock/vcol/checksum"
	"github.com/colblock/vcol/compress"
	"github.com/colblock/vcol/endian"
	"github.com/colblock/vcol/errs"
	"github.com/colblock/vcol/format"
)

// Serialize appends the column's header (whose Extra carries the stride
// sub-header when mixed-stride) followed by its compressed data buffer (and,
// if mixed-stride, the compressed stride buffer) to w. Offset in the header
// must already be set by
// the caller (the block builder assigns offsets after every column has
// been finalized).
func (c *Column) Serialize(w *[]byte) {
	*w = append(*w, c.header.Bytes(c.engineOrDefault())...)
	*w = append(*w, c.dataOut...)

	if c.header.Controller.MixedStride() {
		*w = append(*w, c.strideOut...)
	}
}

func (c *Column) engineOrDefault() endian.EndianEngine {
	if c.engine == nil {
		return endian.GetLittleEndianEngine()
	}

	return c.engine
}

// Header returns the finalized header. Valid only after Update.
func (c *Column) Header() Header {
	return c.header
}

// Decoded is a finalized column read back from storage: the header plus
// the decompressed, width-restored, sentinel-restored values.
type Decoded struct {
	Header Header
	Ints   []int64
	Floats []float64
	Chars  []byte
	Stride []int32
}

// Deserialize reads one column (header, data, optional stride) from the
// front of data using engine, verifying checksums, and returns the decoded
// column plus the number of bytes consumed.
func Deserialize(data []byte, engine endian.EndianEngine, codec compress.Codec) (Decoded, int, error) {
	hdr, n, err := ParseHeader(data, engine)
	if err != nil {
		return Decoded{}, 0, err
	}

	total := n

	cBuf := data[n : n+int(hdr.CLength)]
	total += int(hdr.CLength)

	raw, err := compress.DecompressFramed(codec, cBuf, hdr.ULength)
	if err != nil {
		return Decoded{}, 0, err
	}

	if checksum.CRC32(raw) != hdr.CRC {
		return Decoded{}, 0, errs.Wrap(errs.KindIntegrity, 0, 0, int64(n), errs.ErrChecksumMismatch)
	}

	dec := Decoded{Header: hdr}

	var strideLen []int32
	if hdr.Controller.MixedStride() {
		sHdr, strideWidth, err := parseStrideHeader(hdr.Extra)
		if err != nil {
			return Decoded{}, 0, err
		}

		sBuf := data[total : total+int(sHdr.cLen)]
		total += int(sHdr.cLen)

		sRaw, err := compress.DecompressFramed(codec, sBuf, sHdr.uLen)
		if err != nil {
			return Decoded{}, 0, err
		}

		if checksum.CRC32(sRaw) != sHdr.crc {
			return Decoded{}, 0, errs.Wrap(errs.KindIntegrity, 0, 0, int64(total), errs.ErrChecksumMismatch)
		}

		strideLen = decodeStrideValues(sRaw, strideWidth)
		dec.Stride = strideLen
	}

	actualTyp := hdr.Controller.Type()
	width := actualTyp.ByteWidth()

	switch {
	case actualTyp == format.TypeFloat32 || actualTyp == format.TypeFloat64:
		dec.Floats = decodeFloatValues(raw, actualTyp)
	case actualTyp == format.TypeChar:
		dec.Chars = raw
	default:
		dec.Ints = decodeIntValues(raw, width, hdr.Controller.Signedness())

		// Map a shrunk width's own sentinel bit patterns back to the int32
		// sentinels (at width 4 they already coincide).
		if hdr.Controller.Signedness() == format.Signed && width < 4 {
			missing := -MissingSentinel(width)
			for i, v := range dec.Ints {
				switch v {
				case missing:
					dec.Ints[i] = int64(MissingInt32)
				case missing + 1:
					dec.Ints[i] = int64(EOVInt32)
				}
			}
		}
	}

	if hdr.Controller.Uniform() {
		dec.Header.Stride = hdr.Stride
	}

	return dec, total, nil
}

type strideSubHeader struct {
	cLen, uLen, crc uint32
}

func parseStrideHeader(extra []byte) (strideSubHeader, int, error) {
	if len(extra) < 13 {
		return strideSubHeader{}, 0, errs.ErrInvalidHeaderSize
	}

	engine := endian.GetLittleEndianEngine()
	h := strideSubHeader{
		cLen: engine.Uint32(extra[0:4]),
		uLen: engine.Uint32(extra[4:8]),
		crc:  engine.Uint32(extra[8:12]),
	}

	return h, int(extra[12]), nil
}

func decodeStrideValues(raw []byte, width int) []int32 {
	engine := endian.GetLittleEndianEngine()
	n := len(raw) / width
	out := make([]int32, 0, n)

	for i := 0; i < n; i++ {
		off := i * width
		switch width {
		case 1:
			out = append(out, int32(raw[off]))
		case 2:
			out = append(out, int32(engine.Uint16(raw[off:off+2])))
		default:
			out = append(out, int32(engine.Uint32(raw[off:off+4])))
		}
	}

	return out
}

func decodeIntValues(raw []byte, width int, sign format.Signedness) []int64 {
	engine := endian.GetLittleEndianEngine()
	n := len(raw) / width
	out := make([]int64, 0, n)

	for i := 0; i < n; i++ {
		off := i * width

		var v int64
		switch width {
		case 1:
			if sign == format.Signed {
				v = int64(int8(raw[off]))
			} else {
				v = int64(raw[off])
			}
		case 2:
			if sign == format.Signed {
				v = int64(int16(engine.Uint16(raw[off : off+2])))
			} else {
				v = int64(engine.Uint16(raw[off : off+2]))
			}
		case 4:
			if sign == format.Signed {
				v = int64(int32(engine.Uint32(raw[off : off+4])))
			} else {
				v = int64(engine.Uint32(raw[off : off+4]))
			}
		default:
			if sign == format.Signed {
				v = int64(engine.Uint64(raw[off : off+8]))
			} else {
				v = int64(engine.Uint64(raw[off : off+8]))
			}
		}

		out = append(out, v)
	}

	return out
}

func decodeFloatValues(raw []byte, typ format.ColumnType) []float64 {
	engine := endian.GetLittleEndianEngine()

	if typ == format.TypeFloat32 {
		n := len(raw) / 4
		out := make([]float64, 0, n)

		for i := 0; i < n; i++ {
			bits := engine.Uint32(raw[i*4 : i*4+4])
			out = append(out, float64(math.Float32frombits(bits)))
		}

		return out
	}

	n := len(raw) / 8
	out := make([]float64, 0, n)

	for i := 0; i < n; i++ {
		bits := engine.Uint64(raw[i*8 : i*8+8])
		out = append(out, math.Float64frombits(bits))
	}

	return out
}
