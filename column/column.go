// Package column implements the column container (C2, §4.2): one logical
// column of a variant block is a data buffer, an optional stride buffer,
// and a header carrying type/signedness/stride/encoding/checksum metadata.
// Update performs the finalize sequence required before serialization:
// uniformity detection, integer width shrinking with sentinel remapping,
// stride reformat, then checksumming.
//
// Grounded on section's NumericHeader/NumericFlag packed-bit-field layout
// and Parse/Bytes symmetry, generalized from a fixed metric-blob schema to
// the column container's own controller bits (§6): `{type:5, encoding:5,
// signedness:1, uniform:1, mixedStride:1, reserved:3}`.
package column

import (
	"github.com/colblock/vcol/compress"
	"github.com/colblock/vcol/endian"
	"github.com/colblock/vcol/errs"
	"github.com/colblock/vcol/format"
	"github.com/colblock/vcol/internal/pbuf"
)

// HeaderSize is the fixed byte size of one column header: controller(2) +
// stride(4) + offset(4) + cLength(4) + uLength(4) + crc(4) + n_extra(2).
const HeaderSize = 2 + 4 + 4 + 4 + 4 + 4 + 2

// strideUnset marks a column whose stride has not yet been observed.
const strideUnset = 0

// Controller packs a column's type/encoding/signedness/uniform/mixedStride
// bits into the 16-bit field recorded in the header (§6).
type Controller uint16

const (
	controllerTypeMask        = 0x1F
	controllerEncodingShift   = 5
	controllerEncodingMask    = 0x1F << controllerEncodingShift
	controllerSignednessShift = 10
	controllerSignednessBit   = 1 << controllerSignednessShift
	controllerUniformBit      = 1 << 11
	controllerMixedStrideBit  = 1 << 12
)

// Type returns the column's declared element type.
func (c Controller) Type() format.ColumnType {
	return format.ColumnType(c & controllerTypeMask)
}

// Encoding returns the column's byte-level encoding.
func (c Controller) Encoding() format.ColumnEncoding {
	return format.ColumnEncoding((c & controllerEncodingMask) >> controllerEncodingShift)
}

// Signedness returns the column's signedness.
func (c Controller) Signedness() format.Signedness {
	if c&controllerSignednessBit != 0 {
		return format.Signed
	}

	return format.Unsigned
}

// Uniform reports whether the column collapsed to a single repeated value.
func (c Controller) Uniform() bool {
	return c&controllerUniformBit != 0
}

// MixedStride reports whether the column carries a per-row stride buffer.
func (c Controller) MixedStride() bool {
	return c&controllerMixedStrideBit != 0
}

func newController(typ format.ColumnType, enc format.ColumnEncoding, sign format.Signedness, uniform, mixedStride bool) Controller {
	c := Controller(typ) | Controller(enc)<<controllerEncodingShift
	if sign == format.Signed {
		c |= controllerSignednessBit
	}

	if uniform {
		c |= controllerUniformBit
	}

	if mixedStride {
		c |= controllerMixedStrideBit
	}

	return c
}

// Header is the on-disk representation of one column's metadata (§4.2):
// `(controller:2)(stride:int32)(offset:u32)(cLength:u32)(uLength:u32)(crc:u32)(n_extra:u16)(extra)`.
// When MixedStride is set, Extra carries the stride sub-header (the stride
// buffer's cLength, uLength, crc and value width), and the compressed stride
// buffer follows the column's data buffer.
type Header struct {
	Controller Controller
	Stride     int32 // fixed stride; when MixedStride, the first row's stride
	Offset     uint32
	CLength    uint32
	ULength    uint32
	CRC        uint32
	Extra      []byte
}

// Bytes serializes h using engine's byte order.
func (h Header) Bytes(engine endian.EndianEngine) []byte {
	buf := pbuf.New(engine, HeaderSize+len(h.Extra))
	buf.AppendUint16(uint16(h.Controller))
	buf.AppendInt32(h.Stride)
	buf.AppendUint32(h.Offset)
	buf.AppendUint32(h.CLength)
	buf.AppendUint32(h.ULength)
	buf.AppendUint32(h.CRC)
	buf.AppendUint16(uint16(len(h.Extra)))
	buf.AppendBytes(h.Extra)

	return buf.Bytes()
}

// ParseHeader reads a Header from the front of data, returning the number
// of bytes consumed.
func ParseHeader(data []byte, engine endian.EndianEngine) (Header, int, error) {
	r := pbuf.NewReader(data, engine)

	ctrl, err := r.ReadUint16()
	if err != nil {
		return Header{}, 0, errs.ErrInvalidHeaderSize
	}

	stride, err := r.ReadInt32()
	if err != nil {
		return Header{}, 0, errs.ErrInvalidHeaderSize
	}

	offset, err := r.ReadUint32()
	if err != nil {
		return Header{}, 0, errs.ErrInvalidHeaderSize
	}

	cLen, err := r.ReadUint32()
	if err != nil {
		return Header{}, 0, errs.ErrInvalidHeaderSize
	}

	uLen, err := r.ReadUint32()
	if err != nil {
		return Header{}, 0, errs.ErrInvalidHeaderSize
	}

	crc, err := r.ReadUint32()
	if err != nil {
		return Header{}, 0, errs.ErrInvalidHeaderSize
	}

	nExtra, err := r.ReadUint16()
	if err != nil {
		return Header{}, 0, errs.ErrInvalidHeaderSize
	}

	extra, err := r.ReadBytes(int(nExtra))
	if err != nil {
		return Header{}, 0, errs.ErrInvalidHeaderSize
	}

	h := Header{
		Controller: Controller(ctrl),
		Stride:     stride,
		Offset:     offset,
		CLength:    cLen,
		ULength:    uLen,
		CRC:        crc,
		Extra:      append([]byte(nil), extra...),
	}

	return h, r.Offset(), nil
}

// Signed integer sentinels (§3): preserved across width shrinking by
// remapping to the narrower width's own sentinel bit pattern.
const (
	sentinelMissingSuffix = 0 // MISSING = MSB only
	sentinelEOVSuffix     = 1 // END_OF_VECTOR = MSB | 1
)

// MissingInt32 is the int32 MISSING sentinel: MSB only.
const MissingInt32 int32 = -1 << 31

// EOVInt32 is the int32 END_OF_VECTOR sentinel: MSB | 1.
const EOVInt32 int32 = -1<<31 | 1

// MissingSentinel returns the MISSING sentinel for an integer of the given
// byte width (1, 2, 4, or 8).
func MissingSentinel(width int) int64 {
	return int64(1) << uint(width*8-1)
}

// EOVSentinel returns the END_OF_VECTOR sentinel for an integer of the
// given byte width.
func EOVSentinel(width int) int64 {
	return MissingSentinel(width) | 1
}

// Column accumulates one logical column's values before finalization.
// Add/AddLiteral/AddStride/Advance populate it; Update performs the
// finalize sequence; Serialize emits header+data(+stride).
type Column struct {
	typ    format.ColumnType
	sign   format.Signedness
	engine endian.EndianEngine
	codec  compress.Codec

	// values holds logical rows before finalize; int32-typed columns are
	// tracked here as int64 to give shrinking room to see sentinel values
	// at full width regardless of the caller's promoted width.
	ints   []int64
	floats []float64
	chars  [][]byte

	strides     []int32 // per-row stride when mixed, nil when fixed/uniform
	fixedStride int32   // stride shared by every row, 0 if not yet observed

	literal bool // AddLiteral was used: skip width promotion entirely

	n_entries   uint32
	n_additions uint32

	uniform     bool
	mixedStride bool
	header      Header
	dataOut     []byte
	strideOut   []byte

	// fingerprint is a content hash of the finalized, uncompressed data
	// buffer, set by Update. Dynamic (info/format) columns surface it to
	// the file-level per-field digest table.
	fingerprint uint64
}

// Fingerprint returns the column's finalized data fingerprint, valid after
// Update. Used by the block builder to fold dynamic-field contributions
// into the file's per-field digest table.
func (c *Column) Fingerprint() uint64 {
	return c.fingerprint
}

// New creates an empty Column of the given declared type and signedness,
// using codec to compress its finalized buffers.
func New(typ format.ColumnType, sign format.Signedness, engine endian.EndianEngine, codec compress.Codec) *Column {
	return &Column{typ: typ, sign: sign, engine: engine, codec: codec}
}

// Add appends value (as int64, regardless of the column's declared width)
// subject to later width promotion during Update.
func (c *Column) Add(value int64) {
	c.ints = append(c.ints, value)
	c.n_additions++
}

// AddLiteral appends value without participating in integer width
// shrinking; used for columns whose width must not change (e.g. already
// narrow flag columns).
func (c *Column) AddLiteral(value int64) {
	c.literal = true
	c.Add(value)
}

// AddFloat appends a floating-point value.
func (c *Column) AddFloat(value float64) {
	c.floats = append(c.floats, value)
	c.n_additions++
}

// AddChars appends a byte-range value for a char-typed column.
func (c *Column) AddChars(value []byte) {
	c.chars = append(c.chars, value)
	c.n_additions++
}

// AddStride records the stride (value count) of the row just appended. A
// column that sees more than one distinct stride value becomes mixed.
func (c *Column) AddStride(stride int32) {
	if c.fixedStride == strideUnset {
		c.fixedStride = stride
	} else if c.fixedStride != stride {
		c.mixedStride = true
	}

	c.strides = append(c.strides, stride)
}

// Advance increments the logical row count without appending a value,
// used when a row is a repeat of a uniform value.
func (c *Column) Advance() {
	c.n_entries++
}

// NEntries returns the number of logical rows recorded so far.
func (c *Column) NEntries() uint32 {
	return c.n_entries
}

// SetOffset records the column's byte offset relative to the first byte
// after the block header, assigned by the block builder once every column
// has been finalized (§4.6 "Assign each column a byte offset").
func (c *Column) SetOffset(offset uint32) {
	c.header.Offset = offset
}
