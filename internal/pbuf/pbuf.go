// Package pbuf implements the primitive buffer component (§4.1): a
// growable, poolable byte accumulator with typed little-endian append and
// read helpers for every primitive the column container needs to pack
// (int8/16/32/64, float32/64, raw byte ranges, and ASCII decimal text for
// the char/string columns).
//
// Grounded on internal/pool.ByteBuffer's Grow/Extend/SetLength/Reset
// machinery and the typed-append style of encoding/numeric_raw.go's
// NumericRawEncoder, generalized from a single float64 stream to every
// primitive width the column container uses.
package pbuf

import (
	"math"
	"strconv"
	"sync"

	"github.com/colblock/vcol/endian"
	"github.com/colblock/vcol/errs"
)

const (
	defaultSize  = 4 * 1024
	maxPoolWidth = 1 << 20 // 1MiB; buffers larger than this are not returned to the pool
)

// Buffer is a growable byte accumulator with typed little-endian append and
// prefix-read helpers. The zero value is not usable; construct with New or
// obtain one from a Pool.
type Buffer struct {
	b      []byte
	engine endian.EndianEngine
}

// New creates a Buffer with the given default capacity, using engine for all
// typed appends and reads.
func New(engine endian.EndianEngine, defaultCap int) *Buffer {
	if defaultCap <= 0 {
		defaultCap = defaultSize
	}

	return &Buffer{b: make([]byte, 0, defaultCap), engine: engine}
}

// Bytes returns the accumulated bytes.
func (buf *Buffer) Bytes() []byte {
	return buf.b
}

// Len returns the number of accumulated bytes.
func (buf *Buffer) Len() int {
	return len(buf.b)
}

// Reset empties the buffer while retaining its backing array.
func (buf *Buffer) Reset() {
	buf.b = buf.b[:0]
}

// Grow ensures at least n more bytes can be appended without reallocating.
func (buf *Buffer) Grow(n int) {
	available := cap(buf.b) - len(buf.b)
	if available >= n {
		return
	}

	growBy := defaultSize
	if cap(buf.b) > 4*defaultSize {
		growBy = cap(buf.b) / 4
	}

	if growBy < n {
		growBy = n
	}

	nb := make([]byte, len(buf.b), len(buf.b)+growBy)
	copy(nb, buf.b)
	buf.b = nb
}

// AppendBytes appends a raw byte range verbatim.
func (buf *Buffer) AppendBytes(p []byte) {
	buf.Grow(len(p))
	buf.b = append(buf.b, p...)
}

// AppendUint8 appends a single byte.
func (buf *Buffer) AppendUint8(v uint8) {
	buf.Grow(1)
	buf.b = append(buf.b, v)
}

// AppendInt8 appends a signed byte.
func (buf *Buffer) AppendInt8(v int8) {
	buf.AppendUint8(uint8(v))
}

// AppendUint16 appends a little-endian uint16.
func (buf *Buffer) AppendUint16(v uint16) {
	buf.Grow(2)
	buf.b = buf.engine.AppendUint16(buf.b, v)
}

// AppendInt16 appends a little-endian int16.
func (buf *Buffer) AppendInt16(v int16) {
	buf.AppendUint16(uint16(v))
}

// AppendUint32 appends a little-endian uint32.
func (buf *Buffer) AppendUint32(v uint32) {
	buf.Grow(4)
	buf.b = buf.engine.AppendUint32(buf.b, v)
}

// AppendInt32 appends a little-endian int32.
func (buf *Buffer) AppendInt32(v int32) {
	buf.AppendUint32(uint32(v))
}

// AppendUint64 appends a little-endian uint64.
func (buf *Buffer) AppendUint64(v uint64) {
	buf.Grow(8)
	buf.b = buf.engine.AppendUint64(buf.b, v)
}

// AppendInt64 appends a little-endian int64.
func (buf *Buffer) AppendInt64(v int64) {
	buf.AppendUint64(uint64(v))
}

// AppendFloat32 appends a little-endian IEEE-754 float32.
func (buf *Buffer) AppendFloat32(v float32) {
	buf.AppendUint32(math.Float32bits(v))
}

// AppendFloat64 appends a little-endian IEEE-754 float64.
func (buf *Buffer) AppendFloat64(v float64) {
	buf.AppendUint64(math.Float64bits(v))
}

// AppendDecimal appends the base-10 ASCII text of v, the representation used
// for char-typed columns holding numeric text (e.g. quality strings).
func (buf *Buffer) AppendDecimal(v int64) {
	buf.b = strconv.AppendInt(buf.b, v, 10)
}

// Reader walks a byte slice left to right, decoding the same primitives
// Buffer appends, erroring with errs.ErrShortRead instead of panicking on a
// truncated slice.
type Reader struct {
	b      []byte
	off    int
	engine endian.EndianEngine
}

// NewReader creates a Reader over b using engine for typed decodes.
func NewReader(b []byte, engine endian.EndianEngine) *Reader {
	return &Reader{b: b, engine: engine}
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int {
	return len(r.b) - r.off
}

// Offset returns the current read offset.
func (r *Reader) Offset() int {
	return r.off
}

func (r *Reader) take(n int) ([]byte, error) {
	if r.Len() < n {
		return nil, errs.ErrShortRead
	}

	p := r.b[r.off : r.off+n]
	r.off += n

	return p, nil
}

// ReadBytes reads and returns the next n bytes verbatim.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	return r.take(n)
}

// ReadUint8 reads a single byte.
func (r *Reader) ReadUint8() (uint8, error) {
	p, err := r.take(1)
	if err != nil {
		return 0, err
	}

	return p[0], nil
}

// ReadInt8 reads a signed byte.
func (r *Reader) ReadInt8() (int8, error) {
	v, err := r.ReadUint8()
	return int8(v), err
}

// ReadUint16 reads a little-endian uint16.
func (r *Reader) ReadUint16() (uint16, error) {
	p, err := r.take(2)
	if err != nil {
		return 0, err
	}

	return r.engine.Uint16(p), nil
}

// ReadInt16 reads a little-endian int16.
func (r *Reader) ReadInt16() (int16, error) {
	v, err := r.ReadUint16()
	return int16(v), err
}

// ReadUint32 reads a little-endian uint32.
func (r *Reader) ReadUint32() (uint32, error) {
	p, err := r.take(4)
	if err != nil {
		return 0, err
	}

	return r.engine.Uint32(p), nil
}

// ReadInt32 reads a little-endian int32.
func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

// ReadUint64 reads a little-endian uint64.
func (r *Reader) ReadUint64() (uint64, error) {
	p, err := r.take(8)
	if err != nil {
		return 0, err
	}

	return r.engine.Uint64(p), nil
}

// ReadInt64 reads a little-endian int64.
func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

// ReadFloat32 reads a little-endian IEEE-754 float32.
func (r *Reader) ReadFloat32() (float32, error) {
	v, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}

	return math.Float32frombits(v), nil
}

// ReadFloat64 reads a little-endian IEEE-754 float64.
func (r *Reader) ReadFloat64() (float64, error) {
	v, err := r.ReadUint64()
	if err != nil {
		return 0, err
	}

	return math.Float64frombits(v), nil
}

// Pool recycles Buffers to avoid per-block allocation churn, the same role
// a pooled byte-buffer type plays for any high-throughput encoder.
type Pool struct {
	pool   sync.Pool
	engine endian.EndianEngine
}

// NewPool creates a Pool whose Buffers start at defaultCap capacity.
func NewPool(engine endian.EndianEngine, defaultCap int) *Pool {
	p := &Pool{engine: engine}
	p.pool = sync.Pool{
		New: func() any {
			return New(engine, defaultCap)
		},
	}

	return p
}

// Get retrieves a reset Buffer from the pool.
func (p *Pool) Get() *Buffer {
	buf, _ := p.pool.Get().(*Buffer)
	return buf
}

// Put returns a Buffer to the pool. Oversized buffers are discarded rather
// than retained, matching ByteBufferPool's maxThreshold behavior.
func (p *Pool) Put(buf *Buffer) {
	if buf == nil {
		return
	}

	if cap(buf.b) > maxPoolWidth {
		return
	}

	buf.Reset()
	p.pool.Put(buf)
}
