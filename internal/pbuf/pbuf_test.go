package pbuf

import (
	"testing"

	"github.com/colblock/vcol/endian"
	"github.com/stretchr/testify/require"
)

func TestBufferRoundTrip(t *testing.T) {
	engine := endian.GetLittleEndianEngine()

	buf := New(engine, 0)
	buf.AppendUint8(7)
	buf.AppendInt8(-7)
	buf.AppendUint16(1234)
	buf.AppendInt16(-1234)
	buf.AppendUint32(123456789)
	buf.AppendInt32(-123456789)
	buf.AppendUint64(1234567890123)
	buf.AppendInt64(-1234567890123)
	buf.AppendFloat32(3.5)
	buf.AppendFloat64(2.71828)
	buf.AppendBytes([]byte("hello"))

	r := NewReader(buf.Bytes(), engine)

	u8, err := r.ReadUint8()
	require.NoError(t, err)
	require.Equal(t, uint8(7), u8)

	i8, err := r.ReadInt8()
	require.NoError(t, err)
	require.Equal(t, int8(-7), i8)

	u16, err := r.ReadUint16()
	require.NoError(t, err)
	require.Equal(t, uint16(1234), u16)

	i16, err := r.ReadInt16()
	require.NoError(t, err)
	require.Equal(t, int16(-1234), i16)

	u32, err := r.ReadUint32()
	require.NoError(t, err)
	require.Equal(t, uint32(123456789), u32)

	i32, err := r.ReadInt32()
	require.NoError(t, err)
	require.Equal(t, int32(-123456789), i32)

	u64, err := r.ReadUint64()
	require.NoError(t, err)
	require.Equal(t, uint64(1234567890123), u64)

	i64, err := r.ReadInt64()
	require.NoError(t, err)
	require.Equal(t, int64(-1234567890123), i64)

	f32, err := r.ReadFloat32()
	require.NoError(t, err)
	require.Equal(t, float32(3.5), f32)

	f64, err := r.ReadFloat64()
	require.NoError(t, err)
	require.Equal(t, 2.71828, f64)

	b, err := r.ReadBytes(5)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), b)

	require.Equal(t, 0, r.Len())
}

func TestReaderShortRead(t *testing.T) {
	engine := endian.GetLittleEndianEngine()
	r := NewReader([]byte{1, 2}, engine)

	_, err := r.ReadUint32()
	require.Error(t, err)
}

func TestBufferReset(t *testing.T) {
	engine := endian.GetLittleEndianEngine()
	buf := New(engine, 0)
	buf.AppendUint32(42)
	require.Equal(t, 4, buf.Len())

	buf.Reset()
	require.Equal(t, 0, buf.Len())
}

func TestPool(t *testing.T) {
	engine := endian.GetLittleEndianEngine()
	p := NewPool(engine, 64)

	buf := p.Get()
	buf.AppendUint32(1)
	require.Equal(t, 4, buf.Len())

	p.Put(buf)

	buf2 := p.Get()
	require.Equal(t, 0, buf2.Len())
}
