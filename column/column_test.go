package column

import (
	"testing"

	"github.com/colblock/vcol/compress"
	"github.com/colblock/vcol/endian"
	"github.com/colblock/vcol/format"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T) compress.Codec {
	t.Helper()

	codec, err := compress.GetCodec(format.CompressionNone)
	require.NoError(t, err)

	return codec
}

func TestHeaderRoundTrip(t *testing.T) {
	engine := endian.GetLittleEndianEngine()

	h := Header{
		Controller: newController(format.TypeInt32, format.EncodingNone, format.Signed, false, true),
		Stride:     4,
		Offset:     128,
		CLength:    64,
		ULength:    96,
		CRC:        0xDEADBEEF,
		Extra:      []byte{1, 2, 3},
	}

	data := h.Bytes(engine)

	parsed, n, err := ParseHeader(data, engine)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.Equal(t, h.Controller, parsed.Controller)
	require.Equal(t, h.Stride, parsed.Stride)
	require.Equal(t, h.Offset, parsed.Offset)
	require.Equal(t, h.CLength, parsed.CLength)
	require.Equal(t, h.ULength, parsed.ULength)
	require.Equal(t, h.CRC, parsed.CRC)
	require.Equal(t, h.Extra, parsed.Extra)
}

func TestControllerBits(t *testing.T) {
	c := newController(format.TypeFloat32, format.EncodingBCFDiploid, format.Signed, true, true)

	require.Equal(t, format.TypeFloat32, c.Type())
	require.Equal(t, format.EncodingBCFDiploid, c.Encoding())
	require.Equal(t, format.Signed, c.Signedness())
	require.True(t, c.Uniform())
	require.True(t, c.MixedStride())
}

func TestColumnFixedStrideIntRoundTrip(t *testing.T) {
	engine := endian.GetLittleEndianEngine()
	codec := newTestCodec(t)

	col := New(format.TypeInt32, format.Signed, engine, codec)
	for _, v := range []int64{10, 20, 30, 40} {
		col.Add(v)
		col.AddStride(1)
	}

	require.NoError(t, col.Update())

	var out []byte
	col.Serialize(&out)

	dec, n, err := Deserialize(out, engine, codec)
	require.NoError(t, err)
	require.Equal(t, len(out), n)
	require.Equal(t, []int64{10, 20, 30, 40}, dec.Ints)
}

func TestColumnUniformCollapse(t *testing.T) {
	engine := endian.GetLittleEndianEngine()
	codec := newTestCodec(t)

	col := New(format.TypeInt32, format.Signed, engine, codec)
	for i := 0; i < 5; i++ {
		col.Add(7)
		col.AddStride(1)
	}

	require.NoError(t, col.Update())
	require.True(t, col.header.Controller.Uniform())

	var out []byte
	col.Serialize(&out)

	dec, _, err := Deserialize(out, engine, codec)
	require.NoError(t, err)
	require.Equal(t, []int64{7}, dec.Ints)
}

func TestColumnSentinelRoundTrip(t *testing.T) {
	engine := endian.GetLittleEndianEngine()
	codec := newTestCodec(t)

	col := New(format.TypeInt32, format.Signed, engine, codec)
	vals := []int64{int64(MissingInt32), 5, int64(EOVInt32), -3}
	for _, v := range vals {
		col.Add(v)
		col.AddStride(1)
	}

	require.NoError(t, col.Update())

	var out []byte
	col.Serialize(&out)

	dec, _, err := Deserialize(out, engine, codec)
	require.NoError(t, err)
	require.Equal(t, vals, dec.Ints)
}

func TestColumnIntegerShrink(t *testing.T) {
	engine := endian.GetLittleEndianEngine()
	codec := newTestCodec(t)

	col := New(format.TypeInt32, format.Signed, engine, codec)
	for _, v := range []int64{1, 2, 3, 100} {
		col.Add(v)
		col.AddStride(1)
	}

	require.NoError(t, col.Update())
	require.Equal(t, format.TypeInt8, col.header.Controller.Type())

	var out []byte
	col.Serialize(&out)

	dec, _, err := Deserialize(out, engine, codec)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2, 3, 100}, dec.Ints)
}

func TestColumnMixedStride(t *testing.T) {
	engine := endian.GetLittleEndianEngine()
	codec := newTestCodec(t)

	col := New(format.TypeChar, format.Unsigned, engine, codec)
	col.AddChars([]byte("ab"))
	col.AddStride(2)
	col.AddChars([]byte("cde"))
	col.AddStride(3)

	require.NoError(t, col.Update())
	require.True(t, col.header.Controller.MixedStride())

	var out []byte
	col.Serialize(&out)

	dec, _, err := Deserialize(out, engine, codec)
	require.NoError(t, err)
	require.Equal(t, []byte("abcde"), dec.Chars)
	require.Equal(t, []int32{2, 3}, dec.Stride)
}

func TestColumnFloatRoundTrip(t *testing.T) {
	engine := endian.GetLittleEndianEngine()
	codec := newTestCodec(t)

	col := New(format.TypeFloat32, format.Unsigned, engine, codec)
	for _, v := range []float64{1.5, 2.25, 3.125} {
		col.AddFloat(v)
		col.AddStride(1)
	}

	require.NoError(t, col.Update())

	var out []byte
	col.Serialize(&out)

	dec, _, err := Deserialize(out, engine, codec)
	require.NoError(t, err)
	require.InDeltaSlice(t, []float64{1.5, 2.25, 3.125}, dec.Floats, 1e-9)
}

func TestColumnUpdateIdempotent(t *testing.T) {
	engine := endian.GetLittleEndianEngine()
	codec := newTestCodec(t)

	col := New(format.TypeInt32, format.Signed, engine, codec)
	for _, v := range []int64{1, 2, 3} {
		col.Add(v)
		col.AddStride(1)
	}

	require.NoError(t, col.Update())

	var first []byte
	col.Serialize(&first)

	require.NoError(t, col.Update())

	var second []byte
	col.Serialize(&second)

	require.Equal(t, first, second)
}

func TestSetOffset(t *testing.T) {
	engine := endian.GetLittleEndianEngine()
	codec := newTestCodec(t)

	col := New(format.TypeInt32, format.Signed, engine, codec)
	col.Add(1)
	col.AddStride(1)
	require.NoError(t, col.Update())

	col.SetOffset(99)
	require.Equal(t, uint32(99), col.Header().Offset)
}
