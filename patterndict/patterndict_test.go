package patterndict

import (
	"testing"

	"github.com/colblock/vcol/endian"
	"github.com/colblock/vcol/record"
	"github.com/stretchr/testify/require"
)

func TestAddFieldIdempotent(t *testing.T) {
	d := New()

	a, err := d.AddField(10)
	require.NoError(t, err)

	b, err := d.AddField(20)
	require.NoError(t, err)

	again, err := d.AddField(10)
	require.NoError(t, err)

	require.Equal(t, a, again)
	require.NotEqual(t, a, b)
	require.Equal(t, 2, d.NLocalFields())
}

func TestAddPatternDedup(t *testing.T) {
	d := New()

	p1, err := d.AddPattern([]record.FieldID{1, 2})
	require.NoError(t, err)

	p2, err := d.AddPattern([]record.FieldID{1, 2})
	require.NoError(t, err)

	p3, err := d.AddPattern([]record.FieldID{1, 3})
	require.NoError(t, err)

	require.Equal(t, p1, p2)
	require.NotEqual(t, p1, p3)
	require.Equal(t, 2, d.NPatterns())
}

func TestAddPatternOrderSensitive(t *testing.T) {
	d := New()

	p1, err := d.AddPattern([]record.FieldID{1, 2})
	require.NoError(t, err)

	p2, err := d.AddPattern([]record.FieldID{2, 1})
	require.NoError(t, err)

	require.NotEqual(t, p1, p2)
}

func TestFinalizeBitsetLaw(t *testing.T) {
	d := New()

	_, err := d.AddPattern([]record.FieldID{5, 7})
	require.NoError(t, err)

	_, err = d.AddPattern([]record.FieldID{9})
	require.NoError(t, err)

	bitsets := d.Finalize()
	require.Len(t, bitsets, 2)

	local5, _ := d.AddField(5)
	local7, _ := d.AddField(7)
	local9, _ := d.AddField(9)

	require.True(t, HasField(bitsets[0], local5))
	require.True(t, HasField(bitsets[0], local7))
	require.False(t, HasField(bitsets[0], local9))

	require.False(t, HasField(bitsets[1], local5))
	require.True(t, HasField(bitsets[1], local9))
}

func TestDictSerializeRoundTrip(t *testing.T) {
	engine := endian.GetLittleEndianEngine()

	d := New()
	_, err := d.AddPattern([]record.FieldID{3, 4, 5})
	require.NoError(t, err)
	_, err = d.AddPattern([]record.FieldID{3})
	require.NoError(t, err)
	d.Finalize()

	data := d.Serialize(engine)

	parsed, n, err := Deserialize(data, engine)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.Equal(t, d.NLocalFields(), parsed.NLocalFields())
	require.Equal(t, d.NPatterns(), parsed.NPatterns())
	require.Equal(t, d.Bitsets(), parsed.Bitsets())

	for i := 0; i < d.NLocalFields(); i++ {
		require.Equal(t, d.LocalFieldGlobalID(uint16(i)), parsed.LocalFieldGlobalID(uint16(i)))
	}
}

func TestFieldOverflow(t *testing.T) {
	d := New()
	d.localToField = make([]record.FieldID, maxIDs)

	_, err := d.AddField(99999)
	require.Error(t, err)
}
