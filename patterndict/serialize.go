package patterndict

import (
	"github.com/colblock/vcol/endian"
	"github.com/colblock/vcol/internal/pbuf"
	"github.com/colblock/vcol/record"
)

// Serialize writes the dictionary's local field table as `n_fields: u16`
// followed by n_fields * 4-byte global ids, then its bitset table as
// `n_patterns: u16, bitset_width: u16` followed by n_patterns * bitset_width
// bytes (the field table is §4.3's per-local-field header, reduced here
// to just the global id; the column offset half lives in the block footer's
// column header table instead of being duplicated here).
func (d *Dict) Serialize(engine endian.EndianEngine) []byte {
	buf := pbuf.New(engine, 64)

	buf.AppendUint16(uint16(len(d.localToField)))
	for _, g := range d.localToField {
		buf.AppendInt32(int32(g))
	}

	width := (d.NLocalFields() + 7) / 8
	buf.AppendUint16(uint16(len(d.bitsets)))
	buf.AppendUint16(uint16(width))

	for _, bs := range d.bitsets {
		buf.AppendBytes(bs)
	}

	return buf.Bytes()
}

// Deserialize reads a Dict previously written by Serialize, returning it
// and the number of bytes consumed.
func Deserialize(data []byte, engine endian.EndianEngine) (*Dict, int, error) {
	r := pbuf.NewReader(data, engine)

	nFields, err := r.ReadUint16()
	if err != nil {
		return nil, 0, err
	}

	d := New()

	for i := 0; i < int(nFields); i++ {
		g, err := r.ReadInt32()
		if err != nil {
			return nil, 0, err
		}

		if _, err := d.AddField(record.FieldID(g)); err != nil {
			return nil, 0, err
		}
	}

	nPatterns, err := r.ReadUint16()
	if err != nil {
		return nil, 0, err
	}

	width, err := r.ReadUint16()
	if err != nil {
		return nil, 0, err
	}

	d.bitsets = make([][]byte, nPatterns)

	for i := 0; i < int(nPatterns); i++ {
		bs, err := r.ReadBytes(int(width))
		if err != nil {
			return nil, 0, err
		}

		d.bitsets[i] = append([]byte(nil), bs...)
	}

	return d, r.Offset(), nil
}
