// Package vfile implements the file framer (C8, §4.8): magic, a global
// header column describing the variant schema and sample names, the block
// stream, a global index over block offsets, a per-field digest table, and
// the end-of-file footer.
//
// Grounded on the top-level encode/decode wrapper shape in vcol.go and on
// a multi-blob-set's sorted, globally addressable sequencing of otherwise
// independent blobs, generalized here from an in-memory set of
// already-built blobs to a single contiguous file stream written block by
// block.
package vfile

import (
	"github.com/colblock/vcol/endian"
	"github.com/colblock/vcol/internal/pbuf"
	"github.com/colblock/vcol/record"
)

// Magic is the fixed 8-byte literal every vcol file begins with.
const Magic = "VCOLFMT1"

// ContigDef names one reference sequence and its length, part of the global
// header's variant schema.
type ContigDef struct {
	Name   string
	Length int64
}

// FieldDef names one INFO/FORMAT/FILTER field by its file-wide global id.
type FieldDef struct {
	ID   record.FieldID
	Name string
}

// GlobalHeader is the file-wide schema written once, immediately after the
// magic (§4.8 "global header column: variant schema, sample names, field
// dictionaries").
type GlobalHeader struct {
	SampleNames  []string
	Contigs      []ContigDef
	InfoFields   []FieldDef
	FormatFields []FieldDef
	FilterFields []FieldDef
}

func appendStrings(buf *pbuf.Buffer, ss []string) {
	buf.AppendUint32(uint32(len(ss)))

	for _, s := range ss {
		b := []byte(s)
		buf.AppendUint32(uint32(len(b)))
		buf.AppendBytes(b)
	}
}

func readStrings(r *pbuf.Reader) ([]string, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}

	out := make([]string, n)

	for i := range out {
		l, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}

		b, err := r.ReadBytes(int(l))
		if err != nil {
			return nil, err
		}

		out[i] = string(b)
	}

	return out, nil
}

func appendFieldDefs(buf *pbuf.Buffer, defs []FieldDef) {
	buf.AppendUint32(uint32(len(defs)))

	for _, d := range defs {
		buf.AppendInt32(int32(d.ID))

		b := []byte(d.Name)
		buf.AppendUint32(uint32(len(b)))
		buf.AppendBytes(b)
	}
}

func readFieldDefs(r *pbuf.Reader) ([]FieldDef, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}

	out := make([]FieldDef, n)

	for i := range out {
		id, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}

		l, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}

		b, err := r.ReadBytes(int(l))
		if err != nil {
			return nil, err
		}

		out[i] = FieldDef{ID: record.FieldID(id), Name: string(b)}
	}

	return out, nil
}

// Serialize writes h using engine's byte order.
func (h GlobalHeader) Serialize(engine endian.EndianEngine) []byte {
	buf := pbuf.New(engine, 512)

	appendStrings(buf, h.SampleNames)

	buf.AppendUint32(uint32(len(h.Contigs)))
	for _, c := range h.Contigs {
		b := []byte(c.Name)
		buf.AppendUint32(uint32(len(b)))
		buf.AppendBytes(b)
		buf.AppendInt64(c.Length)
	}

	appendFieldDefs(buf, h.InfoFields)
	appendFieldDefs(buf, h.FormatFields)
	appendFieldDefs(buf, h.FilterFields)

	return buf.Bytes()
}

// DeserializeGlobalHeader reads a GlobalHeader from the front of data,
// returning it and the number of bytes consumed.
func DeserializeGlobalHeader(data []byte, engine endian.EndianEngine) (GlobalHeader, int, error) {
	r := pbuf.NewReader(data, engine)

	names, err := readStrings(r)
	if err != nil {
		return GlobalHeader{}, 0, err
	}

	nContigs, err := r.ReadUint32()
	if err != nil {
		return GlobalHeader{}, 0, err
	}

	contigs := make([]ContigDef, nContigs)
	for i := range contigs {
		l, err := r.ReadUint32()
		if err != nil {
			return GlobalHeader{}, 0, err
		}

		b, err := r.ReadBytes(int(l))
		if err != nil {
			return GlobalHeader{}, 0, err
		}

		length, err := r.ReadInt64()
		if err != nil {
			return GlobalHeader{}, 0, err
		}

		contigs[i] = ContigDef{Name: string(b), Length: length}
	}

	info, err := readFieldDefs(r)
	if err != nil {
		return GlobalHeader{}, 0, err
	}

	format, err := readFieldDefs(r)
	if err != nil {
		return GlobalHeader{}, 0, err
	}

	filter, err := readFieldDefs(r)
	if err != nil {
		return GlobalHeader{}, 0, err
	}

	h := GlobalHeader{
		SampleNames: names, Contigs: contigs,
		InfoFields: info, FormatFields: format, FilterFields: filter,
	}

	return h, r.Offset(), nil
}
