package vfile

import (
	"bytes"

	"github.com/colblock/vcol/compress"
	"github.com/colblock/vcol/endian"
	"github.com/colblock/vcol/errs"
	"github.com/colblock/vcol/internal/pbuf"
	"github.com/colblock/vcol/record"
	"github.com/colblock/vcol/vblock"
)

// footerSize is the fixed byte size of the end-of-file footer (§4.8):
// eod_offset(8) + n_blocks(8) + n_records(8) + controller(2) + sentinel(32).
const footerSize = 8 + 8 + 8 + 2 + EOFSentinelSize

// File is a parsed vcol file: its schema, global index, per-field digest
// table, and the raw bytes needed to decode individual blocks on demand.
type File struct {
	Header   GlobalHeader
	Index    []IndexEntry
	Digests  map[record.FieldID]uint64
	NBlocks  uint64
	NRecords uint64

	data      []byte
	bodyStart int
}

// Open parses a complete vcol file image: magic, global header, footer
// (located from the end), global index, and digest table. It does not
// decode any block; use Block to decode one on demand.
func Open(data []byte, engine endian.EndianEngine) (*File, error) {
	if len(data) < len(Magic)+footerSize {
		return nil, errs.ErrShortRead
	}

	if !bytes.Equal(data[:len(Magic)], []byte(Magic)) {
		return nil, errs.ErrBadMagic
	}

	header, n, err := DeserializeGlobalHeader(data[len(Magic):], engine)
	if err != nil {
		return nil, err
	}

	bodyStart := len(Magic) + n

	tail := data[len(data)-footerSize:]
	fr := pbuf.NewReader(tail, engine)

	eodOffset, err := fr.ReadUint64()
	if err != nil {
		return nil, err
	}

	nBlocks, err := fr.ReadUint64()
	if err != nil {
		return nil, err
	}

	nRecords, err := fr.ReadUint64()
	if err != nil {
		return nil, err
	}

	if _, err := fr.ReadUint16(); err != nil { // controller: reserved
		return nil, err
	}

	sentinel, err := fr.ReadBytes(EOFSentinelSize)
	if err != nil {
		return nil, err
	}

	if !bytes.Equal(sentinel, eofSentinel[:]) {
		return nil, errs.ErrBadEndOfFile
	}

	if int(eodOffset) > len(data)-footerSize {
		return nil, errs.ErrShortRead
	}

	index, indexLen, err := parseIndex(data[eodOffset:], engine)
	if err != nil {
		return nil, err
	}

	digests, err := parseDigests(data[int(eodOffset)+indexLen:], engine)
	if err != nil {
		return nil, err
	}

	return &File{
		Header: header, Index: index, Digests: digests,
		NBlocks: nBlocks, NRecords: nRecords,
		data: data, bodyStart: bodyStart,
	}, nil
}

func parseIndex(data []byte, engine endian.EndianEngine) ([]IndexEntry, int, error) {
	r := pbuf.NewReader(data, engine)

	n, err := r.ReadUint32()
	if err != nil {
		return nil, 0, err
	}

	out := make([]IndexEntry, n)

	for i := range out {
		offset, err := r.ReadUint64()
		if err != nil {
			return nil, 0, err
		}

		contigID, err := r.ReadInt32()
		if err != nil {
			return nil, 0, err
		}

		minPos, err := r.ReadInt64()
		if err != nil {
			return nil, 0, err
		}

		maxPos, err := r.ReadInt64()
		if err != nil {
			return nil, 0, err
		}

		nVariants, err := r.ReadUint32()
		if err != nil {
			return nil, 0, err
		}

		out[i] = IndexEntry{
			Offset: offset, ContigID: contigID,
			MinPosition: minPos, MaxPosition: maxPos, NVariants: nVariants,
		}
	}

	return out, r.Offset(), nil
}

func parseDigests(data []byte, engine endian.EndianEngine) (map[record.FieldID]uint64, error) {
	r := pbuf.NewReader(data, engine)

	n, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}

	out := make(map[record.FieldID]uint64, n)

	for i := 0; i < int(n); i++ {
		id, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}

		fp, err := r.ReadUint64()
		if err != nil {
			return nil, err
		}

		out[record.FieldID(id)] = fp
	}

	return out, nil
}

// Block decodes the i'th block per settings. nSamples must match the file's
// sample count (len(f.Header.SampleNames) is the usual value).
func (f *File) Block(i int, engine endian.EndianEngine, codec compress.Codec, nSamples int, settings vblock.ReadSettings) (vblock.DecodedBlock, error) {
	if i < 0 || i >= len(f.Index) {
		return vblock.DecodedBlock{}, errs.ErrShortRead
	}

	start := f.bodyStart + int(f.Index[i].Offset)
	if start > len(f.data) {
		return vblock.DecodedBlock{}, errs.ErrShortRead
	}

	dec, _, err := vblock.Deserialize(f.data[start:], engine, codec, nSamples, settings)
	return dec, err
}

// NumBlocks returns the number of blocks indexed in the file.
func (f *File) NumBlocks() int {
	return len(f.Index)
}
