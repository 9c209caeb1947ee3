package vfile

import (
	"github.com/colblock/vcol/checksum"
	"github.com/colblock/vcol/endian"
	"github.com/colblock/vcol/internal/pbuf"
	"github.com/colblock/vcol/record"
)

// EOFSentinelSize is the fixed byte size of the end-of-file sentinel.
const EOFSentinelSize = 32

// eofSentinel is the 32-byte literal written once at end-of-file (§4.8:
// "the eof sentinel is a 32-byte literal that MUST match on read").
var eofSentinel = [EOFSentinelSize]byte{
	'V', 'C', 'O', 'L', '-', 'E', 'N', 'D',
	'-', 'O', 'F', '-', 'F', 'I', 'L', 'E',
	'-', 'S', 'E', 'N', 'T', 'I', 'N', 'E',
	'L', '-', 'v', '1', 0, 0, 0, 0,
}

// IndexEntry is one global-index record: a block's byte offset relative to
// the start of the block stream, and its contig span, letting a reader skip
// directly to blocks overlapping a position range without decoding every
// block header in between. The literal §4.8 byte layout names only the
// magic, global header, block stream, digest table, and footer; the global
// index C8's summary line mentions is placed here, between the block stream
// and the digest table, since nothing else in the layout has room for it.
type IndexEntry struct {
	Offset      uint64
	ContigID    int32
	MinPosition int64
	MaxPosition int64
	NVariants   uint32
}

// Writer accumulates a vcol file one finalized block at a time: the magic
// and global header are fixed at construction, each WriteBlock call appends
// a block's already-serialized bytes and records its index entry and
// per-field digest contribution, and Finish emits the index, digest table,
// and footer.
type Writer struct {
	engine endian.EndianEngine
	header GlobalHeader

	body    []byte // block stream, growing
	index   []IndexEntry
	digests map[record.FieldID]uint64

	nRecords uint64
}

// NewWriter creates a Writer for a file with the given schema.
func NewWriter(engine endian.EndianEngine, header GlobalHeader) *Writer {
	return &Writer{
		engine:  engine,
		header:  header,
		digests: make(map[record.FieldID]uint64),
	}
}

// WriteBlock appends one finalized block's serialized bytes to the file
// stream, records its index entry, and folds fieldDigests (typically
// vblock.Builder.FieldDigests's return value) into the running per-field
// digest table so every block's dynamic-column contribution is covered
// automatically, with no separate FoldFieldDigest call required.
func (w *Writer) WriteBlock(blockBytes []byte, contigID int32, minPosition, maxPosition int64, nVariants uint32, fieldDigests map[record.FieldID]uint64) {
	w.index = append(w.index, IndexEntry{
		Offset: uint64(len(w.body)), ContigID: contigID,
		MinPosition: minPosition, MaxPosition: maxPosition, NVariants: nVariants,
	})

	w.body = append(w.body, blockBytes...)
	w.nRecords += uint64(nVariants)

	for global, fp := range fieldDigests {
		w.FoldFieldDigest(global, fp)
	}
}

// FoldFieldDigest XORs fp into the running per-field digest for global,
// called once per block per field the caller wants covered by the digest
// table (typically each dynamic column's checksum, folded as it's written).
func (w *Writer) FoldFieldDigest(global record.FieldID, fp uint64) {
	w.digests[global] ^= fp
}

// Finish assembles the complete file: magic, global header, block stream,
// global index, per-field digest table, and footer (§4.8).
func (w *Writer) Finish() []byte {
	out := make([]byte, 0, len(w.body)+4096)
	out = append(out, []byte(Magic)...)
	out = append(out, w.header.Serialize(w.engine)...)
	out = append(out, w.body...)

	eodOffset := uint64(len(out))

	out = append(out, w.serializeIndex()...)
	out = append(out, w.serializeDigests()...)

	footer := pbuf.New(w.engine, 64)
	footer.AppendUint64(eodOffset)
	footer.AppendUint64(uint64(len(w.index)))
	footer.AppendUint64(w.nRecords)
	footer.AppendUint16(0) // controller: reserved, no flags defined yet
	footer.AppendBytes(eofSentinel[:])

	out = append(out, footer.Bytes()...)

	return out
}

func (w *Writer) serializeIndex() []byte {
	buf := pbuf.New(w.engine, len(w.index)*28+4)
	buf.AppendUint32(uint32(len(w.index)))

	for _, e := range w.index {
		buf.AppendUint64(e.Offset)
		buf.AppendInt32(e.ContigID)
		buf.AppendInt64(e.MinPosition)
		buf.AppendInt64(e.MaxPosition)
		buf.AppendUint32(e.NVariants)
	}

	return buf.Bytes()
}

func (w *Writer) serializeDigests() []byte {
	buf := pbuf.New(w.engine, len(w.digests)*12+2)
	buf.AppendUint16(uint16(len(w.digests)))

	for id, fp := range w.digests {
		buf.AppendInt32(int32(id))
		buf.AppendUint64(fp)
	}

	return buf.Bytes()
}

// FieldDigest computes the 64-bit fingerprint folded into a field's digest
// entry for one block's contribution, given the field's raw decompressed
// bytes.
func FieldDigest(data []byte) uint64 {
	return checksum.Fingerprint64(data)
}
