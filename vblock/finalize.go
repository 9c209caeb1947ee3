package vblock

import (
	"github.com/colblock/vcol/column"
	"github.com/colblock/vcol/endian"
	"github.com/colblock/vcol/errs"
	"github.com/colblock/vcol/internal/pbuf"
	"github.com/colblock/vcol/record"
)

// fixedColumns returns the 20 fixed columns in the write order §4.7 fixes
// (permutation column is handled separately, ahead of these).
func (b *Builder) fixedColumns() []*column.Column {
	return []*column.Column{
		b.contig, b.position, b.controller, b.refAlt, b.alleles, b.allelesLen,
		b.quality, b.name, b.infoPattern, b.formatPat, b.filterPat,
		b.gtRLE8, b.gtRLE16, b.gtRLE32, b.gtRLE64,
		b.gtSimple8, b.gtSimple16, b.gtSimple32, b.gtSimple64,
		b.gtSupport,
	}
}

// Finalize performs block finalize (§4.6 "Block finalize"): runs update()
// on every column, seals the pattern dictionaries, and leaves the builder
// ready for Serialize. A finalized builder rejects further Add calls.
func (b *Builder) Finalize() error {
	if b.finalized {
		return nil
	}

	if b.nVariants == 0 {
		return errs.ErrNoRecordsAdded
	}

	for _, col := range b.fixedColumns() {
		if err := col.Update(); err != nil {
			return err
		}
	}

	for _, col := range b.infoColumns {
		if err := col.Update(); err != nil {
			return err
		}
	}

	for _, col := range b.formatColumns {
		if err := col.Update(); err != nil {
			return err
		}
	}

	b.infoDict.Finalize()
	b.formatDict.Finalize()
	b.filterDict.Finalize()

	b.finalized = true

	return nil
}

// FieldDigests returns a per-field content fingerprint for every dynamic
// info/format column, keyed by file-wide global field id, valid after
// Finalize. The file writer folds these into its whole-file digest table
// (§4.8) so a reader can spot a corrupted field's column across every
// block it appears in without re-decoding record data.
func (b *Builder) FieldDigests() map[record.FieldID]uint64 {
	digests := make(map[record.FieldID]uint64, len(b.infoColumns)+len(b.formatColumns))

	for local, col := range b.infoColumns {
		global := b.infoDict.LocalFieldGlobalID(uint16(local))
		digests[global] = col.Fingerprint()
	}

	for local, col := range b.formatColumns {
		global := b.formatDict.LocalFieldGlobalID(uint16(local))
		digests[global] = col.Fingerprint()
	}

	return digests
}

// blockHeaderSize is the fixed byte size of the block header (§4.7 point 1):
// block_id(8) + contigID(4) + minPosition(8) + maxPosition(8) +
// n_variants(4) + controller(2) + l_offset_footer(4).
const blockHeaderSize = 8 + 4 + 8 + 8 + 4 + 2 + 4

// blockCtrlHasGT marks that the block carries any genotyped record;
// blockCtrlHasGTPermuted marks that a permutation column precedes the
// fixed columns.
const (
	blockCtrlHasGT uint16 = 1 << iota
	blockCtrlHasGTPermuted
)

// Serialize writes the finalized block (header, optional permutation
// column, 20 fixed columns, dynamic columns, footer, back-offset, sentinel)
// to a freshly allocated byte slice (§4.7).
func (b *Builder) Serialize() ([]byte, error) {
	if !b.finalized {
		return nil, errs.ErrBlockNotFinalized
	}

	var ctrl uint16

	hasGT := b.gtSupport.NEntries() > 0
	hasPermuted := hasGT && b.opts.permute && b.n > 1

	if hasGT {
		ctrl |= blockCtrlHasGT
	}

	if hasPermuted {
		ctrl |= blockCtrlHasGTPermuted
	}

	out := make([]byte, 0, 4096)

	header := pbuf.New(b.engine, blockHeaderSize)
	header.AppendUint64(b.blockID)
	header.AppendInt32(b.contigID)
	header.AppendInt64(b.minPosition)
	header.AppendInt64(b.maxPosition)
	header.AppendUint32(b.nVariants)
	header.AppendUint16(ctrl)
	header.AppendUint32(0) // l_offset_footer, patched below

	out = append(out, header.Bytes()...)

	bodyStart := len(out)

	if hasPermuted {
		out = appendPermutationColumn(out, b.perm.P(), b.engine)
	}

	allCols := append(append([]*column.Column{}, b.fixedColumns()...), b.infoColumns...)
	allCols = append(allCols, b.formatColumns...)

	for _, col := range allCols {
		col.SetOffset(uint32(len(out) - bodyStart))
		col.Serialize(&out)
	}

	footerStart := len(out)

	footer := b.buildFooter(len(b.infoColumns), len(b.formatColumns))
	out = append(out, footer...)

	backOffset := uint32(footerStart - bodyStart)
	boBuf := pbuf.New(b.engine, 4)
	boBuf.AppendUint32(backOffset)
	out = append(out, boBuf.Bytes()...)

	sentinelBuf := pbuf.New(b.engine, 8)
	sentinelBuf.AppendUint64(EndOfBlockSentinel)
	out = append(out, sentinelBuf.Bytes()...)

	// Patch l_offset_footer into the header now that it's known.
	l := uint32(footerStart - bodyStart)
	patch := pbuf.New(b.engine, 4)
	patch.AppendUint32(l)
	copy(out[blockHeaderSize-4:blockHeaderSize], patch.Bytes())

	return out, nil
}

// appendPermutationColumn writes the raw permutation array (one int32 per
// sample, logical-position order) ahead of the fixed columns when the block
// carries a GT permutation (§4.7 point 2).
func appendPermutationColumn(out []byte, p []int32, engine endian.EndianEngine) []byte {
	buf := pbuf.New(engine, len(p)*4)
	for _, v := range p {
		buf.AppendInt32(v)
	}

	return append(out, buf.Bytes()...)
}
