package vblock

import (
	"math/bits"

	"github.com/colblock/vcol/column"
	"github.com/colblock/vcol/errs"
	"github.com/colblock/vcol/format"
	"github.com/colblock/vcol/gtcodec"
	"github.com/colblock/vcol/patterndict"
	"github.com/colblock/vcol/permute"
	"github.com/colblock/vcol/record"
)

var refAltChars = [5]byte{'A', 'C', 'G', 'T', 'N'}

func unpackRefAlt(packed byte) (ref, alt string) {
	return string(refAltChars[packed>>4]), string(refAltChars[packed&0xF])
}

func requireFixed(dec DecodedBlock, key string) (column.Decoded, error) {
	col, ok := dec.Fixed[key]
	if !ok {
		return column.Decoded{}, errs.ErrMissingColumn
	}

	return col, nil
}

// rowStride returns the value count for row of a decoded column, honoring a
// mixed-stride column's per-row record or a fixed column's single header
// stride — the same bookkeeping Column.AddStride's write side produced.
func rowStride(dec column.Decoded, row int) int {
	if dec.Header.Controller.MixedStride() {
		return int(dec.Stride[row])
	}

	return int(dec.Header.Stride)
}

// decodeFields reconstructs one record's set of present field ids from its
// pattern id, iterating local field ids in ascending order (§8's pattern
// bitset law: present iff the bit is set). Original per-record append order
// is not recoverable — only the ascending-local-id ordered set is.
func decodeFields(dict *patterndict.Dict, patternID int64) []record.FieldID {
	bitsets := dict.Bitsets()
	if int(patternID) >= len(bitsets) {
		return nil
	}

	bitset := bitsets[patternID]

	var ids []record.FieldID
	for local := 0; local < dict.NLocalFields(); local++ {
		if patterndict.HasField(bitset, uint16(local)) {
			ids = append(ids, dict.LocalFieldGlobalID(uint16(local)))
		}
	}

	return ids
}

// dynamicCursors builds one column.Cursor per requested dynamic field,
// keyed by global field id, so decodeDynamicFields can advance each field's
// cursor exactly once per record where its pattern bit is set.
func dynamicCursors(fields map[record.FieldID]column.Decoded) map[record.FieldID]*column.Cursor {
	cursors := make(map[record.FieldID]*column.Cursor, len(fields))
	for id, dec := range fields {
		cursors[id] = column.NewCursor(dec)
	}

	return cursors
}

// permEligible mirrors permute.Eligible using the persisted controller bits
// and the already-decoded allele count instead of a record.Record, since the
// permutation replay below must decide eligibility before genotypes for
// later records have been reconstructed.
func permEligible(ctrl RecordController, nAlleles int) bool {
	return ctrl&rcDiploid != 0 && nAlleles == 2 && ctrl&rcGTHasEOV == 0
}

// paramsFromController rebuilds the PackParams ComputePackParams derived at
// encode time, using the controller bits and allele count recorded on disk
// in place of the original record (§4.5 step 2).
func paramsFromController(ctrl RecordController, variant format.GTVariant, nAlleles int) gtcodec.PackParams {
	add := uint(0)
	if ctrl&rcGTMixedPhasing != 0 {
		add = 1
	}

	if variant == format.GTDiploidBiallelicRLE {
		return gtcodec.PackParams{Shift: 2, Add: add}
	}

	hasMissing, hasEOV := 0, 0
	if ctrl&rcGTAnyMissing != 0 {
		hasMissing = 1
	}

	if ctrl&rcGTHasEOV != 0 {
		hasEOV = 1
	}

	shift := uint(bits.Len(uint(nAlleles + hasMissing + hasEOV)))
	if shift == 0 {
		shift = 1
	}

	return gtcodec.PackParams{Shift: shift, Add: add}
}

// gtWordCursors tracks the running consumption index into each of the eight
// physical GT word columns, since they're flat literal streams with no
// stride metadata of their own: every record routes to exactly one of them,
// chosen by its GT-support encoding tag, and consumes a tag-dependent word
// count from it.
type gtWordCursors struct {
	rle, simple [4]int // indexed by width rank (GTWidth8=1 .. GTWidth64=4, minus 1)
}

func widthRank(w format.GTWidth) int {
	return int(w) - 1
}

func (g *gtWordCursors) take(dec DecodedBlock, variant format.GTVariant, width format.GTWidth, n int) []uint64 {
	rank := widthRank(width)

	var col column.Decoded
	var idx *int

	if variant.IsRLE() {
		col = gtWordColumn(dec, true, width)
		idx = &g.rle[rank]
	} else {
		col = gtWordColumn(dec, false, width)
		idx = &g.simple[rank]
	}

	words := make([]uint64, n)
	for i := 0; i < n; i++ {
		words[i] = uint64(col.Ints[*idx])
		*idx++
	}

	return words
}

func gtWordColumn(dec DecodedBlock, rle bool, width format.GTWidth) column.Decoded {
	key := ""

	switch {
	case rle && width == format.GTWidth8:
		key = "gtRLE8"
	case rle && width == format.GTWidth16:
		key = "gtRLE16"
	case rle && width == format.GTWidth32:
		key = "gtRLE32"
	case rle && width == format.GTWidth64:
		key = "gtRLE64"
	case !rle && width == format.GTWidth8:
		key = "gtSimple8"
	case !rle && width == format.GTWidth16:
		key = "gtSimple16"
	case !rle && width == format.GTWidth32:
		key = "gtSimple32"
	default:
		key = "gtSimple64"
	}

	return dec.Fixed[key]
}

// DecodeRecords reconstructs the per-record view Add originally consumed
// from a block read with every fixed family and the dynamic fields of
// interest requested (§8 "Round-trip (records)"): it replays the sample
// permutation in lockstep with the GT-support tag to reconstruct genotypes,
// and walks the pattern bitsets to place sparse info/format values back on
// the record that carried them. nSamples must match the block's sample
// count.
func DecodeRecords(dec DecodedBlock, nSamples int) ([]record.Record, error) {
	n := int(dec.NVariants)

	contig, err := requireFixed(dec, "contig")
	if err != nil {
		return nil, err
	}

	position, err := requireFixed(dec, "position")
	if err != nil {
		return nil, err
	}

	controller, err := requireFixed(dec, "controller")
	if err != nil {
		return nil, err
	}

	quality, err := requireFixed(dec, "quality")
	if err != nil {
		return nil, err
	}

	name, err := requireFixed(dec, "name")
	if err != nil {
		return nil, err
	}

	refAlt, err := requireFixed(dec, "refAlt")
	if err != nil {
		return nil, err
	}

	alleles, err := requireFixed(dec, "alleles")
	if err != nil {
		return nil, err
	}

	allelesLen, err := requireFixed(dec, "allelesLen")
	if err != nil {
		return nil, err
	}

	infoPat, err := requireFixed(dec, "infoPattern")
	if err != nil {
		return nil, err
	}

	formatPat, err := requireFixed(dec, "formatPattern")
	if err != nil {
		return nil, err
	}

	filterPat, err := requireFixed(dec, "filterPattern")
	if err != nil {
		return nil, err
	}

	if dec.InfoDict == nil || dec.FormatDict == nil || dec.FilterDict == nil {
		return nil, errs.ErrMissingColumn
	}

	nameCur := column.NewCursor(name)
	infoCursors := dynamicCursors(dec.Info)
	formatCursors := dynamicCursors(dec.Format)

	var refAltIdx, allelesRow, allelesCharOff, allelesLenIdx int

	gtSupport, hasGTSupport := dec.Fixed["gtSupport"]

	var gtIdx int

	var gtCursors gtWordCursors

	permuteActive := dec.Permutation != nil
	perm := permute.New(nSamples)

	records := make([]record.Record, n)

	for i := 0; i < n; i++ {
		ctrl := RecordController(controller.Ints[i])

		r := record.Record{
			ContigID: int32(contig.Ints[i]),
			Position: position.Ints[i],
			Quality:  float32(quality.Floats[i]),
			Name:     string(nameCur.NextChars()),
		}

		if ctrl&rcSimpleSNV != 0 {
			ref, alt := unpackRefAlt(refAlt.Chars[refAltIdx])
			refAltIdx++
			r.Alleles = []string{ref, alt}
		} else {
			count := rowStride(alleles, allelesRow)
			allelesRow++

			r.Alleles = make([]string, count)
			for k := 0; k < count; k++ {
				length := int(allelesLen.Ints[allelesLenIdx])
				allelesLenIdx++
				r.Alleles[k] = string(alleles.Chars[allelesCharOff : allelesCharOff+length])
				allelesCharOff += length
			}
		}

		r.FilterIDs = decodeFields(dec.FilterDict, filterPat.Ints[i])

		for _, global := range decodeFields(dec.InfoDict, infoPat.Ints[i]) {
			cur, ok := infoCursors[global]
			if !ok {
				continue
			}

			fieldDec := dec.Info[global]
			r.Info = append(r.Info, decodeInfoField(global, fieldDec, cur))
		}

		for _, global := range decodeFields(dec.FormatDict, formatPat.Ints[i]) {
			cur, ok := formatCursors[global]
			if !ok {
				continue
			}

			fieldDec := dec.Format[global]
			r.Format = append(r.Format, decodeFormatField(global, fieldDec, cur, nSamples))
		}

		if ctrl&rcHasGT != 0 {
			if !hasGTSupport {
				return nil, errs.ErrMissingColumn
			}

			nRuns := int(gtSupport.Ints[gtIdx])
			tag := uint8(rowStride(gtSupport, gtIdx))
			gtIdx++

			variant, width := gtcodec.DecodeEncodingTag(tag)
			params := paramsFromController(ctrl, variant, len(r.Alleles))

			ppa := append([]int32(nil), perm.P()...)

			r.Genotypes = make([]record.Genotype, nSamples)

			switch variant {
			case format.GTDiploidBiallelicRLE, format.GTDiploidNallelicRLE:
				words := gtCursors.take(dec, variant, width, nRuns)
				syms := gtcodec.DecodeRLE(words, params)

				for j, sym := range syms {
					a, b, phase := gtcodec.UnpackSymbol(sym, params)
					r.Genotypes[ppa[j]] = record.Genotype{
						Alleles: []int8{gtcodec.UnpackAllele(a), gtcodec.UnpackAllele(b)},
						Phase:   []bool{false, phase},
					}
				}
			case format.GTDiploidBCF:
				words := gtCursors.take(dec, variant, width, nRuns)
				decoded := gtcodec.DecodeBCFDiploid(words, params)

				for j, g := range decoded {
					r.Genotypes[ppa[j]] = g
				}
			default: // GTMultiploidBCF
				words := gtCursors.take(dec, variant, width, nRuns)
				ploidy := nRuns / nSamples
				r.Genotypes = gtcodec.DecodeBCFStyle(words, nSamples, ploidy)
			}

			if permuteActive && permEligible(ctrl, len(r.Alleles)) {
				codes := make([]uint8, len(ppa))
				for j, sampleIdx := range ppa {
					codes[j] = permute.PackCode(r.Genotypes[sampleIdx])
				}

				if err := perm.Update(codes); err != nil {
					return nil, err
				}
			}
		}

		records[i] = r
	}

	return records, nil
}

func decodeInfoField(id record.FieldID, dec column.Decoded, cur *column.Cursor) record.InfoField {
	f := record.InfoField{ID: id, Type: dec.Header.Controller.Type()}

	switch f.Type {
	case format.TypeChar:
		f.Chars = cur.NextChars()
	case format.TypeFloat32, format.TypeFloat64:
		for _, v := range cur.NextFloats() {
			f.Floats = append(f.Floats, float32(v))
		}
	default:
		f.Ints = cur.NextInts()
	}

	return f
}

func decodeFormatField(id record.FieldID, dec column.Decoded, cur *column.Cursor, nSamples int) record.FormatField {
	f := record.FormatField{ID: id, Type: dec.Header.Controller.Type()}

	switch f.Type {
	case format.TypeChar:
		row := cur.NextChars()
		f.Chars = row
		f.Stride = len(row) / nSamples
	case format.TypeFloat32, format.TypeFloat64:
		row := cur.NextFloats()
		for _, v := range row {
			f.Floats = append(f.Floats, float32(v))
		}
		f.Stride = len(row) / nSamples
	default:
		row := cur.NextInts()
		f.Ints = row
		f.Stride = len(row) / nSamples
	}

	return f
}
