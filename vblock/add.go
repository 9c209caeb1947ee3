package vblock

import (
	"github.com/colblock/vcol/column"
	"github.com/colblock/vcol/errs"
	"github.com/colblock/vcol/format"
	"github.com/colblock/vcol/gtcodec"
	"github.com/colblock/vcol/permute"
	"github.com/colblock/vcol/record"
)

var refAltIndex = map[byte]int64{'A': 0, 'C': 1, 'G': 2, 'T': 3, 'N': 4}

// Add appends one record to the block's columns (§4.6 "per-record
// append"). Callers must check ShouldFlush before calling Add when
// enforcing a checkpoint.
func (b *Builder) Add(r record.Record) error {
	if b.finalized {
		return errs.ErrBlockAlreadyFinalized
	}

	if b.nVariants == 0 {
		b.minPosition, b.maxPosition = r.Position, r.Position
		b.contigID = r.ContigID
	} else {
		if r.Position < b.minPosition {
			b.minPosition = r.Position
		}

		if r.Position > b.maxPosition {
			b.maxPosition = r.Position
		}
	}

	b.position.Add(int64(r.Position))
	b.contig.Add(int64(r.ContigID))
	b.quality.AddFloat(float64(r.Quality))
	b.name.AddChars([]byte(r.Name))
	b.name.AddStride(int32(len(r.Name)))

	ctrl := b.appendAlleles(r)

	if err := b.appendPatterns(r); err != nil {
		return err
	}

	if err := b.appendInfo(r); err != nil {
		return err
	}

	if err := b.appendFormat(r); err != nil {
		return err
	}

	if len(r.Genotypes) > 0 {
		ctrl |= rcHasGT

		if err := b.appendGenotypes(r, &ctrl); err != nil {
			return err
		}
	}

	b.controller.Add(int64(ctrl))
	b.nVariants++

	return nil
}

// appendAlleles implements the ref/alt vs. general-alleles branch of
// §4.6: a simple SNV packs `(ref<<4)|alt` into one byte, otherwise every
// allele is appended as length-prefixed text.
func (b *Builder) appendAlleles(r record.Record) RecordController {
	var ctrl RecordController

	if len(r.Alleles) == 2 {
		ctrl = setBit(ctrl, rcBiallelic, true)
	}

	if r.IsSimpleSNV() {
		ctrl = setBit(ctrl, rcSimpleSNV, true)
		ctrl = setBit(ctrl, rcAllelesPacked, true)

		ref := refAltIndex[r.Alleles[0][0]]
		alt := refAltIndex[r.Alleles[1][0]]
		b.refAlt.AddLiteral((ref << 4) | alt)

		return ctrl
	}

	for _, a := range r.Alleles {
		b.alleles.AddChars([]byte(a))
		b.allelesLen.Add(int64(len(a)))
	}

	b.alleles.AddStride(int32(len(r.Alleles)))

	return ctrl
}

// appendPatterns resolves and appends the FILTER/INFO/FORMAT pattern ids
// (§4.6).
func (b *Builder) appendPatterns(r record.Record) error {
	infoIDs := make([]record.FieldID, len(r.Info))
	for i, f := range r.Info {
		infoIDs[i] = f.ID
	}

	formatIDs := make([]record.FieldID, 0, len(r.Format))
	for _, f := range r.Format {
		formatIDs = append(formatIDs, f.ID)
	}

	infoPat, err := b.infoDict.AddPattern(infoIDs)
	if err != nil {
		return err
	}

	formatPat, err := b.formatDict.AddPattern(formatIDs)
	if err != nil {
		return err
	}

	filterPat, err := b.filterDict.AddPattern(r.FilterIDs)
	if err != nil {
		return err
	}

	b.infoPattern.Add(int64(infoPat))
	b.formatPat.Add(int64(formatPat))
	b.filterPat.Add(int64(filterPat))

	return nil
}

// appendInfo routes each INFO field's values into its column, promoting
// integer primitives to int32 and floats to float32 ahead of the column's
// own finalize-time shrinking (§4.6 "per-record INFO field append").
func (b *Builder) appendInfo(r record.Record) error {
	for _, f := range r.Info {
		local, err := b.infoDict.AddField(f.ID)
		if err != nil {
			return err
		}

		typ := f.Type
		switch typ {
		case format.TypeInt8, format.TypeInt16:
			typ = format.TypeInt32
		case format.TypeFloat64:
			typ = format.TypeFloat32
		}

		for int(local) >= len(b.infoColumns) {
			b.infoColumns = append(b.infoColumns, column.New(typ, format.Signed, b.engine, b.codec))
		}

		col := b.infoColumns[local]

		switch f.Type {
		case format.TypeChar:
			col.AddChars(f.Chars)
		case format.TypeFloat32, format.TypeFloat64:
			for _, v := range f.Floats {
				col.AddFloat(float64(v))
			}
		default:
			for _, v := range f.Ints {
				col.Add(v)
			}
		}

		col.AddStride(int32(max(len(f.Ints), len(f.Floats), len(f.Chars))))
	}

	return nil
}

// appendFormat routes each FORMAT field's N-sample x stride matrix into
// its column, skipping the GT entry (handled by appendGenotypes).
func (b *Builder) appendFormat(r record.Record) error {
	for _, f := range r.Format {
		local, err := b.formatDict.AddField(f.ID)
		if err != nil {
			return err
		}

		for int(local) >= len(b.formatColumns) {
			b.formatColumns = append(b.formatColumns, column.New(f.Type, format.Signed, b.engine, b.codec))
		}

		col := b.formatColumns[local]

		switch f.Type {
		case format.TypeChar:
			col.AddChars(f.Chars)
		case format.TypeFloat32, format.TypeFloat64:
			for _, v := range f.Floats {
				col.AddFloat(float64(v))
			}
		default:
			for _, v := range f.Ints {
				col.Add(v)
			}
		}

		// AddStride records this record's total value count (per-sample
		// stride times sample count), not the bare per-sample stride: a
		// decoder walking the column row by row needs the row's full width
		// to know how many values belong to this record, and can recover
		// the per-sample stride by dividing back out b.n.
		col.AddStride(int32(f.Stride) * int32(b.n))
	}

	return nil
}

// appendGenotypes implements the genotype encoder's per-record entry point
// (§4.5): classify, permute (if eligible), compute packing parameters,
// choose width, encode, and route into the matching GT column plus the
// GT-support column.
func (b *Builder) appendGenotypes(r record.Record, ctrl *RecordController) error {
	// Capture the permutation in effect BEFORE this record's update: the
	// record is packed in the order this snapshot dictates, and the update
	// codes below are built against the same snapshot. Packing with the
	// post-update permutation (or indexing codes by raw sample id rather
	// than logical position) would make the sequence of updates
	// undiscoverable from the column data alone, since a decoder can only
	// replay Update calls forward from the identity permutation using
	// just-decoded genotypes in the permuted order they were encoded.
	ppa := append([]int32(nil), b.perm.P()...)

	variant := gtcodec.Classify(r)
	if variant == 0 {
		return errs.ErrClassificationMiss
	}

	*ctrl = setBit(*ctrl, rcGTAnyMissing, r.AnyMissing())
	*ctrl = setBit(*ctrl, rcGTAllPhased, r.AllPhased())
	*ctrl = setBit(*ctrl, rcGTMixedPhasing, r.MixedPhasing())
	*ctrl = setBit(*ctrl, rcGTHasEOV, r.AnyEOV())
	*ctrl = setBit(*ctrl, rcDiploid, r.Ploidy() == 2)

	params := gtcodec.ComputePackParams(r, variant)

	b.gtEncodingCounts[variant]++

	var nRuns int
	var width format.GTWidth

	switch variant {
	case format.GTDiploidBiallelicRLE, format.GTDiploidNallelicRLE:
		syms := make([]uint64, len(ppa))
		for j, sampleIdx := range ppa {
			syms[j] = gtcodec.PackSymbol(r.Genotypes[sampleIdx], params)
		}

		width = gtcodec.ChooseWidth(syms, params)
		runLimit := gtcodec.RunLimit(width, params)
		words, runs := gtcodec.EncodeRLE(syms, params, width, runLimit)
		nRuns = runs

		b.writeGTWords(words, width, true)
	case format.GTDiploidBCF:
		width = gtcodec.Width(params)
		words := gtcodec.EncodeBCFDiploid(r.Genotypes, ppa, params)
		nRuns = len(words)

		b.writeGTWords(words, width, false)
	default: // GTMultiploidBCF
		width = gtcodec.Width(params)
		words := gtcodec.EncodeBCFStyle(r.Genotypes)
		nRuns = len(words)

		b.writeGTWords(words, width, false)
	}

	b.gtSupport.Add(int64(nRuns))
	b.gtSupport.AddStride(int32(gtcodec.EncodingTag(variant, width)))

	if b.opts.permute && permute.Eligible(r) {
		codes := make([]uint8, len(ppa))
		for j, sampleIdx := range ppa {
			codes[j] = permute.PackCode(r.Genotypes[sampleIdx])
		}

		if err := b.perm.Update(codes); err != nil {
			return err
		}
	}

	return nil
}

func (b *Builder) writeGTWords(words []uint64, width format.GTWidth, rle bool) {
	var col *column.Column

	switch {
	case rle && width == format.GTWidth8:
		col = b.gtRLE8
	case rle && width == format.GTWidth16:
		col = b.gtRLE16
	case rle && width == format.GTWidth32:
		col = b.gtRLE32
	case rle && width == format.GTWidth64:
		col = b.gtRLE64
	case !rle && width == format.GTWidth8:
		col = b.gtSimple8
	case !rle && width == format.GTWidth16:
		col = b.gtSimple16
	case !rle && width == format.GTWidth32:
		col = b.gtSimple32
	default:
		col = b.gtSimple64
	}

	for _, w := range words {
		col.AddLiteral(int64(w))
	}
}

func max(vals ...int) int {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}

	return m
}
