// Package gtcodec implements the genotype encoder (C5, §4.5): classifies a
// record's genotype matrix, computes packing parameters, chooses a primitive
// width (for RLE variants, the one with the fewest predicted runs; for BCF
// variants, the narrowest that holds a packed value), and packs either RLE
// words (biallelic/nallelic) or one BCF-style
// value per allele (diploid/multiploid fallback).
//
// Grounded on tachyon/algorithm/compression/genotype_encoder.h's
// EncodeDiploidRLEBiallelic/EncodeDiploidBCF/EncodeBCFStyle templates: the
// BCF sentinel convention (missing=0, EOV=1, real allele shifted by +1 then
// phase-bit-or'd) and the RLE word shape `(run_length << (2*shift+add)) |
// packed_symbol` are copied from there.
package gtcodec

import (
	"math/bits"

	"github.com/colblock/vcol/format"
	"github.com/colblock/vcol/record"
)

// Classify selects the tagged-union variant for r (§4.5 step 1).
func Classify(r record.Record) format.GTVariant {
	ploidy := r.Ploidy()

	switch {
	case ploidy != 2:
		return format.GTMultiploidBCF
	case r.IsBiallelic() && !r.AnyEOV():
		return format.GTDiploidBiallelicRLE
	case !r.AnyEOV() || len(r.Alleles) > 2:
		return format.GTDiploidNallelicRLE
	default:
		return format.GTDiploidBCF
	}
}

// PackParams are the packing parameters computed in §4.5 step 2.
type PackParams struct {
	Shift uint // bits per allele
	Add   uint // 1 if phasing is mixed within the record, else 0
}

// ComputePackParams derives shift/add for r given its classification.
func ComputePackParams(r record.Record, variant format.GTVariant) PackParams {
	add := uint(0)
	if r.MixedPhasing() {
		add = 1
	}

	if variant == format.GTDiploidBiallelicRLE {
		// Two biallelic codes (1, 2) already consume 2 bits once alleleCode's
		// missing-reserving +1 offset is applied, whether or not any sample
		// is actually missing in this record: a 1-bit field would let a run's
		// length bits overlap the symbol's own high bit. Matches the general
		// nAlleles-sized formula below (bits.Len(2) == bits.Len(3) == 2).
		return PackParams{Shift: 2, Add: add}
	}

	nAlleles := len(r.Alleles)
	hasMissing := boolToInt(r.AnyMissing())
	hasEOV := boolToInt(r.AnyEOV())
	shift := uint(bits.Len(uint(nAlleles + hasMissing + hasEOV)))
	if shift == 0 {
		shift = 1
	}

	return PackParams{Shift: shift, Add: add}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}

// PackSymbol packs one sample's two alleles and phase bit into the
// per-sample symbol for an RLE word (§4.5 step 2):
// `(alleleB << (shift+add)) | (alleleA << add) | (phase_bit if add else 0)`.
func PackSymbol(g record.Genotype, p PackParams) uint64 {
	a := alleleCode(g.Alleles[0])
	b := alleleCode(g.Alleles[1])

	sym := (b << (p.Shift + p.Add)) | (a << p.Add)
	if p.Add == 1 && len(g.Phase) > 0 && g.Phase[len(g.Phase)-1] {
		sym |= 1
	}

	return sym
}

// alleleCode maps an allele index to its packed-field value: 0 encodes
// missing when the caller reserves a bit for it, otherwise the allele
// index plus one is written directly into the field's bit width.
func alleleCode(allele int8) uint64 {
	if allele == record.AlleleMissing {
		return 0
	}

	return uint64(allele) + 1
}

// Width is the smallest primitive width in {8,16,32,64} bits whose
// run-length capacity `2^(w - 2*shift - add) - 1` is at least 1, i.e. can
// represent a run of length 1 (§4.5 step 3).
func Width(p PackParams) format.GTWidth {
	consumed := 2*p.Shift + p.Add

	for _, w := range []format.GTWidth{format.GTWidth8, format.GTWidth16, format.GTWidth32, format.GTWidth64} {
		if uint(w.Bits()) > consumed {
			return w
		}
	}

	return format.GTWidth64
}

// ChooseWidth implements the assess-then-encode half of §4.5 step 3 for the
// two RLE variants: among the widths whose run-length field can hold at
// least one run (run_limit >= 1), it dry-runs the actual run-counting pass
// over syms (one packed symbol per sample, already in permuted order) for
// each candidate and returns the width that minimizes the predicted run
// count, narrower width breaking ties. BCF variants never call this: they
// emit one word per sample/allele unconditionally, so there is no run count
// to minimize, and Width's single fits-the-value pass is sufficient there.
func ChooseWidth(syms []uint64, p PackParams) format.GTWidth {
	consumed := 2*p.Shift + p.Add

	var best format.GTWidth
	bestRuns := -1

	for _, w := range []format.GTWidth{format.GTWidth8, format.GTWidth16, format.GTWidth32, format.GTWidth64} {
		if uint(w.Bits()) <= consumed {
			continue
		}

		nRuns := assessRunCount(syms, RunLimit(w, p))
		if bestRuns == -1 || nRuns < bestRuns {
			best, bestRuns = w, nRuns
		}
	}

	if bestRuns == -1 {
		return format.GTWidth64
	}

	return best
}

// assessRunCount performs the dry run: it counts how many runs syms would
// produce under runLimit, without allocating the RLE word stream EncodeRLE
// would build for the same inputs.
func assessRunCount(syms []uint64, runLimit uint64) int {
	if len(syms) == 0 {
		return 0
	}

	cur := syms[0]
	runLen := uint64(1)
	nRuns := 1

	for _, s := range syms[1:] {
		if s == cur && runLen < runLimit {
			runLen++
			continue
		}

		nRuns++
		cur = s
		runLen = 1
	}

	return nRuns
}

// RunLimit returns the maximum run length representable in the run-length
// field once width bits are split between the run-length counter and the
// packed symbol.
func RunLimit(w format.GTWidth, p PackParams) uint64 {
	consumed := 2*p.Shift + p.Add
	runBits := uint(w.Bits()) - consumed

	if runBits >= 64 {
		return ^uint64(0)
	}

	return (uint64(1) << runBits) - 1
}

// EncodeRLE packs syms (one packed symbol per sample, in permuted order)
// into RLE words of the given width, opening a new run whenever the symbol
// changes or the run hits runLimit (§4.5 step 4). It returns the word
// stream and the run count.
func EncodeRLE(syms []uint64, p PackParams, w format.GTWidth, runLimit uint64) (words []uint64, nRuns int) {
	if len(syms) == 0 {
		return nil, 0
	}

	shiftTotal := 2*p.Shift + p.Add
	cur := syms[0]
	runLen := uint64(1)

	flush := func() {
		words = append(words, (runLen<<shiftTotal)|cur)
		nRuns++
	}

	for _, s := range syms[1:] {
		if s == cur && runLen < runLimit {
			runLen++
			continue
		}

		flush()
		cur = s
		runLen = 1
	}

	flush()

	return words, nRuns
}

// DecodeRLE expands words back into one packed symbol per sample.
func DecodeRLE(words []uint64, p PackParams) []uint64 {
	shiftTotal := 2*p.Shift + p.Add
	mask := (uint64(1) << shiftTotal) - 1

	var out []uint64
	for _, word := range words {
		sym := word & mask
		runLen := word >> shiftTotal

		for i := uint64(0); i < runLen; i++ {
			out = append(out, sym)
		}
	}

	return out
}

// UnpackSymbol reverses PackSymbol, returning the two allele codes (0 means
// missing, otherwise 1-based allele index) and the phase bit.
func UnpackSymbol(sym uint64, p PackParams) (a, b uint64, phase bool) {
	add := p.Add
	fieldMask := (uint64(1) << p.Shift) - 1

	a = (sym >> add) & fieldMask
	b = (sym >> (p.Shift + add)) & fieldMask

	if add == 1 {
		phase = sym&1 != 0
	}

	return a, b, phase
}

// EncodeBCFDiploid packs every sample's diploid genotype into one value per
// sample (§4.5 step 4, BCF diploid variant), visited in permuted order. Each
// value is the same `(alleleB << (shift+add)) | (alleleA << add) |
// phase_bit` packed symbol PackSymbol produces for the RLE variants: reusing
// it (rather than an ad hoc one-bit-per-allele shift) keeps the field wide
// enough for p.Shift bits per allele, which a fixed `<<1` silently
// truncates once an allele code needs more than one bit.
func EncodeBCFDiploid(genotypes []record.Genotype, ppa []int32, p PackParams) []uint64 {
	out := make([]uint64, len(ppa))

	for i, sampleIdx := range ppa {
		out[i] = PackSymbol(genotypes[sampleIdx], p)
	}

	return out
}

// DecodeBCFDiploid reverses EncodeBCFDiploid: words is in permuted order,
// and the returned genotypes are indexed by permuted position j (caller
// maps back to original sample index via the permutation in effect when
// the record was encoded).
func DecodeBCFDiploid(words []uint64, p PackParams) []record.Genotype {
	out := make([]record.Genotype, len(words))

	for j, word := range words {
		a, b, phase := UnpackSymbol(word, p)
		out[j] = record.Genotype{
			Alleles: []int8{UnpackAllele(a), UnpackAllele(b)},
			Phase:   []bool{false, phase},
		}
	}

	return out
}

// UnpackAllele reverses alleleCode: 0 means missing, otherwise the 1-based
// allele index is shifted back down. Exported for RLE decode paths that
// unpack a-codes/b-codes straight from UnpackSymbol without going through
// DecodeBCFDiploid.
func UnpackAllele(code uint64) int8 {
	if code == 0 {
		return record.AlleleMissing
	}

	return int8(code - 1)
}

// EncodingTag combines a variant and width into the single byte the
// GT-support column stores as its stride value, identifying which of the
// eight GT columns (four RLE widths + four non-RLE widths) a record's
// genotype stream landed in (§4.5 step 5).
func EncodingTag(variant format.GTVariant, width format.GTWidth) uint8 {
	return uint8(variant)<<4 | uint8(width)
}

// DecodeEncodingTag reverses EncodingTag.
func DecodeEncodingTag(tag uint8) (format.GTVariant, format.GTWidth) {
	return format.GTVariant(tag >> 4), format.GTWidth(tag & 0x0F)
}

// EncodeBCFStyle packs every allele of every sample into one value each
// (§4.5 step 4, BCF-style fallback used for multiploid records): 0 is
// reserved for missing, 1 for end-of-vector, and a real allele index v is
// stored as `((v+1) << 1) | phase_bit`.
func EncodeBCFStyle(genotypes []record.Genotype) []uint64 {
	var out []uint64

	for _, g := range genotypes {
		for i, allele := range g.Alleles {
			switch allele {
			case record.AlleleMissing:
				out = append(out, 0)
			case record.AlleleEOV:
				out = append(out, 1)
			default:
				phase := uint64(0)
				if i < len(g.Phase) && g.Phase[i] {
					phase = 1
				}

				out = append(out, (uint64(allele+1)<<1)|phase)
			}
		}
	}

	return out
}

// DecodeBCFStyle reverses EncodeBCFStyle: words holds nSamples*ploidy
// values, flat in sample-major encode order. The encoding never stores a
// phase bit for missing/end-of-vector alleles (§4.5 step 4), so those
// positions decode with phase=false regardless of what the original
// genotype's phase bit there was.
func DecodeBCFStyle(words []uint64, nSamples, ploidy int) []record.Genotype {
	out := make([]record.Genotype, nSamples)

	for s := 0; s < nSamples; s++ {
		alleles := make([]int8, ploidy)
		phase := make([]bool, ploidy)

		for i := 0; i < ploidy; i++ {
			w := words[s*ploidy+i]
			switch w {
			case 0:
				alleles[i] = record.AlleleMissing
			case 1:
				alleles[i] = record.AlleleEOV
			default:
				alleles[i] = int8((w >> 1) - 1)
				phase[i] = w&1 != 0
			}
		}

		out[s] = record.Genotype{Alleles: alleles, Phase: phase}
	}

	return out
}
