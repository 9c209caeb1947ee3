// Package permute implements the PBWT-style sample permutation (C4, §4.4):
// a running permutation over N samples, updated per variant by a 9-way
// radix sort keyed on packed biallelic diploid genotype codes.
//
// Grounded on tachyon/algorithm/permutation/radix_sort_gt.cpp's bin
// assignment switch and PPA-rebuild-from-bins loop; the 4-bit-code to
// 9-symbol remap table below is copied verbatim from that source.
package permute

import "github.com/colblock/vcol/record"

// symbolRemap maps a packed 4-bit {allele_hi, allele_lo, missing_hi,
// missing_lo} code to its 9-symbol radix-sort bin, per §4.4 point 1.
// Only the nine codes the packing scheme can produce are populated; any
// other code is a caller bug.
var symbolRemap = map[uint8]uint8{
	0x0: 0,
	0x1: 3,
	0x2: 4,
	0x4: 2,
	0x5: 1,
	0x6: 5,
	0x8: 6,
	0x9: 7,
	0xA: 8,
}

const nBins = 9

// PackCode encodes one sample's diploid biallelic genotype into the 4-bit
// code symbolRemap understands: bit 0 is allele A (0 or 1), bit 1 indicates
// allele A is missing, bit 2 is allele B, bit 3 indicates allele B is
// missing (§4.4 point 1).
func PackCode(g record.Genotype) uint8 {
	var code uint8

	if g.Alleles[0] == record.AlleleMissing {
		code |= 0x2
	} else if g.Alleles[0] == 1 {
		code |= 0x1
	}

	if g.Alleles[1] == record.AlleleMissing {
		code |= 0x8
	} else if g.Alleles[1] == 1 {
		code |= 0x4
	}

	return code
}

// Eligible reports whether a record qualifies for a permutation update:
// diploid, biallelic, genotyped, and free of end-of-vector sentinels
// (§4.4).
func Eligible(r record.Record) bool {
	if r.Ploidy() != 2 || !r.IsBiallelic() || len(r.Genotypes) == 0 {
		return false
	}

	return !r.AnyEOV()
}

// Permutation owns the permutation array P over [0, N) and the nine
// scratch bins reused across updates.
type Permutation struct {
	p    []int32
	bins [nBins][]int32
	n    int
}

// New creates a Permutation initialized to the identity [0,1,...,N-1].
// A Permutation with N <= 1 is a no-op target: Update never mutates it,
// matching scenario 6 (single-sample blocks skip permutation entirely).
func New(n int) *Permutation {
	p := make([]int32, n)
	for i := range p {
		p[i] = int32(i)
	}

	bins := [nBins][]int32{}
	for i := range bins {
		bins[i] = make([]int32, 0, n)
	}

	return &Permutation{p: p, bins: bins, n: n}
}

// P returns the current permutation array, read-only for callers.
func (pm *Permutation) P() []int32 {
	return pm.p
}

// Len returns N.
func (pm *Permutation) Len() int {
	return pm.n
}

// Update performs one radix-sort pass. codes[j] is the packed 4-bit
// genotype code (see symbolRemap) for the sample currently at logical
// position j — i.e. codes is indexed by logical position, not by sample
// id, matching §4.4 point 2 ("for each logical position j, append P[j] to
// bin target"). Update is a no-op when N <= 1.
func (pm *Permutation) Update(codes []uint8) error {
	if pm.n <= 1 {
		return nil
	}

	for i := range pm.bins {
		pm.bins[i] = pm.bins[i][:0]
	}

	for j, code := range codes {
		sym, ok := symbolRemap[code]
		if !ok {
			return ErrUnknownGenotypeCode
		}

		pm.bins[sym] = append(pm.bins[sym], pm.p[j])
	}

	out := pm.p[:0]
	total := 0

	for _, bin := range pm.bins {
		out = append(out, bin...)
		total += len(bin)
	}

	if total != pm.n {
		return ErrBinCountMismatch
	}

	pm.p = out

	return nil
}
