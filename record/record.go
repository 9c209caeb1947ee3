// Package record defines the parsed variant record shape the block builder
// consumes (§3). Tokenizing raw input into this shape is an explicit
// out-of-scope collaborator (§1); record only carries the already-parsed
// data and the sentinel conventions used by the genotype matrix.
//
// Grounded on the header/record field categories (INFO/FILTER/FORMAT/
// contig/sample) of the VCF reader in the retrieved examples, and on the
// allele/phase pair shape of GTObject in the original tachyon source.
package record

import "github.com/colblock/vcol/format"

// FieldID names a FILTER, INFO, or FORMAT field by a block-wide stable
// integer, assigned by the upstream parser's field dictionary.
type FieldID int32

// InfoField carries one INFO field's typed value vector for a single
// record, the unit that the pattern dictionary and column routing key on.
type InfoField struct {
	ID     FieldID
	Type   format.ColumnType
	Ints   []int64   // populated when Type is an integer kind
	Floats []float32 // populated when Type is TypeFloat32 or TypeFloat64
	Chars  []byte    // populated when Type is TypeChar
}

// FormatField carries one FORMAT field's N-sample x stride value matrix.
// Values are laid out sample-major: sample i's stride values occupy
// Ints[i*Stride : (i+1)*Stride] (or the equivalent Floats/Chars slice).
type FormatField struct {
	ID     FieldID
	Type   format.ColumnType
	Stride int
	Ints   []int64
	Floats []float32
	Chars  []byte
}

// Genotype sentinel values shared by every ploidy and primitive width,
// matching the BCF-style convention documented in §4.5 and the tachyon
// GTObject encoders: the allele index space is shifted by one so that 0 can
// mean "missing" and 1 can mean "end of vector".
const (
	AlleleMissing = -1
	AlleleEOV     = -2
)

// Genotype is one sample's parsed ploidy x allele call. Phase[i] reports
// whether Alleles[i] is phased relative to Alleles[i-1]; Phase[0] is the
// record's leading phase bit.
type Genotype struct {
	Alleles []int8 // AlleleMissing / AlleleEOV or a 0-based allele index
	Phase   []bool
}

// IsMissing reports whether every allele call in g is AlleleMissing.
func (g Genotype) IsMissing() bool {
	for _, a := range g.Alleles {
		if a != AlleleMissing {
			return false
		}
	}

	return len(g.Alleles) > 0
}

// HasEOV reports whether g carries an end-of-vector sentinel, i.e. fewer
// called alleles than the record's declared ploidy.
func (g Genotype) HasEOV() bool {
	for _, a := range g.Alleles {
		if a == AlleleEOV {
			return true
		}
	}

	return false
}

// Record is one genomic site: position, alleles, filters, INFO/FORMAT
// fields, and an optional per-sample genotype matrix (§3).
type Record struct {
	ContigID int32
	Position int64 // 0-based
	Quality  float32 // may be NaN
	Name     string
	Alleles  []string // Alleles[0] is the reference allele

	FilterIDs []FieldID
	Info      []InfoField
	Format    []FormatField

	// Genotypes holds one entry per sample, nil if the record carries no
	// genotype matrix at all.
	Genotypes []Genotype
}

// IsSimpleSNV reports whether the record is a single-nucleotide
// substitution with exactly one alternate allele, the condition the block
// builder uses to decide between the packed ref/alt byte and the general
// alleles column (§4.6).
func (r Record) IsSimpleSNV() bool {
	if len(r.Alleles) != 2 {
		return false
	}

	return len(r.Alleles[0]) == 1 && len(r.Alleles[1]) == 1 && r.Alleles[1] != "<NON_REF>"
}

// Ploidy returns the ploidy of the record's genotype matrix, or 0 if it
// carries none or is ragged (ploidy is required to be uniform across
// samples by the upstream parser).
func (r Record) Ploidy() int {
	if len(r.Genotypes) == 0 {
		return 0
	}

	return len(r.Genotypes[0].Alleles)
}

// IsBiallelic reports whether the record has exactly one alternate allele.
func (r Record) IsBiallelic() bool {
	return len(r.Alleles) == 2
}

// AnyMissing reports whether any sample's genotype carries a missing
// allele call.
func (r Record) AnyMissing() bool {
	for _, g := range r.Genotypes {
		for _, a := range g.Alleles {
			if a == AlleleMissing {
				return true
			}
		}
	}

	return false
}

// AnyEOV reports whether any sample's genotype carries an end-of-vector
// sentinel.
func (r Record) AnyEOV() bool {
	for _, g := range r.Genotypes {
		if g.HasEOV() {
			return true
		}
	}

	return false
}

// AllPhased reports whether every sample's genotype is fully phased.
func (r Record) AllPhased() bool {
	if len(r.Genotypes) == 0 {
		return false
	}

	for _, g := range r.Genotypes {
		for _, p := range g.Phase {
			if !p {
				return false
			}
		}
	}

	return true
}

// MixedPhasing reports whether phase bits differ across samples or within
// a sample's own allele calls.
func (r Record) MixedPhasing() bool {
	if len(r.Genotypes) == 0 {
		return false
	}

	first := r.Genotypes[0].Phase
	for _, g := range r.Genotypes {
		if len(g.Phase) != len(first) {
			return true
		}

		for i, p := range g.Phase {
			if p != first[i] {
				return true
			}
		}
	}

	return false
}
