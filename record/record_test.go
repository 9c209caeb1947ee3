package record

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenotypeIsMissing(t *testing.T) {
	require.True(t, Genotype{Alleles: []int8{AlleleMissing, AlleleMissing}}.IsMissing())
	require.False(t, Genotype{Alleles: []int8{AlleleMissing, 0}}.IsMissing())
	require.False(t, Genotype{}.IsMissing())
}

func TestGenotypeHasEOV(t *testing.T) {
	require.True(t, Genotype{Alleles: []int8{0, AlleleEOV}}.HasEOV())
	require.False(t, Genotype{Alleles: []int8{0, 1}}.HasEOV())
}

func TestIsSimpleSNV(t *testing.T) {
	require.True(t, Record{Alleles: []string{"A", "T"}}.IsSimpleSNV())
	require.False(t, Record{Alleles: []string{"A", "TT"}}.IsSimpleSNV())
	require.False(t, Record{Alleles: []string{"A", "T", "G"}}.IsSimpleSNV())
	require.False(t, Record{Alleles: []string{"A", "<NON_REF>"}}.IsSimpleSNV())
}

func TestPloidy(t *testing.T) {
	require.Equal(t, 0, Record{}.Ploidy())
	require.Equal(t, 2, Record{Genotypes: []Genotype{{Alleles: []int8{0, 1}}}}.Ploidy())
}

func TestIsBiallelic(t *testing.T) {
	require.True(t, Record{Alleles: []string{"A", "T"}}.IsBiallelic())
	require.False(t, Record{Alleles: []string{"A", "T", "G"}}.IsBiallelic())
}

func TestAnyMissing(t *testing.T) {
	r := Record{Genotypes: []Genotype{
		{Alleles: []int8{0, 1}},
		{Alleles: []int8{AlleleMissing, 0}},
	}}
	require.True(t, r.AnyMissing())

	clean := Record{Genotypes: []Genotype{{Alleles: []int8{0, 1}}}}
	require.False(t, clean.AnyMissing())
}

func TestAnyEOV(t *testing.T) {
	r := Record{Genotypes: []Genotype{{Alleles: []int8{0, AlleleEOV}}}}
	require.True(t, r.AnyEOV())

	clean := Record{Genotypes: []Genotype{{Alleles: []int8{0, 1}}}}
	require.False(t, clean.AnyEOV())
}

func TestAllPhased(t *testing.T) {
	require.False(t, Record{}.AllPhased())

	phased := Record{Genotypes: []Genotype{
		{Alleles: []int8{0, 1}, Phase: []bool{true, true}},
		{Alleles: []int8{1, 1}, Phase: []bool{true, true}},
	}}
	require.True(t, phased.AllPhased())

	unphased := Record{Genotypes: []Genotype{
		{Alleles: []int8{0, 1}, Phase: []bool{true, false}},
	}}
	require.False(t, unphased.AllPhased())
}

func TestMixedPhasing(t *testing.T) {
	require.False(t, Record{}.MixedPhasing())

	uniform := Record{Genotypes: []Genotype{
		{Phase: []bool{true, false}},
		{Phase: []bool{true, false}},
	}}
	require.False(t, uniform.MixedPhasing())

	mixed := Record{Genotypes: []Genotype{
		{Phase: []bool{true, false}},
		{Phase: []bool{false, false}},
	}}
	require.True(t, mixed.MixedPhasing())

	raggedPhase := Record{Genotypes: []Genotype{
		{Phase: []bool{true}},
		{Phase: []bool{true, false}},
	}}
	require.True(t, raggedPhase.MixedPhasing())
}
