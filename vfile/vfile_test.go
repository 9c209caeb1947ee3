package vfile

import (
	"testing"

	"github.com/colblock/vcol/compress"
	"github.com/colblock/vcol/endian"
	"github.com/colblock/vcol/format"
	"github.com/colblock/vcol/record"
	"github.com/colblock/vcol/vblock"
	"github.com/stretchr/testify/require"
)

func buildBlock(t *testing.T, engine endian.EndianEngine, blockID uint64, contig int32, positions []int64) *vblock.Builder {
	t.Helper()

	b, err := vblock.New(blockID, 1, engine, vblock.WithCompression(format.CompressionNone))
	require.NoError(t, err)

	for _, pos := range positions {
		r := record.Record{
			ContigID: contig, Position: pos, Name: "v", Alleles: []string{"A", "T"},
			Genotypes: []record.Genotype{{Alleles: []int8{0, 1}, Phase: []bool{false, false}}},
		}
		require.NoError(t, b.Add(r))
	}

	require.NoError(t, b.Finalize())

	return b
}

func TestGlobalHeaderRoundTrip(t *testing.T) {
	engine := endian.GetLittleEndianEngine()

	h := GlobalHeader{
		SampleNames: []string{"sampleA", "sampleB"},
		Contigs:     []ContigDef{{Name: "chr1", Length: 1000}, {Name: "chr2", Length: 2000}},
		InfoFields:  []FieldDef{{ID: 1, Name: "DP"}},
		FormatFields: []FieldDef{{ID: 2, Name: "GT"}},
		FilterFields: []FieldDef{{ID: 3, Name: "PASS"}},
	}

	data := h.Serialize(engine)

	parsed, n, err := DeserializeGlobalHeader(data, engine)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.Equal(t, h, parsed)
}

func TestWriterReaderRoundTrip(t *testing.T) {
	engine := endian.GetLittleEndianEngine()
	codec := mustCodec(t)

	header := GlobalHeader{SampleNames: []string{"s1"}}
	w := NewWriter(engine, header)

	b1 := buildBlock(t, engine, 0, 1, []int64{100, 200})
	data1, err := b1.Serialize()
	require.NoError(t, err)
	w.WriteBlock(data1, b1.ContigID(), b1.MinPosition(), b1.MaxPosition(), b1.NVariants(), b1.FieldDigests())

	b2 := buildBlock(t, engine, 1, 2, []int64{50})
	data2, err := b2.Serialize()
	require.NoError(t, err)
	w.WriteBlock(data2, b2.ContigID(), b2.MinPosition(), b2.MaxPosition(), b2.NVariants(), b2.FieldDigests())

	w.FoldFieldDigest(1, FieldDigest([]byte("DP-block0")))
	w.FoldFieldDigest(1, FieldDigest([]byte("DP-block1")))

	fileBytes := w.Finish()

	f, err := Open(fileBytes, engine)
	require.NoError(t, err)

	require.Equal(t, header.SampleNames, f.Header.SampleNames)
	require.Equal(t, uint64(2), f.NBlocks)
	require.Equal(t, uint64(3), f.NRecords)
	require.Len(t, f.Index, 2)
	require.Equal(t, int32(1), f.Index[0].ContigID)
	require.Equal(t, int32(2), f.Index[1].ContigID)
	require.Contains(t, f.Digests, record.FieldID(1))

	dec0, err := f.Block(0, engine, codec, 1, vblock.ReadSettings{Contig: true, Position: true})
	require.NoError(t, err)
	require.Equal(t, []int64{100, 200}, dec0.Fixed["position"].Ints)

	dec1, err := f.Block(1, engine, codec, 1, vblock.ReadSettings{Contig: true, Position: true})
	require.NoError(t, err)
	require.Equal(t, []int64{50}, dec1.Fixed["position"].Ints)
}

func TestWriteBlockFoldsFieldDigestsAutomatically(t *testing.T) {
	engine := endian.GetLittleEndianEngine()

	header := GlobalHeader{SampleNames: []string{"s1"}}
	w := NewWriter(engine, header)

	b, err := vblock.New(0, 1, engine, vblock.WithCompression(format.CompressionNone))
	require.NoError(t, err)

	r := record.Record{
		ContigID: 1, Position: 100, Name: "v", Alleles: []string{"A", "T"},
		Info: []record.InfoField{
			{ID: 7, Type: format.TypeInt32, Ints: []int64{42}},
		},
	}
	require.NoError(t, b.Add(r))
	require.NoError(t, b.Finalize())

	digests := b.FieldDigests()
	require.Contains(t, digests, record.FieldID(7))

	data, err := b.Serialize()
	require.NoError(t, err)
	w.WriteBlock(data, b.ContigID(), b.MinPosition(), b.MaxPosition(), b.NVariants(), digests)

	fileBytes := w.Finish()

	f, err := Open(fileBytes, engine)
	require.NoError(t, err)
	require.Equal(t, digests[record.FieldID(7)], f.Digests[record.FieldID(7)])
}

func TestOpenRejectsBadMagic(t *testing.T) {
	engine := endian.GetLittleEndianEngine()

	header := GlobalHeader{SampleNames: []string{"s1"}}
	w := NewWriter(engine, header)
	b := buildBlock(t, engine, 0, 1, []int64{10})
	data, err := b.Serialize()
	require.NoError(t, err)
	w.WriteBlock(data, b.ContigID(), b.MinPosition(), b.MaxPosition(), b.NVariants(), b.FieldDigests())

	fileBytes := w.Finish()
	fileBytes[0] = 'X'

	_, err = Open(fileBytes, engine)
	require.Error(t, err)
}

func mustCodec(t *testing.T) compress.Codec {
	t.Helper()

	codec, err := compress.GetCodec(format.CompressionNone)
	require.NoError(t, err)

	return codec
}
