// Package vcol provides a high-performance, space-efficient binary format for
// storing columnar variant-call (VCF-like) data.
//
// vcol is optimized for scenarios with many samples and many variant records
// per contig, providing excellent compression ratios through columnar
// encoding, genotype run-length packing, and an optional PBWT-style sample
// permutation, with fast selective reads through pattern-keyed INFO/FORMAT
// columns and a per-block footer that lets a reader load only the columns it
// needs.
//
// # Core Features
//
//   - Columnar storage with per-field INFO/FORMAT columns and pattern-keyed
//     sparsity (records sharing the same present-field set share one pattern)
//   - PBWT-style sample permutation for genotype-matrix locality
//   - Run-length and BCF-style genotype encoding, with the primitive word
//     width chosen per record
//   - Optional compression (None, Zstd, S2, LZ4) per column
//   - Selective, offset-ordered block reads via a settings object
//   - Global index and per-field digest table for whole-file navigation
//
// # Basic Usage
//
// Building and writing a file:
//
//	engine := endian.GetLittleEndianEngine()
//	header := vfile.GlobalHeader{SampleNames: []string{"s1", "s2"}}
//	w := NewFileWriter(engine, header)
//
//	block, _ := NewBlockBuilder(0, len(header.SampleNames), engine)
//	for _, rec := range records {
//	    _ = block.Add(rec)
//	}
//	_ = block.Finalize()
//	blockBytes, _ := block.Serialize()
//	w.WriteBlock(blockBytes, block.ContigID(), block.MinPosition(), block.MaxPosition(), block.NVariants(), block.FieldDigests())
//
//	fileBytes := w.Finish()
//
// Reading it back:
//
//	f, _ := OpenFile(fileBytes, engine)
//	codec, _ := compress.GetCodec(format.CompressionZstd)
//	decoded, _ := f.Block(0, engine, codec, len(f.Header.SampleNames), vblock.ReadSettings{
//	    Contig: true, Position: true, GT: true,
//	})
//
// # Package Structure
//
// This package provides convenient top-level wrappers around the vblock and
// vfile packages. For advanced usage and fine-grained control over column
// layout, pattern dictionaries, or genotype encoding, use those packages
// directly.
package vcol

import (
	"github.com/colblock/vcol/endian"
	"github.com/colblock/vcol/vblock"
	"github.com/colblock/vcol/vfile"
)

// DefaultEngine returns the little-endian EndianEngine every part of the
// format is specified against (§6: "all integer fields little-endian").
func DefaultEngine() endian.EndianEngine {
	return endian.GetLittleEndianEngine()
}

// NewBlockBuilder creates a block builder ready to accept records via Add.
// This is a thin pass-through to vblock.New; use vblock.WithCheckpoint,
// vblock.WithCheckpointBases, vblock.WithPermute, and vblock.WithCompression
// to configure it.
func NewBlockBuilder(blockID uint64, nSamples int, engine endian.EndianEngine, opts ...vblock.BlockBuilderOption) (*vblock.Builder, error) {
	return vblock.New(blockID, nSamples, engine, opts...)
}

// NewFileWriter creates a Writer for a new file with the given schema.
func NewFileWriter(engine endian.EndianEngine, header vfile.GlobalHeader) *vfile.Writer {
	return vfile.NewWriter(engine, header)
}

// OpenFile parses a complete file image: magic, global header, footer,
// global index, and digest table. It does not decode any block eagerly; call
// File.Block to decode one on demand.
func OpenFile(data []byte, engine endian.EndianEngine) (*vfile.File, error) {
	return vfile.Open(data, engine)
}
