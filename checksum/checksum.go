// Package checksum provides two integrity primitives treated as external
// collaborators (§6): a 32-bit polynomial checksum used to verify column
// data/stride buffers on read, and a 64-bit non-cryptographic hash used to
// fingerprint candidate uniform runs during column finalization (§4.2
// point 1).
//
// Fingerprint64 generalizes the xxHash64 identifier-hashing idiom used
// elsewhere in this codebase from string identifiers to arbitrary byte
// buffers. CRC32 has no equivalent ecosystem library on hand, so it is
// built on the standard library's hash/crc32 (see DESIGN.md).
package checksum

import (
	"hash/crc32"

	"github.com/cespare/xxhash/v2"
)

// CRC32 computes the IEEE polynomial checksum of data, the "32-bit
// polynomial checksum" recorded in a column header and re-verified on read.
func CRC32(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// Fingerprint64 computes a 64-bit non-cryptographic hash of data, used to
// detect whether every logical row of a column shares identical bytes
// (§4.2 point 1, uniformity check).
func Fingerprint64(data []byte) uint64 {
	return xxhash.Sum64(data)
}
