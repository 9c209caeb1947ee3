package compress

import "github.com/colblock/vcol/errs"

// CompressFramed compresses data with codec and reports both the original
// and compressed lengths, the exact triple a column header records (§4.2,
// §6): `compress(buf) -> (bytes, uLen, cLen)`.
func CompressFramed(codec Codec, data []byte) (compressed []byte, uLen, cLen uint32, err error) {
	out, err := codec.Compress(data)
	if err != nil {
		return nil, 0, 0, err
	}

	return out, uint32(len(data)), uint32(len(out)), nil
}

// DecompressFramed decompresses data with codec and validates the result
// against the expected uncompressed length recorded in the header, the
// `decompress(buf, expected_uLen) -> buf` contract of §6.
func DecompressFramed(codec Codec, data []byte, expectedULen uint32) ([]byte, error) {
	out, err := codec.Decompress(data)
	if err != nil {
		return nil, err
	}

	if uint32(len(out)) != expectedULen {
		return nil, errs.ErrUncompressedLengthMismatch
	}

	return out, nil
}
