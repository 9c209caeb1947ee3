// Package format defines the shared type/encoding enumerations used across
// vcol's column container, genotype codec, and compression layers.
//
// These are value types with String() methods, enumerating the on-disk
// encoding and compression tags the way a format package typically does.
package format

type (
	// ColumnType is the declared element type of a column's data buffer (§3).
	ColumnType uint8
	// Signedness marks whether a column's integer values are signed (§3).
	Signedness uint8
	// ColumnEncoding names the byte-level encoding applied to a column's
	// data buffer, independent of compression (§3: encoding ∈ {none, <codec tag>}).
	ColumnEncoding uint8
	// CompressionType names the general-purpose codec framing a column's
	// compressed bytes (§6 external collaborator).
	CompressionType uint8
	// GTVariant is the tagged-union member chosen by the genotype encoder (§4.5).
	GTVariant uint8
	// GTWidth is the primitive width chosen for a genotype column (§4.5).
	GTWidth uint8
)

const (
	TypeInt8 ColumnType = iota + 1
	TypeInt16
	TypeInt32
	TypeInt64
	TypeFloat32
	TypeFloat64
	TypeChar
	TypeStruct
)

func (t ColumnType) String() string {
	switch t {
	case TypeInt8:
		return "int8"
	case TypeInt16:
		return "int16"
	case TypeInt32:
		return "int32"
	case TypeInt64:
		return "int64"
	case TypeFloat32:
		return "float32"
	case TypeFloat64:
		return "float64"
	case TypeChar:
		return "char"
	case TypeStruct:
		return "struct"
	default:
		return "unknown"
	}
}

// ByteWidth returns the width in bytes of one element of the given type.
//
// Per §9's design note, several source width tables return sizeof(u16) for
// every non-8-bit type. The real widths are {1,2,4,8,4,8} for
// {u8,u16,u32,u64,f32,f64}; that is what ByteWidth returns here.
func (t ColumnType) ByteWidth() int {
	switch t {
	case TypeInt8, TypeChar:
		return 1
	case TypeInt16:
		return 2
	case TypeInt32, TypeFloat32:
		return 4
	case TypeInt64, TypeFloat64:
		return 8
	default:
		return 0
	}
}

const (
	Unsigned Signedness = 0
	Signed   Signedness = 1
)

const (
	EncodingNone ColumnEncoding = iota + 1
	EncodingRLEBiallelic
	EncodingRLENallelic
	EncodingBCFDiploid
	EncodingBCFMultiploid
)

const (
	CompressionNone CompressionType = iota + 1
	CompressionZstd
	CompressionS2
	CompressionLZ4
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionS2:
		return "s2"
	case CompressionLZ4:
		return "lz4"
	default:
		return "unknown"
	}
}

// Genotype encoding variants, tagged-union members (§3, §4.5, §9).
const (
	GTDiploidBiallelicRLE GTVariant = iota + 1
	GTDiploidNallelicRLE
	GTDiploidBCF
	GTMultiploidBCF
)

func (v GTVariant) String() string {
	switch v {
	case GTDiploidBiallelicRLE:
		return "diploid_biallelic_rle"
	case GTDiploidNallelicRLE:
		return "diploid_nallelic_rle"
	case GTDiploidBCF:
		return "diploid_bcf"
	case GTMultiploidBCF:
		return "multiploid_bcf"
	default:
		return "unknown"
	}
}

// IsRLE reports whether the variant uses run-length encoding.
func (v GTVariant) IsRLE() bool {
	return v == GTDiploidBiallelicRLE || v == GTDiploidNallelicRLE
}

const (
	GTWidth8 GTWidth = iota + 1
	GTWidth16
	GTWidth32
	GTWidth64
)

// Bits returns the bit width of the primitive.
func (w GTWidth) Bits() int {
	switch w {
	case GTWidth8:
		return 8
	case GTWidth16:
		return 16
	case GTWidth32:
		return 32
	case GTWidth64:
		return 64
	default:
		return 0
	}
}

// Bytes returns the byte width of the primitive.
func (w GTWidth) Bytes() int {
	return w.Bits() / 8
}
