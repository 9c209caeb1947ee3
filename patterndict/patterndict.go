// Package patterndict implements the pattern dictionary (C3, §4.3): for
// each of {FILTER, INFO, FORMAT}, maps a record's set of field ids to a
// small integer pattern id, and on finalize emits a bitset per pattern over
// the per-block local field ids.
//
// Grounded on internal/collision.Tracker's hash-map + ordered-list +
// first-sight-assigns-an-id structure, generalized from a single metric
// name's hash to an ordered list of field ids hashed as one pattern key.
package patterndict

import (
	"github.com/colblock/vcol/checksum"
	"github.com/colblock/vcol/errs"
	"github.com/colblock/vcol/record"
)

// maxIDs is the 16-bit capacity shared by local field ids and pattern ids
// (§4.3: "pattern ids fit in 16 bits; local field ids fit in 16 bits").
const maxIDs = 1 << 16

// Dict is one category's (FILTER, INFO, or FORMAT) pattern dictionary.
type Dict struct {
	fieldToLocal map[record.FieldID]uint16
	localToField []record.FieldID

	patternHash map[uint64]uint16
	patterns    [][]uint16 // pattern id -> local field ids, in AddPattern order

	bitsets [][]byte // finalized bitset per pattern, set after Finalize
}

// New creates an empty pattern dictionary.
func New() *Dict {
	return &Dict{
		fieldToLocal: make(map[record.FieldID]uint16),
		patternHash:  make(map[uint64]uint16),
	}
}

// AddField assigns global_id a local id within this block on first sight,
// idempotently returning the same local id on repeat calls (§4.3).
func (d *Dict) AddField(global record.FieldID) (uint16, error) {
	if local, ok := d.fieldToLocal[global]; ok {
		return local, nil
	}

	if len(d.localToField) >= maxIDs {
		return 0, errs.ErrFieldOverflow
	}

	local := uint16(len(d.localToField))
	d.fieldToLocal[global] = local
	d.localToField = append(d.localToField, global)

	return local, nil
}

// AddPattern hashes the ordered list of global field ids and returns its
// pattern id, assigning the next id on first sight (§4.3). The list order
// is part of the hash key so distinct orderings remain distinct patterns;
// callers that want order-independence should sort before calling.
func (d *Dict) AddPattern(globals []record.FieldID) (uint16, error) {
	locals := make([]uint16, len(globals))

	for i, g := range globals {
		local, err := d.AddField(g)
		if err != nil {
			return 0, err
		}

		locals[i] = local
	}

	key := hashPattern(locals)
	if id, ok := d.patternHash[key]; ok {
		return id, nil
	}

	if len(d.patterns) >= maxIDs {
		return 0, errs.ErrPatternOverflow
	}

	id := uint16(len(d.patterns))
	d.patternHash[key] = id
	d.patterns = append(d.patterns, locals)

	return id, nil
}

func hashPattern(locals []uint16) uint64 {
	b := make([]byte, len(locals)*2)
	for i, l := range locals {
		b[2*i] = byte(l)
		b[2*i+1] = byte(l >> 8)
	}

	return checksum.Fingerprint64(b)
}

// NLocalFields returns the number of distinct fields seen.
func (d *Dict) NLocalFields() int {
	return len(d.localToField)
}

// NPatterns returns the number of distinct patterns seen; for a Dict read
// back by Deserialize, the number of bitsets it carries.
func (d *Dict) NPatterns() int {
	if len(d.bitsets) > len(d.patterns) {
		return len(d.bitsets)
	}

	return len(d.patterns)
}

// LocalFieldGlobalID returns the global field id for a local id, the
// mapping the per-field header records (§4.3: "a per-local-field header
// containing its global id and its column's offset").
func (d *Dict) LocalFieldGlobalID(local uint16) record.FieldID {
	return d.localToField[local]
}

// Finalize emits, for every pattern, a bitset of width
// ceil(NLocalFields()/8) with bit k set iff local field k is in the
// pattern's field list (§4.3).
func (d *Dict) Finalize() [][]byte {
	width := (d.NLocalFields() + 7) / 8
	d.bitsets = make([][]byte, len(d.patterns))

	for pid, locals := range d.patterns {
		bits := make([]byte, width)
		for _, l := range locals {
			bits[l/8] |= 1 << (l % 8)
		}

		d.bitsets[pid] = bits
	}

	return d.bitsets
}

// Bitsets returns the finalized per-pattern bitsets. Valid only after
// Finalize.
func (d *Dict) Bitsets() [][]byte {
	return d.bitsets
}

// HasField reports whether bit local is set in pattern's bitset, the
// pattern bitset law from §8: present iff the bit is set.
func HasField(bitset []byte, local uint16) bool {
	idx := int(local / 8)
	if idx >= len(bitset) {
		return false
	}

	return bitset[idx]&(1<<(local%8)) != 0
}
