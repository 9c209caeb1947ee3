package vblock

import (
	"sort"

	"github.com/colblock/vcol/column"
	"github.com/colblock/vcol/compress"
	"github.com/colblock/vcol/endian"
	"github.com/colblock/vcol/errs"
	"github.com/colblock/vcol/internal/pbuf"
	"github.com/colblock/vcol/patterndict"
	"github.com/colblock/vcol/record"
)

// fixedColumnNames mirrors Builder.fixedColumns' write order; used to
// correlate ReadSettings' per-family bools with the footer's fixed headers.
var fixedColumnNames = [fixedColumnCount]string{
	"contig", "position", "controller", "refAlt", "alleles", "allelesLen",
	"quality", "name", "infoPattern", "formatPattern", "filterPattern",
	"gtRLE8", "gtRLE16", "gtRLE32", "gtRLE64",
	"gtSimple8", "gtSimple16", "gtSimple32", "gtSimple64", "gtSupport",
}

// ReadSettings selects which fixed-column families and which dynamic
// info/format fields to load from a block, per §4.7's "settings object with
// one bool per fixed column family and a list of dynamic-column global ids".
type ReadSettings struct {
	Contig, Position, Controller     bool
	RefAlt, Alleles, AllelesLen      bool
	Quality, Name                    bool
	InfoPattern, FormatPattern, FilterPattern bool
	GT                               bool // all 8 GT columns plus the support column

	InfoFields   []record.FieldID
	FormatFields []record.FieldID
}

func (s ReadSettings) wantsFixed() [fixedColumnCount]bool {
	var w [fixedColumnCount]bool
	w[0], w[1], w[2] = s.Contig, s.Position, s.Controller
	w[3], w[4], w[5] = s.RefAlt, s.Alleles, s.AllelesLen
	w[6], w[7] = s.Quality, s.Name
	w[8], w[9], w[10] = s.InfoPattern, s.FormatPattern, s.FilterPattern

	for i := 11; i < fixedColumnCount; i++ {
		w[i] = s.GT
	}

	return w
}

// DecodedBlock is a block read back from storage with the columns
// ReadSettings requested populated.
type DecodedBlock struct {
	BlockID     uint64
	ContigID    int32
	MinPosition int64
	MaxPosition int64
	NVariants   uint32
	Controller  uint16

	Permutation []int32 // nil unless the block carried one and GT was requested

	Fixed map[string]column.Decoded
	Info  map[record.FieldID]column.Decoded
	Format map[record.FieldID]column.Decoded

	// InfoDict, FormatDict, FilterDict are the block's footer-parsed pattern
	// dictionaries, carried through so DecodeRecords can turn a record's
	// pattern id back into its set of present field/filter ids.
	InfoDict, FormatDict, FilterDict *patterndict.Dict
}

type readTarget struct {
	offset uint32
	key    string
	field  record.FieldID
	isInfo bool
	colID  int32 // identifies the column for error context: fixed index, or 100+local/200+local for info/format
}

// Deserialize reads one block from the front of data (§4.7 "Read"): block
// header, then the footer (located via l_offset_footer), then verifies the
// back-offset and end-of-block sentinel that follow it, then reads the
// requested columns in increasing offset order. nSamples is required to
// size the optional permutation column.
func Deserialize(data []byte, engine endian.EndianEngine, codec compress.Codec, nSamples int, settings ReadSettings) (DecodedBlock, int, error) {
	r := pbuf.NewReader(data[:blockHeaderSize], engine)

	blockID, err := r.ReadUint64()
	if err != nil {
		return DecodedBlock{}, 0, err
	}

	contigID, err := r.ReadInt32()
	if err != nil {
		return DecodedBlock{}, 0, err
	}

	minPos, err := r.ReadInt64()
	if err != nil {
		return DecodedBlock{}, 0, err
	}

	maxPos, err := r.ReadInt64()
	if err != nil {
		return DecodedBlock{}, 0, err
	}

	nVariants, err := r.ReadUint32()
	if err != nil {
		return DecodedBlock{}, 0, err
	}

	ctrl, err := r.ReadUint16()
	if err != nil {
		return DecodedBlock{}, 0, err
	}

	lOffsetFooter, err := r.ReadUint32()
	if err != nil {
		return DecodedBlock{}, 0, err
	}

	out := DecodedBlock{
		BlockID: blockID, ContigID: contigID, MinPosition: minPos, MaxPosition: maxPos,
		NVariants: nVariants, Controller: ctrl,
		Fixed: make(map[string]column.Decoded), Info: make(map[record.FieldID]column.Decoded), Format: make(map[record.FieldID]column.Decoded),
	}

	bodyStart := blockHeaderSize
	footerStart := bodyStart + int(lOffsetFooter)

	if footerStart+4+8 > len(data) {
		return DecodedBlock{}, 0, errs.Wrap(errs.KindIO, blockID, -1, int64(footerStart), errs.ErrShortRead)
	}

	hasPermuted := ctrl&blockCtrlHasGTPermuted != 0
	permStart := bodyStart

	if hasPermuted && settings.GT {
		pr := pbuf.NewReader(data[permStart:permStart+nSamples*4], engine)
		perm := make([]int32, nSamples)

		for i := range perm {
			v, err := pr.ReadInt32()
			if err != nil {
				return DecodedBlock{}, 0, err
			}

			perm[i] = v
		}

		out.Permutation = perm
	}

	f, footerLen, err := parseFooter(data[footerStart:], engine)
	if err != nil {
		return DecodedBlock{}, 0, err
	}

	tailStart := footerStart + footerLen
	if tailStart+4+8 > len(data) {
		return DecodedBlock{}, 0, errs.Wrap(errs.KindIO, blockID, -1, int64(tailStart), errs.ErrShortRead)
	}

	backOffset := engine.Uint32(data[tailStart : tailStart+4])
	if int(backOffset) != footerStart-bodyStart {
		return DecodedBlock{}, 0, errs.Wrap(errs.KindIntegrity, blockID, -1, int64(tailStart), errs.ErrBadEndOfBlock)
	}

	sentinel := engine.Uint64(data[tailStart+4 : tailStart+12])
	if sentinel != EndOfBlockSentinel {
		return DecodedBlock{}, 0, errs.Wrap(errs.KindIntegrity, blockID, -1, int64(tailStart+4), errs.ErrBadEndOfBlock)
	}

	wantFixed := settings.wantsFixed()

	var targets []readTarget

	for i, hdr := range f.fixedHeaders {
		if wantFixed[i] {
			targets = append(targets, readTarget{offset: hdr.Offset, key: fixedColumnNames[i], colID: int32(i)})
		}
	}

	wantInfo := fieldSet(settings.InfoFields)
	for local, hdr := range f.infoHeaders {
		global := f.infoDict.LocalFieldGlobalID(uint16(local))
		if _, ok := wantInfo[global]; ok {
			targets = append(targets, readTarget{offset: hdr.Offset, field: global, isInfo: true, colID: 100 + int32(local)})
		}
	}

	wantFormat := fieldSet(settings.FormatFields)
	for local, hdr := range f.formatHeaders {
		global := f.formatDict.LocalFieldGlobalID(uint16(local))
		if _, ok := wantFormat[global]; ok {
			targets = append(targets, readTarget{offset: hdr.Offset, field: global, colID: 200 + int32(local)})
		}
	}

	out.InfoDict, out.FormatDict, out.FilterDict = f.infoDict, f.formatDict, f.filterDict

	sort.Slice(targets, func(i, j int) bool { return targets[i].offset < targets[j].offset })

	for _, t := range targets {
		dec, _, err := column.Deserialize(data[bodyStart+int(t.offset):], engine, codec)
		if err != nil {
			return DecodedBlock{}, 0, errs.Wrap(errs.KindIntegrity, blockID, t.colID, int64(bodyStart)+int64(t.offset), err)
		}

		switch {
		case t.key != "":
			out.Fixed[t.key] = dec
		case t.isInfo:
			out.Info[t.field] = dec
		default:
			out.Format[t.field] = dec
		}
	}

	return out, tailStart + 12, nil
}

func fieldSet(ids []record.FieldID) map[record.FieldID]struct{} {
	m := make(map[record.FieldID]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}

	return m
}
