package vblock

import (
	"github.com/colblock/vcol/column"
	"github.com/colblock/vcol/endian"
	"github.com/colblock/vcol/internal/pbuf"
	"github.com/colblock/vcol/patterndict"
)

// buildFooter writes the block footer (§4.7 point 5): stream/pattern counts,
// every fixed and dynamic column header, then the three categories' bitset
// tables.
//
// Open Question (source revisions disagree on whether the footer itself is
// compressed): this footer is written uncompressed. Every value that would
// benefit from compression — column data and stride buffers — is already
// individually compressed inside its own column's header/data pair before
// the footer ever sees it; the footer itself is just fixed-width counts and
// column headers, which compress poorly and need to be readable without a
// codec before a reader even knows which codec the block used.
func (b *Builder) buildFooter(nInfo, nFormat int) []byte {
	buf := pbuf.New(b.engine, 256)

	buf.AppendUint16(uint16(nInfo))
	buf.AppendUint16(uint16(nFormat))
	buf.AppendUint16(0) // n_filter_streams: FILTER carries no dynamic value columns, only patterns.
	buf.AppendUint16(uint16(b.infoDict.NPatterns()))
	buf.AppendUint16(uint16(b.formatDict.NPatterns()))
	buf.AppendUint16(uint16(b.filterDict.NPatterns()))

	for _, col := range b.fixedColumns() {
		buf.AppendBytes(col.Header().Bytes(b.engine))
	}

	for _, col := range b.infoColumns {
		buf.AppendBytes(col.Header().Bytes(b.engine))
	}

	for _, col := range b.formatColumns {
		buf.AppendBytes(col.Header().Bytes(b.engine))
	}

	buf.AppendBytes(b.infoDict.Serialize(b.engine))
	buf.AppendBytes(b.formatDict.Serialize(b.engine))
	buf.AppendBytes(b.filterDict.Serialize(b.engine))

	return buf.Bytes()
}

// footer is the parsed form of a block's footer, read back on selective
// column loads (§4.7 "Read").
type footer struct {
	nInfo, nFormat int

	fixedHeaders  [fixedColumnCount]column.Header
	infoHeaders   []column.Header
	formatHeaders []column.Header

	infoPatterns, formatPatterns, filterPatterns int

	infoDict, formatDict, filterDict *patterndict.Dict
}

// parseFooter reads a footer previously written by buildFooter.
func parseFooter(data []byte, engine endian.EndianEngine) (footer, int, error) {
	r := pbuf.NewReader(data, engine)

	nInfo, err := r.ReadUint16()
	if err != nil {
		return footer{}, 0, err
	}

	nFormat, err := r.ReadUint16()
	if err != nil {
		return footer{}, 0, err
	}

	if _, err := r.ReadUint16(); err != nil { // n_filter_streams, always 0
		return footer{}, 0, err
	}

	infoPatterns, err := r.ReadUint16()
	if err != nil {
		return footer{}, 0, err
	}

	formatPatterns, err := r.ReadUint16()
	if err != nil {
		return footer{}, 0, err
	}

	filterPatterns, err := r.ReadUint16()
	if err != nil {
		return footer{}, 0, err
	}

	f := footer{
		nInfo: int(nInfo), nFormat: int(nFormat),
		infoPatterns: int(infoPatterns), formatPatterns: int(formatPatterns), filterPatterns: int(filterPatterns),
	}

	for i := 0; i < fixedColumnCount; i++ {
		hdr, n, err := column.ParseHeader(data[r.Offset():], engine)
		if err != nil {
			return footer{}, 0, err
		}

		f.fixedHeaders[i] = hdr

		if _, err := r.ReadBytes(n); err != nil {
			return footer{}, 0, err
		}
	}

	f.infoHeaders = make([]column.Header, f.nInfo)
	for i := range f.infoHeaders {
		hdr, n, err := column.ParseHeader(data[r.Offset():], engine)
		if err != nil {
			return footer{}, 0, err
		}

		f.infoHeaders[i] = hdr

		if _, err := r.ReadBytes(n); err != nil {
			return footer{}, 0, err
		}
	}

	f.formatHeaders = make([]column.Header, f.nFormat)
	for i := range f.formatHeaders {
		hdr, n, err := column.ParseHeader(data[r.Offset():], engine)
		if err != nil {
			return footer{}, 0, err
		}

		f.formatHeaders[i] = hdr

		if _, err := r.ReadBytes(n); err != nil {
			return footer{}, 0, err
		}
	}

	infoDict, n, err := patterndict.Deserialize(data[r.Offset():], engine)
	if err != nil {
		return footer{}, 0, err
	}

	f.infoDict = infoDict

	if _, err := r.ReadBytes(n); err != nil {
		return footer{}, 0, err
	}

	formatDict, n, err := patterndict.Deserialize(data[r.Offset():], engine)
	if err != nil {
		return footer{}, 0, err
	}

	f.formatDict = formatDict

	if _, err := r.ReadBytes(n); err != nil {
		return footer{}, 0, err
	}

	filterDict, n, err := patterndict.Deserialize(data[r.Offset():], engine)
	if err != nil {
		return footer{}, 0, err
	}

	f.filterDict = filterDict

	if _, err := r.ReadBytes(n); err != nil {
		return footer{}, 0, err
	}

	return f, r.Offset(), nil
}
