package column

// Cursor walks a decoded column row by row in the same order values were
// appended via Add/AddFloat/AddChars plus AddStride, the read-side mirror
// of that write-side bookkeeping. A uniform column (every row collapsed to
// the one stored row) never advances past row zero; a mixed-stride column
// consumes its per-row width from Decoded.Stride; a fixed-stride column
// consumes Decoded.Header.Stride every row.
type Cursor struct {
	dec    Decoded
	offset int
	row    int
}

// NewCursor creates a Cursor over dec, positioned before its first row.
func NewCursor(dec Decoded) *Cursor {
	return &Cursor{dec: dec}
}

func (cur *Cursor) rowStride() int {
	if cur.dec.Header.Controller.MixedStride() {
		return int(cur.dec.Stride[cur.row])
	}

	return int(cur.dec.Header.Stride)
}

// NextInts returns the next row's int values and advances the cursor.
func (cur *Cursor) NextInts() []int64 {
	stride := cur.rowStride()
	if cur.dec.Header.Controller.Uniform() {
		cur.row++
		return cur.dec.Ints[:stride]
	}

	vals := cur.dec.Ints[cur.offset : cur.offset+stride]
	cur.offset += stride
	cur.row++

	return vals
}

// NextFloats is NextInts for a float-typed column.
func (cur *Cursor) NextFloats() []float64 {
	stride := cur.rowStride()
	if cur.dec.Header.Controller.Uniform() {
		cur.row++
		return cur.dec.Floats[:stride]
	}

	vals := cur.dec.Floats[cur.offset : cur.offset+stride]
	cur.offset += stride
	cur.row++

	return vals
}

// NextChars is NextInts for a char-typed column, where stride is a byte
// count rather than a value count.
func (cur *Cursor) NextChars() []byte {
	stride := cur.rowStride()
	if cur.dec.Header.Controller.Uniform() {
		cur.row++
		return cur.dec.Chars[:stride]
	}

	vals := cur.dec.Chars[cur.offset : cur.offset+stride]
	cur.offset += stride
	cur.row++

	return vals
}
