package picker

// Cursor is the highlighted row of a result list. The zero value is an empty
// list with no selection.
type Cursor struct {
	n   int
	pos int
}

// NewCursor returns a cursor over n results, on the first one.
func NewCursor(n int) Cursor {
	var c Cursor
	c.Reset(n)
	return c
}

// Reset points the cursor at the first of n new results, or at nothing
// when n is zero.
func (c *Cursor) Reset(n int) {
	if n < 0 {
		n = 0
	}
	c.n = n
	c.pos = 0
}

// Index returns the selected row, or -1 when there are no results.
func (c Cursor) Index() int {
	if c.n == 0 {
		return -1
	}
	return c.pos
}

// Len is the number of results the cursor moves over.
func (c Cursor) Len() int { return c.n }

// Next moves down one row, wrapping from the last row to the first.
func (c *Cursor) Next() { c.Move(1) }

// Prev moves up one row, wrapping from the first row to the last.
func (c *Cursor) Prev() { c.Move(-1) }

// Move shifts the selection by delta rows with wraparound.
func (c *Cursor) Move(delta int) {
	if c.n == 0 {
		return
	}
	c.pos = ((c.pos+delta)%c.n + c.n) % c.n
}

// Set selects row i. Out-of-range values are ignored (a click on a row that
// a refresh already removed).
func (c *Cursor) Set(i int) bool {
	if i < 0 || i >= c.n {
		return false
	}
	c.pos = i
	return true
}
