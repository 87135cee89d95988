package recorder

// table is the live sliding window: the most recent rows, one integer per
// channel, keyed by a monotonically increasing sample index. It is not
// safe for concurrent use; all access goes through the snapshotter's lock.
type table struct {
	width    int
	capacity int

	// next is the index the next appended row will receive. The index of
	// rows[0] is therefore next-len(rows).
	next int64

	rows [][]int
}

// newTable returns a window pre-filled with capacity rows of zeros
// occupying indices [-capacity, 0). Pre-filling means a consumer always
// sees a full window and never has to special-case an empty table.
func newTable(width, capacity int) *table {
	t := &table{capacity: capacity}
	t.reset(width)
	return t
}

// reset replaces the window with a fresh generation of the given width,
// pre-filled with zeros. The running index is preserved so that rows
// appended after a mid-stream width change stay contiguous with the
// zero prefill.
func (t *table) reset(width int) {
	t.width = width
	t.rows = make([][]int, t.capacity)
	for i := range t.rows {
		t.rows[i] = make([]int, width)
	}
}

// appendRows extends the window with rows in wire order and evicts from
// the front until the window is back at capacity. A width change relative
// to the current generation discards all prior history first: the device
// restarted its framing, so the old columns are meaningless.
//
// Rows not matching the batch width are skipped; the parser already
// enforces batch uniformity, so a skip here means a caller bug. The
// returned reinit flag reports whether a new generation was started, and
// dropped how many rows were skipped.
func (t *table) appendRows(rows [][]int) (reinit bool, dropped int) {
	if len(rows) == 0 {
		return false, 0
	}
	if len(rows[0]) != t.width {
		t.reset(len(rows[0]))
		reinit = true
	}
	for _, row := range rows {
		if len(row) != t.width {
			dropped++
			continue
		}
		t.rows = append(t.rows, row)
		t.next++
	}
	if excess := len(t.rows) - t.capacity; excess > 0 {
		t.rows = t.rows[excess:]
	}
	return reinit, dropped
}

// firstIndex returns the sample index of the oldest retained row.
func (t *table) firstIndex() int64 {
	return t.next - int64(len(t.rows))
}

// copyOut deep-copies the window into a consumer-owned Table.
func (t *table) copyOut() Table {
	out := Table{
		FirstIndex: t.firstIndex(),
		Width:      t.width,
		Rows:       make([][]int, len(t.rows)),
	}
	for i, row := range t.rows {
		cp := make([]int, len(row))
		copy(cp, row)
		out.Rows[i] = cp
	}
	return out
}
