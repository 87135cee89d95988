package recorder

import (
	"reflect"
	"testing"
)

func TestTableZeroPrefill(t *testing.T) {
	tb := newTable(2, 4)
	if len(tb.rows) != 4 {
		t.Fatalf("len = %d, want 4", len(tb.rows))
	}
	if tb.firstIndex() != -4 {
		t.Fatalf("firstIndex = %d, want -4", tb.firstIndex())
	}
	for i, row := range tb.rows {
		if !reflect.DeepEqual(row, []int{0, 0}) {
			t.Fatalf("row %d = %v, want zeros", i, row)
		}
	}
}

func TestTableAppendEvictsOldest(t *testing.T) {
	// capacity = 3, width established at 2: after appending four rows the
	// window holds exactly the last three, indices contiguous.
	tb := newTable(0, 3)
	tb.appendRows([][]int{{1, 1}, {2, 2}})
	tb.appendRows([][]int{{3, 3}, {4, 4}})

	want := [][]int{{2, 2}, {3, 3}, {4, 4}}
	if !reflect.DeepEqual(tb.rows, want) {
		t.Fatalf("rows = %v, want %v", tb.rows, want)
	}
	if tb.firstIndex() != 1 {
		t.Fatalf("firstIndex = %d, want 1", tb.firstIndex())
	}
	if tb.next != 4 {
		t.Fatalf("next = %d, want 4", tb.next)
	}
}

func TestTableNeverExceedsCapacity(t *testing.T) {
	tb := newTable(0, 5)
	for i := 0; i < 50; i++ {
		tb.appendRows([][]int{{i}, {i}, {i}})
		if len(tb.rows) > 5 {
			t.Fatalf("after append %d: len = %d, exceeds capacity", i, len(tb.rows))
		}
		for _, row := range tb.rows {
			if len(row) != tb.width {
				t.Fatalf("mixed widths in table: %v", tb.rows)
			}
		}
	}
	if len(tb.rows) != 5 {
		t.Fatalf("len = %d, want capacity 5", len(tb.rows))
	}
}

func TestTableWidthChangeDiscardsHistory(t *testing.T) {
	tb := newTable(0, 4)
	tb.appendRows([][]int{{1, 1}, {2, 2}, {3, 3}, {4, 4}})

	reinit, _ := tb.appendRows([][]int{{7, 8, 9}})
	if !reinit {
		t.Fatal("expected reinitialization on width change")
	}
	if tb.width != 3 {
		t.Fatalf("width = %d, want 3", tb.width)
	}
	for i, row := range tb.rows {
		if len(row) != 3 {
			t.Fatalf("row %d has width %d after change, want 3", i, len(row))
		}
	}
	last := tb.rows[len(tb.rows)-1]
	if !reflect.DeepEqual(last, []int{7, 8, 9}) {
		t.Fatalf("last row = %v, want [7 8 9]", last)
	}
	// History is gone: everything except the new row is zero prefill.
	for _, row := range tb.rows[:len(tb.rows)-1] {
		if !reflect.DeepEqual(row, []int{0, 0, 0}) {
			t.Fatalf("expected zero prefill after width change, got %v", row)
		}
	}
}

func TestTableWidthChangeKeepsIndexContiguous(t *testing.T) {
	tb := newTable(0, 3)
	tb.appendRows([][]int{{1, 1}, {2, 2}, {3, 3}, {4, 4}})
	next := tb.next

	tb.appendRows([][]int{{5, 5, 5}})
	if tb.next != next+1 {
		t.Fatalf("next = %d, want %d", tb.next, next+1)
	}
	if tb.firstIndex() != tb.next-int64(len(tb.rows)) {
		t.Fatalf("firstIndex %d not contiguous with next %d over %d rows",
			tb.firstIndex(), tb.next, len(tb.rows))
	}
}

func TestTableCopyOutIsIndependent(t *testing.T) {
	tb := newTable(0, 3)
	tb.appendRows([][]int{{1, 2}, {3, 4}})

	cp := tb.copyOut()
	tb.appendRows([][]int{{9, 9}, {9, 9}, {9, 9}})
	tb.rows[0][0] = 77

	want := [][]int{{0, 0}, {1, 2}, {3, 4}}
	if !reflect.DeepEqual(cp.Rows, want) {
		t.Fatalf("copy mutated by later appends: %v, want %v", cp.Rows, want)
	}
}

func TestTableChannelNames(t *testing.T) {
	tb := newTable(3, 2)
	got := tb.copyOut().Channels()
	want := []string{"Ch0", "Ch1", "Ch2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("channels = %v, want %v", got, want)
	}
}
