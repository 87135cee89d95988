package recorder

import (
	"fmt"
	"sync"
)

// Table is a consumer-owned copy of the sliding window. It shares no
// memory with the live table and stays consistent no matter what the
// ingestion loop does after the copy was taken.
type Table struct {
	// FirstIndex is the sample index of Rows[0]. Indices increase by one
	// per row and are negative for the zero prefill.
	FirstIndex int64 `json:"first_index"`

	Width int     `json:"width"`
	Rows  [][]int `json:"rows"`
}

// Channels returns the display names of the table's channels, Ch0..ChN-1.
func (t Table) Channels() []string {
	names := make([]string, t.Width)
	for i := range names {
		names[i] = fmt.Sprintf("Ch%d", i)
	}
	return names
}

// snapshotter is the synchronization boundary between the ingestion loop
// and consumers. One mutex guards the live table and the held snapshot;
// every operation holds it only for the time needed to copy or mutate a
// bounded-size table, so the producer is never blocked for long and
// consumers always get a fully consistent copy.
type snapshotter struct {
	mu     sync.Mutex
	live   *table
	frozen *Table
}

// install replaces the live table at connection open.
func (s *snapshotter) install(t *table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = t
	s.frozen = nil
}

// discard drops both the live table and the snapshot at disconnect.
func (s *snapshotter) discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = nil
	s.frozen = nil
}

// append feeds validated rows into the live table.
func (s *snapshotter) append(rows [][]int) (reinit bool, dropped int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live == nil {
		return false, len(rows)
	}
	return s.live.appendRows(rows)
}

// freeze deep-copies the live table into the held snapshot, replacing any
// prior one.
func (s *snapshotter) freeze() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live == nil || s.live.width == 0 {
		return ErrNoData
	}
	t := s.live.copyOut()
	s.frozen = &t
	return nil
}

// read returns a copy of the held snapshot or of the live table. A frozen
// read before any freeze returns ErrNothingFrozen; a live read before the
// first row has established the channel count returns ErrNoData.
func (s *snapshotter) read(frozen bool) (Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if frozen {
		if s.frozen == nil {
			return Table{}, ErrNothingFrozen
		}
		return copyTable(*s.frozen), nil
	}
	if s.live == nil || s.live.width == 0 {
		return Table{}, ErrNoData
	}
	return s.live.copyOut(), nil
}

func copyTable(t Table) Table {
	out := t
	out.Rows = make([][]int, len(t.Rows))
	for i, row := range t.Rows {
		cp := make([]int, len(row))
		copy(cp, row)
		out.Rows[i] = cp
	}
	return out
}
