package recorder

import (
	"sync/atomic"
	"time"
)

// Metrics tracks ingestion health statistics. All fields are atomic so the
// ingestion loop can record without taking the table lock.
type Metrics struct {
	// Connection statistics
	ConnectionAttempts atomic.Int64 // Total Open calls that reached the port
	SuccessfulConnects atomic.Int64 // Successful opens
	Disconnections     atomic.Int64 // Total teardowns
	Stalls             atomic.Int64 // Watchdog-triggered teardowns
	LastConnectTime    atomic.Int64 // Unix timestamp of last connect
	LastDataTime       atomic.Int64 // Unix timestamp of last nonzero read

	// Ingestion statistics
	BytesRead         atomic.Int64 // Total bytes read off the wire
	RowsIngested      atomic.Int64 // Rows accepted into the window
	Reinitializations atomic.Int64 // Width changes (generation swaps)

	// Drop statistics
	DecodeErrors   atomic.Int64 // Chunks dropped as undecodable
	NoiseLines     atomic.Int64 // Lines rejected by the digit/space filter
	MalformedLines atomic.Int64 // Filter/tokenizer disagreements
	RaggedRows     atomic.Int64 // Rows dropped for width mismatch
	ReadErrors     atomic.Int64 // Port read failures
}

// MetricsSnapshot is a point-in-time copy of Metrics for consumers.
type MetricsSnapshot struct {
	Timestamp   time.Time `json:"timestamp"`
	IsConnected bool      `json:"is_connected"`
	State       string    `json:"state"`

	ConnectionAttempts int64 `json:"connection_attempts"`
	SuccessfulConnects int64 `json:"successful_connects"`
	Disconnections     int64 `json:"disconnections"`
	Stalls             int64 `json:"stalls"`
	LastConnectTime    int64 `json:"last_connect_time"`
	LastDataTime       int64 `json:"last_data_time"`

	BytesRead         int64 `json:"bytes_read"`
	RowsIngested      int64 `json:"rows_ingested"`
	Reinitializations int64 `json:"reinitializations"`

	DecodeErrors   int64 `json:"decode_errors"`
	NoiseLines     int64 `json:"noise_lines"`
	MalformedLines int64 `json:"malformed_lines"`
	RaggedRows     int64 `json:"ragged_rows"`
	ReadErrors     int64 `json:"read_errors"`

	BufferPool PoolStats `json:"buffer_pool"`
}

// MetricsSnapshot creates a consistent copy of the current counters.
func (s *Service) MetricsSnapshot() MetricsSnapshot {
	m := &s.metrics
	return MetricsSnapshot{
		Timestamp:   time.Now(),
		IsConnected: s.IsConnected(),
		State:       s.State(),

		ConnectionAttempts: m.ConnectionAttempts.Load(),
		SuccessfulConnects: m.SuccessfulConnects.Load(),
		Disconnections:     m.Disconnections.Load(),
		Stalls:             m.Stalls.Load(),
		LastConnectTime:    m.LastConnectTime.Load(),
		LastDataTime:       m.LastDataTime.Load(),

		BytesRead:         m.BytesRead.Load(),
		RowsIngested:      m.RowsIngested.Load(),
		Reinitializations: m.Reinitializations.Load(),

		DecodeErrors:   m.DecodeErrors.Load(),
		NoiseLines:     m.NoiseLines.Load(),
		MalformedLines: m.MalformedLines.Load(),
		RaggedRows:     m.RaggedRows.Load(),
		ReadErrors:     m.ReadErrors.Load(),

		BufferPool: s.readBuffers.Stats(),
	}
}
