package recorder

import (
	"time"

	"go.bug.st/serial"
)

// portHandle abstracts the subset of go.bug.st/serial.Port used by this
// package. The transport exposes no "bytes in waiting" query, so the
// ingestion loop paces itself with a bounded read timeout instead: a Read
// returns 0 bytes after one poll interval when the line is silent, and up
// to len(p) bytes otherwise, never blocking longer than the interval.
type portHandle interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	SetReadTimeout(d time.Duration) error
	ResetInputBuffer() error
}

// allow tests to override external dependencies
var (
	openPort = func(name string, mode *serial.Mode) (portHandle, error) {
		return serial.Open(name, mode)
	}
	getPortsList = serial.GetPortsList
)
