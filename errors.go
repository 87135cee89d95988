package recorder

import "errors"

var (
	// ErrAlreadyConnected is returned by Open when a connection is live.
	ErrAlreadyConnected = errors.New("recorder: already connected")

	// ErrNotConnected is returned by operations that require an open port.
	ErrNotConnected = errors.New("recorder: not connected")

	// ErrNoData is returned by Read before the first well-formed row has
	// established the channel count.
	ErrNoData = errors.New("recorder: no data yet")

	// ErrNothingFrozen is returned by Read(frozen=true) when Freeze was
	// never called on the current connection.
	ErrNothingFrozen = errors.New("recorder: nothing frozen yet")

	// ErrDecode is returned by Parse when the chunk contains bytes that do
	// not decode as text. The caller discards the pending carry-over and
	// continues.
	ErrDecode = errors.New("recorder: undecodable bytes on the wire")
)
