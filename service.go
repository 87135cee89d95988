// Package recorder ingests a line-oriented ASCII telemetry stream from a
// serial device and maintains a fixed-capacity sliding window of the most
// recent samples per channel. A consumer (typically a display refresh
// loop) reads consistent copies of the window, or an explicitly frozen
// snapshot of it, while ingestion keeps running.
package recorder

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.bug.st/serial"
	"go.uber.org/atomic"
)

// Service owns the serial handle, the ingestion loop and the sliding
// window. All methods are safe for concurrent use.
type Service struct {
	log zerolog.Logger
	cfg Config

	snap        snapshotter
	metrics     Metrics
	readBuffers *bufferPool

	isOpen      atomic.Bool
	loopRunning atomic.Bool
	frozen      atomic.Bool
	state       atomic.String

	// mu guards the handle and the per-connection channels below.
	mu       sync.Mutex
	handle   portHandle
	closeCh  chan struct{}
	loopDone chan struct{}
	stopOnce *sync.Once
}

// New returns a Service with the given tunables. Zero fields of cfg take
// their defaults.
func New(cfg Config, logger zerolog.Logger) *Service {
	cfg = cfg.withDefaults()
	s := &Service{
		log:         logger,
		cfg:         cfg,
		readBuffers: newBufferPool(cfg.ReadBufferSize),
	}
	s.state.Store(StateIdle)
	return s
}

// Open opens the named port at the given baud rate, initializes a window
// of capacity samples per channel, and starts the ingestion loop. The
// channel count is established by the first well-formed row. Fails with
// ErrAlreadyConnected while a previous connection is live or still
// tearing down.
func (s *Service) Open(port string, baudRate, capacity int) error {
	if err := validateOpen(port, baudRate, capacity); err != nil {
		return fmt.Errorf("invalid connection parameters: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loopDone != nil {
		select {
		case <-s.loopDone:
			// previous loop fully exited
		default:
			return ErrAlreadyConnected
		}
	}
	if prev := s.handle; prev != nil {
		// A Close released closeCh and joined the loop but has not reached
		// its teardown yet. Release the old handle here; that teardown will
		// find a newer connection installed and back off.
		s.handle = nil
		if _, err := prev.Write([]byte{stopByte}); err != nil {
			s.log.Debug().Err(err).Msg("writing stop byte")
		}
		if err := prev.Close(); err != nil {
			s.log.Warn().Err(err).Msg("closing serial port")
		}
		s.metrics.Disconnections.Add(1)
	}

	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	s.metrics.ConnectionAttempts.Add(1)
	h, err := openPort(port, mode)
	if err != nil {
		return fmt.Errorf("opening serial port: %w", err)
	}
	if err = h.SetReadTimeout(s.cfg.PollInterval); err != nil {
		_ = h.Close()
		return fmt.Errorf("configuring read timeout: %w", err)
	}

	s.handle = h
	s.snap.install(newTable(0, capacity)) // width deferred until first data
	s.frozen.Store(false)
	s.closeCh = make(chan struct{})
	s.loopDone = make(chan struct{})
	s.stopOnce = new(sync.Once)
	s.isOpen.Store(true)
	s.loopRunning.Store(true)

	s.metrics.SuccessfulConnects.Add(1)
	s.metrics.LastConnectTime.Store(time.Now().Unix())
	s.log.Info().
		Str("port", port).
		Int("baud", baudRate).
		Int("samples_per_channel", capacity).
		Msg("serial connection opened")

	go s.run(h, s.closeCh, s.loopDone)
	return nil
}

// Close stops the ingestion loop and releases the handle. It is
// idempotent, safe to call concurrently, and safe to call after the loop
// already tore the connection down on its own. When Close returns, no
// further window mutation can occur.
func (s *Service) Close() error {
	s.mu.Lock()
	closeCh, done, once := s.closeCh, s.loopDone, s.stopOnce
	s.mu.Unlock()

	if closeCh != nil {
		once.Do(func() { close(closeCh) })
	}
	if done != nil {
		<-done
	}
	s.teardown(done)
	return nil
}

// teardown writes the stop byte best-effort, releases the handle and
// discards the window. done identifies the connection being torn down:
// when a later Open has already installed fresh channels, teardown leaves
// the new connection untouched. Idempotent; called from Close and from the
// loop's own exit paths.
func (s *Service) teardown(done chan struct{}) {
	s.mu.Lock()
	if s.loopDone != done {
		s.mu.Unlock()
		return
	}
	h := s.handle
	s.handle = nil
	s.mu.Unlock()

	s.isOpen.Store(false)
	if h == nil {
		return
	}
	if _, err := h.Write([]byte{stopByte}); err != nil {
		s.log.Debug().Err(err).Msg("writing stop byte")
	}
	if err := h.Close(); err != nil {
		s.log.Warn().Err(err).Msg("closing serial port")
	}
	s.snap.discard()
	s.frozen.Store(false)
	s.metrics.Disconnections.Add(1)
	s.state.Store(StateClosed)
	s.log.Info().Msg("serial connection closed")
}

// IsConnected reports whether the handle is open and the ingestion loop is
// still running. The conjunction matters: a loop that exited on a stall
// flips this to false even before Close has been called.
func (s *Service) IsConnected() bool {
	return s.isOpen.Load() && s.loopRunning.Load()
}

// State returns the current ingestion loop state.
func (s *Service) State() string {
	return s.state.Load()
}

// Freeze deep-copies the live window into the held snapshot, replacing any
// prior one, and switches Frozen on. Fails with ErrNotConnected while no
// connection is open and with ErrNoData before the first row has arrived.
func (s *Service) Freeze() error {
	if !s.isOpen.Load() {
		return ErrNotConnected
	}
	if err := s.snap.freeze(); err != nil {
		return err
	}
	s.frozen.Store(true)
	return nil
}

// Unfreeze switches subsequent default reads back to live mode. It is a
// flag flip only: the held snapshot stays available to Read(true) until
// the next Freeze or disconnect.
func (s *Service) Unfreeze() {
	s.frozen.Store(false)
}

// Frozen reports whether the display mode is currently frozen.
func (s *Service) Frozen() bool {
	return s.frozen.Load()
}

// Read returns a consumer-owned copy of the held snapshot (frozen=true) or
// of the live window (frozen=false). It never blocks the ingestion loop
// beyond the time needed to copy a bounded-size table.
func (s *Service) Read(frozen bool) (Table, error) {
	return s.snap.read(frozen)
}
