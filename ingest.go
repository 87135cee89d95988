package recorder

import (
	"time"
)

// Ingestion loop states, exposed for observability. The loop moves
// strictly forward: idle -> handshaking -> streaming -> (stalled ->)
// closed. There is no automatic reconnection; recovery is a fresh Open.
const (
	StateIdle        = "idle"
	StateHandshaking = "handshaking"
	StateStreaming   = "streaming"
	StateStalled     = "stalled"
	StateClosed      = "closed"
)

// Flow control bytes understood by the device.
const (
	startByte = 's'
	stopByte  = 'e'
)

// run is the ingestion loop. It owns the carry-over fragment, drives the
// parser and feeds validated rows into the window. closeCh and done belong
// to this connection; a later Open hands fresh channels to a fresh loop.
func (s *Service) run(h portHandle, closeCh <-chan struct{}, done chan struct{}) {
	defer close(done)
	defer s.loopRunning.Store(false)

	s.handshake(h)
	s.state.Store(StateStreaming)

	buf := s.readBuffers.Get()
	defer s.readBuffers.Put(buf)

	carry := ""
	lastData := time.Now()

	for {
		select {
		case <-closeCh:
			// Close() owns the teardown and is waiting on done.
			return
		default:
		}

		// Blocks at most one poll interval; n == 0 means a silent line.
		n, err := h.Read(buf)
		if err != nil {
			s.metrics.ReadErrors.Add(1)
			s.log.Error().Err(err).Msg("serial read failed, closing connection")
			s.teardown(done)
			return
		}
		if n == 0 {
			if time.Since(lastData) > s.cfg.FailureDuration {
				s.state.Store(StateStalled)
				s.metrics.Stalls.Add(1)
				s.log.Error().
					Dur("silent_for", time.Since(lastData)).
					Msg("device went silent, closing connection")
				s.teardown(done)
				return
			}
			continue
		}

		lastData = time.Now()
		s.metrics.BytesRead.Add(int64(n))
		s.metrics.LastDataTime.Store(lastData.Unix())

		batch, perr := Parse(carry, buf[:n])
		if perr != nil {
			// Undecodable bytes poison the pending fragment; drop it and
			// resynchronize on the next delimiter.
			carry = ""
			s.metrics.DecodeErrors.Add(1)
			s.log.Warn().Int("bytes", n).Msg("read undecodable bytes, dropping carry-over")
			continue
		}
		carry = batch.Carry
		s.recordDrops(batch)

		if len(batch.Rows) == 0 {
			continue
		}
		reinit, dropped := s.snap.append(batch.Rows)
		if reinit {
			s.metrics.Reinitializations.Add(1)
			s.log.Info().
				Int("channels", len(batch.Rows[0])).
				Msg("channel count changed, window reinitialized")
		}
		if dropped > 0 {
			s.metrics.RaggedRows.Add(int64(dropped))
		}
		s.metrics.RowsIngested.Add(int64(len(batch.Rows) - dropped))
	}
}

// handshake signals the device to start emitting and discards whatever was
// already queued, since the device may emit a partial frame on power-up.
// Fire-and-forget: the device does not acknowledge the start byte.
func (s *Service) handshake(h portHandle) {
	s.state.Store(StateHandshaking)
	if _, err := h.Write([]byte{startByte}); err != nil {
		s.log.Warn().Err(err).Msg("writing start byte")
	}
	if err := h.ResetInputBuffer(); err != nil {
		s.log.Debug().Err(err).Msg("resetting input buffer")
	}
	// One throwaway read: a frame already in flight when the buffer was
	// reset would otherwise corrupt the first carry-over.
	buf := s.readBuffers.Get()
	_, _ = h.Read(buf)
	s.readBuffers.Put(buf)
}

func (s *Service) recordDrops(b Batch) {
	if b.Noise > 0 {
		s.metrics.NoiseLines.Add(int64(b.Noise))
		s.log.Debug().Int("lines", b.Noise).Msg("dropped noise lines")
	}
	if b.Malformed > 0 {
		s.metrics.MalformedLines.Add(int64(b.Malformed))
		s.log.Warn().Int("lines", b.Malformed).Msg("numeric filter accepted unparseable lines")
	}
	if b.Ragged > 0 {
		s.metrics.RaggedRows.Add(int64(b.Ragged))
		s.log.Warn().Int("rows", b.Ragged).Msg("dropped rows with mismatched channel count")
	}
}
