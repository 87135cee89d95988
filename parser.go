package recorder

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// rowDelimiter terminates one row of samples on the wire.
const rowDelimiter = "\r\n"

// Batch is the outcome of one parser cycle: the rows that were accepted,
// the carry-over to feed into the next cycle, and counters for everything
// that was dropped on the way.
type Batch struct {
	// Carry is the unterminated tail of the input. It must be passed back
	// into the next Parse call.
	Carry string

	// Rows holds the accepted sample rows, in wire order. All rows have
	// the same width.
	Rows [][]int

	// Noise counts non-empty lines rejected by the digit/space filter
	// (boot banners, debug prints, line garbage).
	Noise int

	// Malformed counts lines that passed the filter but still failed
	// integer conversion. A nonzero count indicates a disagreement
	// between the filter and the tokenizer and is worth logging.
	Malformed int

	// Ragged counts rows whose width differed from the first row of the
	// batch. The protocol emits a fixed channel count per batch; a ragged
	// row is a framing error.
	Ragged int
}

// Parse decodes chunk as text, prepends carry, and splits the result into
// validated integer rows. The final segment is always withheld as the new
// carry-over; one additional trailing complete segment is withheld as well,
// because in practice the line right before the carry is frequently
// truncated by the device. Parse performs no I/O and keeps no state.
//
// A chunk that does not decode as text returns ErrDecode; the caller must
// drop its carry-over and continue with the next read.
func Parse(carry string, chunk []byte) (Batch, error) {
	if !utf8.Valid(chunk) {
		return Batch{}, ErrDecode
	}

	text := carry + string(chunk)
	segments := strings.Split(text, rowDelimiter)

	b := Batch{Carry: segments[len(segments)-1]}
	if len(segments) < 3 {
		// Nothing survives once the trailing hold-back applies.
		return b, nil
	}

	width := 0
	for _, line := range segments[:len(segments)-2] {
		if line == "" {
			continue
		}
		if !numericLine(line) {
			b.Noise++
			continue
		}
		row, ok := parseRow(line)
		if !ok {
			b.Malformed++
			continue
		}
		if width == 0 {
			width = len(row)
		} else if len(row) != width {
			b.Ragged++
			continue
		}
		b.Rows = append(b.Rows, row)
	}
	return b, nil
}

// numericLine reports whether every byte of line is an ASCII digit or a
// space. Signs, decimals and letters all fail; the wire format carries
// non-negative decimal integers only.
func numericLine(line string) bool {
	for i := 0; i < len(line); i++ {
		c := line[i]
		if (c < '0' || c > '9') && c != ' ' {
			return false
		}
	}
	return true
}

// parseRow splits a filtered line on single spaces and converts each token
// to an integer.
func parseRow(line string) ([]int, bool) {
	tokens := strings.Split(line, " ")
	row := make([]int, len(tokens))
	for i, tok := range tokens {
		v, err := strconv.Atoi(tok)
		if err != nil {
			return nil, false
		}
		row[i] = v
	}
	return row, true
}
