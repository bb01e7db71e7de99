package gdbmi

import "bytes"

// reassemble merges a freshly read chunk with the carry-over tail of the
// previous read and splits the result at the last line terminator.
//
// ready is the prefix ending on a line boundary, safe to split into lines
// and decode; newCarry is the remaining tail with no terminating newline,
// to be prepended to the next chunk. Either may be nil. Bytes are never
// dropped, duplicated or reordered, and neither input slice is mutated.
//
// Reassembly operates purely on line terminators. Pipe reads may tear a
// record anywhere, including inside an escape sequence or nested braces;
// that is immaterial here because the decoder only ever sees whole lines.
func reassemble(chunk, carry []byte) (ready, newCarry []byte) {
	if len(chunk) == 0 {
		return nil, carry
	}

	combined := chunk
	if len(carry) > 0 {
		combined = make([]byte, 0, len(carry)+len(chunk))
		combined = append(combined, carry...)
		combined = append(combined, chunk...)
	}

	last := bytes.LastIndexByte(combined, '\n')
	if last < 0 {
		return nil, combined
	}

	ready = combined[:last+1]
	if tail := combined[last+1:]; len(tail) > 0 {
		newCarry = tail
	}
	return ready, newCarry
}
