package gdbmi

import (
	"strconv"
	"strings"
)

// prompt is the literal line gdb prints when it has delivered all currently
// available output and is waiting for the next command.
const prompt = "(gdb)"

// IsPrompt reports whether line is gdb's interactive prompt sentinel.
// Prompt lines mark the end of an output batch and must be consumed,
// never surfaced as records.
func IsPrompt(line string) bool {
	return strings.TrimRight(line, " \t\r") == prompt
}

// DecodeLine decodes one complete MI output line (already stripped of its
// trailing newline) into a Record.
//
// A leading run of decimal digits becomes the record token. The next
// character selects the kind: "^" result, "~" console, "@" target, "&" log,
// and "=", "*" or "+" notify. A line with no recognized marker decodes to an
// output record whose payload is the entire original line.
//
// DecodeLine is a pure function; it keeps no state between calls. Malformed
// payload text yields a *DecodeError carrying the offending line.
func DecodeLine(line string) (Record, error) {
	p := &lineParser{in: line}

	token, hasToken := p.readToken()

	var rec Record
	switch {
	case p.accept('^'):
		rec.Kind = KindResult
	case p.accept('~'):
		rec.Kind = KindConsole
	case p.accept('@'):
		rec.Kind = KindTarget
	case p.accept('&'):
		rec.Kind = KindLog
	case p.accept('='), p.accept('*'), p.accept('+'):
		rec.Kind = KindNotify
	default:
		// Not an MI record. gdb relays the debugged program's own output
		// through the same pipe, so hand the whole line back untouched.
		return Record{Kind: KindOutput, Payload: line}, nil
	}

	if hasToken {
		rec.Token = &token
	}

	switch rec.Kind {
	case KindConsole, KindTarget, KindLog:
		text, err := p.readString()
		if err != nil {
			return Record{}, err
		}
		rec.Payload = text
	default:
		rec.Message = p.readIdent()
		if p.accept(',') {
			payload, err := p.readTupleBody(endOfLine)
			if err != nil {
				return Record{}, err
			}
			rec.Payload = payload
		}
	}

	if !p.done() {
		return Record{}, p.errorf("trailing characters at offset %d", p.pos)
	}
	return rec, nil
}

// endOfLine is the terminator used when decoding the implicit top-level
// tuple of a result/notify record, which has no enclosing braces.
const endOfLine = byte(0)

type lineParser struct {
	in  string
	pos int
}

func (p *lineParser) done() bool {
	return p.pos >= len(p.in)
}

func (p *lineParser) peek() (byte, bool) {
	if p.done() {
		return 0, false
	}
	return p.in[p.pos], true
}

func (p *lineParser) accept(c byte) bool {
	if b, ok := p.peek(); ok && b == c {
		p.pos++
		return true
	}
	return false
}

func (p *lineParser) errorf(format string, args ...any) *DecodeError {
	return newDecodeError(p.in, format, args...)
}

// readToken consumes a leading run of decimal digits, if any.
func (p *lineParser) readToken() (int, bool) {
	start := p.pos
	for b, ok := p.peek(); ok && b >= '0' && b <= '9'; b, ok = p.peek() {
		p.pos++
	}
	if p.pos == start {
		return 0, false
	}
	token, err := strconv.Atoi(p.in[start:p.pos])
	if err != nil {
		// A token longer than an int is not something gdb produces;
		// treat the digits as ordinary line text.
		p.pos = start
		return 0, false
	}
	return token, true
}

// readIdent consumes a bare identifier, stopping at the next comma or at
// end of line.
func (p *lineParser) readIdent() string {
	start := p.pos
	for b, ok := p.peek(); ok && b != ',' && b != '=' && b != '{' && b != '[' && b != '"'; b, ok = p.peek() {
		p.pos++
	}
	return p.in[start:p.pos]
}

var escapes = map[byte]byte{
	'\\': '\\',
	'"':  '"',
	'n':  '\n',
	't':  '\t',
	'r':  '\r',
	'b':  '\b',
	'f':  '\f',
}

// readString consumes a double-quoted constant and returns its unescaped
// text. Unrecognized escape sequences are copied through verbatim,
// backslash included.
func (p *lineParser) readString() (string, error) {
	if !p.accept('"') {
		return "", p.errorf("expected quoted string at offset %d", p.pos)
	}
	var sb strings.Builder
	for {
		b, ok := p.peek()
		if !ok {
			return "", p.errorf("unterminated string constant")
		}
		p.pos++
		switch b {
		case '"':
			return sb.String(), nil
		case '\\':
			esc, ok := p.peek()
			if !ok {
				return "", p.errorf("unterminated escape sequence")
			}
			if unescaped, known := escapes[esc]; known {
				sb.WriteByte(unescaped)
			} else {
				sb.WriteByte('\\')
				sb.WriteByte(esc)
			}
			p.pos++
		default:
			sb.WriteByte(b)
		}
	}
}

// readValue consumes one value: a quoted string, a tuple or a list.
func (p *lineParser) readValue() (Value, error) {
	b, ok := p.peek()
	if !ok {
		return nil, p.errorf("expected value at end of line")
	}
	switch b {
	case '"':
		return p.readString()
	case '{':
		p.pos++
		return p.readTupleBody('}')
	case '[':
		return p.readList()
	default:
		return nil, p.errorf("expected value at offset %d, got %q", p.pos, b)
	}
}

// readTupleBody consumes comma-separated key=value pairs up to the given
// terminator. The terminator is consumed unless it is endOfLine. Nested
// commas never leak: each value parse consumes its own delimiters, so the
// loop only ever sees commas at the current nesting depth.
func (p *lineParser) readTupleBody(term byte) (Tuple, error) {
	tuple := Tuple{}
	if term != endOfLine && p.accept(term) {
		return tuple, nil
	}
	for {
		key := p.readIdent()
		if key == "" {
			return nil, p.errorf("expected result name at offset %d", p.pos)
		}
		if !p.accept('=') {
			return nil, p.errorf("expected '=' at offset %d", p.pos)
		}
		val, err := p.readValue()
		if err != nil {
			return nil, err
		}
		tuple[key] = val // last write wins on duplicate keys

		if p.accept(',') {
			continue
		}
		if term == endOfLine {
			if !p.done() {
				return nil, p.errorf("expected ',' or end of line at offset %d", p.pos)
			}
			return tuple, nil
		}
		if p.accept(term) {
			return tuple, nil
		}
		return nil, p.errorf("expected ',' or %q at offset %d", term, p.pos)
	}
}

// readList consumes a "[...]" list. Elements are values; gdb also emits
// "name=value" elements inside lists (e.g. stack=[frame={...},frame={...}]),
// in which case the name is dropped and the value kept.
func (p *lineParser) readList() (List, error) {
	p.pos++ // consume '['
	list := List{}
	if p.accept(']') {
		return list, nil
	}
	for {
		if b, ok := p.peek(); ok && b != '"' && b != '{' && b != '[' {
			if name := p.readIdent(); name == "" || !p.accept('=') {
				return nil, p.errorf("expected list element at offset %d", p.pos)
			}
		}
		val, err := p.readValue()
		if err != nil {
			return nil, err
		}
		list = append(list, val)

		if p.accept(',') {
			continue
		}
		if p.accept(']') {
			return list, nil
		}
		return nil, p.errorf("expected ',' or ']' at offset %d", p.pos)
	}
}
