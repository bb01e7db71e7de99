package gdbmi

// Kind classifies a decoded MI record by the marker character that
// introduced it on the wire.
type Kind string

const (
	// KindResult is a synchronous result record ("^"), e.g. "^done".
	KindResult Kind = "result"

	// KindConsole is console output that gdb asks the frontend to display ("~").
	KindConsole Kind = "console"

	// KindTarget is output produced by the target program, relayed by gdb ("@").
	KindTarget Kind = "target"

	// KindLog is gdb's own log/debug output ("&").
	KindLog Kind = "log"

	// KindNotify is an asynchronous notification ("=", "*" or "+").
	KindNotify Kind = "notify"

	// KindOutput is any line that carries no MI marker at all. gdb echoes
	// the debugged program's stdout through the same pipe, so such lines
	// are surfaced verbatim instead of being rejected.
	KindOutput Kind = "output"
)

// Stream identifies which pipe of the gdb process a record arrived on.
type Stream string

const (
	StreamStdout Stream = "stdout"
	StreamStderr Stream = "stderr"
)

// Value is one decoded MI payload value. Its dynamic type is one of:
//
//   - string for quoted constants,
//   - List for "[...]" lists,
//   - Tuple for "{...}" tuples.
type Value = any

// List is an ordered sequence of values.
type List = []Value

// Tuple maps result names to values. MI does not promise key uniqueness;
// when a key repeats within one tuple the last occurrence wins.
type Tuple = map[string]Value

// Record is one decoded unit of gdb MI output. A Record is a plain value:
// it holds no reference to the controller or the gdb process and is never
// mutated after it has been produced.
type Record struct {
	// Kind is the record class selected by the line's marker character.
	Kind Kind `json:"kind"`

	// Token is the correlation number gdb echoes back on result records,
	// or nil when the line carried none.
	Token *int `json:"token,omitempty"`

	// Message is the short result/event name following the marker. It is
	// only populated for result and notify records.
	Message string `json:"message,omitempty"`

	// Payload is the decoded value following the message, the unescaped
	// text of a stream record, or nil when the line carried nothing.
	Payload Value `json:"payload"`

	// Stream is the pipe this record was read from. The decoder leaves it
	// empty; the controller fills it in.
	Stream Stream `json:"stream,omitempty"`
}
